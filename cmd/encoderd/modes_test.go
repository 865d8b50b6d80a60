package main

import (
	"io"
	"log/slog"
	"testing"
)

// testLogger returns a logger that swallows output, for exercising code
// paths that log.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestModeRegistry_FirstModeBecomesCurrent tests that the first added mode
// is selected automatically
func TestModeRegistry_FirstModeBecomesCurrent(t *testing.T) {
	r := newModeRegistry(DuplicateOverwrite, testLogger())

	if _, ok := r.currentName(); ok {
		t.Error("expected no current mode on an empty registry")
	}

	r.add(Mode{Name: "volume"})
	r.add(Mode{Name: "brightness"})

	name, ok := r.currentName()
	if !ok || name != "volume" {
		t.Errorf("expected current mode volume, got %q (ok=%v)", name, ok)
	}
}

// TestModeRegistry_Cycling tests that nextMode wraps with period equal to
// the mode count
func TestModeRegistry_Cycling(t *testing.T) {
	r := newModeRegistry(DuplicateOverwrite, testLogger())
	r.add(Mode{Name: "a"})
	r.add(Mode{Name: "b"})
	r.add(Mode{Name: "c"})

	want := []string{"b", "c", "a"}
	for i, w := range want {
		name, ok := r.next()
		if !ok {
			t.Fatalf("next %d: expected ok", i)
		}
		if name != w {
			t.Errorf("next %d: expected %q, got %q", i, w, name)
		}
	}

	if name, _ := r.currentName(); name != "a" {
		t.Errorf("expected to be back at a after a full cycle, got %q", name)
	}
}

// TestModeRegistry_NextOnEmpty tests that cycling an empty registry is a
// no-op
func TestModeRegistry_NextOnEmpty(t *testing.T) {
	r := newModeRegistry(DuplicateOverwrite, testLogger())

	if _, ok := r.next(); ok {
		t.Error("expected next on an empty registry to report false")
	}
}

// TestModeRegistry_SetCurrentByName tests selection by name, including the
// unknown-name no-op
func TestModeRegistry_SetCurrentByName(t *testing.T) {
	r := newModeRegistry(DuplicateOverwrite, testLogger())
	r.add(Mode{Name: "a"})
	r.add(Mode{Name: "b"})

	if !r.setCurrent("b") {
		t.Fatal("expected setCurrent(b) to succeed")
	}
	if name, _ := r.currentName(); name != "b" {
		t.Errorf("expected current=b, got %q", name)
	}

	if r.setCurrent("nope") {
		t.Error("expected setCurrent on an unknown name to fail")
	}
	if name, _ := r.currentName(); name != "b" {
		t.Errorf("expected current unchanged after unknown name, got %q", name)
	}
}

// TestModeRegistry_SetCurrentByIndex tests selection by insertion-order
// index, including out-of-range no-ops
func TestModeRegistry_SetCurrentByIndex(t *testing.T) {
	r := newModeRegistry(DuplicateOverwrite, testLogger())
	r.add(Mode{Name: "a"})
	r.add(Mode{Name: "b"})
	r.add(Mode{Name: "c"})

	if !r.setCurrentIndex(2) {
		t.Fatal("expected setCurrentIndex(2) to succeed")
	}
	if name, _ := r.currentName(); name != "c" {
		t.Errorf("expected current=c, got %q", name)
	}

	if r.setCurrentIndex(3) {
		t.Error("expected out-of-range index to fail")
	}
	if r.setCurrentIndex(-1) {
		t.Error("expected negative index to fail")
	}
	if name, _ := r.currentName(); name != "c" {
		t.Errorf("expected current unchanged after bad index, got %q", name)
	}
}

// TestModeRegistry_DuplicateOverwrite tests that overwrite replaces the
// mode but keeps its position in cycling order
func TestModeRegistry_DuplicateOverwrite(t *testing.T) {
	r := newModeRegistry(DuplicateOverwrite, testLogger())

	calls := 0
	r.add(Mode{Name: "a"})
	r.add(Mode{Name: "b"})
	r.add(Mode{Name: "a", Clockwise: func() { calls++ }})

	if got := r.list(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("expected order [a b] after overwrite, got %v", got)
	}

	r.dispatch(gesture{direction: 1, repeat: 1})
	if calls != 1 {
		t.Errorf("expected the replacement handler to fire, got %d calls", calls)
	}
}

// TestModeRegistry_DuplicateReject tests that reject keeps the original
// mode
func TestModeRegistry_DuplicateReject(t *testing.T) {
	r := newModeRegistry(DuplicateReject, testLogger())

	original := 0
	replacement := 0
	r.add(Mode{Name: "a", Clockwise: func() { original++ }})
	if r.add(Mode{Name: "a", Clockwise: func() { replacement++ }}) {
		t.Error("expected duplicate add to report false under reject policy")
	}

	r.dispatch(gesture{direction: 1, repeat: 1})
	if original != 1 || replacement != 0 {
		t.Errorf("expected original handler to survive, got original=%d replacement=%d", original, replacement)
	}
}

// TestModeRegistry_DispatchRepeatCount tests that the handler fires exactly
// repeat times
func TestModeRegistry_DispatchRepeatCount(t *testing.T) {
	r := newModeRegistry(DuplicateOverwrite, testLogger())

	counter := 0
	r.add(Mode{Name: "volume", Clockwise: func() { counter++ }})

	result, ok := r.dispatch(gesture{direction: 1, boosted: false, repeat: 3})
	if !ok {
		t.Fatal("expected dispatch to succeed")
	}
	if counter != 3 {
		t.Errorf("expected 3 handler calls, got %d", counter)
	}
	if result != "volume_clockwise" {
		t.Errorf("expected result volume_clockwise, got %q", result)
	}
}

// TestModeRegistry_DispatchBoostHandler tests that a boosted gesture with a
// bound boost handler fires only the boost handler
func TestModeRegistry_DispatchBoostHandler(t *testing.T) {
	r := newModeRegistry(DuplicateOverwrite, testLogger())

	base := 0
	boost := 0
	r.add(Mode{
		Name:                  "volume",
		Counterclockwise:      func() { base++ },
		CounterclockwiseBoost: func() { boost++ },
	})

	result, ok := r.dispatch(gesture{direction: -1, boosted: true, repeat: 4})
	if !ok {
		t.Fatal("expected dispatch to succeed")
	}
	if boost != 4 {
		t.Errorf("expected 4 boost handler calls, got %d", boost)
	}
	if base != 0 {
		t.Errorf("expected base handler untouched, got %d calls", base)
	}
	if result != "volume_counterclockwise" {
		t.Errorf("expected result volume_counterclockwise, got %q", result)
	}
}

// TestModeRegistry_DispatchBoostFallback tests that a boosted gesture falls
// back to the base handler when no boost handler is bound
func TestModeRegistry_DispatchBoostFallback(t *testing.T) {
	r := newModeRegistry(DuplicateOverwrite, testLogger())

	base := 0
	r.add(Mode{Name: "volume", Clockwise: func() { base++ }})

	r.dispatch(gesture{direction: 1, boosted: true, repeat: 2})
	if base != 2 {
		t.Errorf("expected base handler to fire on boosted fallback, got %d calls", base)
	}
}

// TestModeRegistry_DispatchEmpty tests that dispatching with no modes drops
// the gesture
func TestModeRegistry_DispatchEmpty(t *testing.T) {
	r := newModeRegistry(DuplicateOverwrite, testLogger())

	if _, ok := r.dispatch(gesture{direction: 1, repeat: 1}); ok {
		t.Error("expected dispatch on an empty registry to report false")
	}
}

// TestModeRegistry_DispatchNoHandler tests that a mode without a handler
// for the direction still yields a result string
func TestModeRegistry_DispatchNoHandler(t *testing.T) {
	r := newModeRegistry(DuplicateOverwrite, testLogger())
	r.add(Mode{Name: "idle"})

	result, ok := r.dispatch(gesture{direction: -1, repeat: 2})
	if !ok {
		t.Fatal("expected dispatch to succeed")
	}
	if result != "idle_counterclockwise" {
		t.Errorf("expected result idle_counterclockwise, got %q", result)
	}
}

// TestModeRegistry_Rebind tests handler rebinding on an existing mode
func TestModeRegistry_Rebind(t *testing.T) {
	r := newModeRegistry(DuplicateOverwrite, testLogger())
	r.add(Mode{Name: "a"})

	calls := 0
	if !r.rebind("a", func() { calls++ }, nil, nil, nil) {
		t.Fatal("expected rebind to succeed")
	}
	r.dispatch(gesture{direction: 1, repeat: 2})
	if calls != 2 {
		t.Errorf("expected rebound handler to fire twice, got %d", calls)
	}

	if r.rebind("nope", nil, nil, nil, nil) {
		t.Error("expected rebind on an unknown mode to fail")
	}
}

// TestModeRegistry_List tests that list preserves insertion order
func TestModeRegistry_List(t *testing.T) {
	r := newModeRegistry(DuplicateOverwrite, testLogger())
	r.add(Mode{Name: "c"})
	r.add(Mode{Name: "a"})
	r.add(Mode{Name: "b"})

	got := r.list()
	want := []string{"c", "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("expected %d modes, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

// TestModeRegistry_EmptyName tests that a mode without a name is refused
func TestModeRegistry_EmptyName(t *testing.T) {
	r := newModeRegistry(DuplicateOverwrite, testLogger())

	if r.add(Mode{}) {
		t.Error("expected add of an unnamed mode to report false")
	}
	if r.count() != 0 {
		t.Errorf("expected empty registry, got %d modes", r.count())
	}
}
