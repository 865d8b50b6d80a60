package main

import (
	"testing"
	"time"
)

// TestButtonTracker_ShortPress tests that a 1.5s press with the default 3s
// hold time classifies as short (effective threshold 2s)
func TestButtonTracker_ShortPress(t *testing.T) {
	b := newButtonTracker(3 * time.Second)
	t0 := time.Now()

	if _, ok := b.sample(true, t0); ok {
		t.Error("expected no event on press")
	}

	kind, ok := b.sample(false, t0.Add(1500*time.Millisecond))
	if !ok {
		t.Fatal("expected an event on release")
	}
	if kind != buttonShort {
		t.Errorf("expected short press, got %v", kind)
	}
}

// TestButtonTracker_LongPress tests that a 2.5s press with the default 3s
// hold time classifies as long
func TestButtonTracker_LongPress(t *testing.T) {
	b := newButtonTracker(3 * time.Second)
	t0 := time.Now()

	b.sample(true, t0)
	kind, ok := b.sample(false, t0.Add(2500*time.Millisecond))
	if !ok {
		t.Fatal("expected an event on release")
	}
	if kind != buttonLong {
		t.Errorf("expected long press, got %v", kind)
	}
}

// TestButtonTracker_ThresholdBoundary tests that a press lasting exactly
// holdTime-1s classifies as long
func TestButtonTracker_ThresholdBoundary(t *testing.T) {
	b := newButtonTracker(3 * time.Second)
	t0 := time.Now()

	b.sample(true, t0)
	kind, ok := b.sample(false, t0.Add(2*time.Second))
	if !ok {
		t.Fatal("expected an event on release")
	}
	if kind != buttonLong {
		t.Errorf("expected long press at the exact threshold, got %v", kind)
	}
}

// TestButtonTracker_RepeatedLevels tests that repeated samples of the same
// level neither emit events nor restart the press timer
func TestButtonTracker_RepeatedLevels(t *testing.T) {
	b := newButtonTracker(3 * time.Second)
	t0 := time.Now()

	b.sample(true, t0)

	// Bounced or re-reported pressed levels must not move pressStart
	if _, ok := b.sample(true, t0.Add(1900*time.Millisecond)); ok {
		t.Error("expected no event for a repeated pressed level")
	}

	kind, ok := b.sample(false, t0.Add(2100*time.Millisecond))
	if !ok {
		t.Fatal("expected an event on release")
	}
	if kind != buttonLong {
		t.Errorf("expected long press measured from the first press sample, got %v", kind)
	}

	// Repeated released levels are silent too
	if _, ok := b.sample(false, t0.Add(3*time.Second)); ok {
		t.Error("expected no event for a repeated released level")
	}
}

// TestButtonTracker_MultipleCycles tests that each press/release cycle
// classifies independently
func TestButtonTracker_MultipleCycles(t *testing.T) {
	b := newButtonTracker(3 * time.Second)
	now := time.Now()

	b.sample(true, now)
	kind, _ := b.sample(false, now.Add(100*time.Millisecond))
	if kind != buttonShort {
		t.Errorf("cycle 1: expected short, got %v", kind)
	}

	now = now.Add(5 * time.Second)
	b.sample(true, now)
	kind, _ = b.sample(false, now.Add(4*time.Second))
	if kind != buttonLong {
		t.Errorf("cycle 2: expected long, got %v", kind)
	}

	now = now.Add(10 * time.Second)
	b.sample(true, now)
	kind, _ = b.sample(false, now.Add(time.Second))
	if kind != buttonShort {
		t.Errorf("cycle 3: expected short, got %v", kind)
	}
}

// TestButtonTracker_DefaultHoldTime tests that a zero hold time falls back
// to the default
func TestButtonTracker_DefaultHoldTime(t *testing.T) {
	b := newButtonTracker(0)
	if b.holdTime != defaultHoldTime {
		t.Errorf("expected holdTime=%v, got %v", defaultHoldTime, b.holdTime)
	}
}
