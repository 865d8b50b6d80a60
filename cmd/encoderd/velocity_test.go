package main

import (
	"testing"
	"time"
)

// TestVelocityCurve_FastBoundary tests the fast end of the curve: a gap of
// exactly 50ms saturates at the max count, which the boost rule halves
func TestVelocityCurve_FastBoundary(t *testing.T) {
	c := newVelocityCurve(VelocityConfig{})

	count, boosted := c.classify(50 * time.Millisecond)
	if !boosted {
		t.Error("expected boosted=true at the fast boundary")
	}
	if count != 5 {
		t.Errorf("expected count=5 (10 halved), got %d", count)
	}
}

// TestVelocityCurve_SlowBoundary tests the slow end: a gap of exactly 500ms
// classifies as a single unboosted repeat
func TestVelocityCurve_SlowBoundary(t *testing.T) {
	c := newVelocityCurve(VelocityConfig{})

	count, boosted := c.classify(500 * time.Millisecond)
	if boosted {
		t.Error("expected boosted=false at the slow boundary")
	}
	if count != 1 {
		t.Errorf("expected count=1, got %d", count)
	}
}

// TestVelocityCurve_ClampBelow tests that gaps faster than the fast bound
// classify the same as the bound itself
func TestVelocityCurve_ClampBelow(t *testing.T) {
	c := newVelocityCurve(VelocityConfig{})

	count, boosted := c.classify(1 * time.Millisecond)
	if !boosted || count != 5 {
		t.Errorf("expected (5, true) below the fast bound, got (%d, %v)", count, boosted)
	}

	// Zero elapsed happens on the very first burst after a long idle
	// period was never recorded; it must not misbehave either.
	count, boosted = c.classify(0)
	if !boosted || count != 5 {
		t.Errorf("expected (5, true) at zero elapsed, got (%d, %v)", count, boosted)
	}
}

// TestVelocityCurve_ClampAbove tests that gaps slower than the slow bound
// classify as a single repeat
func TestVelocityCurve_ClampAbove(t *testing.T) {
	c := newVelocityCurve(VelocityConfig{})

	count, boosted := c.classify(3 * time.Second)
	if boosted || count != 1 {
		t.Errorf("expected (1, false) above the slow bound, got (%d, %v)", count, boosted)
	}
}

// TestVelocityCurve_MidRange tests two interior points of the curve
func TestVelocityCurve_MidRange(t *testing.T) {
	c := newVelocityCurve(VelocityConfig{})

	// 100ms: raw count 6, boosted and halved to 3
	count, boosted := c.classify(100 * time.Millisecond)
	if !boosted || count != 3 {
		t.Errorf("expected (3, true) at 100ms, got (%d, %v)", count, boosted)
	}

	// 300ms: raw count 2, below the boost threshold
	count, boosted = c.classify(300 * time.Millisecond)
	if boosted || count != 2 {
		t.Errorf("expected (2, false) at 300ms, got (%d, %v)", count, boosted)
	}
}

// TestVelocityCurve_Monotonic tests that a slower gap never produces a
// larger effective step than a faster one
func TestVelocityCurve_Monotonic(t *testing.T) {
	c := newVelocityCurve(VelocityConfig{})

	prev := -1
	for ms := 50; ms <= 500; ms += 10 {
		count, boosted := c.classify(time.Duration(ms) * time.Millisecond)
		if count < 1 {
			t.Fatalf("count below 1 at %dms: %d", ms, count)
		}
		// Compare the pre-halving magnitude so the boost cutover does
		// not register as a false non-monotonicity.
		effective := count
		if boosted {
			effective = count * 2
		}
		if prev >= 0 && effective > prev+1 {
			t.Errorf("curve increased from %d to %d at %dms", prev, effective, ms)
		}
		prev = effective
	}
}

// TestVelocityCurve_MinimumCount tests the floor of 1 when a custom curve
// underflows
func TestVelocityCurve_MinimumCount(t *testing.T) {
	c := newVelocityCurve(VelocityConfig{CurveOffset: -10})

	count, boosted := c.classify(450 * time.Millisecond)
	if boosted {
		t.Error("expected boosted=false for an underflowing curve")
	}
	if count != 1 {
		t.Errorf("expected count=1 floor, got %d", count)
	}
}

// TestVelocityCurve_Defaults tests that zero config fields pick up the
// fitted defaults
func TestVelocityCurve_Defaults(t *testing.T) {
	c := newVelocityCurve(VelocityConfig{})

	if c.scale != defaultCurveScale {
		t.Errorf("expected scale=%v, got %v", defaultCurveScale, c.scale)
	}
	if c.exponent != defaultCurveExponent {
		t.Errorf("expected exponent=%v, got %v", defaultCurveExponent, c.exponent)
	}
	if c.offset != defaultCurveOffset {
		t.Errorf("expected offset=%v, got %v", defaultCurveOffset, c.offset)
	}
}
