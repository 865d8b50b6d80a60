package main

import (
	"math"
	"time"
)

// VelocityConfig contains the tunable parameters of the repeat-count curve.
//
// The curve maps the gap between two bursts onto a repeat count:
//
//	count = scale * (-ln(elapsed))^exponent + offset
//
// with elapsed in seconds, clamped to [fastestBurstGapS, slowestBurstGapS].
// At the fast end the count saturates at maxRepeatCount, at the slow end
// it settles to 1. The defaults were fitted so the curve meets both ends
// without a discontinuity.
type VelocityConfig struct {
	CurveScale    float64 // scale factor (default 2.223)
	CurveExponent float64 // exponent on -ln(elapsed) (default 1.4)
	CurveOffset   float64 // additive offset (default -0.329)
}

// velocityCurve classifies burst timing into a repeat count and boost flag.
type velocityCurve struct {
	scale    float64
	exponent float64
	offset   float64
}

// newVelocityCurve creates a curve with defaults filled for zero fields.
func newVelocityCurve(cfg VelocityConfig) velocityCurve {
	if cfg.CurveScale == 0 {
		cfg.CurveScale = defaultCurveScale
	}
	if cfg.CurveExponent == 0 {
		cfg.CurveExponent = defaultCurveExponent
	}
	if cfg.CurveOffset == 0 {
		cfg.CurveOffset = defaultCurveOffset
	}
	return velocityCurve{
		scale:    cfg.CurveScale,
		exponent: cfg.CurveExponent,
		offset:   cfg.CurveOffset,
	}
}

// classify maps the elapsed time since the previous burst onto a repeat
// count and a boost flag.
//
// Gaps at or below the fast bound always classify as maxRepeatCount, gaps
// at or beyond the slow bound as 1. A raw count above boostRepeatThreshold
// marks the gesture as boosted and halves the count, so a boosted gesture
// drives the larger-step handler fewer times. The emitted count is never
// below 1.
func (c velocityCurve) classify(elapsed time.Duration) (count int, boosted bool) {
	s := elapsed.Seconds()
	if s < fastestBurstGapS {
		s = fastestBurstGapS
	}
	if s > slowestBurstGapS {
		s = slowestBurstGapS
	}

	switch {
	case s <= fastestBurstGapS:
		count = maxRepeatCount
	case s >= slowestBurstGapS:
		count = 1
	default:
		count = int(c.scale*math.Pow(-math.Log(s), c.exponent) + c.offset)
	}

	if count > boostRepeatThreshold {
		boosted = true
		count >>= 1
	}
	if count < 1 {
		count = 1
	}
	return count, boosted
}

// gesture is one classified rotation burst, handed to the dispatcher.
type gesture struct {
	direction int  // +1 clockwise, -1 counterclockwise
	boosted   bool // fast rotation, prefer the boost handler
	repeat    int  // how many times the selected handler fires
}
