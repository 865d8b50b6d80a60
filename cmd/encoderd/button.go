package main

import (
	"time"
)

// buttonKind tags a classified button press.
type buttonKind int

const (
	buttonShort buttonKind = iota
	buttonLong
)

func (k buttonKind) String() string {
	if k == buttonLong {
		return "long"
	}
	return "short"
}

// buttonTracker classifies press/release cycles into short and long presses.
//
// Classification happens at release time only: nothing fires while the
// button is held. A press counts as long when it lasted at least
// holdTime-1s, so the effective threshold sits one second before the
// nominal hold time (default 3s, effective 2s).
//
// Not safe for concurrent use; the encoder serializes the sample path.
type buttonTracker struct {
	holdTime   time.Duration
	pressed    bool
	pressStart time.Time
}

// newButtonTracker creates a tracker with the given hold time.
// A hold time <= 0 falls back to the default.
func newButtonTracker(holdTime time.Duration) *buttonTracker {
	if holdTime <= 0 {
		holdTime = defaultHoldTime
	}
	return &buttonTracker{holdTime: holdTime}
}

// sample feeds the current button level. On a release transition it returns
// the classified press and true; every other sample returns false. Repeated
// samples of the same level are ignored, only transitions move the state.
//
// This is intended to be called only by the encoder worker (single-owner).
func (b *buttonTracker) sample(pressed bool, now time.Time) (buttonKind, bool) {
	switch {
	case pressed && !b.pressed:
		b.pressed = true
		b.pressStart = now
	case !pressed && b.pressed:
		b.pressed = false
		if now.Sub(b.pressStart) >= b.holdTime-time.Second {
			return buttonLong, true
		}
		return buttonShort, true
	}
	return 0, false
}
