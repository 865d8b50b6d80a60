package main

import (
	"time"
)

// quadDecoder converts raw A/B pin level samples into direction deltas.
//
// It keeps a 4-bit shifting state: the previous 2-bit level pair concatenated
// with the current pair. Only the eight codes that represent a legal Gray-code
// single step produce a delta; every other code (no change, illegal double
// transition, contact bounce) resolves to 0. That lookup is the debounce;
// no timer is involved.
type quadDecoder struct {
	state  uint8
	seeded bool
}

// sample feeds one pair of pin levels and returns the direction delta:
// +1 clockwise, -1 counterclockwise, 0 otherwise.
//
// The state register is updated unconditionally on every call. The first
// call only seeds the register from the observed levels and always returns 0,
// since there is no previous pair to compare against yet.
func (d *quadDecoder) sample(levelA, levelB bool) int {
	levels := uint8(0)
	if levelA {
		levels |= 0b10
	}
	if levelB {
		levels |= 0b01
	}

	if !d.seeded {
		d.seeded = true
		d.state = levels
		return 0
	}

	d.state = ((d.state << 2) | levels) & 0b1111

	switch d.state {
	case 0b1101, 0b0100, 0b0010, 0b1011:
		return 1
	case 0b1110, 0b1000, 0b0001, 0b0111:
		return -1
	}
	return 0
}

// rotationBurst is one accumulated rotation gesture: enough quadrature steps
// in one direction to cross the burst threshold.
type rotationBurst struct {
	direction int           // +1 clockwise, -1 counterclockwise
	elapsed   time.Duration // since the previous burst was emitted
}

// rotationTracker accumulates decoder deltas into bursts.
//
// A typical detent produces four quadrature transitions, so the default
// threshold of 4 emits one burst per detent. The emitted direction is the
// sign of the accumulated position at the moment the threshold is crossed,
// not the sign of the latest delta.
//
// Not safe for concurrent use; the encoder serializes the sample path.
type rotationTracker struct {
	decoder   quadDecoder
	position  int
	threshold int
	lastBurst time.Time
}

// newRotationTracker creates a tracker with the given burst threshold.
// A threshold <= 0 falls back to the default.
func newRotationTracker(threshold int, now time.Time) *rotationTracker {
	if threshold <= 0 {
		threshold = defaultBurstThreshold
	}
	return &rotationTracker{
		threshold: threshold,
		lastBurst: now,
	}
}

// sample feeds one pair of pin levels. When the accumulated position crosses
// the threshold it returns the burst and true; otherwise it returns false.
//
// On emission the accumulator resets to zero and the last-burst timestamp
// moves to now. Elapsed time for the next burst is measured from that
// timestamp, not from individual samples.
//
// This is intended to be called only by the encoder worker (single-owner).
func (r *rotationTracker) sample(levelA, levelB bool, now time.Time) (rotationBurst, bool) {
	r.position += r.decoder.sample(levelA, levelB)

	if r.position < r.threshold && -r.position < r.threshold {
		return rotationBurst{}, false
	}

	direction := 1
	if r.position < 0 {
		direction = -1
	}

	burst := rotationBurst{
		direction: direction,
		elapsed:   now.Sub(r.lastBurst),
	}
	r.position = 0
	r.lastBurst = now
	return burst, true
}
