package main

import (
	"time"
)

// PinSample is one observed set of pin levels. Pressed is the logical
// button state; sources translate active-low wiring before emitting.
type PinSample struct {
	LevelA  bool
	LevelB  bool
	Pressed bool
}

// PinSource delivers pin level samples to the encoder.
//
// Sources may watch hardware edges or poll; the encoder does not care
// which. Every emitted sample carries the full level set, so a source
// reacting to a single-line edge reports the other lines at their last
// known level.
type PinSource interface {
	// Open claims the pins and returns the levels observed at open time.
	// The encoder seeds its decoder state from them.
	Open() (PinSample, error)

	// Events returns the sample stream. The channel closes when the
	// source fails or Close is called.
	Events() <-chan PinSample

	// Close releases the pins and closes the event stream.
	Close() error
}

// GPIOConfig selects the chip, line offsets and button debounce for the
// hardware pin source.
type GPIOConfig struct {
	ChipPath  string
	PinA      uint32
	PinB      uint32
	PinButton uint32

	// ButtonDebounce is applied as a kernel debounce period on the button
	// line only. The encoder lines stay raw; the quadrature table absorbs
	// their bounce.
	ButtonDebounce time.Duration
}

// replayStep is one scripted sample, applied after waiting delay.
type replayStep struct {
	delay  time.Duration
	sample PinSample
}

// replaySource plays a scripted sample sequence in real time. It stands in
// for the GPIO source on machines without the hardware.
type replaySource struct {
	initial PinSample
	steps   []replayStep
	loop    bool

	events chan PinSample
	quit   chan struct{}
}

func newReplaySource(initial PinSample, steps []replayStep, loop bool) *replaySource {
	return &replaySource{
		initial: initial,
		steps:   steps,
		loop:    loop,
	}
}

func (s *replaySource) Open() (PinSample, error) {
	s.events = make(chan PinSample, 16)
	s.quit = make(chan struct{})
	go s.play()
	return s.initial, nil
}

func (s *replaySource) Events() <-chan PinSample {
	return s.events
}

func (s *replaySource) Close() error {
	close(s.quit)
	return nil
}

func (s *replaySource) play() {
	defer close(s.events)
	for {
		for _, st := range s.steps {
			select {
			case <-s.quit:
				return
			case <-time.After(st.delay):
			}
			select {
			case s.events <- st.sample:
			case <-s.quit:
				return
			}
		}
		if !s.loop {
			return
		}
	}
}

// detentSteps appends one full quadrature detent in the given direction,
// starting and ending at the rest position (both channels high). gap is
// spread over the four transitions.
func detentSteps(steps []replayStep, direction int, gap time.Duration, pressed bool) []replayStep {
	cw := [][2]bool{{false, true}, {false, false}, {true, false}, {true, true}}
	ccw := [][2]bool{{true, false}, {false, false}, {false, true}, {true, true}}

	seq := cw
	if direction < 0 {
		seq = ccw
	}
	for _, levels := range seq {
		steps = append(steps, replayStep{
			delay:  gap / 4,
			sample: PinSample{LevelA: levels[0], LevelB: levels[1], Pressed: pressed},
		})
	}
	return steps
}

// demoReplay builds a looping script: a slow detent, a fast clockwise
// spin, a counterclockwise detent, a short press and a long press. Useful
// for exercising the daemon end to end without hardware.
func demoReplay() *replaySource {
	rest := PinSample{LevelA: true, LevelB: true}

	var steps []replayStep
	steps = detentSteps(steps, 1, 600*time.Millisecond, false)
	for i := 0; i < 4; i++ {
		steps = detentSteps(steps, 1, 80*time.Millisecond, false)
	}
	steps = detentSteps(steps, -1, 600*time.Millisecond, false)

	// Short press
	steps = append(steps,
		replayStep{delay: 500 * time.Millisecond, sample: PinSample{LevelA: true, LevelB: true, Pressed: true}},
		replayStep{delay: 200 * time.Millisecond, sample: rest},
	)
	// Long press
	steps = append(steps,
		replayStep{delay: 500 * time.Millisecond, sample: PinSample{LevelA: true, LevelB: true, Pressed: true}},
		replayStep{delay: 2500 * time.Millisecond, sample: rest},
	)
	steps = append(steps, replayStep{delay: time.Second, sample: rest})

	return newReplaySource(rest, steps, true)
}
