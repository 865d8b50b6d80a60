package main

import (
	"log/slog"
	"sync"
	"time"
)

// EncoderConfig contains the tunable parameters of the encoder core.
type EncoderConfig struct {
	BurstThreshold int           // quadrature steps per burst (default 4, one detent)
	HoldTime       time.Duration // nominal long-press hold time (default 3s)
	Velocity       VelocityConfig
	DuplicateModes DuplicatePolicy
}

// Encoder owns the full path from raw pin samples to dispatched gestures:
// quadrature decoding, burst accumulation, velocity classification, button
// classification and mode dispatch.
//
// A single worker goroutine consumes samples from the pin source. All
// shared state sits behind one mutex, so mode registration and the set-mode
// operations may be called from other goroutines at any time. Handlers and
// observers are invoked outside the lock, from the goroutine that caused
// them; they may safely call back into the encoder.
type Encoder struct {
	mu       sync.Mutex
	rotation *rotationTracker
	curve    velocityCurve
	button   *buttonTracker
	registry *modeRegistry

	onRotation   func(result, direction string, repeat int, boosted bool)
	onShortPress func()
	onLongPress  func()
	onModeChange func(mode string)
	onDisabled   func(reason string)

	source PinSource
	logger *slog.Logger

	running  bool
	disabled bool
	quit     chan struct{}
	done     chan struct{}
}

// NewEncoder creates an encoder reading from the given pin source. Zero
// config fields fall back to defaults.
func NewEncoder(source PinSource, cfg EncoderConfig, logger *slog.Logger) *Encoder {
	return &Encoder{
		rotation: newRotationTracker(cfg.BurstThreshold, time.Now()),
		curve:    newVelocityCurve(cfg.Velocity),
		button:   newButtonTracker(cfg.HoldTime),
		registry: newModeRegistry(cfg.DuplicateModes, logger),
		source:   source,
		logger:   logger,
	}
}

// Observer registration. Observers run synchronously on the worker; a slow
// observer stalls subsequent gesture processing.

func (e *Encoder) OnRotation(fn func(result, direction string, repeat int, boosted bool)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onRotation = fn
}

func (e *Encoder) OnShortPress(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onShortPress = fn
}

func (e *Encoder) OnLongPress(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onLongPress = fn
}

func (e *Encoder) OnModeChange(fn func(mode string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onModeChange = fn
}

// OnDisabled fires when the pin source fails, at Start or mid-run.
func (e *Encoder) OnDisabled(fn func(reason string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onDisabled = fn
}

// AddMode registers a mode. The first mode added becomes current without
// firing the mode-change observer.
func (e *Encoder) AddMode(m Mode) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.add(m)
}

// SetModeHandlers rebinds the handlers of an existing mode. Unknown names
// are ignored.
func (e *Encoder) SetModeHandlers(name string, cw, ccw, cwBoost, ccwBoost func()) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.rebind(name, cw, ccw, cwBoost, ccwBoost)
}

// SetMode selects the current mode by name. An unknown name leaves the
// current mode unchanged. The mode-change observer fires on success.
func (e *Encoder) SetMode(name string) bool {
	e.mu.Lock()
	ok := e.registry.setCurrent(name)
	observer := e.onModeChange
	e.mu.Unlock()

	if !ok {
		e.logger.Debug("ignoring unknown mode", "mode", name)
		return false
	}
	if observer != nil {
		observer(name)
	}
	return true
}

// SetModeIndex selects the current mode by insertion-order index.
// Out-of-range indexes leave the current mode unchanged.
func (e *Encoder) SetModeIndex(i int) bool {
	e.mu.Lock()
	ok := e.registry.setCurrentIndex(i)
	name, _ := e.registry.currentName()
	observer := e.onModeChange
	e.mu.Unlock()

	if !ok {
		e.logger.Debug("ignoring out-of-range mode index", "index", i)
		return false
	}
	if observer != nil {
		observer(name)
	}
	return true
}

// NextMode advances to the next mode in cycling order. With no modes
// registered it is a no-op.
func (e *Encoder) NextMode() (string, bool) {
	e.mu.Lock()
	name, ok := e.registry.next()
	observer := e.onModeChange
	e.mu.Unlock()

	if !ok {
		return "", false
	}
	if observer != nil {
		observer(name)
	}
	return name, true
}

// CurrentMode returns the current mode name, or false with none registered.
func (e *Encoder) CurrentMode() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.currentName()
}

// CurrentIndex returns the current mode's position in cycling order, or -1.
func (e *Encoder) CurrentIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.currentIndex()
}

// Modes returns the registered mode names in cycling order.
func (e *Encoder) Modes() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.list()
}

// Dispatch routes a synthetic gesture through the current mode, as if a
// rotation burst had classified to it. With no current mode the gesture is
// dropped. Returns the dispatch result and whether a mode handled it.
func (e *Encoder) Dispatch(direction int, boosted bool, repeat int) (string, bool) {
	d := 1
	if direction < 0 {
		d = -1
	}
	if repeat < 1 {
		repeat = 1
	}
	g := gesture{direction: d, boosted: boosted, repeat: repeat}

	e.mu.Lock()
	handler, result, ok := e.registry.resolve(g)
	onRotation := e.onRotation
	e.mu.Unlock()

	if !ok {
		return "", false
	}
	if handler != nil {
		for i := 0; i < g.repeat; i++ {
			handler()
		}
	}
	if onRotation != nil {
		onRotation(result, directionTag(g.direction), g.repeat, g.boosted)
	}
	return result, true
}

// DispatchButton fires the observer for an already classified press,
// exactly once.
func (e *Encoder) DispatchButton(kind buttonKind) {
	e.mu.Lock()
	short, long := e.onShortPress, e.onLongPress
	e.mu.Unlock()

	if kind == buttonLong {
		if long != nil {
			long()
		}
		return
	}
	if short != nil {
		short()
	}
}

// Start opens the pin source and launches the sample worker. Calling Start
// while running is a no-op.
//
// If the source cannot be opened the encoder stays up in a disabled state:
// no samples will ever arrive, but mode operations and synthetic dispatch
// keep working so a headless host can still drive it. The failure is
// logged, not returned.
func (e *Encoder) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.quit = make(chan struct{})
	e.done = make(chan struct{})

	initial, err := e.source.Open()
	if err != nil {
		e.disabled = true
		close(e.done)
		observer := e.onDisabled
		e.mu.Unlock()

		e.logger.Error("pin source unavailable, encoder disabled", "err", err)
		if observer != nil {
			observer(err.Error())
		}
		return
	}
	e.disabled = false

	// Seed the decoder and button state from the levels observed at open,
	// so the first edge decodes against real state instead of zero.
	e.processSample(initial, time.Now())

	go e.worker()
	e.mu.Unlock()
}

// Stop terminates the worker and releases the pin source. Calling Stop
// while stopped is a no-op.
func (e *Encoder) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	quit, done := e.quit, e.done
	disabled := e.disabled
	e.mu.Unlock()

	close(quit)
	if !disabled {
		if err := e.source.Close(); err != nil {
			e.logger.Warn("pin source close", "err", err)
		}
	}
	<-done
}

// Running reports whether Start has been called and not yet stopped.
func (e *Encoder) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Disabled reports whether the pin source failed and the encoder is
// running without input.
func (e *Encoder) Disabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.disabled
}

// worker consumes pin samples until the source closes or Stop is called.
func (e *Encoder) worker() {
	defer close(e.done)
	events := e.source.Events()
	for {
		select {
		case <-e.quit:
			return
		case s, ok := <-events:
			if !ok {
				e.mu.Lock()
				failed := e.running
				if failed {
					e.disabled = true
				}
				observer := e.onDisabled
				e.mu.Unlock()
				if failed {
					e.logger.Error("pin source closed unexpectedly, encoder disabled")
					if observer != nil {
						observer("pin source closed unexpectedly")
					}
				}
				return
			}
			e.handleSample(s, time.Now())
		}
	}
}

// handleSample runs one sample through the decode path, then fires the
// resulting handlers and observers outside the lock.
func (e *Encoder) handleSample(s PinSample, now time.Time) {
	e.mu.Lock()
	calls := e.processSample(s, now)
	e.mu.Unlock()

	for _, fn := range calls {
		fn()
	}
}

// processSample advances the decoder, classifiers and dispatcher for one
// sample and collects the callbacks to fire. Callers hold e.mu.
//
// Callbacks are returned rather than invoked so the lock is not held
// across user code. The worker runs them before accepting the next sample,
// which keeps gesture processing strictly sequential.
func (e *Encoder) processSample(s PinSample, now time.Time) []func() {
	var calls []func()

	if burst, ok := e.rotation.sample(s.LevelA, s.LevelB, now); ok {
		count, boosted := e.curve.classify(burst.elapsed)
		g := gesture{direction: burst.direction, boosted: boosted, repeat: count}

		if handler, result, ok := e.registry.resolve(g); ok {
			e.logger.Debug("gesture",
				"result", result,
				"repeat", g.repeat,
				"boosted", g.boosted,
				"elapsed", burst.elapsed,
			)
			if handler != nil {
				repeat := g.repeat
				calls = append(calls, func() {
					for i := 0; i < repeat; i++ {
						handler()
					}
				})
			}
			if e.onRotation != nil {
				onRotation := e.onRotation
				dir := directionTag(g.direction)
				repeat, boosted := g.repeat, g.boosted
				calls = append(calls, func() { onRotation(result, dir, repeat, boosted) })
			}
		}
	}

	if kind, ok := e.button.sample(s.Pressed, now); ok {
		e.logger.Debug("button", "press", kind.String())
		observer := e.onShortPress
		if kind == buttonLong {
			observer = e.onLongPress
		}
		if observer != nil {
			calls = append(calls, observer)
		}
	}

	return calls
}

// directionTag maps a signed direction to its wire string.
func directionTag(direction int) string {
	if direction < 0 {
		return directionCounterclockwise
	}
	return directionClockwise
}
