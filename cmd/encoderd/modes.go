package main

import (
	"log/slog"
)

// Mode binds a name to rotation handlers. A mode is plain data; the
// registry owns it once added.
//
// The boost handlers are optional. A boosted gesture falls back to the
// base handler when no boost handler is bound.
type Mode struct {
	Name                  string
	Clockwise             func()
	Counterclockwise      func()
	ClockwiseBoost        func()
	CounterclockwiseBoost func()
}

// DuplicatePolicy selects what addMode does when a mode with the same name
// is already registered.
type DuplicatePolicy string

const (
	// DuplicateOverwrite replaces the registered mode in place. The mode
	// keeps its original position in the cycling order.
	DuplicateOverwrite DuplicatePolicy = "overwrite"
	// DuplicateReject keeps the registered mode and logs the attempt.
	DuplicateReject DuplicatePolicy = "reject"
)

// modeRegistry holds named modes in insertion order and tracks the current
// one. Insertion order defines both index addressing and cycling order.
//
// The registry performs no locking of its own. Mutations and dispatches are
// serialized by the encoder's sample-path mutex.
type modeRegistry struct {
	names   []string
	modes   map[string]*Mode
	current int // index into names, -1 while empty
	policy  DuplicatePolicy
	logger  *slog.Logger
}

func newModeRegistry(policy DuplicatePolicy, logger *slog.Logger) *modeRegistry {
	if policy == "" {
		policy = DuplicateOverwrite
	}
	return &modeRegistry{
		modes:   make(map[string]*Mode),
		current: -1,
		policy:  policy,
		logger:  logger,
	}
}

// add registers a mode. The first mode added becomes current automatically,
// without invoking any observer.
//
// A duplicate name follows the configured policy: overwrite replaces the
// mode but keeps its cycling position, reject keeps the original. Returns
// whether the registry now holds the given mode.
func (r *modeRegistry) add(m Mode) bool {
	if m.Name == "" {
		r.logger.Warn("ignoring mode with empty name")
		return false
	}

	if _, exists := r.modes[m.Name]; exists {
		if r.policy == DuplicateReject {
			r.logger.Warn("duplicate mode rejected", "mode", m.Name)
			return false
		}
		r.modes[m.Name] = &m
		return true
	}

	r.names = append(r.names, m.Name)
	r.modes[m.Name] = &m
	if r.current < 0 {
		r.current = 0
	}
	return true
}

// rebind replaces the handlers of an existing mode. Returns false if the
// name is unknown.
func (r *modeRegistry) rebind(name string, cw, ccw, cwBoost, ccwBoost func()) bool {
	m, ok := r.modes[name]
	if !ok {
		return false
	}
	m.Clockwise = cw
	m.Counterclockwise = ccw
	m.ClockwiseBoost = cwBoost
	m.CounterclockwiseBoost = ccwBoost
	return true
}

// currentName returns the current mode's name, or false while empty.
func (r *modeRegistry) currentName() (string, bool) {
	if r.current < 0 || r.current >= len(r.names) {
		return "", false
	}
	return r.names[r.current], true
}

// currentIndex returns the current mode's position in cycling order.
func (r *modeRegistry) currentIndex() int {
	return r.current
}

// setCurrent selects a mode by name. Unknown names leave the current mode
// unchanged and return false.
func (r *modeRegistry) setCurrent(name string) bool {
	for i, n := range r.names {
		if n == name {
			r.current = i
			return true
		}
	}
	return false
}

// setCurrentIndex selects a mode by insertion-order index. Out-of-range
// indexes leave the current mode unchanged and return false.
func (r *modeRegistry) setCurrentIndex(i int) bool {
	if i < 0 || i >= len(r.names) {
		return false
	}
	r.current = i
	return true
}

// next advances to the following mode in cycling order, wrapping at the
// end. Returns the new current name, or false while empty.
func (r *modeRegistry) next() (string, bool) {
	if len(r.names) == 0 {
		return "", false
	}
	r.current = (r.current + 1) % len(r.names)
	return r.names[r.current], true
}

// list returns the mode names in cycling order.
func (r *modeRegistry) list() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r *modeRegistry) count() int {
	return len(r.names)
}

// resolve selects the handler and result string for a gesture without
// invoking anything.
//
// The boost handler is selected only when the gesture is boosted and a
// boost handler is bound; otherwise the base handler applies. The result
// is the mode name with a direction tag appended, and is produced even
// when no handler is bound. With no current mode, ok is false.
//
// Selection is separate from invocation so the encoder can drop its lock
// before running handlers; a handler may call back into the encoder.
func (r *modeRegistry) resolve(g gesture) (handler func(), result string, ok bool) {
	name, ok := r.currentName()
	if !ok {
		return nil, "", false
	}
	m := r.modes[name]

	handler = m.Clockwise
	boost := m.ClockwiseBoost
	tag := directionClockwise
	if g.direction < 0 {
		handler = m.Counterclockwise
		boost = m.CounterclockwiseBoost
		tag = directionCounterclockwise
	}

	if g.boosted && boost != nil {
		handler = boost
	}
	return handler, m.Name + "_" + tag, true
}

// dispatch routes a classified gesture to the current mode. The selected
// handler is invoked exactly repeat times, synchronously and in order.
// With no current mode the gesture is dropped and ok is false.
func (r *modeRegistry) dispatch(g gesture) (result string, ok bool) {
	handler, result, ok := r.resolve(g)
	if !ok {
		return "", false
	}
	if handler != nil {
		for i := 0; i < g.repeat; i++ {
			handler()
		}
	}
	return result, true
}
