package main

import "time"

// DaemonState is the top-level, daemon-owned state container.
//
// Goals:
//   - Keep all reducer-owned state in one place (pure reducer, no external mutation).
//   - Cache what the encoder reported (current mode, last gesture, last button)
//     so it can be exposed to IPC and websocket clients.
//   - Make it easy to publish a coherent snapshot to other clients.
//
// The encoder itself stays authoritative for mode selection; this state is the
// daemon's observed view of it, updated from encoder events.
type DaemonState struct {
	// Modes is the cycling order, seeded from the configuration at startup.
	Modes []string

	// Mode is the last observed current mode.
	Mode ModeObservedState

	// Counters holds the per-mode counter values driven by the built-in mode
	// handlers. Keys are mode names; values accumulate handler step deltas.
	Counters map[string]int

	// LastGesture is the last rotation gesture routed through the dispatcher.
	LastGesture GestureObservedState

	// LastButton is the last classified button press.
	LastButton ButtonObservedState

	// ShortPresses and LongPresses count classified button presses since start.
	ShortPresses int
	LongPresses  int

	// Disabled records that the pin source failed and hardware input is gone.
	// IPC-injected gestures keep working.
	Disabled       bool
	DisabledReason string

	// StartedAt is when the daemon state was created; UpdatedAt is the last
	// time any observation landed.
	StartedAt time.Time
	UpdatedAt time.Time
}

// ModeObservedState is the daemon's cached view of the encoder's current mode.
type ModeObservedState struct {
	Name  string
	Index int
	Known bool
	At    time.Time
}

// GestureObservedState is the last rotation gesture the dispatcher produced.
type GestureObservedState struct {
	Result    string
	Direction string
	Repeat    int
	Boosted   bool
	Known     bool
	At        time.Time
}

// ButtonObservedState is the last classified button press.
type ButtonObservedState struct {
	Kind  string
	Known bool
	At    time.Time
}

// newDaemonState seeds the state container with the configured mode order.
// Counter values start at zero for every configured mode.
func newDaemonState(modes []string, now time.Time) *DaemonState {
	s := &DaemonState{
		Modes:     append([]string(nil), modes...),
		Counters:  make(map[string]int, len(modes)),
		StartedAt: now,
		UpdatedAt: now,
	}
	for _, m := range modes {
		s.Counters[m] = 0
	}
	return s
}

// SetObservedMode updates the cached current mode.
// This is intended to be called only by the daemon goroutine (single-owner).
func (s *DaemonState) SetObservedMode(name string, index int, now time.Time) {
	s.Mode.Name = name
	s.Mode.Index = index
	s.Mode.Known = true
	s.Mode.At = now
	s.UpdatedAt = now
}

// SetObservedGesture updates the last dispatched gesture.
// This is intended to be called only by the daemon goroutine (single-owner).
func (s *DaemonState) SetObservedGesture(result, direction string, repeat int, boosted bool, now time.Time) {
	s.LastGesture.Result = result
	s.LastGesture.Direction = direction
	s.LastGesture.Repeat = repeat
	s.LastGesture.Boosted = boosted
	s.LastGesture.Known = true
	s.LastGesture.At = now
	s.UpdatedAt = now
}

// SetObservedButton updates the last classified button press and bumps the
// matching press counter.
// This is intended to be called only by the daemon goroutine (single-owner).
func (s *DaemonState) SetObservedButton(kind string, now time.Time) {
	s.LastButton.Kind = kind
	s.LastButton.Known = true
	s.LastButton.At = now
	switch kind {
	case "short":
		s.ShortPresses++
	case "long":
		s.LongPresses++
	}
	s.UpdatedAt = now
}

// StepCounter adjusts a mode's counter by delta and returns the new value.
// Unknown modes get a counter on first use.
// This is intended to be called only by the daemon goroutine (single-owner).
func (s *DaemonState) StepCounter(mode string, delta int, now time.Time) int {
	if s.Counters == nil {
		s.Counters = make(map[string]int)
	}
	s.Counters[mode] += delta
	s.UpdatedAt = now
	return s.Counters[mode]
}

// SetDisabled records that hardware input is gone.
// This is intended to be called only by the daemon goroutine (single-owner).
func (s *DaemonState) SetDisabled(reason string, now time.Time) {
	s.Disabled = true
	s.DisabledReason = reason
	s.UpdatedAt = now
}

// ============================================================================
// Snapshots
// ============================================================================

// StateSnapshot is a self-contained copy of the daemon state for publication
// to IPC and websocket clients. It never aliases reducer-owned maps or slices.
type StateSnapshot struct {
	Mode         string           `json:"mode"`
	ModeIndex    int              `json:"mode_index"`
	Modes        []string         `json:"modes"`
	Counters     map[string]int   `json:"counters"`
	LastGesture  *GestureSnapshot `json:"last_gesture,omitempty"`
	LastButton   *ButtonSnapshot  `json:"last_button,omitempty"`
	ShortPresses int              `json:"short_presses"`
	LongPresses  int              `json:"long_presses"`
	Disabled     bool             `json:"disabled,omitempty"`
	UptimeS      int64            `json:"uptime_s"`
	At           time.Time        `json:"at"`
}

// GestureSnapshot mirrors GestureObservedState for JSON publication.
type GestureSnapshot struct {
	Result    string    `json:"result"`
	Direction string    `json:"direction"`
	Repeat    int       `json:"repeat"`
	Boosted   bool      `json:"boosted"`
	At        time.Time `json:"at"`
}

// ButtonSnapshot mirrors ButtonObservedState for JSON publication.
type ButtonSnapshot struct {
	Kind string    `json:"kind"`
	At   time.Time `json:"at"`
}

// snapshotState builds a publication-safe snapshot of the daemon state.
func snapshotState(s *DaemonState, now time.Time) StateSnapshot {
	snap := StateSnapshot{
		Mode:         s.Mode.Name,
		ModeIndex:    s.Mode.Index,
		Modes:        append([]string(nil), s.Modes...),
		Counters:     make(map[string]int, len(s.Counters)),
		ShortPresses: s.ShortPresses,
		LongPresses:  s.LongPresses,
		Disabled:     s.Disabled,
		UptimeS:      int64(now.Sub(s.StartedAt).Seconds()),
		At:           now,
	}
	for k, v := range s.Counters {
		snap.Counters[k] = v
	}
	if s.LastGesture.Known {
		snap.LastGesture = &GestureSnapshot{
			Result:    s.LastGesture.Result,
			Direction: s.LastGesture.Direction,
			Repeat:    s.LastGesture.Repeat,
			Boosted:   s.LastGesture.Boosted,
			At:        s.LastGesture.At,
		}
	}
	if s.LastButton.Known {
		snap.LastButton = &ButtonSnapshot{
			Kind: s.LastButton.Kind,
			At:   s.LastButton.At,
		}
	}
	return snap
}
