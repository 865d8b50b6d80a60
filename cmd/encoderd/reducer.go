package main

import "time"

// This file implements the reducer building blocks:
//
//   - internal events (TimedEvent, Tick, CommandFailed, RequestStateSnapshot)
//   - Reduce(): computes next state + broadcasts + commands, without I/O
//
// The reducer must be pure. It must not touch the encoder, the network or the
// clock; timestamps come in on the events. The daemon loop executes Commands,
// feeds resulting observations back as Events, and hands Broadcasts to the
// websocket hub.

// TimedEvent wraps an event with its arrival time. The daemon loop wraps
// everything read from the events channel; the effects stage wraps the
// observations it emits.
type TimedEvent struct {
	Event Event
	At    time.Time
}

func (TimedEvent) eventMarker() {}

// Tick is emitted by the daemon loop at a fixed cadence.
// Dt is wall-clock delta in seconds between ticks.
type Tick struct {
	Now time.Time
	Dt  float64
}

func (Tick) eventMarker() {}

// CommandFailed is emitted when executing a Command fails.
type CommandFailed struct {
	Command Command
	Err     error
	At      time.Time
}

func (CommandFailed) eventMarker() {}

// RequestStateSnapshot asks the reducer for a coherent state snapshot,
// delivered through Reply by the effects stage. Used by the websocket hub for
// the state_init message and by the IPC get-state request.
type RequestStateSnapshot struct {
	Reply chan StateSnapshot
}

func (RequestStateSnapshot) eventMarker() {}

// PolicyConfig is the reducer's slice of the daemon configuration.
type PolicyConfig struct {
	// ShortPressNextMode makes a short press advance to the next mode.
	ShortPressNextMode bool

	// WebhookEnabled gates CmdPostWebhook emission. Set when at least one
	// webhook URL is configured.
	WebhookEnabled bool
}

// ReduceResult is the output of Reduce(): next state plus the Broadcasts to
// push to websocket clients and the Commands to execute.
type ReduceResult struct {
	State      *DaemonState
	Commands   []Command
	Broadcasts []Event
}

// Reduce is the pure reducer:
//
// Rules:
// - Must not perform I/O
// - Must not block
// - Must not mutate anything outside the returned state
//
// The daemon loop must:
// - execute Commands
// - feed resulting observations back into Reduce()
// - hand Broadcasts to the websocket hub
func Reduce(s *DaemonState, e Event, cfg PolicyConfig) ReduceResult {
	if s == nil {
		s = &DaemonState{}
	}

	var cmds []Command
	var bcasts []Event

	switch ev := e.(type) {
	case TimedEvent:
		at := ev.At
		if at.IsZero() {
			at = time.Now()
		}

		switch inner := ev.Event.(type) {
		case RotationDispatched:
			s.SetObservedGesture(inner.Result, inner.Direction, inner.Repeat, inner.Boosted, at)
			bcasts = append(bcasts, inner)
			if cfg.WebhookEnabled {
				cmds = append(cmds, CmdPostWebhook{Event: inner})
			}

		case CounterStepped:
			value := s.StepCounter(inner.Mode, inner.Delta, at)
			bcasts = append(bcasts, CounterUpdated{Mode: inner.Mode, Value: value})

		case ButtonPressed:
			s.SetObservedButton(inner.Kind, at)
			bcasts = append(bcasts, inner)
			if cfg.WebhookEnabled {
				cmds = append(cmds, CmdPostWebhook{Event: inner})
			}
			if inner.Kind == "short" && cfg.ShortPressNextMode {
				cmds = append(cmds, CmdNextMode{})
			}

		case ModeChanged:
			// Broadcast only on an actual change; re-selecting the current
			// mode refreshes the observation timestamp silently.
			changed := !s.Mode.Known || s.Mode.Name != inner.Mode || s.Mode.Index != inner.Index
			s.SetObservedMode(inner.Mode, inner.Index, at)
			if changed {
				bcasts = append(bcasts, inner)
				if cfg.WebhookEnabled {
					cmds = append(cmds, CmdPostWebhook{Event: inner})
				}
			}

		case EncoderDisabled:
			s.SetDisabled(inner.Reason, at)
			bcasts = append(bcasts, inner)

		case SetModeRequested:
			cmds = append(cmds, CmdSetMode{Mode: inner.Mode})

		case SetModeIndexRequested:
			cmds = append(cmds, CmdSetModeIndex{Index: inner.Index})

		case NextModeRequested:
			cmds = append(cmds, CmdNextMode{})

		case InjectRotationRequested:
			direction := 0
			switch inner.Direction {
			case directionClockwise:
				direction = 1
			case directionCounterclockwise:
				direction = -1
			}
			if direction == 0 {
				// IPC validates directions; anything else is dropped here.
				break
			}
			repeat := inner.Repeat
			if repeat < 1 {
				repeat = 1
			}
			cmds = append(cmds, CmdInjectRotation{Direction: direction, Boosted: inner.Boosted, Repeat: repeat})

		case InjectButtonRequested:
			switch inner.Kind {
			case "short":
				cmds = append(cmds, CmdInjectButton{Kind: buttonShort})
			case "long":
				cmds = append(cmds, CmdInjectButton{Kind: buttonLong})
			}

		case RequestStateSnapshot:
			cmds = append(cmds, CmdPublishSnapshot{Reply: inner.Reply, Snapshot: snapshotState(s, at)})

		default:
			// Unknown wrapped event: no-op.
		}

	case Tick:
		// No periodic state evolution; ticks only pace queue flushing in the
		// daemon loop.
		_ = ev

	case CommandFailed:
		// Keep state as-is. The effects stage already logged the failure.
		_ = ev

	default:
		// Unknown event type: no-op.
	}

	return ReduceResult{
		State:      s,
		Commands:   cmds,
		Broadcasts: bcasts,
	}
}
