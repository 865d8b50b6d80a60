package main

import (
	"encoding/json"
	"fmt"
)

// ============================================================================
// Daemon Events
// ============================================================================
// Events represent observations and requests from all sources (encoder
// observers, IPC, replay tooling). The daemon loop reduces them into state,
// broadcasts and commands.
// ============================================================================

// Event is a marker interface for all daemon events.
type Event interface {
	eventMarker()
}

// RotationDispatched reports one classified gesture routed to a mode.
type RotationDispatched struct {
	Result    string `json:"result"`    // mode name + direction tag, e.g. "volume_clockwise"
	Direction string `json:"direction"` // "clockwise" or "counterclockwise"
	Repeat    int    `json:"repeat"`
	Boosted   bool   `json:"boosted"`
}

func (RotationDispatched) eventMarker() {}

// CounterStepped is emitted by the built-in mode handlers, once per handler
// invocation.
type CounterStepped struct {
	Mode  string `json:"mode"`
	Delta int    `json:"delta"`
}

func (CounterStepped) eventMarker() {}

// CounterUpdated reports a mode counter's new value. Derived by the reducer
// from CounterStepped, for broadcast only.
type CounterUpdated struct {
	Mode  string `json:"mode"`
	Value int    `json:"value"`
}

func (CounterUpdated) eventMarker() {}

// ButtonPressed reports a classified button press.
type ButtonPressed struct {
	Kind string `json:"kind"` // "short" or "long"
}

func (ButtonPressed) eventMarker() {}

// ModeChanged reports a successful mode selection.
type ModeChanged struct {
	Mode  string `json:"mode"`
	Index int    `json:"index"`
}

func (ModeChanged) eventMarker() {}

// EncoderDisabled reports that the pin source failed and the daemon is
// running without hardware input.
type EncoderDisabled struct {
	Reason string `json:"reason"`
}

func (EncoderDisabled) eventMarker() {}

// ============================================================================
// Request Events (IPC / tooling)
// ============================================================================

// SetModeRequested asks the daemon to select a mode by name.
type SetModeRequested struct {
	Mode string `json:"mode"`
}

func (SetModeRequested) eventMarker() {}

// SetModeIndexRequested asks the daemon to select a mode by cycling index.
type SetModeIndexRequested struct {
	Index int `json:"index"`
}

func (SetModeIndexRequested) eventMarker() {}

// NextModeRequested asks the daemon to advance to the next mode.
type NextModeRequested struct{}

func (NextModeRequested) eventMarker() {}

// InjectRotationRequested asks the daemon to dispatch a synthetic gesture,
// as if the encoder had classified one.
type InjectRotationRequested struct {
	Direction string `json:"direction"` // "clockwise" or "counterclockwise"
	Boosted   bool   `json:"boosted,omitempty"`
	Repeat    int    `json:"repeat,omitempty"`
}

func (InjectRotationRequested) eventMarker() {}

// InjectButtonRequested asks the daemon to fire a synthetic button press.
type InjectButtonRequested struct {
	Kind string `json:"kind"` // "short" or "long"
}

func (InjectButtonRequested) eventMarker() {}

// PingRequested is a liveness probe. Answered at the IPC layer without
// touching the daemon loop.
type PingRequested struct{}

func (PingRequested) eventMarker() {}

// GetStateRequested asks for a state snapshot over IPC.
type GetStateRequested struct{}

func (GetStateRequested) eventMarker() {}

// GetModesRequested asks for the registered mode list over IPC.
type GetModesRequested struct{}

func (GetModesRequested) eventMarker() {}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================
// EventEnvelope wraps events for serialization with a type discriminator,
// shared by the IPC socket, the websocket broadcaster and the webhook
// notifier.
// ============================================================================

// EventEnvelope wraps an event with a type discriminator for JSON marshaling
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalEvent deserializes a JSON event envelope into a concrete Event
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "rotation_dispatched":
		var e RotationDispatched
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal RotationDispatched: %w", err)
		}
		return e, nil

	case "counter_stepped":
		var e CounterStepped
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal CounterStepped: %w", err)
		}
		return e, nil

	case "counter_updated":
		var e CounterUpdated
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal CounterUpdated: %w", err)
		}
		return e, nil

	case "button_pressed":
		var e ButtonPressed
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal ButtonPressed: %w", err)
		}
		return e, nil

	case "mode_changed":
		var e ModeChanged
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal ModeChanged: %w", err)
		}
		return e, nil

	case "encoder_disabled":
		var e EncoderDisabled
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal EncoderDisabled: %w", err)
		}
		return e, nil

	case "set_mode":
		var e SetModeRequested
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal SetModeRequested: %w", err)
		}
		return e, nil

	case "set_mode_index":
		var e SetModeIndexRequested
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal SetModeIndexRequested: %w", err)
		}
		return e, nil

	case "next_mode":
		return NextModeRequested{}, nil

	case "ping":
		return PingRequested{}, nil

	case "get_state":
		return GetStateRequested{}, nil

	case "get_modes":
		return GetModesRequested{}, nil

	case "inject_rotation":
		var e InjectRotationRequested
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal InjectRotationRequested: %w", err)
		}
		return e, nil

	case "inject_button":
		var e InjectButtonRequested
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal InjectButtonRequested: %w", err)
		}
		return e, nil

	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}

// MarshalEvent serializes an Event into a JSON envelope with type discriminator
func MarshalEvent(e Event) ([]byte, error) {
	var env EventEnvelope

	switch e := e.(type) {
	case RotationDispatched:
		env.Type = "rotation_dispatched"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal RotationDispatched: %w", err)
		}
		env.Data = data

	case CounterStepped:
		env.Type = "counter_stepped"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal CounterStepped: %w", err)
		}
		env.Data = data

	case CounterUpdated:
		env.Type = "counter_updated"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal CounterUpdated: %w", err)
		}
		env.Data = data

	case ButtonPressed:
		env.Type = "button_pressed"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal ButtonPressed: %w", err)
		}
		env.Data = data

	case ModeChanged:
		env.Type = "mode_changed"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal ModeChanged: %w", err)
		}
		env.Data = data

	case EncoderDisabled:
		env.Type = "encoder_disabled"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal EncoderDisabled: %w", err)
		}
		env.Data = data

	case SetModeRequested:
		env.Type = "set_mode"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal SetModeRequested: %w", err)
		}
		env.Data = data

	case SetModeIndexRequested:
		env.Type = "set_mode_index"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal SetModeIndexRequested: %w", err)
		}
		env.Data = data

	case NextModeRequested:
		env.Type = "next_mode"

	case PingRequested:
		env.Type = "ping"

	case GetStateRequested:
		env.Type = "get_state"

	case GetModesRequested:
		env.Type = "get_modes"

	case InjectRotationRequested:
		env.Type = "inject_rotation"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal InjectRotationRequested: %w", err)
		}
		env.Data = data

	case InjectButtonRequested:
		env.Type = "inject_button"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal InjectButtonRequested: %w", err)
		}
		env.Data = data

	default:
		return nil, fmt.Errorf("unsupported event type: %T", e)
	}

	return json.Marshal(env)
}
