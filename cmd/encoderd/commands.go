package main

import "fmt"

// Command represents a side effect produced by the reducer and executed by
// the daemon loop. Commands never touch daemon state directly; anything they
// observe comes back as events.
type Command interface {
	commandMarker()
	String() string
}

// CmdSetMode selects an encoder mode by name.
type CmdSetMode struct {
	Mode string
}

func (CmdSetMode) commandMarker() {}

func (c CmdSetMode) String() string {
	return fmt.Sprintf("CmdSetMode(mode=%s)", c.Mode)
}

// CmdSetModeIndex selects an encoder mode by cycling index.
type CmdSetModeIndex struct {
	Index int
}

func (CmdSetModeIndex) commandMarker() {}

func (c CmdSetModeIndex) String() string {
	return fmt.Sprintf("CmdSetModeIndex(index=%d)", c.Index)
}

// CmdNextMode advances the encoder to the next mode in cycling order.
type CmdNextMode struct{}

func (CmdNextMode) commandMarker() {}

func (CmdNextMode) String() string {
	return "CmdNextMode()"
}

// CmdInjectRotation dispatches a synthetic gesture through the encoder.
type CmdInjectRotation struct {
	Direction int // +1 clockwise, -1 counterclockwise
	Boosted   bool
	Repeat    int
}

func (CmdInjectRotation) commandMarker() {}

func (c CmdInjectRotation) String() string {
	return fmt.Sprintf("CmdInjectRotation(direction=%d, boosted=%t, repeat=%d)", c.Direction, c.Boosted, c.Repeat)
}

// CmdInjectButton fires a synthetic button press through the encoder.
type CmdInjectButton struct {
	Kind buttonKind
}

func (CmdInjectButton) commandMarker() {}

func (c CmdInjectButton) String() string {
	return fmt.Sprintf("CmdInjectButton(kind=%s)", c.Kind)
}

// CmdPostWebhook delivers an event to the configured webhook URL.
type CmdPostWebhook struct {
	Event Event
}

func (CmdPostWebhook) commandMarker() {}

func (c CmdPostWebhook) String() string {
	return fmt.Sprintf("CmdPostWebhook(event=%T)", c.Event)
}

// CmdPublishSnapshot answers a state snapshot request.
type CmdPublishSnapshot struct {
	Reply    chan<- StateSnapshot
	Snapshot StateSnapshot
}

func (CmdPublishSnapshot) commandMarker() {}

func (c CmdPublishSnapshot) String() string {
	return fmt.Sprintf("CmdPublishSnapshot(mode=%s)", c.Snapshot.Mode)
}
