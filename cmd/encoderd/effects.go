package main

import (
	"fmt"
	"log/slog"
	"time"
)

// runEffect executes a single reducer-emitted Command (side effect) against
// the encoder and the webhook notifier, and emits resulting observations via
// onEvent.
//
// Design rules:
// - This function is allowed to perform I/O and to call into the encoder.
// - It must never call Reduce() directly; it only emits Events to be reduced
//   by the daemon loop.
// - The daemon loop is responsible for sequencing: Reduce -> Commands ->
//   runEffect -> Events -> Reduce.
func runEffect(
	enc *Encoder,
	notifier *WebhookNotifier,
	cmd Command,
	logger *slog.Logger,
	onEvent func(Event),
) {
	if onEvent == nil {
		// No place to report observations/errors; nothing sensible to do.
		return
	}

	now := time.Now()

	if enc == nil {
		onEvent(CommandFailed{Command: cmd, Err: errNoEncoder{}, At: now})
		return
	}

	switch c := cmd.(type) {
	case CmdSetMode:
		if !enc.SetMode(c.Mode) {
			logger.Warn("set mode failed, unknown mode", "mode", c.Mode)
			onEvent(CommandFailed{Command: cmd, Err: errUnknownMode{name: c.Mode}, At: now})
			return
		}
		onEvent(TimedEvent{Event: ModeChanged{Mode: c.Mode, Index: enc.CurrentIndex()}, At: now})

	case CmdSetModeIndex:
		if !enc.SetModeIndex(c.Index) {
			logger.Warn("set mode failed, index out of range", "index", c.Index)
			onEvent(CommandFailed{Command: cmd, Err: errBadModeIndex{index: c.Index}, At: now})
			return
		}
		name, _ := enc.CurrentMode()
		onEvent(TimedEvent{Event: ModeChanged{Mode: name, Index: c.Index}, At: now})

	case CmdNextMode:
		name, ok := enc.NextMode()
		if !ok {
			logger.Warn("next mode with no modes registered")
			onEvent(CommandFailed{Command: cmd, Err: errNoModes{}, At: now})
			return
		}
		onEvent(TimedEvent{Event: ModeChanged{Mode: name, Index: enc.CurrentIndex()}, At: now})

	case CmdInjectRotation:
		// The dispatch fans handler and observer callbacks back through the
		// daemon events channel; run it off-loop so those sends cannot block
		// the effects stage.
		go func() {
			if _, ok := enc.Dispatch(c.Direction, c.Boosted, c.Repeat); !ok {
				logger.Warn("synthetic rotation dropped, no modes registered")
			}
		}()

	case CmdInjectButton:
		// Off-loop for the same reason as CmdInjectRotation.
		go enc.DispatchButton(c.Kind)

	case CmdPostWebhook:
		if notifier == nil {
			logger.Warn("webhook command without a configured notifier")
			return
		}
		if err := notifier.Post(c.Event); err != nil {
			logger.Warn("webhook post failed", "error", err)
			onEvent(CommandFailed{Command: cmd, Err: err, At: now})
		}

	case CmdPublishSnapshot:
		// Deliver reducer-produced snapshot to the requester.
		// This keeps the reducer pure by moving the channel send into the
		// effects layer.
		if c.Reply == nil {
			logger.Warn("state snapshot requested with nil reply channel")
			return
		}

		// Never block the effects stage indefinitely.
		select {
		case c.Reply <- c.Snapshot:
			// delivered
		default:
			logger.Warn("state snapshot reply channel not ready; dropping snapshot")
		}

	default:
		// Unknown command: record failure so the reducer can react (if desired).
		logger.Warn("unknown command type", "command", cmd.String())
		onEvent(CommandFailed{
			Command: cmd,
			Err:     errUnknownCommand{cmd: cmd},
			At:      now,
		})
	}
}

// errNoEncoder indicates the daemon was asked to execute a command without an encoder.
type errNoEncoder struct{}

func (errNoEncoder) Error() string { return "no encoder" }

type errUnknownMode struct {
	name string
}

func (e errUnknownMode) Error() string { return "unknown mode: " + e.name }

type errBadModeIndex struct {
	index int
}

func (e errBadModeIndex) Error() string {
	return fmt.Sprintf("mode index out of range: %d", e.index)
}

type errNoModes struct{}

func (errNoModes) Error() string { return "no modes registered" }

type errUnknownCommand struct {
	cmd Command
}

func (e errUnknownCommand) Error() string { return "unknown command: " + e.cmd.String() }
