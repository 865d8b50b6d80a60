package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ============================================================================
// Central Daemon Loop - Reducer-driven "Daemon Brain"
// ============================================================================
//
// Design rules enforced here:
//   - The reducer performs no I/O and computes: next state + broadcasts + commands.
//   - The daemon loop is the only place that executes side effects (encoder
//     calls, webhook posts, snapshot replies).
//   - Encoder responses are turned into Events and fed back into the reducer.
//   - Broadcasts are forwarded to the websocket broadcaster, never executed.
//
// Queue discipline:
//   - Use an explicit event queue and command queue (no nested/re-entrant
//     execution).
//   - The reducer is pure and owns observed state via DaemonState.
//
// ============================================================================

// runDaemon is the main daemon loop that:
//   - Receives Events from multiple sources (encoder observers, IPC, replay)
//   - Emits Tick events on a fixed cadence
//   - Reduces events into (state, broadcasts, commands)
//   - Executes commands and feeds observations back into the reducer
//
// Shutdown semantics:
//   - Exits when ctx is canceled
//   - Exits cleanly when the events channel is closed
func runDaemon(
	ctx context.Context,
	events <-chan Event,
	enc *Encoder,
	notifier *WebhookNotifier,
	broadcasts chan<- Event,
	cfg PolicyConfig,
	state *DaemonState,
	tickHz int,
	logger *slog.Logger,
) {
	// Guard: reducer-driven daemon expects a state container.
	if state == nil {
		logger.Error("daemon state is nil")
		return
	}

	// Configure tick cadence.
	if tickHz <= 0 {
		tickHz = defaultTickHz
	}
	tickInterval := time.Second / time.Duration(tickHz)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	lastTick := time.Now()

	// Explicit queues:
	// - eventQueue holds events awaiting reduction
	// - cmdQueue holds commands awaiting execution
	var eventQueue []Event
	var cmdQueue []Command

	enqueueEvent := func(ev Event) {
		eventQueue = append(eventQueue, ev)
	}
	enqueueCommands := func(cmds []Command) {
		if len(cmds) == 0 {
			return
		}
		cmdQueue = append(cmdQueue, cmds...)
	}

	// Forward reducer broadcasts to the websocket broadcaster. The loop must
	// never block on a slow consumer; the hub already drops when saturated.
	publishBroadcasts := func(bcasts []Event) {
		if broadcasts == nil {
			return
		}
		for _, b := range bcasts {
			select {
			case broadcasts <- b:
			default:
				logger.Warn("broadcast queue full, dropping", "type", fmt.Sprintf("%T", b))
			}
		}
	}

	// Reduce all queued events, enqueuing any resulting commands.
	flushEvents := func() {
		for len(eventQueue) > 0 {
			ev := eventQueue[0]
			eventQueue = eventQueue[1:]

			rr := Reduce(state, ev, cfg)
			if rr.State != nil {
				state = rr.State
			}
			enqueueCommands(rr.Commands)
			publishBroadcasts(rr.Broadcasts)
		}
	}

	// Execute all queued commands, enqueuing observation events.
	flushCommands := func() {
		for len(cmdQueue) > 0 {
			cmd := cmdQueue[0]
			cmdQueue = cmdQueue[1:]

			runEffect(enc, notifier, cmd, logger, func(obs Event) {
				enqueueEvent(obs)
			})

			// Observations should be reduced promptly to keep state coherent and
			// allow the reducer to emit follow-up commands (if any).
			flushEvents()
		}
	}

	// Main loop
	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping (events channel closed)")
				return
			}
			enqueueEvent(TimedEvent{Event: ev, At: time.Now()})
			flushEvents()
			flushCommands()

		case now := <-ticker.C:
			dt := now.Sub(lastTick).Seconds()
			lastTick = now
			enqueueEvent(Tick{Now: now, Dt: dt})
			flushEvents()
			flushCommands()
		}
	}
}

// NOTE:
// Command execution is implemented in `effects.go` as `runEffect(...)`.
// This file is only responsible for orchestrating event/command queues and reducer invocation.
