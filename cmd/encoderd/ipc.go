package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"
)

// ============================================================================
// IPC Server - Unix Domain Socket Interface
// ============================================================================
// The IPC server allows external clients to send JSON events to the daemon
// via a Unix domain socket. This enables:
//   - Remote control via command-line tools (encoderctl)
//   - Synthetic gestures on hardware-less development machines
//   - Scripting and automation
//
// Protocol: Line-delimited JSON
//   - Client sends: {"type": "event_name", "data": {...}}
//   - Server responds: {"status": "ok", "data": {...}} or
//     {"status": "error", "error": "msg"}
//
// Most requests are enqueued as daemon events and acknowledged immediately.
// Query requests (ping, get_state, get_modes) are answered in-line; state
// queries round-trip through the daemon loop so the reply is a coherent
// snapshot rather than a torn read.
// ============================================================================

// IPCResponse represents the response sent back to IPC clients
type IPCResponse struct {
	Status string          `json:"status"`          // "ok" or "error"
	Error  string          `json:"error,omitempty"` // error message if status == "error"
	Data   json.RawMessage `json:"data,omitempty"`  // query payload if any
}

// ipcModesReply is the get_modes payload.
type ipcModesReply struct {
	Modes        []string `json:"modes"`
	Current      string   `json:"current,omitempty"`
	CurrentIndex int      `json:"current_index"`
}

// runIPCServer starts the Unix domain socket server.
// It runs until ctx is canceled, at which point it closes the listener and exits.
//
// This function is context-aware so the main program can implement proper shutdown semantics.
func runIPCServer(ctx context.Context, socketPath string, events chan<- Event, logger *slog.Logger) error {
	// Remove existing socket file if it exists
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}

	// Create Unix domain socket listener
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	// Make socket accessible (consider security implications in production)
	if err := os.Chmod(socketPath, 0666); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info("IPC listening", "socket", socketPath)

	// Close the listener on shutdown. This unblocks Accept().
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			// Exit cleanly on shutdown/close.
			if ctx.Err() != nil {
				logger.Debug("IPC listener closed (shutdown)")
				return nil
			}

			// Some platforms return net.ErrClosed; keep this defensive.
			if errors.Is(err, net.ErrClosed) || strings.Contains(err.Error(), "use of closed network connection") {
				logger.Debug("IPC listener closed")
				return nil
			}

			logger.Error("IPC accept error", "error", err)
			continue
		}

		// Handle connection in a separate goroutine.
		go handleIPCConnection(conn, events, logger)
	}
}

// handleIPCConnection handles a single IPC connection
func handleIPCConnection(conn net.Conn, events chan<- Event, logger *slog.Logger) {
	defer conn.Close()

	logger.Debug("IPC connection", "remote_addr", conn.RemoteAddr())

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)

	respond := func(resp IPCResponse) {
		if err := encoder.Encode(resp); err != nil {
			logger.Error("IPC failed to send response", "error", err)
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		logger.Debug("IPC received", "line", line)

		// Parse event from JSON (payload events only; the daemon assigns
		// timestamps via TimedEvent)
		ev, err := UnmarshalEvent([]byte(line))
		if err != nil {
			respond(IPCResponse{
				Status: "error",
				Error:  fmt.Sprintf("parse event: %v", err),
			})
			continue
		}

		// Query requests are answered here; everything else is enqueued.
		switch ev.(type) {
		case PingRequested:
			respond(IPCResponse{Status: "ok"})
			continue

		case GetStateRequested:
			snap, ok := requestSnapshot(events, time.Second)
			if !ok {
				respond(IPCResponse{Status: "error", Error: "state unavailable"})
				continue
			}
			data, err := json.Marshal(snap)
			if err != nil {
				respond(IPCResponse{Status: "error", Error: fmt.Sprintf("marshal state: %v", err)})
				continue
			}
			respond(IPCResponse{Status: "ok", Data: data})
			continue

		case GetModesRequested:
			snap, ok := requestSnapshot(events, time.Second)
			if !ok {
				respond(IPCResponse{Status: "error", Error: "state unavailable"})
				continue
			}
			data, err := json.Marshal(ipcModesReply{
				Modes:        snap.Modes,
				Current:      snap.Mode,
				CurrentIndex: snap.ModeIndex,
			})
			if err != nil {
				respond(IPCResponse{Status: "error", Error: fmt.Sprintf("marshal modes: %v", err)})
				continue
			}
			respond(IPCResponse{Status: "ok", Data: data})
			continue
		}

		// Send event to daemon
		select {
		case events <- ev:
			// Event queued successfully
			respond(IPCResponse{Status: "ok"})
		default:
			// Event channel is full (should rarely happen with buffer)
			respond(IPCResponse{
				Status: "error",
				Error:  "event queue full",
			})
		}
	}

	logger.Debug("IPC connection closed")
}

// requestSnapshot round-trips a snapshot request through the daemon loop.
// It reports false when the daemon is saturated or does not answer in time.
func requestSnapshot(events chan<- Event, timeout time.Duration) (StateSnapshot, bool) {
	reply := make(chan StateSnapshot, 1)

	select {
	case events <- RequestStateSnapshot{Reply: reply}:
	default:
		return StateSnapshot{}, false
	}

	select {
	case snap := <-reply:
		return snap, true
	case <-time.After(timeout):
		return StateSnapshot{}, false
	}
}

// ============================================================================
// IPC Client Utility Functions
// ============================================================================
// These functions can be used to send requests to the daemon from external
// programs or for testing.
// ============================================================================

// SendIPCRequest sends one event to the daemon via IPC and returns the
// decoded response. A non-ok status is returned as an error alongside the
// response so callers can still inspect it.
func SendIPCRequest(socketPath string, ev Event) (IPCResponse, error) {
	// Connect to socket
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return IPCResponse{}, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	// Marshal event
	data, err := MarshalEvent(ev)
	if err != nil {
		return IPCResponse{}, fmt.Errorf("marshal event: %w", err)
	}

	// Send event
	if _, err := fmt.Fprintf(conn, "%s\n", strings.TrimSpace(string(data))); err != nil {
		return IPCResponse{}, fmt.Errorf("send event: %w", err)
	}

	// Read response
	decoder := json.NewDecoder(conn)
	var resp IPCResponse
	if err := decoder.Decode(&resp); err != nil {
		return IPCResponse{}, fmt.Errorf("decode response: %w", err)
	}

	if resp.Status != "ok" {
		return resp, fmt.Errorf("ipc error: %s", resp.Error)
	}

	return resp, nil
}

// SendIPCEvent sends an event to the daemon via IPC, discarding any payload.
func SendIPCEvent(socketPath string, ev Event) error {
	_, err := SendIPCRequest(socketPath, ev)
	return err
}
