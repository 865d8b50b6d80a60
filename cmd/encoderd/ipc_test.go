package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"path/filepath"
	"testing"
	"time"
)

// startIPCServer runs the IPC server on a throwaway socket and waits until
// it accepts connections.
func startIPCServer(t *testing.T, events chan Event) (socketPath string, cancel context.CancelFunc, done chan struct{}) {
	t.Helper()
	socketPath = filepath.Join(t.TempDir(), "encoderd.sock")

	ctx, cancelFn := context.WithCancel(context.Background())
	doneCh := make(chan struct{})
	go func() {
		defer close(doneCh)
		if err := runIPCServer(ctx, socketPath, events, testLogger()); err != nil {
			t.Errorf("ipc server exited with error: %v", err)
		}
	}()

	waitUntil(t, 2*time.Second, func() bool {
		conn, err := net.Dial("unix", socketPath)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, "ipc server did not start listening")

	return socketPath, cancelFn, doneCh
}

// stopIPCServer cancels the server and waits for a clean exit.
func stopIPCServer(t *testing.T, cancel context.CancelFunc, done chan struct{}) {
	t.Helper()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ipc server did not stop on cancel")
	}
}

// TestIPC_Ping tests that ping is answered at the IPC layer without touching
// the events channel.
func TestIPC_Ping(t *testing.T) {
	events := make(chan Event, 4)
	sock, cancel, done := startIPCServer(t, events)
	defer stopIPCServer(t, cancel, done)

	resp, err := SendIPCRequest(sock, PingRequested{})
	if err != nil {
		t.Fatalf("ping failed: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("expected ok status, got %s", resp.Status)
	}

	select {
	case ev := <-events:
		t.Fatalf("expected ping to stay off the events channel, got %T", ev)
	default:
	}
}

// TestIPC_EnqueuesRequests tests that control requests land on the daemon
// events channel unchanged.
func TestIPC_EnqueuesRequests(t *testing.T) {
	events := make(chan Event, 4)
	sock, cancel, done := startIPCServer(t, events)
	defer stopIPCServer(t, cancel, done)

	if err := SendIPCEvent(sock, SetModeRequested{Mode: "brightness"}); err != nil {
		t.Fatalf("set_mode failed: %v", err)
	}
	select {
	case ev := <-events:
		req, ok := ev.(SetModeRequested)
		if !ok {
			t.Fatalf("expected SetModeRequested, got %T", ev)
		}
		if req.Mode != "brightness" {
			t.Errorf("expected mode brightness, got %s", req.Mode)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for enqueued event")
	}

	if err := SendIPCEvent(sock, InjectRotationRequested{Direction: "clockwise", Repeat: 3}); err != nil {
		t.Fatalf("inject_rotation failed: %v", err)
	}
	select {
	case ev := <-events:
		req, ok := ev.(InjectRotationRequested)
		if !ok {
			t.Fatalf("expected InjectRotationRequested, got %T", ev)
		}
		if req.Direction != "clockwise" || req.Repeat != 3 {
			t.Errorf("unexpected request: %+v", req)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for enqueued event")
	}
}

// TestIPC_GetState tests the snapshot round trip: the server forwards a
// snapshot request through the events channel and relays the reply.
func TestIPC_GetState(t *testing.T) {
	events := make(chan Event, 4)
	sock, cancel, done := startIPCServer(t, events)
	defer stopIPCServer(t, cancel, done)

	// Stand in for the daemon loop: answer snapshot requests.
	go func() {
		for ev := range events {
			if req, ok := ev.(RequestStateSnapshot); ok {
				req.Reply <- StateSnapshot{
					Mode:      "volume",
					ModeIndex: 0,
					Modes:     []string{"volume", "brightness"},
					Counters:  map[string]int{"volume": 7},
					UptimeS:   42,
				}
			}
		}
	}()

	resp, err := SendIPCRequest(sock, GetStateRequested{})
	if err != nil {
		t.Fatalf("get_state failed: %v", err)
	}
	var snap StateSnapshot
	if err := json.Unmarshal(resp.Data, &snap); err != nil {
		t.Fatalf("failed to decode state payload: %v", err)
	}
	if snap.Mode != "volume" || snap.Counters["volume"] != 7 || snap.UptimeS != 42 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

// TestIPC_GetModes tests that the mode listing is derived from the same
// snapshot round trip.
func TestIPC_GetModes(t *testing.T) {
	events := make(chan Event, 4)
	sock, cancel, done := startIPCServer(t, events)
	defer stopIPCServer(t, cancel, done)

	go func() {
		for ev := range events {
			if req, ok := ev.(RequestStateSnapshot); ok {
				req.Reply <- StateSnapshot{
					Mode:      "brightness",
					ModeIndex: 1,
					Modes:     []string{"volume", "brightness"},
				}
			}
		}
	}()

	resp, err := SendIPCRequest(sock, GetModesRequested{})
	if err != nil {
		t.Fatalf("get_modes failed: %v", err)
	}
	var reply struct {
		Modes        []string `json:"modes"`
		Current      string   `json:"current"`
		CurrentIndex int      `json:"current_index"`
	}
	if err := json.Unmarshal(resp.Data, &reply); err != nil {
		t.Fatalf("failed to decode modes payload: %v", err)
	}
	if len(reply.Modes) != 2 || reply.Modes[1] != "brightness" {
		t.Errorf("unexpected modes: %v", reply.Modes)
	}
	if reply.Current != "brightness" || reply.CurrentIndex != 1 {
		t.Errorf("expected current brightness/1, got %s/%d", reply.Current, reply.CurrentIndex)
	}
}

// TestIPC_GetStateUnavailable tests that an unanswered snapshot request
// degrades to an error response instead of hanging the client.
func TestIPC_GetStateUnavailable(t *testing.T) {
	// Unbuffered and never read: the request send hits the non-blocking
	// default immediately.
	events := make(chan Event)
	sock, cancel, done := startIPCServer(t, events)
	defer stopIPCServer(t, cancel, done)

	resp, err := SendIPCRequest(sock, GetStateRequested{})
	if err == nil {
		t.Fatal("expected an error when the daemon cannot answer")
	}
	if resp.Status != "error" || resp.Error != "state unavailable" {
		t.Errorf("expected state unavailable error, got %+v", resp)
	}
}

// TestIPC_MalformedRequest tests the parse error path over a raw connection.
func TestIPC_MalformedRequest(t *testing.T) {
	events := make(chan Event, 4)
	sock, cancel, done := startIPCServer(t, events)
	defer stopIPCServer(t, cancel, done)

	conn, err := net.Dial("unix", sock)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	dec := json.NewDecoder(conn)

	if _, err := fmt.Fprintf(conn, "this is not json\n"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	var resp IPCResponse
	if err := dec.Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "error" || resp.Error == "" {
		t.Errorf("expected a parse error response, got %+v", resp)
	}

	// The connection stays usable after a bad line.
	if _, err := fmt.Fprintf(conn, `{"type":"ping"}`+"\n"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := dec.Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("expected ok after recovery, got %+v", resp)
	}
}

// TestIPC_UnknownEventType tests that unrecognized type strings are rejected.
func TestIPC_UnknownEventType(t *testing.T) {
	events := make(chan Event, 4)
	sock, cancel, done := startIPCServer(t, events)
	defer stopIPCServer(t, cancel, done)

	conn, err := net.Dial("unix", sock)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	if _, err := fmt.Fprintf(conn, `{"type":"self_destruct"}`+"\n"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	var resp IPCResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "error" {
		t.Errorf("expected error for unknown type, got %+v", resp)
	}
}
