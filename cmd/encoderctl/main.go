package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
)

// ============================================================================
// encoderctl - Command-line IPC Client
// ============================================================================
// This tool sends requests to the encoderd daemon via IPC.
//
// Usage:
//   encoderctl next-mode
//   encoderctl set-mode volume
//   encoderctl inject-rotation cw 5 boost
//   encoderctl get-state
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/encoderd.sock)
// ============================================================================

// Event types (duplicated from the daemon wire format for standalone binary)
type Event interface{}

type SetMode struct {
	Mode string `json:"mode"`
}

type SetModeIndex struct {
	Index int `json:"index"`
}

type NextMode struct{}

type InjectRotation struct {
	Direction string `json:"direction"`
	Boosted   bool   `json:"boosted,omitempty"`
	Repeat    int    `json:"repeat,omitempty"`
}

type InjectButton struct {
	Kind string `json:"kind"`
}

type Ping struct{}

type GetState struct{}

type GetModes struct{}

// EventEnvelope wraps events for JSON
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

func main() {
	socketPath := "/tmp/encoderd.sock"

	// Parse arguments
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Check for -socket flag
	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Parse command
	var ev Event

	switch args[0] {
	case "ping":
		ev = Ping{}

	case "get-state", "state":
		ev = GetState{}

	case "get-modes", "modes":
		ev = GetModes{}

	case "set-mode":
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: set-mode requires a mode name\n")
			os.Exit(1)
		}
		ev = SetMode{Mode: args[1]}

	case "set-mode-index":
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: set-mode-index requires an index\n")
			os.Exit(1)
		}
		var index int
		if _, err := fmt.Sscanf(args[1], "%d", &index); err != nil {
			fmt.Fprintf(os.Stderr, "error: invalid index: %v\n", err)
			os.Exit(1)
		}
		ev = SetModeIndex{Index: index}

	case "next-mode", "next":
		ev = NextMode{}

	case "inject-rotation", "rotate":
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: inject-rotation requires a direction (cw|ccw)\n")
			os.Exit(1)
		}
		direction, ok := parseDirection(args[1])
		if !ok {
			fmt.Fprintf(os.Stderr, "error: invalid direction: %s (must be cw or ccw)\n", args[1])
			os.Exit(1)
		}
		rot := InjectRotation{Direction: direction}
		for _, extra := range args[2:] {
			if extra == "boost" || extra == "boosted" {
				rot.Boosted = true
				continue
			}
			var repeat int
			if _, err := fmt.Sscanf(extra, "%d", &repeat); err != nil {
				fmt.Fprintf(os.Stderr, "error: invalid repeat count: %s\n", extra)
				os.Exit(1)
			}
			rot.Repeat = repeat
		}
		ev = rot

	case "inject-button", "press":
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: inject-button requires a kind (short|long)\n")
			os.Exit(1)
		}
		if args[1] != "short" && args[1] != "long" {
			fmt.Fprintf(os.Stderr, "error: invalid kind: %s (must be short or long)\n", args[1])
			os.Exit(1)
		}
		ev = InjectButton{Kind: args[1]}

	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "error: unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}

	// Send request
	resp, err := sendEvent(socketPath, ev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if len(resp.Data) > 0 {
		os.Stdout.Write(resp.Data)
		fmt.Println()
		return
	}
	fmt.Println("ok")
}

// parseDirection normalizes direction aliases to wire strings.
func parseDirection(s string) (string, bool) {
	switch s {
	case "cw", "clockwise":
		return "clockwise", true
	case "ccw", "counterclockwise":
		return "counterclockwise", true
	default:
		return "", false
	}
}

func sendEvent(socketPath string, ev Event) (IPCResponse, error) {
	// Connect to socket
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return IPCResponse{}, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	// Marshal event
	data, err := marshalEvent(ev)
	if err != nil {
		return IPCResponse{}, fmt.Errorf("marshal event: %w", err)
	}

	// Send event (line-delimited JSON)
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return IPCResponse{}, fmt.Errorf("send event: %w", err)
	}

	// Read response
	var response IPCResponse
	decoder := json.NewDecoder(conn)
	if err := decoder.Decode(&response); err != nil {
		return IPCResponse{}, fmt.Errorf("decode response: %w", err)
	}

	// Check response status
	if response.Status == "error" {
		return response, fmt.Errorf("daemon error: %s", response.Error)
	}

	return response, nil
}

func marshalEvent(ev Event) ([]byte, error) {
	var env EventEnvelope

	switch e := ev.(type) {
	case Ping:
		env.Type = "ping"

	case GetState:
		env.Type = "get_state"

	case GetModes:
		env.Type = "get_modes"

	case SetMode:
		env.Type = "set_mode"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal SetMode: %w", err)
		}
		env.Data = data

	case SetModeIndex:
		env.Type = "set_mode_index"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal SetModeIndex: %w", err)
		}
		env.Data = data

	case NextMode:
		env.Type = "next_mode"

	case InjectRotation:
		env.Type = "inject_rotation"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal InjectRotation: %w", err)
		}
		env.Data = data

	case InjectButton:
		env.Type = "inject_button"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal InjectButton: %w", err)
		}
		env.Data = data

	default:
		return nil, fmt.Errorf("unknown event type: %T", ev)
	}

	return json.Marshal(env)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `encoderctl - Control the encoderd daemon via IPC

Usage:
  encoderctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: /tmp/encoderd.sock)

Commands:
  ping                        Check daemon liveness
  get-state, state            Print a state snapshot as JSON
  get-modes, modes            Print registered modes as JSON
  set-mode <name>             Select a mode by name
  set-mode-index <n>          Select a mode by cycling index
  next-mode, next             Advance to the next mode
  inject-rotation <dir> [repeat] [boost]
                              Dispatch a synthetic gesture (dir: cw|ccw)
  inject-button <short|long>  Fire a synthetic button press
  help, -h, --help            Show this help message

Examples:
  encoderctl next-mode
  encoderctl set-mode volume
  encoderctl inject-rotation cw 5 boost
  encoderctl -socket /var/run/encoderd.sock get-state
`)
}
