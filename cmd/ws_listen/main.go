package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// ws_listen tails the encoderd state websocket and prints one line per
// event. Useful for watching gestures, counters and mode changes live.

// envelope mirrors the daemon's WS wire format.
type envelope struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

func main() {
	var (
		wsURL = flag.String("ws", "ws://127.0.0.1:8790/ws", "encoderd state websocket URL")
		raw   = flag.Bool("raw", false, "Print raw JSON frames instead of formatted lines")
	)
	flag.Parse()

	// Parse websocket URL
	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	// Handle shutdown
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	// Connect to websocket
	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	// Mutex to protect concurrent writes to websocket
	var writeMu sync.Mutex

	// Set up ping/pong handlers for connection health
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Start ping ticker to keep connection alive
	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	go func() {
		for range pingTicker.C {
			writeMu.Lock()
			err := conn.WriteMessage(websocket.PingMessage, nil)
			writeMu.Unlock()
			if err != nil {
				log.Printf("ping failed: %v", err)
				return
			}
		}
	}()

	// Message reading loop
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}

			if messageType != websocket.TextMessage {
				continue
			}
			if *raw {
				fmt.Printf("%s\n", string(message))
				continue
			}
			printEnvelope(message)
		}
	}()

	// Wait for shutdown signal or connection close
	select {
	case <-sigc:
		log.Printf("shutting down...")
		// Clean close
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

// printEnvelope formats one daemon event per line.
func printEnvelope(message []byte) {
	var env envelope
	if err := json.Unmarshal(message, &env); err != nil {
		fmt.Printf("[TEXT] %s\n", string(message))
		return
	}

	switch env.Type {
	case "state_init":
		var pretty map[string]any
		if err := json.Unmarshal(env.Data, &pretty); err == nil {
			out, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Printf("[INIT]\n%s\n\n", string(out))
			return
		}
		fmt.Printf("[INIT] %s\n", string(env.Data))

	case "rotation_dispatched":
		var data struct {
			Result  string `json:"result"`
			Repeat  int    `json:"repeat"`
			Boosted bool   `json:"boosted"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			fmt.Printf("[ROTATION] %s\n", string(env.Data))
			return
		}
		suffix := ""
		if data.Boosted {
			suffix = " (boosted)"
		}
		fmt.Printf("[ROTATION] %s x%d%s\n", data.Result, data.Repeat, suffix)

	case "counter_updated":
		var data struct {
			Mode  string `json:"mode"`
			Value int    `json:"value"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			fmt.Printf("[COUNTER] %s\n", string(env.Data))
			return
		}
		fmt.Printf("[COUNTER] %s = %d\n", data.Mode, data.Value)

	case "button_pressed":
		var data struct {
			Kind string `json:"kind"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			fmt.Printf("[BUTTON] %s\n", string(env.Data))
			return
		}
		fmt.Printf("[BUTTON] %s\n", data.Kind)

	case "mode_changed":
		var data struct {
			Mode  string `json:"mode"`
			Index int    `json:"index"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			fmt.Printf("[MODE] %s\n", string(env.Data))
			return
		}
		fmt.Printf("[MODE] %s (index %d)\n", data.Mode, data.Index)

	case "encoder_disabled":
		var data struct {
			Reason string `json:"reason"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			fmt.Printf("[DISABLED] %s\n", string(env.Data))
			return
		}
		fmt.Printf("[DISABLED] %s\n", data.Reason)

	default:
		var pretty map[string]any
		if err := json.Unmarshal(message, &pretty); err == nil {
			out, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Printf("[EVENT]\n%s\n\n", string(out))
			return
		}
		fmt.Printf("[EVENT] %s\n", string(message))
	}
}
