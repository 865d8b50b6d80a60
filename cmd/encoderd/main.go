package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("encoderd v%s\n", version)
	fmt.Println("Rotary encoder gesture daemon with speed-adaptive dispatch")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  encoderd [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Daemon that decodes a quadrature rotary encoder plus push button from")
	fmt.Println("  GPIO, classifies rotation speed into repeated or boosted gestures, and")
	fmt.Println("  dispatches them to the current mode's handlers. State is exposed over")
	fmt.Println("  a Unix socket (line-delimited JSON) and a state websocket.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to YAML config file (flags override file values)")
	fmt.Println()
	fmt.Println("  -gpio-chip string")
	fmt.Printf("        GPIO character device path (default %q)\n", defaultChipPath)
	fmt.Println()
	fmt.Println("  -pin-a int")
	fmt.Printf("        Line offset for encoder channel A (default %d)\n", defaultPinA)
	fmt.Println()
	fmt.Println("  -pin-b int")
	fmt.Printf("        Line offset for encoder channel B (default %d)\n", defaultPinB)
	fmt.Println()
	fmt.Println("  -pin-button int")
	fmt.Printf("        Line offset for the push button (default %d)\n", defaultPinButton)
	fmt.Println()
	fmt.Println("  -burst-threshold int")
	fmt.Printf("        Quadrature steps per gesture burst (default %d, one detent)\n", defaultBurstThreshold)
	fmt.Println()
	fmt.Println("  -hold-time-ms int")
	fmt.Println("        Nominal long-press hold time in ms (default 3000)")
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix domain socket path for IPC (default \"/tmp/encoderd.sock\")\n")
	fmt.Println()
	fmt.Println("  -ws-listen string")
	fmt.Println("        State websocket listen address (default \"127.0.0.1:8790\")")
	fmt.Println()
	fmt.Println("  -no-ws")
	fmt.Println("        Disable the state websocket server")
	fmt.Println()
	fmt.Println("  -simulate")
	fmt.Println("        Replay a scripted gesture loop instead of opening GPIO")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start daemon with default settings (volume mode only)")
	fmt.Println("  encoderd")
	fmt.Println()
	fmt.Println("  # Custom pins")
	fmt.Println("  encoderd -pin-a 17 -pin-b 27 -pin-button 4")
	fmt.Println()
	fmt.Println("  # Full configuration from file")
	fmt.Println("  encoderd -config /etc/encoderd/config.yaml")
	fmt.Println()
	fmt.Println("  # Exercise the daemon on a machine without the hardware")
	fmt.Println("  encoderd -simulate -log-level debug")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - Requires access to the GPIO character device (run as root or add")
	fmt.Println("    user to the 'gpio' group)")
	fmt.Println("  - If the GPIO chip cannot be opened the daemon stays up in a disabled")
	fmt.Println("    state; IPC-injected gestures keep working")
	fmt.Println("  - Modes beyond the built-in defaults are declared in the config file")
	fmt.Println()
}

func main() {
	// Check for version/help flags early, before flag parsing can fail on
	// other args.
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	// Parse command-line flags
	var (
		configPath     = flag.String("config", "", "Path to YAML config file (flags override file values)")
		chipPath       = flag.String("gpio-chip", defaultChipPath, "GPIO character device path")
		pinA           = flag.Int("pin-a", defaultPinA, "Line offset for encoder channel A")
		pinB           = flag.Int("pin-b", defaultPinB, "Line offset for encoder channel B")
		pinButton      = flag.Int("pin-button", defaultPinButton, "Line offset for the push button")
		burstThreshold = flag.Int("burst-threshold", defaultBurstThreshold, "Quadrature steps per gesture burst")
		holdTimeMs     = flag.Int("hold-time-ms", 3000, "Nominal long-press hold time in ms")
		ipcSocketPath  = flag.String("ipc-socket", "/tmp/encoderd.sock", "Unix domain socket path for IPC")
		wsListenAddr   = flag.String("ws-listen", "127.0.0.1:8790", "State websocket listen address")
		noWS           = flag.Bool("no-ws", false, "Disable the state websocket server")
		simulate       = flag.Bool("simulate", false, "Replay a scripted gesture loop instead of opening GPIO")
		logLevelStr    = flag.String("log-level", "info", "Log level: error, warn, info, debug")
		showVersion    = flag.Bool("version", false, "Print version and exit")
		showHelp       = flag.Bool("help", false, "Print help message")
	)

	// Custom usage function
	flag.Usage = printUsage
	flag.Parse()

	// Handle help and version flags
	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	// Load configuration: defaults, then file, then explicit flag overrides.
	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	}

	// Only flags the user actually set override the file.
	var overrides FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "gpio-chip":
			overrides.ChipPath = chipPath
		case "pin-a":
			overrides.PinA = pinA
		case "pin-b":
			overrides.PinB = pinB
		case "pin-button":
			overrides.PinButton = pinButton
		case "burst-threshold":
			overrides.BurstThreshold = burstThreshold
		case "hold-time-ms":
			overrides.HoldTimeMS = holdTimeMs
		case "ipc-socket":
			overrides.IPCSocketPath = ipcSocketPath
		case "ws-listen":
			overrides.WSListenAddr = wsListenAddr
		case "no-ws":
			enabled := !*noWS
			overrides.WSEnabled = &enabled
		case "log-level":
			overrides.LogLevel = logLevelStr
		}
	})
	overrides.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	// Parse and validate log level
	logLevel, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(logLevel)

	// Pin source: hardware GPIO, or a scripted replay with -simulate.
	var source PinSource
	if *simulate {
		source = demoReplay()
	} else {
		source = newGPIOSource(cfg.ToGPIOConfig(), logger)
	}

	// Central event bus into the daemon loop.
	events := make(chan Event, defaultEventBuffer)

	// send enqueues without ever blocking an encoder callback.
	send := func(ev Event) {
		select {
		case events <- ev:
		default:
			logger.Warn("event queue full, dropping", "type", fmt.Sprintf("%T", ev))
		}
	}

	enc := NewEncoder(source, cfg.ToEncoderConfig(), logger)

	// Register configured modes. The built-in handlers step the mode's
	// counter through the daemon loop; replace them via SetModeHandlers to
	// integrate real targets.
	for _, m := range cfg.Modes {
		name := m.Name
		boost := m.BoostStep
		if boost <= 0 {
			boost = defaultBoostStep
		}
		step := func(delta int) func() {
			return func() { send(CounterStepped{Mode: name, Delta: delta}) }
		}
		enc.AddMode(Mode{
			Name:                  name,
			Clockwise:             step(1),
			Counterclockwise:      step(-1),
			ClockwiseBoost:        step(boost),
			CounterclockwiseBoost: step(-boost),
		})
	}

	// Encoder observers feed the event bus.
	enc.OnRotation(func(result, direction string, repeat int, boosted bool) {
		send(RotationDispatched{Result: result, Direction: direction, Repeat: repeat, Boosted: boosted})
	})
	enc.OnShortPress(func() { send(ButtonPressed{Kind: "short"}) })
	enc.OnLongPress(func() { send(ButtonPressed{Kind: "long"}) })
	enc.OnDisabled(func(reason string) { send(EncoderDisabled{Reason: reason}) })

	// Mode changes reach the reducer through effect observations, so the
	// set-mode effects can stay synchronous. The encoder observer is
	// log-only.
	enc.OnModeChange(func(mode string) { logger.Debug("mode change", "mode", mode) })

	// Outbound webhook notifier (optional).
	var notifier *WebhookNotifier
	if len(cfg.Webhooks.URLs) > 0 {
		notifier = newWebhookNotifier(cfg.Webhooks.URLs, time.Duration(cfg.Webhooks.TimeoutMS)*time.Millisecond)
	}

	// Daemon state seeded with the configured mode order and initial mode.
	now := time.Now()
	state := newDaemonState(enc.Modes(), now)
	if name, ok := enc.CurrentMode(); ok {
		state.SetObservedMode(name, enc.CurrentIndex(), now)
	}

	// Handle shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Websocket hub + broadcaster run even with the HTTP server disabled,
	// so the broadcasts channel always drains.
	broadcasts := make(chan Event, 128)
	wsServer := NewServer(logger, events, ServerConfig{})
	hub := wsServer.Hub()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		hub.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		RunBroadcaster(groupCtx, hub, broadcasts, logger)
		return nil
	})
	if cfg.StateWS.Enabled {
		group.Go(func() error {
			return runStateServer(groupCtx, cfg.StateWS.ListenAddr, cfg.StateWS.Path, wsServer, logger)
		})
	}
	group.Go(func() error {
		return runIPCServer(groupCtx, ExpandPath(cfg.IPC.SocketPath), events, logger)
	})
	group.Go(func() error {
		runDaemon(groupCtx, events, enc, notifier, broadcasts, cfg.ToPolicyConfig(), state, defaultTickHz, logger)
		return nil
	})

	// Start consuming pin samples. A failed open leaves the encoder
	// disabled and the daemon running.
	enc.Start()
	defer enc.Stop()

	logger.Debug("starting encoderd", "version", version)
	logger.Debug("configuration",
		"gpio_chip", cfg.Encoder.ChipPath,
		"pin_a", cfg.Encoder.PinA,
		"pin_b", cfg.Encoder.PinB,
		"pin_button", cfg.Button.Pin,
		"burst_threshold", cfg.Encoder.BurstThreshold,
		"hold_time_ms", cfg.Button.HoldTimeMS,
		"ipc_socket", cfg.IPC.SocketPath,
		"ws_enabled", cfg.StateWS.Enabled,
		"ws_listen", cfg.StateWS.ListenAddr,
		"webhooks", len(cfg.Webhooks.URLs),
		"simulate", *simulate)

	listenInfo := []any{"ipc", cfg.IPC.SocketPath, "modes", enc.Modes()}
	if cfg.StateWS.Enabled {
		listenInfo = append(listenInfo, "ws", cfg.StateWS.ListenAddr+cfg.StateWS.Path)
	}
	logger.Info("listening", listenInfo...)

	if err := group.Wait(); err != nil {
		logger.Error("daemon failed", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
