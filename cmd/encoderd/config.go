package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the encoderd daemon.
//
// This is intentionally user-facing and stable-ish. Keep defaults and
// validation centralized so the rest of the code can assume a well-formed
// config.
//
// Design goals:
// - Make the config file the primary configuration surface.
// - Keep flags for small overrides and for environments where a file is
//   awkward.
type Config struct {
	// Encoder pins and gesture classification
	Encoder EncoderFileConfig `yaml:"encoder"`

	// Push button pin and classification
	Button ButtonFileConfig `yaml:"button"`

	// Modes in cycling order
	Modes []ModeFileConfig `yaml:"modes"`

	// IPC configuration
	IPC IPCConfig `yaml:"ipc"`

	// State websocket configuration
	StateWS StateWSConfig `yaml:"state_ws"`

	// Outbound webhook notifications
	Webhooks WebhooksConfig `yaml:"webhooks"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

type EncoderFileConfig struct {
	ChipPath       string `yaml:"chip_path"`
	PinA           uint32 `yaml:"pin_a"`
	PinB           uint32 `yaml:"pin_b"`
	BurstThreshold int    `yaml:"burst_threshold"`

	// Velocity curve parameters; see VelocityConfig.
	CurveScale    float64 `yaml:"curve_scale"`
	CurveExponent float64 `yaml:"curve_exponent"`
	CurveOffset   float64 `yaml:"curve_offset"`

	// "overwrite" (default) or "reject"
	OnDuplicateMode string `yaml:"on_duplicate_mode,omitempty"`
}

type ButtonFileConfig struct {
	Pin        uint32 `yaml:"pin"`
	HoldTimeMS int    `yaml:"hold_time_ms"`
	DebounceMS int    `yaml:"debounce_ms"`

	// ShortPressNextMode makes a short press advance to the next mode.
	ShortPressNextMode bool `yaml:"short_press_next_mode"`
}

// ModeFileConfig declares one mode. The built-in handlers step the mode's
// counter by one per invocation; boosted handlers step by BoostStep.
type ModeFileConfig struct {
	Name      string `yaml:"name"`
	BoostStep int    `yaml:"boost_step,omitempty"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type StateWSConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
	Path       string `yaml:"path"`
}

type WebhooksConfig struct {
	URLs      []string `yaml:"urls,omitempty"`
	TimeoutMS int      `yaml:"timeout_ms"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
// Keep this aligned with constants.go defaults and current CLI defaults.
func DefaultConfig() Config {
	return Config{
		Encoder: EncoderFileConfig{
			ChipPath:       defaultChipPath,
			PinA:           defaultPinA,
			PinB:           defaultPinB,
			BurstThreshold: defaultBurstThreshold,
			CurveScale:     defaultCurveScale,
			CurveExponent:  defaultCurveExponent,
			CurveOffset:    defaultCurveOffset,
		},
		Button: ButtonFileConfig{
			Pin:                defaultPinButton,
			HoldTimeMS:         3000,
			DebounceMS:         5,
			ShortPressNextMode: true,
		},
		Modes: []ModeFileConfig{
			{Name: "volume", BoostStep: defaultBoostStep},
		},
		IPC: IPCConfig{
			SocketPath: "/tmp/encoderd.sock",
		},
		StateWS: StateWSConfig{
			Enabled:    true,
			ListenAddr: "127.0.0.1:8790",
			Path:       "/ws",
		},
		Webhooks: WebhooksConfig{
			TimeoutMS: 3000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file.
//
// Notes:
//   - The file must be valid YAML.
//   - Unknown fields are rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Ensure there's no trailing garbage (only whitespace/comments are allowed after the document).
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides applies overrides from flags on top of a loaded config.
//
// Flags should pass pointers; each override is only applied if the pointer is
// non-nil, so a config file stays the primary configuration source while
// systemd drop-ins and debugging sessions can still override single values.
type FlagOverrides struct {
	ChipPath       *string
	PinA           *int
	PinB           *int
	PinButton      *int
	BurstThreshold *int
	HoldTimeMS     *int

	IPCSocketPath *string

	WSEnabled    *bool
	WSListenAddr *string

	LogLevel *string
}

// Apply merges the overrides into cfg. If an override pointer is nil, it is
// ignored. If the pointer is non-nil, the value is applied (even if it is a
// zero value).
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.ChipPath != nil {
		cfg.Encoder.ChipPath = *o.ChipPath
	}
	if o.PinA != nil {
		cfg.Encoder.PinA = uint32(*o.PinA)
	}
	if o.PinB != nil {
		cfg.Encoder.PinB = uint32(*o.PinB)
	}
	if o.PinButton != nil {
		cfg.Button.Pin = uint32(*o.PinButton)
	}
	if o.BurstThreshold != nil {
		cfg.Encoder.BurstThreshold = *o.BurstThreshold
	}
	if o.HoldTimeMS != nil {
		cfg.Button.HoldTimeMS = *o.HoldTimeMS
	}

	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}

	if o.WSEnabled != nil {
		cfg.StateWS.Enabled = *o.WSEnabled
	}
	if o.WSListenAddr != nil {
		cfg.StateWS.ListenAddr = *o.WSListenAddr
	}

	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// This is intended to be called after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	// Encoder
	if c.Encoder.ChipPath == "" {
		return errors.New("encoder.chip_path must not be empty")
	}
	if c.Encoder.PinA == c.Encoder.PinB {
		return errors.New("encoder.pin_a and encoder.pin_b must differ")
	}
	if c.Button.Pin == c.Encoder.PinA || c.Button.Pin == c.Encoder.PinB {
		return errors.New("button.pin must differ from the encoder pins")
	}
	if c.Encoder.BurstThreshold <= 0 {
		return errors.New("encoder.burst_threshold must be > 0")
	}
	if c.Encoder.CurveScale <= 0 {
		return errors.New("encoder.curve_scale must be > 0")
	}
	if c.Encoder.CurveExponent <= 0 {
		return errors.New("encoder.curve_exponent must be > 0")
	}
	switch c.Encoder.OnDuplicateMode {
	case "", string(DuplicateOverwrite), string(DuplicateReject):
	default:
		return fmt.Errorf("encoder.on_duplicate_mode must be %q or %q", DuplicateOverwrite, DuplicateReject)
	}

	// Button. The long-press threshold is hold_time - 1s, so the hold time
	// must leave it positive.
	if c.Button.HoldTimeMS <= 1000 {
		return errors.New("button.hold_time_ms must be > 1000")
	}
	if c.Button.DebounceMS < 0 {
		return errors.New("button.debounce_ms must be >= 0")
	}

	// Modes
	seen := make(map[string]struct{}, len(c.Modes))
	for i, m := range c.Modes {
		if m.Name == "" {
			return fmt.Errorf("modes[%d].name is empty", i)
		}
		if _, dup := seen[m.Name]; dup {
			return fmt.Errorf("modes[%d]: duplicate mode name %q", i, m.Name)
		}
		seen[m.Name] = struct{}{}
		if m.BoostStep < 0 {
			return fmt.Errorf("modes[%d].boost_step must be >= 0", i)
		}
	}

	// IPC
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	// State websocket
	if c.StateWS.Enabled {
		if c.StateWS.ListenAddr == "" {
			return errors.New("state_ws.listen_addr must not be empty when state_ws.enabled")
		}
		if c.StateWS.Path == "" {
			return errors.New("state_ws.path must not be empty when state_ws.enabled")
		}
	}

	// Webhooks
	for i, u := range c.Webhooks.URLs {
		if u == "" {
			return fmt.Errorf("webhooks.urls[%d] is empty", i)
		}
	}
	if c.Webhooks.TimeoutMS <= 0 {
		return errors.New("webhooks.timeout_ms must be > 0")
	}

	// Logging
	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}

	return nil
}

// ToEncoderConfig converts the file config into the encoder core config.
func (c *Config) ToEncoderConfig() EncoderConfig {
	policy := DuplicateOverwrite
	if c.Encoder.OnDuplicateMode == string(DuplicateReject) {
		policy = DuplicateReject
	}
	return EncoderConfig{
		BurstThreshold: c.Encoder.BurstThreshold,
		HoldTime:       time.Duration(c.Button.HoldTimeMS) * time.Millisecond,
		Velocity: VelocityConfig{
			CurveScale:    c.Encoder.CurveScale,
			CurveExponent: c.Encoder.CurveExponent,
			CurveOffset:   c.Encoder.CurveOffset,
		},
		DuplicateModes: policy,
	}
}

// ToGPIOConfig converts the file config into the pin source config.
func (c *Config) ToGPIOConfig() GPIOConfig {
	return GPIOConfig{
		ChipPath:       c.Encoder.ChipPath,
		PinA:           c.Encoder.PinA,
		PinB:           c.Encoder.PinB,
		PinButton:      c.Button.Pin,
		ButtonDebounce: time.Duration(c.Button.DebounceMS) * time.Millisecond,
	}
}

// ToPolicyConfig converts the file config into the reducer policy.
func (c *Config) ToPolicyConfig() PolicyConfig {
	return PolicyConfig{
		ShortPressNextMode: c.Button.ShortPressNextMode,
		WebhookEnabled:     len(c.Webhooks.URLs) > 0,
	}
}

// ExpandPath expands a leading "~" in a path using $HOME.
// This is handy for config values like ipc.socket_path.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
