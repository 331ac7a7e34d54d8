package loxx

import "github.com/BurntSushi/toml"

// Config tunes the VM and compiler's fixed-size limits and debug tracing,
// the Go-side equivalent of the book's compile-time constants and debug.h
// flags. An embedder loads one from TOML the way maggie.toml configures a
// project manifest.
type Config struct {
	FramesMax          int  `toml:"frames_max"`
	StackSlotsPerFrame int  `toml:"stack_slots_per_frame"`
	TraceExecution     bool `toml:"trace_execution"`
	PrintCode          bool `toml:"print_code"`
	PrintTokens        bool `toml:"print_tokens"`
}

func DefaultConfig() *Config {
	return &Config{
		FramesMax:          64,
		StackSlotsPerFrame: uint8Count,
		TraceExecution:     false,
		PrintCode:          false,
		PrintTokens:        false,
	}
}

// LoadConfig unmarshals TOML-encoded tuning knobs on top of the defaults,
// so a partial file only needs to name the fields it overrides.
func LoadConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) stackMax() int {
	return c.FramesMax * c.StackSlotsPerFrame
}
