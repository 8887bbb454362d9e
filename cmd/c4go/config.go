package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config is the optional c4.toml in the working directory or named by
// --config. The C4_STACK_SIZE and C4_TRACE environment variables override
// the file; a .env file loaded at startup can supply them.
type Config struct {
	StackSize int  `toml:"stack_size"`
	Trace     bool `toml:"trace"`
}

func loadConfig(path string) (Config, error) {
	var cfg Config

	if path == "" {
		if _, err := os.Stat("c4.toml"); err == nil {
			path = "c4.toml"
		}
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	if s := os.Getenv("C4_STACK_SIZE"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return cfg, fmt.Errorf("bad C4_STACK_SIZE %q", s)
		}
		cfg.StackSize = n
	}
	if s := os.Getenv("C4_TRACE"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return cfg, fmt.Errorf("bad C4_TRACE %q", s)
		}
		cfg.Trace = b
	}
	return cfg, nil
}
