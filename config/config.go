// Package config loads server configuration from an optional TOML
// file, merged with command-line flag overrides on top of built-in
// defaults. Grounded on xendarboh-katzenpost's config package for the
// "defaults, then file, then flags" precedence, using BurntSushi/toml
// the way the rest of that dependency's ecosystem does: strict
// decoding, so an unrecognized key in the file is an error rather than
// a silent no-op.
package config

import (
	"flag"
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config holds every tunable the server reads at startup.
type Config struct {
	ListenAddr       string `toml:"listen_addr"`
	MaxConnections   int    `toml:"max_connections"`
	ChannelBufferCap int    `toml:"channel_buffer_cap"`
	MetricsAddr      string `toml:"metrics_addr"`
	LogLevel         string `toml:"log_level"`
}

// Default returns the built-in configuration used when no file and no
// flags override a field.
func Default() Config {
	return Config{
		ListenAddr:       ":6379",
		MaxConnections:   250,
		ChannelBufferCap: 1024,
		MetricsAddr:      "",
		LogLevel:         "info",
	}
}

// Load reads and strictly decodes the TOML file at path on top of
// Default(). An unrecognized key in the file is reported as an error;
// a missing field simply keeps its default.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config: %s: unrecognized key %q", path, undecoded[0])
	}
	return cfg, nil
}

// Merge applies flags parsed from fs on top of base, where a flag is
// considered "set" (and so takes precedence) only if fs.Visit saw it
// explicitly on the command line — an unset flag never overrides a
// value already loaded from file or default.
func Merge(base Config, fs *flag.FlagSet) Config {
	cfg := base

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen-addr":
			cfg.ListenAddr = f.Value.String()
		case "max-connections":
			if v, ok := f.Value.(flag.Getter); ok {
				cfg.MaxConnections = v.Get().(int)
			}
		case "channel-buffer-cap":
			if v, ok := f.Value.(flag.Getter); ok {
				cfg.ChannelBufferCap = v.Get().(int)
			}
		case "metrics-addr":
			cfg.MetricsAddr = f.Value.String()
		case "log-level":
			cfg.LogLevel = f.Value.String()
		}
	})

	return cfg
}
