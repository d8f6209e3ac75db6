package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.ListenAddr != ":6379" || cfg.MaxConnections != 250 || cfg.ChannelBufferCap != 1024 || cfg.LogLevel != "info" {
		t.Fatalf("Default() = %+v, unexpected values", cfg)
	}
}

func TestLoadOverridesSubsetOfFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "respkv.toml")
	if err := os.WriteFile(path, []byte(`listen_addr = ":7000"`+"\n"+`log_level = "debug"`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.ListenAddr != ":7000" || cfg.LogLevel != "debug" {
		t.Errorf("Load overrides = %+v, want listen_addr :7000, log_level debug", cfg)
	}
	if cfg.MaxConnections != 250 {
		t.Errorf("MaxConnections = %d, want default 250 unchanged", cfg.MaxConnections)
	}
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "respkv.toml")
	if err := os.WriteFile(path, []byte(`bogus_key = "x"`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Load with an unrecognized key succeeded, want an error")
	}
}

func TestMergeOnlyAppliesExplicitlySetFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	port := fs.String("listen-addr", ":6379", "")
	fs.Int("max-connections", 250, "")
	if err := fs.Parse([]string{"-listen-addr", ":9999"}); err != nil {
		t.Fatal(err)
	}
	_ = port

	cfg := Merge(Default(), fs)
	if cfg.ListenAddr != ":9999" {
		t.Errorf("ListenAddr = %q, want :9999", cfg.ListenAddr)
	}
	if cfg.MaxConnections != 250 {
		t.Errorf("MaxConnections = %d, want default 250 (flag not explicitly set)", cfg.MaxConnections)
	}
}
