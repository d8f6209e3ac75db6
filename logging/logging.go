// Package logging configures the leveled logger shared by store and
// server code and the server binary. It wraps gopkg.in/op/go-logging.v1 the way
// xendarboh-katzenpost's daemons do: one *logging.Logger per module,
// all backed by a single formatted stderr backend whose level is set
// once at startup from the host's conventional tracing filter
// configuration (here, Config.LogLevel).
package logging

import (
	"os"

	"gopkg.in/op/go-logging.v1"
)

var format = logging.MustStringFormatter(
	`%{time:15:04:05.000} %{level:.4s} %{module}: %{message}`,
)

// Configure installs a stderr backend at the given level ("DEBUG",
// "INFO", "WARNING", "ERROR", case-insensitive) for every module. It
// should be called once, early in main.
func Configure(level string) error {
	lvl, err := logging.LogLevel(level)
	if err != nil {
		return err
	}
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatted := logging.NewBackendFormatter(backend, format)
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(lvl, "")
	logging.SetBackend(leveled)
	return nil
}

// New returns the named module logger. Safe to call before or after
// Configure; messages emitted before Configure use go-logging's
// built-in default backend.
func New(module string) *logging.Logger {
	return logging.MustGetLogger(module)
}

// Discard installs a backend that writes nowhere and returns the named
// logger, for tests that want a store/server without log noise but
// still need a non-nil *Logger. Like Configure, it affects the global
// backend used by every module logger.
func Discard(module string) *logging.Logger {
	backend := logging.NewLogBackend(discardWriter{}, "", 0)
	logging.SetBackend(logging.AddModuleLevel(backend))
	return logging.MustGetLogger(module)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
