// Command respkv-server runs the RESP key/value and pub/sub server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coregx/respkv/config"
	"github.com/coregx/respkv/logging"
	"github.com/coregx/respkv/metrics"
	"github.com/coregx/respkv/server"
	"github.com/coregx/respkv/store"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("respkv-server", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a TOML config file")
	port := fs.Int("port", 6379, "TCP port to listen on; sets the listen address to :<port>")
	fs.String("listen-addr", "", "address to listen on (default :6379)")
	fs.Int("max-connections", 0, "maximum simultaneous connections")
	fs.Int("channel-buffer-cap", 0, "per-channel pub/sub buffer capacity")
	fs.String("metrics-addr", "", "address to serve /metrics and /healthz on (empty disables)")
	fs.String("log-level", "", "log level: debug, info, warning, error")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		cfg = loaded
	}
	cfg = config.Merge(cfg, fs)
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "port" {
			cfg.ListenAddr = fmt.Sprintf(":%d", *port)
		}
	})

	if err := logging.Configure(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "respkv-server: invalid log level %q: %v\n", cfg.LogLevel, err)
		return 2
	}
	log := logging.New("respkv-server")

	rec := metrics.NewRecorder()
	s := store.New(logging.New("store"), rec, cfg.ChannelBufferCap)
	defer s.Close()

	if cfg.MetricsAddr != "" {
		metricsSrv, err := metrics.Serve(cfg.MetricsAddr, rec, func() bool { return !s.IsShuttingDown() })
		if err != nil {
			log.Warningf("metrics server failed to start on %s: %v", cfg.MetricsAddr, err)
		} else {
			log.Infof("metrics listening on %s", metricsSrv.Addr())
			defer metricsSrv.Shutdown(context.Background())
		}
	}

	l, err := server.Listen(cfg.ListenAddr, cfg.MaxConnections, s, logging.New("server"), rec)
	if err != nil {
		log.Errorf("bind %s: %v", cfg.ListenAddr, err)
		return 1
	}
	log.Infof("listening on %s", l.Addr())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := l.Serve(ctx.Done()); err != nil {
		log.Errorf("listener exited: %v", err)
		return 1
	}
	return 0
}
