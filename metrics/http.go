package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes a Recorder's collectors over HTTP, plus a liveness
// endpoint. It is the one HTTP surface in this system — everything
// else speaks RESP over a raw TCP socket — so gorilla/mux is used here
// and nowhere else.
type Server struct {
	http *http.Server
	ln   net.Listener
}

// Serve starts listening on addr and serving /metrics and /healthz in
// the background. Call Shutdown to stop it.
func Serve(addr string, rec *Recorder, healthy func() bool) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(rec.Registry(), promhttp.HandlerOpts{}))
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if healthy == nil || healthy() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	srv := &Server{
		http: &http.Server{Handler: router, ReadHeaderTimeout: 5 * time.Second},
		ln:   ln,
	}
	go func() {
		_ = srv.http.Serve(ln)
	}()
	return srv, nil
}

// Addr returns the bound address, useful when Serve was given port 0.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
