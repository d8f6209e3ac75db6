package server

import (
	"fmt"
	"net"
	"time"

	"github.com/coregx/respkv/metrics"
	"github.com/coregx/respkv/store"
	"gopkg.in/op/go-logging.v1"
)

// DefaultMaxConnections is the default bound on simultaneously active
// connections.
const DefaultMaxConnections = 250

const (
	initialAcceptBackoff = time.Second
	maxAcceptBackoff     = 64 * time.Second
)

// Listener accepts connections on one TCP socket, bounding how many
// may be in flight at once and fanning a single shutdown trigger out
// to every handler it has spawned.
//
// Grounded on the redismvp example server's accept-loop shape, with a
// buffered-channel semaphore, a capped accept backoff, and
// server.Shutdown for the shutdown fan-out.
type Listener struct {
	ln       net.Listener
	store    *store.Store
	shutdown *Shutdown
	sem      chan struct{}
	log      *logging.Logger
	rec      *metrics.Recorder
}

// Listen binds addr and returns a Listener ready to Serve. maxConns
// <= 0 uses DefaultMaxConnections.
func Listen(addr string, maxConns int, s *store.Store, log *logging.Logger, rec *metrics.Recorder) (*Listener, error) {
	if maxConns <= 0 {
		maxConns = DefaultMaxConnections
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{
		ln:       ln,
		store:    s,
		shutdown: NewShutdown(),
		sem:      make(chan struct{}, maxConns),
		log:      log,
		rec:      rec,
	}, nil
}

// Addr returns the bound address, useful when Listen was given port 0.
func (l *Listener) Addr() string { return l.ln.Addr().String() }

// Serve runs the accept loop until quit fires or accept fails fatally
// (after exhausting its retry backoff). Either way, it fires the
// shutdown signal, closes the listening socket, waits for every
// spawned handler to exit, and returns.
func (l *Listener) Serve(quit <-chan struct{}) error {
	acceptErr := make(chan error, 1)
	go func() { acceptErr <- l.acceptLoop() }()

	var serveErr error
	select {
	case <-quit:
		l.log.Info("listener: quit requested")
	case err := <-acceptErr:
		serveErr = err
	}

	l.shutdown.Fire()
	l.ln.Close()
	l.shutdown.Wait()
	l.log.Info("listener: all connections drained")
	return serveErr
}

// acceptLoop accepts connections until shutdown fires or accept fails
// after exhausting the capped backoff schedule (1s, 2s, 4s, 8s, 16s,
// 32s, 64s).
func (l *Listener) acceptLoop() error {
	backoff := initialAcceptBackoff

	for {
		select {
		case l.sem <- struct{}{}:
		case <-l.shutdown.Recv():
			return nil
		}

		conn, err := l.ln.Accept()
		if err != nil {
			<-l.sem
			if l.shutdown.Fired() {
				return nil
			}

			if backoff > maxAcceptBackoff {
				return fmt.Errorf("server: accept failed repeatedly, giving up: %w", err)
			}
			l.log.Warningf("listener: accept error, retrying in %s: %v", backoff, err)
			select {
			case <-time.After(backoff):
			case <-l.shutdown.Recv():
				return nil
			}
			backoff *= 2
			continue
		}

		backoff = initialAcceptBackoff
		l.rec.ConnectionAccepted()
		l.shutdown.Add(1)
		go l.handle(conn)
	}
}

func (l *Listener) handle(conn net.Conn) {
	defer func() { <-l.sem }()
	defer l.rec.ConnectionClosed()

	h := NewHandler(conn, l.store, l.shutdown, l.log, l.rec)
	h.Run()
}
