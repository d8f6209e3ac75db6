package server

import "sync"

// Shutdown is a one-shot broadcast signal plus a completion tracker.
// Firing it closes a channel, which every waiter observes
// simultaneously and idempotently — Go's native equivalent of a
// single-producer/many-consumer notification. Completion is tracked
// with a sync.WaitGroup rather than the reference-counted channel
// closure of the original Rust mpsc Sender, since Go has no drop
// hooks: each worker calls Add(1) before starting and Done() when it
// exits, and the listener's Wait() blocks until every worker has.
//
// Grounded on websocket/hub.go's done-channel + sync.WaitGroup pairing
// for Run()/Close(), generalized from one event loop to many
// independent connection-handler goroutines.
type Shutdown struct {
	once sync.Once
	done chan struct{}
	wg   sync.WaitGroup
}

// NewShutdown returns a Shutdown that has not yet fired.
func NewShutdown() *Shutdown {
	return &Shutdown{done: make(chan struct{})}
}

// Fire signals shutdown. Safe to call more than once or concurrently;
// only the first call has an effect.
func (s *Shutdown) Fire() {
	s.once.Do(func() { close(s.done) })
}

// Recv returns a channel that is closed once Fire has been called.
func (s *Shutdown) Recv() <-chan struct{} { return s.done }

// Fired reports whether Fire has already been called.
func (s *Shutdown) Fired() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Add registers delta workers that must call Done before Wait
// returns. Must be called before the corresponding worker goroutine
// can exit.
func (s *Shutdown) Add(delta int) { s.wg.Add(delta) }

// Done marks one worker as finished.
func (s *Shutdown) Done() { s.wg.Done() }

// Wait blocks until every registered worker has called Done.
func (s *Shutdown) Wait() { s.wg.Wait() }
