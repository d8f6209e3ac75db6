// Package store implements the shared, concurrency-safe key/value and
// pub/sub engine: a mutex-guarded map of entries with TTL tracking, a
// channel-name-keyed broadcaster registry, and a background goroutine
// that purges expired entries by waking on the earliest pending
// deadline rather than running a timer per key.
//
// Grounded on original_source/src/db.rs for the state shape and
// invariants, and on websocket/hub.go's mutex-plus-event-loop idiom for
// how the background task and its wakeup signal are structured.
package store

import (
	"sync"
	"time"

	"github.com/coregx/respkv/metrics"
	"gopkg.in/op/go-logging.v1"
)

// DefaultChannelCapacity is the default per-subscription ring buffer
// size (spec: "bounded ring buffer of capacity 1024").
const DefaultChannelCapacity = 1024

// Store is a handle to the shared state engine. It is cheap to copy —
// every copy refers to the same underlying state and the same
// background purge goroutine — and is safe for concurrent use by many
// connection handlers plus the purge task itself.
type Store struct {
	*shared
}

type shared struct {
	mu              sync.Mutex
	entries         map[string]Entry
	pubsub          map[string]*broadcaster
	expirations     *expirationQueue
	nextID          uint64
	shutdown        bool
	channelCapacity int

	wake      chan struct{} // capacity 1, non-blocking "check again" signal
	purgeDone chan struct{} // closed when the purge goroutine exits

	log *logging.Logger
	rec *metrics.Recorder
}

// New creates a Store with no entries and starts its background purge
// goroutine. log must not be nil (use logging.Discard in tests); rec
// may be nil, in which case metrics recording is a no-op.
func New(log *logging.Logger, rec *metrics.Recorder, channelCapacity int) *Store {
	if channelCapacity <= 0 {
		channelCapacity = DefaultChannelCapacity
	}
	s := &shared{
		entries:         make(map[string]Entry),
		pubsub:          make(map[string]*broadcaster),
		expirations:     newExpirationQueue(),
		channelCapacity: channelCapacity,
		wake:            make(chan struct{}, 1),
		purgeDone:       make(chan struct{}),
		log:             log,
		rec:             rec,
	}
	go s.purgeLoop()
	s.log.Info("store started")
	return &Store{s}
}

func (s *shared) signalWake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Get returns the value stored under key, if any. It does not itself
// check expiration: a reader may observe an entry whose deadline has
// already passed but whose purge sweep has not yet run.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return e.Data, true
}

// Set stores value under key. ttl, if non-nil, is the duration after
// which the entry expires; a zero duration expires the entry
// immediately (the next purge sweep removes it).
func (s *Store) Set(key string, value []byte, ttl *time.Duration) {
	var notify bool

	s.mu.Lock()
	id := s.nextID
	s.nextID++

	var expiresAt time.Time
	if ttl != nil {
		expiresAt = time.Now().Add(*ttl)

		prevMin, hadMin := s.expirations.peekMin()
		notify = !hadMin || expiresAt.Before(prevMin.deadline)

		s.expirations.insert(expiresAt, id, key)
	}

	prev, existed := s.entries[key]
	if existed && prev.HasTTL() {
		s.expirations.removeByID(prev.ID)
	}

	s.entries[key] = Entry{ID: id, Data: value, ExpiresAt: expiresAt}
	s.mu.Unlock()

	if notify {
		s.signalWake()
	}
}

// Subscribe returns a new Subscription to channel, creating its
// broadcaster on first use.
func (s *Store) Subscribe(channel string) *Subscription {
	s.mu.Lock()
	b, ok := s.pubsub[channel]
	if !ok {
		b = newBroadcaster(s.channelCapacity)
		s.pubsub[channel] = b
	}
	s.mu.Unlock()

	return b.subscribe()
}

// Publish sends value to channel's subscribers and returns how many
// were observable at send time; 0 if the channel has never been
// subscribed to, or has no current subscribers.
func (s *Store) Publish(channel string, value []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.pubsub[channel]
	if !ok {
		s.rec.Published(0)
		return 0
	}
	n := b.publish(value)
	s.rec.Published(n)
	return n
}

// Close marks the store as shutting down, wakes the purge goroutine,
// and blocks until it has exited. It is the sole "drop guard" of the
// Rust original: Close should be called exactly once, by whichever
// component owns the Store's lifetime (in the server binary, its main
// function).
func (s *Store) Close() {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	s.signalWake()
	<-s.purgeDone
	s.log.Info("store closed")
}

// IsShuttingDown reports whether Close has been called. Useful for a
// liveness probe.
func (s *Store) IsShuttingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

// purgeLoop runs for the lifetime of the store. Each iteration removes
// every expired entry, then sleeps until either the earliest remaining
// deadline or a wake signal, whichever comes first.
func (s *shared) purgeLoop() {
	defer close(s.purgeDone)

	for {
		nextWake, hasWake, stop := s.sweep()
		if stop {
			s.log.Debug("purge task exiting")
			return
		}

		if hasWake {
			timer := time.NewTimer(time.Until(nextWake))
			select {
			case <-timer.C:
			case <-s.wake:
				timer.Stop()
			}
		} else {
			<-s.wake
		}
	}
}

// sweep removes every entry whose deadline has passed, returning the
// next deadline to wait for (if any) and whether the purge task should
// stop.
func (s *shared) sweep() (nextWake time.Time, hasWake bool, stop bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdown {
		return time.Time{}, false, true
	}

	now := time.Now()
	expired := 0
	for {
		item, ok := s.expirations.peekMin()
		if !ok {
			s.rec.KeysExpired(expired)
			return time.Time{}, false, false
		}
		if item.deadline.After(now) {
			s.rec.KeysExpired(expired)
			return item.deadline, true, false
		}
		s.expirations.popMin()
		delete(s.entries, item.key)
		expired++
	}
}
