package store

import "sync"

// Subscription is a live handle to one channel's broadcast stream.
// Messages arrives on Messages(); Unsubscribe detaches the
// subscription from its broadcaster. A Subscription is used by exactly
// one connection and is never shared.
type Subscription struct {
	ch          chan []byte
	unsubscribe func()
	once        sync.Once
}

// Messages returns the channel message payloads are delivered on.
// Reading from it is the only supported way to consume a subscription.
func (s *Subscription) Messages() <-chan []byte { return s.ch }

// Unsubscribe detaches the subscription from its channel. Safe to call
// more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.unsubscribe)
}

// broadcaster fans a channel's published messages out to every live
// subscription. Each subscription owns a fixed-capacity buffered
// channel that doubles as its ring buffer: a publish that finds a
// subscriber's channel full drops that subscriber's oldest buffered
// message to make room rather than block the publisher, so a slow
// subscriber lags and resumes from the newest available messages
// instead of stalling everyone else.
//
// Go has no native bounded multi-consumer broadcast primitive, so
// instead of one shared ring with a read index per subscriber, every
// subscriber gets its own bounded channel, and a per-channel mutex
// guards the subscriber set.
type broadcaster struct {
	mu       sync.Mutex
	subs     map[*Subscription]struct{}
	capacity int
}

func newBroadcaster(capacity int) *broadcaster {
	return &broadcaster{subs: make(map[*Subscription]struct{}), capacity: capacity}
}

func (b *broadcaster) subscribe() *Subscription {
	sub := &Subscription{ch: make(chan []byte, b.capacity)}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	sub.unsubscribe = func() {
		b.mu.Lock()
		delete(b.subs, sub)
		b.mu.Unlock()
	}
	return sub
}

// publish delivers value to every currently-subscribed receiver and
// reports how many receivers were observable under the lock at send
// time. It never blocks.
func (b *broadcaster) publish(value []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.subs)
	for sub := range b.subs {
		select {
		case sub.ch <- value:
		default:
			// Ring is full: drop the oldest buffered message for this
			// lagging subscriber, then retry once. If it's still full
			// (a concurrent drain refilled it first) the message is
			// dropped for that subscriber — publishers never block.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- value:
			default:
			}
		}
	}
	return n
}
