package server

import (
	"errors"
	"net"

	"github.com/coregx/respkv/command"
	"github.com/coregx/respkv/metrics"
	"github.com/coregx/respkv/resp"
	"github.com/coregx/respkv/store"
	"github.com/google/uuid"
	"gopkg.in/op/go-logging.v1"
)

// subscriptionBufferCap bounds the fan-in channel a handler's
// subscription sub-loop drains into. It is independent of the store's
// own per-channel broadcast capacity (store.DefaultChannelCapacity);
// this one only needs to smooth out bursts across several
// simultaneously-subscribed channels on one connection.
const subscriptionBufferCap = 64

// Handler drives one accepted connection: the top-level command loop,
// and — once a SUBSCRIBE is received — the subscription sub-loop that
// takes over the connection until it closes or shutdown fires.
//
// Grounded on original_source/src/cmd.rs's Command::apply dispatch and
// cmd/subscribe.rs's Subscribe::apply select loop, restructured around
// goroutines and channels in place of async/await + StreamMap.
type Handler struct {
	conn     *Connection
	store    *store.Store
	shutdown *Shutdown
	log      *logging.Logger
	rec      *metrics.Recorder
	id       string // per-connection correlation id, in every log line
}

// NewHandler builds a Handler for an accepted socket. shutdown must
// have already had Add(1) called for this handler by the caller; Run
// calls Done on it exactly once, on return.
func NewHandler(netConn net.Conn, s *store.Store, shutdown *Shutdown, log *logging.Logger, rec *metrics.Recorder) *Handler {
	return &Handler{
		conn:     NewConnection(netConn),
		store:    s,
		shutdown: shutdown,
		log:      log,
		rec:      rec,
		id:       uuid.NewString(),
	}
}

// Run executes the connection's command loop until the socket closes,
// a fatal error occurs, or shutdown fires.
func (h *Handler) Run() {
	defer h.shutdown.Done()
	defer h.conn.Close()

	h.log.Infof("conn %s: accepted from %s", h.id, h.conn.RemoteAddr())
	defer h.log.Infof("conn %s: closed", h.id)

	for {
		select {
		case res := <-h.readFrameAsync():
			if res.err != nil {
				h.logReadErr(res.err)
				return
			}
			if done := h.dispatch(res.frame); done {
				return
			}
		case <-h.shutdown.Recv():
			return
		}
	}
}

// dispatch decodes and executes one request frame. It returns true
// when the connection should stop reading further top-level commands
// — either because the command was fatal, or because it was a
// SUBSCRIBE that has already run its own sub-loop to completion.
func (h *Handler) dispatch(frame resp.Frame) (done bool) {
	cmd, err := command.Parse(frame)
	if err != nil {
		var cmdErr *command.Error
		if errors.As(err, &cmdErr) {
			h.writeBestEffort(resp.Err(cmdErr.Message))
			return false
		}
		h.log.Warningf("conn %s: protocol error: %v", h.id, err)
		h.writeBestEffort(resp.Errf("ERR %v", err))
		return true
	}

	h.rec.Command(cmd.Name())

	switch c := cmd.(type) {
	case command.Get:
		return h.reply(c.Apply(h.store))
	case command.Set:
		return h.reply(c.Apply(h.store))
	case command.Publish:
		return h.reply(c.Apply(h.store))
	case command.Ping:
		return h.reply(c.Apply())
	case command.Unsubscribe:
		return h.reply(c.Apply())
	case command.Unknown:
		return h.reply(c.Apply())
	case command.Subscribe:
		if err := h.runSubscription(c); err != nil {
			h.logReadErr(err)
		}
		return true
	default:
		// Unreachable: command.Parse only ever returns the types above.
		h.log.Errorf("conn %s: unhandled command type %T", h.id, c)
		return true
	}
}

// reply writes f to the connection, returning true (stop the loop) if
// the write failed.
func (h *Handler) reply(f resp.Frame) bool {
	if err := h.conn.WriteFrame(f); err != nil {
		h.log.Warningf("conn %s: write error: %v", h.id, err)
		return true
	}
	return false
}

func (h *Handler) writeBestEffort(f resp.Frame) {
	_ = h.conn.WriteFrame(f)
}

func (h *Handler) logReadErr(err error) {
	switch {
	case errors.Is(err, ErrEndOfStream):
		// Orderly close: nothing to log beyond the deferred "closed" line.
	case errors.Is(err, ErrConnectionReset):
		h.log.Infof("conn %s: reset mid-frame", h.id)
	default:
		h.log.Warningf("conn %s: read error: %v", h.id, err)
	}
}

type frameResult struct {
	frame resp.Frame
	err   error
}

// readFrameAsync reads the next frame on its own goroutine and
// reports the result on a buffered channel, so the caller can select
// on it alongside the shutdown signal without blocking forever on a
// socket read. If shutdown wins the race, the handler closes the
// socket, which unblocks the still-running read and lets this
// goroutine exit without leaking.
func (h *Handler) readFrameAsync() <-chan frameResult {
	ch := make(chan frameResult, 1)
	go func() {
		f, err := h.conn.ReadFrame()
		ch <- frameResult{frame: f, err: err}
	}()
	return ch
}

// activeSub is one channel this connection is currently subscribed
// to: the store subscription plus the goroutine forwarding it into
// the sub-loop's fan-in channel, and the means to stop that goroutine
// on UNSUBSCRIBE.
type activeSub struct {
	sub  *store.Subscription
	quit chan struct{}
}

type subMessage struct {
	channel string
	payload []byte
}

// runSubscription runs the subscription state machine starting from
// initial's channel list. It returns nil when shutdown fires, and the
// error when the connection closes, a read or write fails, or a
// request is connection-fatal (a command-level *command.Error is
// replied to and the loop continues). The caller logs the error.
func (h *Handler) runSubscription(initial command.Subscribe) error {
	subs := make(map[string]*activeSub)
	msgs := make(chan subMessage, subscriptionBufferCap)

	defer func() {
		for name, as := range subs {
			close(as.quit)
			as.sub.Unsubscribe()
			delete(subs, name)
		}
	}()

	subscribeTo := func(name string) error {
		if _, already := subs[name]; already {
			return nil
		}
		sub := h.store.Subscribe(name)
		as := &activeSub{sub: sub, quit: make(chan struct{})}
		subs[name] = as
		go forwardMessages(name, as, msgs)
		return h.conn.WriteFrame(command.SubscribeAck(name, len(subs)))
	}

	unsubscribeFrom := func(name string) error {
		as, ok := subs[name]
		if !ok {
			return nil
		}
		close(as.quit)
		as.sub.Unsubscribe()
		delete(subs, name)
		return h.conn.WriteFrame(command.UnsubscribeAck(name, len(subs)))
	}

	for _, name := range initial.Channels {
		if err := subscribeTo(name); err != nil {
			return err
		}
	}

	reads := h.readFrameAsync()
	for {
		select {
		case m := <-msgs:
			if err := h.conn.WriteFrame(command.Message(m.channel, m.payload)); err != nil {
				return err
			}

		case res := <-reads:
			if res.err != nil {
				return res.err
			}
			reads = h.readFrameAsync()
			cmd, err := command.Parse(res.frame)
			if err != nil {
				var cmdErr *command.Error
				if errors.As(err, &cmdErr) {
					h.writeBestEffort(resp.Err(cmdErr.Message))
					continue
				}
				return err
			}

			switch c := cmd.(type) {
			case command.Subscribe:
				// Subscribe promptly, in this same iteration — do not
				// defer to the next outer wait as the original did,
				// which left newly-added channels un-acked until the
				// next unrelated wakeup.
				for _, name := range c.Channels {
					if err := subscribeTo(name); err != nil {
						return err
					}
				}
			case command.Unsubscribe:
				names := c.Channels
				if len(names) == 0 {
					names = make([]string, 0, len(subs))
					for name := range subs {
						names = append(names, name)
					}
				}
				for _, name := range names {
					if err := unsubscribeFrom(name); err != nil {
						return err
					}
				}
			default:
				// Only SUBSCRIBE/UNSUBSCRIBE are meaningful here; every
				// other command — including otherwise-valid ones like
				// GET or PING — is reported as unknown, and the
				// sub-loop continues.
				if err := h.conn.WriteFrame(resp.Errf("ERR unknown command '%s'", cmd.Name())); err != nil {
					return err
				}
			}

		case <-h.shutdown.Recv():
			return nil
		}
	}
}

// forwardMessages drains sub's channel into msgs, tagged with name,
// until sub is unsubscribed (quit closes) or its channel closes.
func forwardMessages(name string, as *activeSub, msgs chan<- subMessage) {
	for {
		select {
		case payload, ok := <-as.sub.Messages():
			if !ok {
				return
			}
			select {
			case msgs <- subMessage{channel: name, payload: payload}:
			case <-as.quit:
				return
			}
		case <-as.quit:
			return
		}
	}
}
