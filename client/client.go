// Package client is a synchronous convenience wrapper around the RESP
// protocol: one request, one blocking reply, no pipelining. Grounded
// on pascaldekloe-redis's Client for the dial/exchange/decode shape,
// simplified to match this server's command set and its one-request-
// in-flight-at-a-time usage pattern (twokaybee-redis's minimal
// exchange loop is the same shape without pascaldekloe's connection
// pooling and reconnect machinery, which this wrapper also omits).
package client

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/coregx/respkv/command"
	"github.com/coregx/respkv/resp"
)

// Client is a connection to one respkv server. It is not safe for
// concurrent use by multiple goroutines — callers that need
// concurrency should use one Client per goroutine, or serialize calls
// with their own mutex.
type Client struct {
	conn net.Conn
	w    *bufio.Writer
	buf  []byte
}

// Dial connects to addr (host:port).
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}
	return &Client{
		conn: conn,
		w:    bufio.NewWriter(conn),
		buf:  make([]byte, 0, 4096),
	}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) send(req resp.Frame) (resp.Frame, error) {
	if err := resp.Write(c.w, req); err != nil {
		return resp.Frame{}, err
	}
	if err := c.w.Flush(); err != nil {
		return resp.Frame{}, err
	}
	return c.readFrame()
}

func (c *Client) readFrame() (resp.Frame, error) {
	for {
		n, err := resp.Check(c.buf)
		if err == nil {
			f, consumed, perr := resp.Parse(c.buf[:n])
			if perr != nil {
				return resp.Frame{}, perr
			}
			remaining := copy(c.buf, c.buf[consumed:])
			c.buf = c.buf[:remaining]
			return f, nil
		}
		if !errors.Is(err, resp.ErrIncomplete) {
			return resp.Frame{}, err
		}

		chunk := make([]byte, 4096)
		m, rerr := c.conn.Read(chunk)
		if m > 0 {
			c.buf = append(c.buf, chunk[:m]...)
		}
		if rerr != nil {
			return resp.Frame{}, rerr
		}
	}
}

// errorReply converts an Error frame into a Go error; any other frame
// kind passes through unchanged.
func errorReply(f resp.Frame) (resp.Frame, error) {
	if f.Kind == resp.KindError {
		return resp.Frame{}, errors.New(f.Str)
	}
	return f, nil
}

// Get returns the value stored under key, and whether it was present.
func (c *Client) Get(key string) ([]byte, bool, error) {
	reply, err := c.send((command.Get{Key: key}).Frame())
	if err != nil {
		return nil, false, err
	}
	if reply.Kind == resp.KindNull {
		return nil, false, nil
	}
	reply, err = errorReply(reply)
	if err != nil {
		return nil, false, err
	}
	return reply.Bulk, true, nil
}

// Set stores value under key with an optional TTL (nil for none).
func (c *Client) Set(key string, value []byte, ttl *time.Duration) error {
	reply, err := c.send((command.Set{Key: key, Value: value, TTL: ttl}).Frame())
	if err != nil {
		return err
	}
	_, err = errorReply(reply)
	return err
}

// Publish sends message to channel and returns the subscriber count
// observed by the server at send time.
func (c *Client) Publish(channel string, message []byte) (int, error) {
	reply, err := c.send((command.Publish{Channel: channel, Message: message}).Frame())
	if err != nil {
		return 0, err
	}
	reply, err = errorReply(reply)
	if err != nil {
		return 0, err
	}
	return int(reply.Int), nil
}

// Ping checks liveness; an empty msg requests the server's default
// "PONG" reply, otherwise the server echoes msg back.
func (c *Client) Ping(msg string) (string, error) {
	var p command.Ping
	if msg != "" {
		p.Msg = &msg
	}
	reply, err := c.send(p.Frame())
	if err != nil {
		return "", err
	}
	reply, err = errorReply(reply)
	if err != nil {
		return "", err
	}
	return reply.String(), nil
}

// Subscription is a live SUBSCRIBE session: Next blocks for the next
// message, and Unsubscribe ends it.
type Subscription struct {
	client   *Client
	channels map[string]bool
}

// Message is one delivered publish, tagged with its channel.
type Message struct {
	Channel string
	Payload []byte
}

// Subscribe enters the subscription state machine for channels and
// waits for the server's ack of each one before returning.
func (c *Client) Subscribe(channels ...string) (*Subscription, error) {
	if err := resp.Write(c.w, (command.Subscribe{Channels: channels}).Frame()); err != nil {
		return nil, err
	}
	if err := c.w.Flush(); err != nil {
		return nil, err
	}

	sub := &Subscription{client: c, channels: make(map[string]bool, len(channels))}
	for range channels {
		f, err := c.readFrame()
		if err != nil {
			return nil, err
		}
		if len(f.Array) == 3 && f.Array[0].String() == "subscribe" {
			sub.channels[f.Array[1].String()] = true
		}
	}
	return sub, nil
}

// Next blocks for the next published message on any subscribed
// channel. Only "message" frames are returned; any other frame from
// the server (there should be none) is returned as an error.
func (s *Subscription) Next() (Message, error) {
	f, err := s.client.readFrame()
	if err != nil {
		return Message{}, err
	}
	if len(f.Array) != 3 || f.Array[0].String() != "message" {
		return Message{}, fmt.Errorf("client: unexpected frame in subscription: %v", f)
	}
	return Message{Channel: f.Array[1].String(), Payload: f.Array[2].Bulk}, nil
}

// Unsubscribe leaves every channel currently subscribed to, waiting
// for each ack.
func (s *Subscription) Unsubscribe() error {
	if err := resp.Write(s.client.w, (command.Unsubscribe{}).Frame()); err != nil {
		return err
	}
	if err := s.client.w.Flush(); err != nil {
		return err
	}
	for range s.channels {
		if _, err := s.client.readFrame(); err != nil {
			return err
		}
	}
	s.channels = nil
	return nil
}
