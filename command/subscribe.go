package command

import (
	"errors"

	"github.com/coregx/respkv/resp"
)

// Subscribe enters the subscription state machine for Channels. Its
// execution is not a single Apply call like the other commands: it
// takes over the connection, handled by the server package's
// subscription sub-loop rather than here.
type Subscribe struct {
	Channels []string
}

func (Subscribe) Name() string { return "subscribe" }

func parseSubscribe(cur *resp.Cursor) (Command, error) {
	first, err := cur.NextString()
	if err != nil {
		return nil, err
	}
	channels := []string{first}

	for {
		ch, err := cur.NextString()
		if errors.Is(err, resp.ErrEndOfStream) {
			break
		}
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return Subscribe{Channels: channels}, nil
}

// Frame encodes the command as a request, for use by a client.
func (c Subscribe) Frame() resp.Frame {
	f := resp.NewArray(resp.BulkString("subscribe"))
	for _, ch := range c.Channels {
		f.Array = append(f.Array, resp.BulkString(ch))
	}
	return f
}

// Unsubscribe removes Channels from the caller's subscription set; an
// empty list means "all channels currently subscribed to". It is only
// meaningful inside the subscription sub-loop — at the top level it
// reports "unsupported in this context".
type Unsubscribe struct {
	Channels []string
}

func (Unsubscribe) Name() string { return "unsubscribe" }

func parseUnsubscribe(cur *resp.Cursor) (Command, error) {
	var channels []string
	for {
		ch, err := cur.NextString()
		if errors.Is(err, resp.ErrEndOfStream) {
			break
		}
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return Unsubscribe{Channels: channels}, nil
}

// Apply reports that UNSUBSCRIBE cannot run outside a subscription
// sub-loop; it is never called from inside one (the sub-loop acts on
// the parsed Unsubscribe value directly).
func (c Unsubscribe) Apply() resp.Frame {
	return resp.Err("ERR 'unsubscribe' is unsupported in this context")
}

// Frame encodes the command as a request, for use by a client.
func (c Unsubscribe) Frame() resp.Frame {
	f := resp.NewArray(resp.BulkString("unsubscribe"))
	for _, ch := range c.Channels {
		f.Array = append(f.Array, resp.BulkString(ch))
	}
	return f
}

// SubscribeAck builds the reply frame for a single channel added to a
// connection's subscription set: *3 "subscribe" channel count.
func SubscribeAck(channel string, count int) resp.Frame {
	return resp.NewArray(resp.BulkString("subscribe"), resp.BulkString(channel), resp.Integer(uint64(count)))
}

// UnsubscribeAck builds the reply frame for a single channel removed
// from a connection's subscription set: *3 "unsubscribe" channel count.
func UnsubscribeAck(channel string, count int) resp.Frame {
	return resp.NewArray(resp.BulkString("unsubscribe"), resp.BulkString(channel), resp.Integer(uint64(count)))
}

// Message builds the frame delivered to a subscriber when a message
// arrives on one of its subscribed channels: *3 "message" channel
// payload.
func Message(channel string, payload []byte) resp.Frame {
	return resp.NewArray(resp.BulkString("message"), resp.BulkString(channel), resp.BulkFrame(payload))
}
