package command

import (
	"errors"

	"github.com/coregx/respkv/resp"
)

// Ping returns Msg unchanged if given, otherwise the server replies
// PONG. It is commonly used to check that a connection is alive or to
// measure latency.
type Ping struct {
	Msg *string
}

func (Ping) Name() string { return "ping" }

func parsePing(cur *resp.Cursor) (Command, error) {
	msg, err := cur.NextString()
	switch {
	case err == nil:
		return Ping{Msg: &msg}, nil
	case errors.Is(err, resp.ErrEndOfStream):
		return Ping{}, nil
	default:
		return nil, err
	}
}

// Apply returns the reply frame; Ping never touches the store.
func (c Ping) Apply() resp.Frame {
	if c.Msg == nil {
		return resp.Simple("PONG")
	}
	return resp.BulkString(*c.Msg)
}

// Frame encodes the command as a request, for use by a client.
func (c Ping) Frame() resp.Frame {
	if c.Msg == nil {
		return resp.NewArray(resp.BulkString("ping"))
	}
	return resp.NewArray(resp.BulkString("ping"), resp.BulkString(*c.Msg))
}
