package command

import (
	"errors"
	"strings"
	"time"

	"github.com/coregx/respkv/resp"
	"github.com/coregx/respkv/store"
)

// Set stores Value under Key, replacing any prior value. TTL, if
// non-nil, is the duration after which the entry expires; a zero
// duration expires the entry immediately.
type Set struct {
	Key   string
	Value []byte
	TTL   *time.Duration
}

func (Set) Name() string { return "set" }

// parseSet implements "SET key value [EX seconds|PX milliseconds]":
// the expiration option is optional, case-insensitive, and at most
// one of EX/PX may be given.
func parseSet(cur *resp.Cursor) (Command, error) {
	key, err := cur.NextString()
	if err != nil {
		return nil, err
	}
	value, err := cur.NextBytes()
	if err != nil {
		return nil, err
	}

	var ttl *time.Duration
	opt, err := cur.NextString()
	switch {
	case errors.Is(err, resp.ErrEndOfStream):
		// No expiration option: fine.
	case err != nil:
		return nil, err
	case strings.EqualFold(opt, "EX"):
		secs, err := cur.NextInt()
		if err != nil {
			return nil, err
		}
		d := time.Duration(secs) * time.Second
		ttl = &d
	case strings.EqualFold(opt, "PX"):
		ms, err := cur.NextInt()
		if err != nil {
			return nil, err
		}
		d := time.Duration(ms) * time.Millisecond
		ttl = &d
	default:
		return nil, errorf("ERR currently SET only supports the expiration option")
	}

	return Set{Key: key, Value: value, TTL: ttl}, nil
}

// Apply executes the command against s and returns the reply frame.
func (c Set) Apply(s *store.Store) resp.Frame {
	s.Set(c.Key, c.Value, c.TTL)
	return resp.Simple("OK")
}

// Frame encodes the command as a request, for use by a client. It
// always uses PX when a TTL is present; any sub-millisecond part of
// the TTL is truncated.
func (c Set) Frame() resp.Frame {
	f := resp.NewArray(resp.BulkString("set"), resp.BulkString(c.Key), resp.BulkFrame(c.Value))
	if c.TTL != nil {
		f.Array = append(f.Array, resp.BulkString("px"), resp.Integer(uint64(c.TTL.Milliseconds())))
	}
	return f
}
