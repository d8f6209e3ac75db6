package command

import (
	"github.com/coregx/respkv/resp"
	"github.com/coregx/respkv/store"
)

// Get retrieves the value stored under Key. It replies Bulk(value) if
// present, Null otherwise; GET never fails for a well-formed request.
type Get struct {
	Key string
}

func (Get) Name() string { return "get" }

func parseGet(cur *resp.Cursor) (Command, error) {
	key, err := cur.NextString()
	if err != nil {
		return nil, err
	}
	return Get{Key: key}, nil
}

// Apply executes the command against s and returns the reply frame.
func (c Get) Apply(s *store.Store) resp.Frame {
	value, ok := s.Get(c.Key)
	if !ok {
		return resp.Null()
	}
	return resp.BulkFrame(value)
}

// Frame encodes the command as a request, for use by a client.
func (c Get) Frame() resp.Frame {
	return resp.NewArray(resp.BulkString("get"), resp.BulkString(c.Key))
}
