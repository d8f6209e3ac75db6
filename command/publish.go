package command

import (
	"github.com/coregx/respkv/resp"
	"github.com/coregx/respkv/store"
)

// Publish sends Message to Channel's subscribers without waiting for
// any acknowledgment. Channel names share no namespace with store
// keys: a key and a channel may have the same name with no collision.
type Publish struct {
	Channel string
	Message []byte
}

func (Publish) Name() string { return "publish" }

func parsePublish(cur *resp.Cursor) (Command, error) {
	channel, err := cur.NextString()
	if err != nil {
		return nil, err
	}
	message, err := cur.NextBytes()
	if err != nil {
		return nil, err
	}
	return Publish{Channel: channel, Message: message}, nil
}

// Apply executes the command against s and returns the reply frame:
// the subscriber count observed at send time. A count of zero does
// not distinguish "no one has ever subscribed" from "everyone has
// since unsubscribed".
func (c Publish) Apply(s *store.Store) resp.Frame {
	n := s.Publish(c.Channel, c.Message)
	return resp.Integer(uint64(n))
}

// Frame encodes the command as a request, for use by a client.
func (c Publish) Frame() resp.Frame {
	return resp.NewArray(resp.BulkString("publish"), resp.BulkString(c.Channel), resp.BulkFrame(c.Message))
}
