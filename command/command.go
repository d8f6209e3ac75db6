// Package command implements argument parsing and execution for the
// RESP command set: GET, SET, PUBLISH, SUBSCRIBE, UNSUBSCRIBE, PING,
// and the synthetic UNKNOWN reply for anything else.
//
// Grounded on original_source/src/cmd.rs's one-file-per-command layout
// (cmd/get.rs, cmd/set.rs, ...) and its dispatch-then-finish shape in
// Command::from_frame.
package command

import (
	"fmt"
	"strings"

	"github.com/coregx/respkv/resp"
)

// Command is a fully parsed client request.
type Command interface {
	// Name returns the lowercase command name, used for metrics labels
	// and "unknown command" replies.
	Name() string
}

// Error is a command-level semantic failure: the frame decoded fine,
// but the command's own arguments were invalid, or it cannot run in
// the caller's context (UNSUBSCRIBE at the top level). Per the error
// handling policy, these are reported to the client as an Error frame
// and the connection continues — unlike a resp.ErrProtocol or
// resp.ErrEndOfStream escaping from Parse, which is connection-fatal.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

func errorf(format string, args ...any) error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// Parse decodes f — the request's outer Array frame — into a Command.
// An error wrapping resp.ErrProtocol or resp.ErrEndOfStream is
// connection-fatal; an error of type *Error is meant to be written
// back to the client as an Error frame without closing the
// connection.
func Parse(f resp.Frame) (Command, error) {
	cur, err := resp.NewCursor(f)
	if err != nil {
		return nil, err
	}

	name, err := cur.NextString()
	if err != nil {
		return nil, err
	}
	name = strings.ToLower(name)

	switch name {
	case "get":
		cmd, err := parseGet(cur)
		return finish(cmd, cur, err)
	case "set":
		cmd, err := parseSet(cur)
		return finish(cmd, cur, err)
	case "publish":
		cmd, err := parsePublish(cur)
		return finish(cmd, cur, err)
	case "subscribe":
		cmd, err := parseSubscribe(cur)
		return finish(cmd, cur, err)
	case "unsubscribe":
		cmd, err := parseUnsubscribe(cur)
		return finish(cmd, cur, err)
	case "ping":
		cmd, err := parsePing(cur)
		return finish(cmd, cur, err)
	default:
		// The command is unrecognized: skip Finish, since unconsumed
		// fields are expected, and reply Unknown instead of failing.
		return Unknown{name: name}, nil
	}
}

// finish enforces that a successfully parsed command consumed every
// argument the request frame carried.
func finish(cmd Command, cur *resp.Cursor, err error) (Command, error) {
	if err != nil {
		return nil, err
	}
	if err := cur.Finish(); err != nil {
		return nil, err
	}
	return cmd, nil
}
