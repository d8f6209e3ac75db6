package resp

import "errors"

// Decoding error types. A caller distinguishes them by identity, not by
// message text.
var (
	// ErrIncomplete indicates the buffered bytes do not yet contain a
	// full frame. Internal to the read loops that drive Check/Parse
	// (server.Connection, client.Client) — it must never escape to a
	// caller that isn't driving such a loop.
	ErrIncomplete = errors.New("resp: incomplete frame")

	// ErrProtocol indicates the bytes are not a well-formed RESP frame:
	// an unknown type byte, a malformed length, or (in Parse) a
	// $-N prefix other than $-1. Fatal for the connection that produced
	// it.
	ErrProtocol = errors.New("resp: protocol error")

	// ErrEndOfStream indicates a Cursor accessor was called with no
	// children remaining. Callers that may legitimately run out of
	// arguments (e.g. SET's trailing EX/PX option) handle this locally;
	// elsewhere it is connection-fatal.
	ErrEndOfStream = errors.New("resp: end of stream")
)
