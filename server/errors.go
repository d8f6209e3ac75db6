package server

import "errors"

// ErrEndOfStream indicates the peer closed the socket in an orderly
// way (no bytes pending in the read buffer). It is not an error
// condition for the caller: the connection handler treats it as a
// normal end of the command loop.
var ErrEndOfStream = errors.New("server: connection closed")

// ErrConnectionReset indicates the peer closed the socket while a
// partial frame was still buffered — data was lost mid-frame.
var ErrConnectionReset = errors.New("server: connection reset mid-frame")
