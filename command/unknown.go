package command

import "github.com/coregx/respkv/resp"

// Unknown represents an unrecognized command name. It is never an
// error on its own: dispatch always succeeds in producing one so the
// client gets a normal Error reply instead of the connection dying.
type Unknown struct {
	name string
}

func (u Unknown) Name() string { return u.name }

// Apply returns the reply frame.
func (u Unknown) Apply() resp.Frame {
	return resp.Errf("ERR unknown command '%s'", u.name)
}
