package tcp

import (
	"github.com/YaoZengzeng/yustack/types"
)

// Errors returned by the send engine, in the same sentinel-value style as
// types.Error. ErrConn is an alias of the stack-wide "invalid endpoint state"
// error rather than a new value, since a caller checking for it shouldn't
// have to know whether the rejection came from this package or from the
// stack.
var (
	// ErrMem is returned when a Write can't proceed because the
	// connection's send buffer or send queue is full
	ErrMem = types.NewError("insufficient send buffer or queue space")

	// ErrBuf is returned by SendEmptyAck when the bare ACK, which is never
	// queued, could not be transmitted
	ErrBuf = types.NewError("segment buffer allocation failed")

	// ErrConn is returned when an operation is attempted on a connection
	// that isn't in a state that allows it
	ErrConn = types.ErrInvalidEndpointState

	// ErrArg is returned when a caller-supplied argument is invalid, e.g.
	// a zero-length Write
	ErrArg = types.NewError("invalid argument")
)
