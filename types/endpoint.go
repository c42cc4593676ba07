package types

import (
	"github.com/YaoZengzeng/yustack/buffer"
	"github.com/YaoZengzeng/yustack/waiter"
)

// FullAddress is the network address and port
type FullAddress struct {
	// Nic is the id of the Nic this address refers to, it is only
	// used by Bind to restrict a socket to a given interface
	Nic NicId

	// Address is the network address
	Address Address

	// Port is the transport port
	Port uint16
}

// ShutdownFlags represents the type of shutdown requested
type ShutdownFlags int

const (
	ShutdownRead ShutdownFlags = 1 << iota
	ShutdownWrite
)

// ErrorOption is used in GetSockOpt to get the last error recorded, if any
type ErrorOption struct{}

// Endpoint is the interface implemented by transport protocols (e.g. tcp,
// udp) that exposes functionality like read, write, connect, etc. to users of
// the networking stack
type Endpoint interface {
	// Close puts the endpoint in a closed state and frees all resources
	// associated with it
	Close()

	// Read reads data from the endpoint and optionally returns the sender's
	// address
	Read(*FullAddress) (buffer.View, error)

	// Write writes data to the endpoint's peer, or to the given address if
	// the transport protocol is connectionless
	Write(v buffer.View, to *FullAddress) (uintptr, error)

	// Connect connects the endpoint to its peer
	Connect(address FullAddress) error

	// Shutdown closes the read and/or write end of the endpoint's
	// connection
	Shutdown(flags ShutdownFlags) error

	// Listen puts the endpoint in "listen" mode, which allows it to
	// accept new connections
	Listen(backlog int) error

	// Accept returns a new endpoint if a peer has successfully connected
	// to an endpoint previously set to listen mode
	Accept() (Endpoint, *waiter.Queue, error)

	// Bind binds the endpoint to a specific local address and/or port
	Bind(address FullAddress) error

	// GetLocalAddress returns the local address of the endpoint
	GetLocalAddress() (FullAddress, error)

	// GetRemoteAddress returns the address to which the endpoint is
	// connected
	GetRemoteAddress() (FullAddress, error)

	// SetSockOpt sets a socket option
	SetSockOpt(opt interface{}) error

	// GetSockOpt gets a socket option
	GetSockOpt(opt interface{}) error
}
