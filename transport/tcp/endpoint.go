package tcp

import (
	"sync"

	"github.com/YaoZengzeng/yustack/buffer"
	"github.com/YaoZengzeng/yustack/stack"
	"github.com/YaoZengzeng/yustack/types"
	"github.com/YaoZengzeng/yustack/waiter"
	"github.com/rs/xid"
)

// endpoint represents a TCP endpoint. This struct serves as the interface
// between users of the endpoint and the protocol implementation; it is legal to
// have concurrent goroutines make calls into the endpoint, they are properly
// synchronized. The protocol implementation, however, runs in a single
// goroutine
type endpoint struct {
	// The following fields are initialized at creation time and do not
	// change throughout the lifetime of the endpoint
	stack       *stack.Stack
	netProtocol types.NetworkProtocolNumber
	waiterQueue *waiter.Queue

	// connID identifies this endpoint in logs, independent of the
	// (local,remote,port) tuple it's bound to, which isn't set until Bind
	connID xid.ID

	// mu protects the fields below, and the fields of snd and rcv
	mu sync.Mutex

	id    types.TransportEndpointId
	state EndpointState

	// route is the resolved path to the peer; its LocalAddress is filled
	// in lazily, the first time a segment actually needs to go out, by
	// sender.resolveRoute
	route types.Route

	boundNicId            types.NicId
	effectiveNetProtocols []types.NetworkProtocolNumber
	isRegistered          bool

	snd *sender
	rcv *receiver

	stats Stats
}

func newEndpoint(s *stack.Stack, netProtocol types.NetworkProtocolNumber, waiterQueue *waiter.Queue) *endpoint {
	e := &endpoint{
		stack:       s,
		netProtocol: netProtocol,
		waiterQueue: waiterQueue,
		connID:      xid.New(),
		state:       StateClosed,
		stats:       noopStats{},
	}

	return e
}

// Bind binds the endpoint to a specific local address and port
// Specifying a Nic is optional
func (e *endpoint) Bind(address types.FullAddress) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.id.LocalAddress = address.Address
	e.id.LocalPort = address.Port
	e.boundNicId = address.Nic

	return nil
}

// Read reads data from the endpoint. Input reassembly into a byte stream is
// out of scope for this package (see non-goals); the receiver only tracks
// enough state to drive outgoing acks and window updates.
func (e *endpoint) Read(*types.FullAddress) (buffer.View, error) {
	return nil, types.ErrNotSupported
}

// Write hands application data to the send engine. See sender.Write for the
// three-phase commit-or-rollback algorithm.
func (e *endpoint) Write(v buffer.View, to *types.FullAddress) (uintptr, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// sender.Write itself checks that the connection is in one of
	// {Established, CloseWait, SynSent, SynRcvd}; don't duplicate that
	// check here with a different (and wrong) state list.
	if err := e.snd.Write(v, WriteCopy); err != nil {
		return 0, err
	}
	if err := e.snd.Output(nil); err != nil {
		return 0, err
	}

	return uintptr(len(v)), nil
}

// GetLocalAddress returns the local address of the endpoint
func (e *endpoint) GetLocalAddress() (types.FullAddress, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return types.FullAddress{Nic: e.boundNicId, Address: e.id.LocalAddress, Port: e.id.LocalPort}, nil
}

// GetRemoteAddress returns the address to which the endpoint is connected
func (e *endpoint) GetRemoteAddress() (types.FullAddress, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.connected() {
		return types.FullAddress{}, ErrConn
	}
	return types.FullAddress{Address: e.id.RemoteAddress, Port: e.id.RemotePort}, nil
}

// Connect drives the handshake state machine, which is out of scope for this
// package (see non-goals): this engine picks up a connection once it is
// already established
func (e *endpoint) Connect(address types.FullAddress) error {
	return types.ErrNotSupported
}

func (e *endpoint) Listen(backlog int) error {
	return types.ErrNotSupported
}

func (e *endpoint) Accept() (types.Endpoint, *waiter.Queue, error) {
	return nil, nil, types.ErrNotSupported
}

// Shutdown enqueues a FIN for the write half of the connection
func (e *endpoint) Shutdown(flags types.ShutdownFlags) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if flags&types.ShutdownWrite == 0 {
		return nil
	}
	if !e.state.connected() {
		return ErrConn
	}
	if err := e.snd.sendFin(); err != nil {
		return err
	}
	return e.snd.Output(nil)
}

func (e *endpoint) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.isRegistered {
		e.stack.UnregisterTransportEndpoint(e.boundNicId, e.effectiveNetProtocols, ProtocolNumber, e.id)
		e.isRegistered = false
	}
	e.state = StateClosed
}

func (e *endpoint) SetSockOpt(opt interface{}) error {
	return nil
}

func (e *endpoint) GetSockOpt(opt interface{}) error {
	return nil
}

// HandlePacket is called by the stack's demuxer when a segment arrives for
// this endpoint. Full input processing (the state machine driving
// connection establishment and teardown) is out of scope for this package;
// what it does implement is ack processing against the send engine, since
// that's what retires segments from the unacked queue and keeps congestion
// control and retransmission moving. The InputContext names this endpoint
// while ack processing runs and is cleared before the guaranteed trailing
// Output call, as described in §5. handleAck itself never calls Output
// (RexmitFast only requeues), so that trailing call is what transmits
// whatever the ack made sendable.
func (e *endpoint) HandlePacket(r *types.Route, id types.TransportEndpointId, vv *buffer.VectorisedView) {
	s := newSegment(r, id, vv)

	if !s.parse() {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.connected() {
		return
	}

	ctx := &InputContext{pcb: e}
	if s.flagIsSet(flagAck) {
		e.rcv.handleAck(e.snd, s.ackNumber, s.window)
	}
	ctx.pcb = nil

	e.snd.Output(ctx)
}
