package types

import (
	"github.com/YaoZengzeng/yustack/buffer"
)

// NetworkProtocolNumber is the number of a network protocol
type NetworkProtocolNumber uint32

// NetworkEndpointId is the identifier of a network layer protocol endpoint.
// It is currently only the local address, since that's enough to tell two
// endpoints of the same protocol on the same Nic apart
type NetworkEndpointId struct {
	LocalAddress Address
}

// NetworkEndpoint is the interface that needs to be implemented by network
// layer protocol endpoints (e.g. an IPv4 address bound to a Nic)
type NetworkEndpoint interface {
	// MTU is the maximum transmission unit for this endpoint, already
	// accounting for the network layer header
	MTU() uint32

	// Id returns the network endpoint id
	Id() *NetworkEndpointId

	// NicId returns the id of the Nic this endpoint belongs to
	NicId() NicId

	// MaxHeaderLength returns the maximum size the network header can
	// have, so that higher layers can reserve space in front of the
	// packets they build
	MaxHeaderLength() uint16

	// WritePacket writes a packet to the given destination address and
	// protocol, prepending its own network header to hdr
	WritePacket(r *Route, hdr buffer.Prependable, payload buffer.VectorisedView, protocol TransportProtocolNumber, ttl uint8) error

	// HandlePacket is called by the Nic when a packet arrives for this
	// endpoint
	HandlePacket(r *Route, vv *buffer.VectorisedView)
}

// NetworkDispatcher is implemented by the Nic. Link endpoints use it to
// deliver inbound packets up to the network layer, and network protocols use
// it to deliver de-encapsulated payloads up to the transport layer
type NetworkDispatcher interface {
	DeliverNetworkPacket(linkEp LinkEndpoint, remoteLinkAddr LinkAddress, protocol NetworkProtocolNumber, vv *buffer.VectorisedView)

	DeliverTransportPacket(r *Route, protocol TransportProtocolNumber, vv *buffer.VectorisedView)
}

// NetworkProtocol is the interface that needs to be implemented by network
// protocols (e.g., ipv4, ipv6) that want to be part of the networking stack.
type NetworkProtocol interface {
	// Number returns the network protocol number.
	Number() NetworkProtocolNumber

	// MinimumPacketSize returns the minimum valid packet size of this
	// network protocol
	MinimumPacketSize() int

	// ParseAddresses extracts the source and destination addresses from
	// the network header found in v
	ParseAddresses(v []byte) (src, dst Address)

	// NewEndpoint creates a new endpoint of this protocol
	NewEndpoint(nicId NicId, addr Address, dispatcher NetworkDispatcher, linkEp LinkEndpoint) (NetworkEndpoint, error)
}

// NetworkProtocolFactory provides methods to be used by the stack to
// instantiate network protocols.
type NetworkProtocolFactory func() NetworkProtocol
