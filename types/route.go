package types

import (
	"github.com/YaoZengzeng/yustack/buffer"
)

// RouteEntry is a row in the routing table. It specifies through which Nic
// (and gateway) sets of packets should be routed. A row is considered viable
// if the masked target address matches the destination address in the row
type RouteEntry struct {
	// Destination is the address that must be matched against the masked
	// target address to check if this row is viable
	Destination Address

	// Mask specifies which bits of the Destination and the target address
	// must match for this row to be viable
	Mask Address

	// Gateway is the gateway to be used if this row is viable
	Gateway Address

	// Nic is the id of the nic to be used if this row is viable
	Nic NicId
}

// Route represents a resolved path a packet (or a stream of packets, in the
// case of a TCP connection) takes from a local to a remote network endpoint.
// It is handed to transport protocol endpoints so that they can address and
// send outgoing packets without needing to know about the routing table, the
// NIC, or the link layer underneath it.
type Route struct {
	// LocalAddress is the local address from which packets on this route
	// are sent
	LocalAddress Address

	// RemoteAddress is the address to which packets on this route are sent
	RemoteAddress Address

	// LocalLinkAddress is the link-layer address of the local interface,
	// populated for routes discovered while handling an inbound packet
	LocalLinkAddress LinkAddress

	// RemoteLinkAddress is the link-layer address of the next hop,
	// populated for routes discovered while handling an inbound packet
	RemoteLinkAddress LinkAddress

	// NetProto is the network layer protocol this route operates on
	NetProto NetworkProtocolNumber

	// ep is the network endpoint through which outgoing packets are
	// written
	ep NetworkEndpoint
}

// MakeRoute initializes a new route. It takes ownership of nothing; ep must
// outlive the returned Route.
func MakeRoute(netProto NetworkProtocolNumber, localAddr, remoteAddr Address, ep NetworkEndpoint) Route {
	return Route{
		LocalAddress:  localAddr,
		RemoteAddress: remoteAddr,
		NetProto:      netProto,
		ep:            ep,
	}
}

// WritePacket writes a packet to the given transport protocol number via the
// network endpoint backing the route, e.g. prepending and filling in an IPv4
// header and handing the result to the link endpoint.
func (r *Route) WritePacket(hdr buffer.Prependable, payload buffer.VectorisedView, protocol TransportProtocolNumber, ttl uint8) error {
	return r.ep.WritePacket(r, hdr, payload, protocol, ttl)
}

// MaxHeaderLength returns the combined header room the network and link
// layers beneath this route will prepend; a transport endpoint building a
// packet must reserve at least this much space ahead of its own header.
func (r *Route) MaxHeaderLength() uint16 {
	return r.ep.MaxHeaderLength()
}

// IsResolutionRequired returns true if the route doesn't know the concrete
// link address needed to reach the next hop yet
func (r *Route) IsResolutionRequired() bool {
	return false
}

// Clone returns a copy of the route, which the caller may freely store
// without racing with mutations made through the original.
func (r *Route) Clone() Route {
	return *r
}
