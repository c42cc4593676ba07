package ipv4

import (
	"log"

	"github.com/YaoZengzeng/yustack/buffer"
	"github.com/YaoZengzeng/yustack/header"
	"github.com/YaoZengzeng/yustack/types"
)

// endpoint represents the ipv4 network endpoint bound to a single local
// address on a Nic. It builds and validates the ipv4 header and hands
// payloads down to the link endpoint, and parses arriving headers and hands
// payloads up to the transport dispatcher.
type endpoint struct {
	nicId      types.NicId
	id         types.NetworkEndpointId
	linkEp     types.LinkEndpoint
	dispatcher types.NetworkDispatcher
}

func newEndpoint(nicId types.NicId, addr types.Address, dispatcher types.NetworkDispatcher, linkEp types.LinkEndpoint) *endpoint {
	return &endpoint{
		nicId:      nicId,
		id:         types.NetworkEndpointId{LocalAddress: addr},
		linkEp:     linkEp,
		dispatcher: dispatcher,
	}
}

// MTU implements types.NetworkEndpoint.MTU
func (e *endpoint) MTU() uint32 {
	return e.linkEp.MTU() - uint32(e.MaxHeaderLength())
}

// Id implements types.NetworkEndpoint.Id
func (e *endpoint) Id() *types.NetworkEndpointId {
	return &e.id
}

// NicId implements types.NetworkEndpoint.NicId
func (e *endpoint) NicId() types.NicId {
	return e.nicId
}

// MaxHeaderLength implements types.NetworkEndpoint.MaxHeaderLength
func (e *endpoint) MaxHeaderLength() uint16 {
	return header.IPv4MinimumSize + e.linkEp.MaxHeaderLength()
}

// WritePacket builds the ipv4 header in front of hdr and hands the packet to
// the link endpoint
func (e *endpoint) WritePacket(r *types.Route, hdr buffer.Prependable, payload buffer.VectorisedView, protocol types.TransportProtocolNumber, ttl uint8) error {
	ip := header.IPv4(hdr.Prepend(header.IPv4MinimumSize))
	length := uint16(hdr.UsedLength() + payload.Size())

	ip.Encode(&header.IPv4Fields{
		IHL:         header.IPv4MinimumSize,
		TotalLength: length,
		TTL:         ttl,
		Protocol:    uint8(protocol),
		SrcAddr:     r.LocalAddress,
		DstAddr:     r.RemoteAddress,
	})
	ip.SetChecksum(^ip.CalculateChecksum())

	return e.linkEp.WritePacket(r, &hdr, payload.ToView(), ProtocolNumber)
}

// HandlePacket implements types.NetworkEndpoint.HandlePacket
func (e *endpoint) HandlePacket(r *types.Route, vv *buffer.VectorisedView) {
	h := header.IPv4(vv.First())
	if !h.IsValid(vv.Size()) {
		log.Printf("ipv4: dropping invalid packet\n")
		return
	}

	vv.TrimFront(int(h.HeaderLength()))
	e.dispatcher.DeliverTransportPacket(r, h.TransportProtocol(), vv)
}

// NewEndpoint creates a new ipv4 endpoint
func (p *protocol) NewEndpoint(nicId types.NicId, addr types.Address, dispatcher types.NetworkDispatcher, linkEp types.LinkEndpoint) (types.NetworkEndpoint, error) {
	return newEndpoint(nicId, addr, dispatcher, linkEp), nil
}

// MinimumPacketSize implements types.NetworkProtocol.MinimumPacketSize
func (p *protocol) MinimumPacketSize() int {
	return header.IPv4MinimumSize
}

// ParseAddresses implements types.NetworkProtocol.ParseAddresses
func (p *protocol) ParseAddresses(v []byte) (src, dst types.Address) {
	h := header.IPv4(v)
	return h.SourceAddress(), h.DestinationAddress()
}
