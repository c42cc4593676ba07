// Package stack provides the glue between networking protocols and the
// consumers of the networking stack.

package stack

import (
	"sync"

	"github.com/YaoZengzeng/yustack/types"
	"github.com/YaoZengzeng/yustack/waiter"
)

// Stack is a networking stack, with all supported protocols, NICs, and route table.
type Stack struct {
	networkProtocols   map[types.NetworkProtocolNumber]types.NetworkProtocol
	transportProtocols map[types.TransportProtocolNumber]*TransportProtocolState

	demux *transportDemuxer

	mu        sync.RWMutex
	nics      map[types.NicId]*Nic
	routeTable []types.RouteEntry
}

// New allocates a new networking stack with only the requested networking and
// transport protocols configured with default options.
func New(network []string, transport []string) *Stack {
	s := &Stack{
		networkProtocols:   make(map[types.NetworkProtocolNumber]types.NetworkProtocol),
		transportProtocols: make(map[types.TransportProtocolNumber]*TransportProtocolState),
		nics:               make(map[types.NicId]*Nic),
	}

	// Add specified network protocols.
	for _, name := range network {
		netProtocolFactory, ok := networkProtocols[name]
		if !ok {
			continue
		}
		netProtocol := netProtocolFactory()
		s.networkProtocols[netProtocol.Number()] = netProtocol
	}

	// Add specified transport protocols.
	for _, name := range transport {
		transProtocolFactory, ok := transportProtocols[name]
		if !ok {
			continue
		}
		transProtocol := transProtocolFactory()
		s.transportProtocols[transProtocol.Number()] = &TransportProtocolState{Protocol: transProtocol}
	}

	s.demux = newTransportDemuxer(s)

	return s
}

// CreateNic creates a new Nic with the given id, wired to the link-layer
// endpoint previously registered under linkEpId, and attaches it to the stack
func (s *Stack) CreateNic(id types.NicId, linkEpId types.LinkEndpointID) error {
	ep := FindLinkEndpoint(linkEpId)
	if ep == nil {
		return types.ErrBadLinkEndpoint
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nics[id]; ok {
		return types.ErrDuplicateNicId
	}

	n := newNic(s, id, ep)
	s.nics[id] = n
	n.attachLinkEndpoint()

	return nil
}

// AddAddress adds a new network-layer address to the Nic identified by id, so
// that it starts accepting packets targeted at that address
func (s *Stack) AddAddress(id types.NicId, protocol types.NetworkProtocolNumber, addr types.Address) error {
	s.mu.RLock()
	n, ok := s.nics[id]
	s.mu.RUnlock()
	if !ok {
		return types.ErrUnknownNicId
	}

	return n.AddAddress(protocol, addr)
}

// SetRouteTable replaces the stack's routing table, in priority order
func (s *Stack) SetRouteTable(table []types.RouteEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routeTable = table
}

// FindRoute searches the routing table for the first row that matches
// remoteAddr and resolves a Route through the Nic it names. An empty
// remoteAddr matches only rows whose Destination and Mask are both empty. If
// localAddr is unset, the Nic's primary address is used as the source
// address.
func (s *Stack) FindRoute(id types.NicId, localAddr, remoteAddr types.Address, netProto types.NetworkProtocolNumber) (types.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, row := range s.routeTable {
		if id != 0 && row.Nic != id {
			continue
		}
		if !addressMatches(remoteAddr, row.Destination, row.Mask) {
			continue
		}

		n, ok := s.nics[row.Nic]
		if !ok {
			continue
		}

		src := localAddr
		if src == "" {
			ep := n.primaryEndpoint()
			if ep == nil {
				continue
			}
			src = ep.ep.Id().LocalAddress
		}

		ref := n.primaryEndpoint()
		if ref == nil {
			continue
		}
		r := types.MakeRoute(netProto, src, remoteAddr, ref.ep)
		return r, nil
	}

	return types.Route{}, types.ErrNoRoute
}

func addressMatches(addr, dest, mask types.Address) bool {
	if len(addr) != len(mask) || len(dest) != len(mask) {
		// Lengths differ: only a row with an empty destination and mask
		// (a wildcard default route) matches.
		return dest == "" && mask == ""
	}
	for i := 0; i < len(mask); i++ {
		if addr[i]&mask[i] != dest[i]&mask[i] {
			return false
		}
	}
	return true
}

// NewEndpoint creates a new transport layer endpoint of the given transport
// and network protocol pair
func (s *Stack) NewEndpoint(transport types.TransportProtocolNumber, network types.NetworkProtocolNumber, waiterQueue *waiter.Queue) (types.Endpoint, error) {
	t, ok := s.transportProtocols[transport]
	if !ok {
		return nil, types.ErrUnknownProtocol
	}

	return t.Protocol.NewEndpoint(s, network, waiterQueue)
}

// RegisterTransportEndpoint registers the given endpoint with the stack's
// demultiplexer so that packets matching id are delivered to it
func (s *Stack) RegisterTransportEndpoint(nicId types.NicId, netProtos []types.NetworkProtocolNumber, protocol types.TransportProtocolNumber, id types.TransportEndpointId, ep types.TransportEndpoint) error {
	return s.demux.registerEndpoint(netProtos, protocol, id, ep)
}

// UnregisterTransportEndpoint removes the given endpoint from the stack's
// demultiplexer
func (s *Stack) UnregisterTransportEndpoint(nicId types.NicId, netProtos []types.NetworkProtocolNumber, protocol types.TransportProtocolNumber, id types.TransportEndpointId) {
	s.demux.unregisterEndpoint(netProtos, protocol, id)
}
