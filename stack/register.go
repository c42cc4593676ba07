package stack

import (
	"sync"

	"github.com/YaoZengzeng/yustack/types"
)

var (
	networkProtocols   = make(map[string]types.NetworkProtocolFactory)
	transportProtocols = make(map[string]TransportProtocolFactory)

	linkEndpointsMu sync.Mutex
	linkEndpoints   = make(map[types.LinkEndpointID]types.LinkEndpoint)
	nextLinkEndpointID types.LinkEndpointID = 1
)

// RegisterLinkEndpoint registers a new link-layer endpoint and returns an id
// that can be used to refer to it, e.g. when wiring it to a Nic by id rather
// than by passing the (possibly not-yet-constructed) concrete type around.
func RegisterLinkEndpoint(ep types.LinkEndpoint) types.LinkEndpointID {
	linkEndpointsMu.Lock()
	defer linkEndpointsMu.Unlock()

	id := nextLinkEndpointID
	nextLinkEndpointID++
	linkEndpoints[id] = ep

	return id
}

// FindLinkEndpoint finds the link endpoint associated with the given id
func FindLinkEndpoint(id types.LinkEndpointID) types.LinkEndpoint {
	linkEndpointsMu.Lock()
	defer linkEndpointsMu.Unlock()

	return linkEndpoints[id]
}

// RegisterNetworkProtocolFactory registers a new network protocol factory with
// the stack so that it becomes available to users of the stack. This function
// is intended to be called by init() functions of the protocols.
func RegisterNetworkProtocolFactory(name string, p types.NetworkProtocolFactory) {
	networkProtocols[name] = p
}

// RegisterTransportProtocolFactory registers a new transport protocol factory
// with the stack so that it becomes available to users of the stack. This
// function is intended to be called by init() functions of the protocols.
func RegisterTransportProtocolFactory(name string, p TransportProtocolFactory) {
	transportProtocols[name] = p
}
