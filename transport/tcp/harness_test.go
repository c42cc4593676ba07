package tcp

import (
	"testing"

	"github.com/YaoZengzeng/yustack/buffer"
	"github.com/YaoZengzeng/yustack/header"
	"github.com/YaoZengzeng/yustack/seqnum"
	"github.com/YaoZengzeng/yustack/types"
)

const (
	testLocalAddr  = types.Address("\x0a\x00\x00\x01")
	testRemoteAddr = types.Address("\x0a\x00\x00\x02")
	testLocalPort  = uint16(1234)
	testRemotePort = uint16(4096)
	testNetProto   = types.NetworkProtocolNumber(0x0800)
)

// fakeNetEndpoint is a minimal types.NetworkEndpoint that records every
// packet handed to it instead of putting it on a wire, so a test can inspect
// exactly what the send engine built without going through a real Nic.
type fakeNetEndpoint struct {
	sent []header.TCP
}

func (f *fakeNetEndpoint) MTU() uint32                          { return 1500 }
func (f *fakeNetEndpoint) Id() *types.NetworkEndpointId         { return &types.NetworkEndpointId{LocalAddress: testLocalAddr} }
func (f *fakeNetEndpoint) NicId() types.NicId                   { return 1 }
func (f *fakeNetEndpoint) MaxHeaderLength() uint16              { return 0 }
func (f *fakeNetEndpoint) HandlePacket(*types.Route, *buffer.VectorisedView) {}

func (f *fakeNetEndpoint) WritePacket(r *types.Route, hdr buffer.Prependable, payload buffer.VectorisedView, protocol types.TransportProtocolNumber, ttl uint8) error {
	b := append([]byte{}, hdr.UsedBytes()...)
	b = append(b, payload.ToView()...)
	f.sent = append(f.sent, header.TCP(b))
	return nil
}

// lastSent returns the most recently transmitted segment, failing the test
// if none was sent
func (f *fakeNetEndpoint) lastSent(t *testing.T) header.TCP {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatalf("no segment was transmitted")
	}
	return f.sent[len(f.sent)-1]
}

// testHarness bundles an endpoint wired up to a fakeNetEndpoint so a test can
// drive the send engine directly and inspect what it puts on the wire
type testHarness struct {
	ep  *endpoint
	fep *fakeNetEndpoint
}

type harnessOpts struct {
	sndWnd      seqnum.Size
	rcvWnd      seqnum.Size
	mss         uint16
	sndWndScale int
	rcvWndScale uint8
}

func newTestHarness(opts harnessOpts) *testHarness {
	if opts.mss == 0 {
		opts.mss = TCPDefaultMSS
	}
	if opts.sndWnd == 0 {
		opts.sndWnd = TCPDefaultWnd
	}
	if opts.rcvWnd == 0 {
		opts.rcvWnd = TCPDefaultWnd
	}

	fep := &fakeNetEndpoint{}
	route := types.MakeRoute(testNetProto, testLocalAddr, testRemoteAddr, fep)

	ep := newEndpoint(nil, testNetProto, nil)
	ep.id = types.TransportEndpointId{
		LocalPort:     testLocalPort,
		LocalAddress:  testLocalAddr,
		RemotePort:    testRemotePort,
		RemoteAddress: testRemoteAddr,
	}
	ep.route = route
	ep.state = StateEstablished

	iss := seqnum.Value(100)
	irs := seqnum.Value(500)
	ep.snd = newSender(ep, iss, irs, opts.sndWnd, opts.mss, opts.sndWndScale)
	ep.rcv = newReceiver(ep, irs, opts.rcvWnd, opts.rcvWndScale)

	return &testHarness{ep: ep, fep: fep}
}
