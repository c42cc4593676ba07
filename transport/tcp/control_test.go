package tcp

import (
	"testing"

	"github.com/YaoZengzeng/yustack/checker"
	"github.com/YaoZengzeng/yustack/header"
	"github.com/YaoZengzeng/yustack/link/channel"
	"github.com/YaoZengzeng/yustack/network/ipv4"
	"github.com/YaoZengzeng/yustack/stack"
	"github.com/YaoZengzeng/yustack/types"
	"github.com/stretchr/testify/require"
)

func TestKeepaliveProbesOneByteBehindSndNxt(t *testing.T) {
	h := newTestHarness(harnessOpts{})

	require.NoError(t, h.ep.snd.Keepalive())

	seg := h.fep.lastSent(t)
	require.Equal(t, uint32(h.ep.snd.sndNxt-1), seg.SequenceNumber())
	require.NotZero(t, seg.Flags()&header.TCPFlagAck)
	require.Zero(t, len(seg.Payload()))
}

func TestZeroWindowProbeSendsOneByteFromUnacked(t *testing.T) {
	h := newTestHarness(harnessOpts{mss: 8})

	require.NoError(t, h.ep.snd.Write([]byte("01234567"), WriteCopy))
	require.NoError(t, h.ep.snd.Output(nil))
	sentBefore := len(h.fep.sent)

	require.NoError(t, h.ep.snd.ZeroWindowProbe())

	seg := h.fep.lastSent(t)
	require.Greater(t, len(h.fep.sent), sentBefore)
	require.Equal(t, 1, len(seg.Payload()))
	require.Equal(t, []byte("0"), []byte(seg.Payload()))
}

func TestZeroWindowProbeIsNoOpWithNothingQueued(t *testing.T) {
	h := newTestHarness(harnessOpts{})
	require.NoError(t, h.ep.snd.ZeroWindowProbe())
	require.Empty(t, h.fep.sent)
}

func TestRstSendsStatelessResetAck(t *testing.T) {
	s := stack.New([]string{ipv4.ProtocolName}, []string{ProtocolName})
	linkEpId, linkEp := channel.New(16, 1500)
	require.NoError(t, s.CreateNic(1, linkEpId))
	require.NoError(t, s.AddAddress(1, ipv4.ProtocolNumber, testLocalAddr))
	s.SetRouteTable([]types.RouteEntry{{
		Destination: "\x00\x00\x00\x00",
		Mask:        "\x00\x00\x00\x00",
		Gateway:     "",
		Nic:         1,
	}})

	local := types.FullAddress{Nic: 1, Address: testLocalAddr, Port: testLocalPort}
	remote := types.FullAddress{Address: testRemoteAddr, Port: testRemotePort}

	require.NoError(t, Rst(s, ipv4.ProtocolNumber, local, remote, 111, 222))

	pkt := <-linkEp.C
	b := append(append([]byte{}, []byte(pkt.Header)...), []byte(pkt.Payload)...)

	checker.IPv4(t, b,
		checker.SrcAddr(testLocalAddr),
		checker.DstAddr(testRemoteAddr),
		checker.TCP(
			checker.SrcPort(testLocalPort),
			checker.DstPort(testRemotePort),
			checker.SeqNum(111),
			checker.AckNum(222),
			checker.TCPFlags(header.TCPFlagRst|header.TCPFlagAck),
			checker.Window(TCPDefaultWnd>>TCPRcvWndScale),
		),
	)
}
