package tcp

import (
	"github.com/YaoZengzeng/yustack/buffer"
	"github.com/YaoZengzeng/yustack/checksum"
	"github.com/YaoZengzeng/yustack/header"
	"github.com/YaoZengzeng/yustack/stack"
	"github.com/YaoZengzeng/yustack/types"
)

// Rst sends a stateless RST+ACK, built without reference to any live
// endpoint: used to reject a segment addressed to a port nobody is
// listening on. Per §4.7/§6.1.
func Rst(s *stack.Stack, netProto types.NetworkProtocolNumber, localID, remoteID types.FullAddress, seqNo, ackNo uint32) error {
	r, err := s.FindRoute(localID.Nic, localID.Address, remoteID.Address, netProto)
	if err != nil {
		return err
	}

	hdr := buffer.NewPrependable(header.TCPMinimumSize + int(r.MaxHeaderLength()))
	hdrBytes := hdr.Prepend(header.TCPMinimumSize)
	tcpHdr := header.TCP(hdrBytes)

	tcpHdr.Encode(&header.TCPFields{
		SrcPort:    localID.Port,
		DstPort:    remoteID.Port,
		SeqNum:     seqNo,
		AckNum:     ackNo,
		DataOffset: header.TCPMinimumSize,
		Flags:      flagRst | flagAck,
		WindowSize: TCPDefaultWnd >> TCPRcvWndScale,
	})

	xsum := checksum.Checksum(hdrBytes, 0)
	pseudo := header.PseudoHeaderChecksum(header.TCPProtocolNumber, localID.Address, remoteID.Address, header.TCPMinimumSize)
	tcpHdr.SetChecksum(^checksum.Combine(xsum, pseudo))

	payload := buffer.NewVectorisedView(nil, 0)
	return r.WritePacket(hdr, payload, header.TCPProtocolNumber, TCPDefaultTTL)
}

// Keepalive sends a bare probe one byte behind the current send sequence, to
// provoke an ack from a peer that may have silently gone away. Per §4.7.
func (s *sender) Keepalive() error {
	rcvNxt, rcvWnd := s.ep.rcv.getSendParams()
	buf := newSegBuf(0, 0)
	return s.transmit(buf, flagAck, s.sndNxt-1, rcvNxt, rcvWnd, s.flagIsSet(flagTimestamp))
}

// ZeroWindowProbe forces the peer to re-announce its window by sending one
// byte of unacknowledged data (or a bare FIN-ACK, if the connection has
// nothing left but its FIN to resend). Per §4.7.
func (s *sender) ZeroWindowProbe() error {
	seg := s.unacked.Front()
	if seg == nil {
		seg = s.unsent.Front()
	}
	if seg == nil {
		return nil
	}

	rcvNxt, rcvWnd := s.ep.rcv.getSendParams()

	if seg.tcpFlags&flagFin != 0 && len(seg.buf.payload) == 0 {
		buf := newSegBuf(0, 0)
		return s.transmit(buf, flagFin|flagAck, seg.seqNo, rcvNxt, rcvWnd, false)
	}

	if len(seg.buf.payload) == 0 {
		return nil
	}

	buf := newSegBuf(1, 0)
	copy(buf.payload, seg.buf.payload[:1])
	return s.transmit(buf, flagAck, seg.seqNo, rcvNxt, rcvWnd, false)
}
