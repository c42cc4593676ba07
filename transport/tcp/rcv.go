package tcp

import (
	"github.com/YaoZengzeng/yustack/seqnum"
)

// receiver holds the receive-side state the send engine consults; inbound
// data is not reassembled into a stream of bytes here. It supplies the ack
// number and window fields every outgoing segment (even a pure data segment
// carrying no ACK-only purpose) must carry, and processes inbound acks.
type receiver struct {
	ep *endpoint

	rcvNxt seqnum.Value

	// rcvAcc is the one beyond the last acceptable sequence number. That is,
	// the "largest" sequence value that the receiver has announced to the
	// its peer that it's willing to accept. This may be different than
	// rcvNxt + rcvWnd if the receive window is reduced; in that case we have
	// to reduce the window as we receive more data instead of shrinking it
	rcvAcc seqnum.Value

	// rcvAnnWnd is the window currently advertised to the peer, in bytes
	// (unscaled); outputSegment right-shifts it by rcvWndScale before
	// putting it on the wire, except on a SYN carrying the window-scale
	// option itself
	rcvAnnWnd seqnum.Size

	// rcvAnnRightEdge is rcvNxt + rcvAnnWnd as of the last segment emitted;
	// kept so a future window-update decision can tell whether the
	// advertised edge actually moved
	rcvAnnRightEdge seqnum.Value

	rcvWndScale uint8

	closed bool
}

func newReceiver(ep *endpoint, irs seqnum.Value, rcvWnd seqnum.Size, rcvWndScale uint8) *receiver {
	r := &receiver{
		ep:          ep,
		rcvNxt:      irs + 1,
		rcvAcc:      irs.Add(rcvWnd + 1),
		rcvAnnWnd:   rcvWnd,
		rcvWndScale: rcvWndScale,
	}
	r.rcvAnnRightEdge = r.rcvNxt.Add(rcvWnd)
	return r
}

// getSendParams returns the values an outgoing segment's ACK number and
// (unscaled) window advertisement should carry
func (r *receiver) getSendParams() (rcvNxt seqnum.Value, rcvWnd seqnum.Size) {
	return r.rcvNxt, r.rcvAnnWnd
}

// handleAck processes the ack number and window carried by an inbound
// segment: it retires fully-acknowledged segments from snd's unacked queue,
// restores send-buffer credit, tracks duplicate acks for fast retransmit, and
// updates the congestion window following a Reno-style slow-start / additive
// increase once out of fast recovery.
func (r *receiver) handleAck(s *sender, ack seqnum.Value, wnd seqnum.Size) {
	// The wire window field is unscaled; apply the peer's negotiated
	// window scale (if any) before using it.
	wnd <<= seqnum.Size(s.sndWndScale)

	oldWnd := s.sndWnd
	s.sndWnd = wnd
	if wnd > s.sndWndMax {
		s.sndWndMax = wnd
	}

	// Ignore acks that don't acknowledge any new data and aren't a
	// plain duplicate of the current lastAck (window update only)
	if !ack.InRange(s.lastAck, s.sndNxt+1) {
		return
	}

	if ack == s.lastAck {
		// Possible duplicate ack: only counts toward fast retransmit
		// when there's unacknowledged data in flight and the window
		// didn't change
		if !s.unacked.Empty() && wnd == oldWnd {
			s.dupAcks++
			if s.dupAcks == 3 && !s.flagIsSet(flagInFastRecovery) {
				s.RexmitFast()
			}
		}
		return
	}

	// New data acknowledged: retire segments from unacked, exit fast
	// recovery, reset the duplicate-ack counter and grow cwnd
	s.dupAcks = 0
	s.flagsClear(flagInFastRecovery)

	s.lastAck = ack

	for !s.unacked.Empty() {
		seg := s.unacked.Front()
		if seg.endSeq().LessThan(ack) || seg.endSeq() == ack {
			s.unacked.Remove(seg)
			s.sndBuf += len(seg.buf.payload)
			s.sndQueuelen--
			continue
		}
		break
	}

	if s.rtseq != 0 && s.rtseq.LessThan(ack) {
		// The segment used for the current RTT sample has been fully
		// acked; fold the sample into srtt/rttvar and clear it so the
		// next emitted segment starts a new one
		s.updateRTO()
		s.rtseq = 0
	}

	// Congestion control: slow start below ssthresh, additive increase
	// above it
	if s.cwnd < s.ssthresh {
		s.cwnd += seqnum.Size(s.mss)
	} else {
		s.cwnd += seqnum.Size(uint32(s.mss) * uint32(s.mss) / uint32(s.cwnd))
	}
}
