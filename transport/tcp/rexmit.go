package tcp

import (
	"log"
	"time"

	"github.com/YaoZengzeng/yustack/seqnum"
)

// RexmitRTO is called when the retransmission timer fires: every segment
// still waiting on an ack, plus whatever is still queued but never sent, is
// moved back onto unsent (unacked segments first, so they go out again
// ahead of newer data) and Output is re-run to drain it. Per §4.8.
func (s *sender) RexmitRTO(ctx *InputContext) {
	var merged outSegmentList
	merged.PushBackList(&s.unacked)
	merged.PushBackList(&s.unsent)
	s.unsent = merged
	s.unacked.Reset()

	s.nrtx++
	s.rtseq = 0
	s.rttest = time.Time{}
	s.flagsClear(flagInFastRecovery)
	s.stats.RtoEvent()
	log.Printf("tcp %s: retransmission timeout, nrtx=%d", s.ep.connID, s.nrtx)

	s.Output(ctx)
}

// Rexmit moves the first unacked segment back onto unsent, inserted at its
// sorted position, without touching anything else. The caller (the input
// path, reacting to duplicate acks) is responsible for calling Output
// afterwards; Rexmit itself never does, per §4.8.
func (s *sender) Rexmit() {
	seg := s.unacked.Front()
	if seg == nil {
		return
	}

	s.unacked.Remove(seg)
	s.unsent.InsertSorted(seg)

	s.rtseq = 0
	s.rttest = time.Time{}
	s.nrtx++
	s.stats.Rexmit()
}

// RexmitFast implements the Reno fast-retransmit congestion response,
// triggered by the third duplicate ack, per §4.8. It is a no-op if a fast
// recovery episode is already in progress.
func (s *sender) RexmitFast() {
	if s.flagIsSet(flagInFastRecovery) {
		return
	}

	s.Rexmit()

	half := s.sndWnd
	if s.cwnd < half {
		half = s.cwnd
	}
	half /= 2

	floor := seqnum.Size(s.mss) * 2
	if half < floor {
		half = floor
	}

	s.ssthresh = half
	s.cwnd = s.ssthresh + seqnum.Size(s.mss)*3
	s.flagSet(flagInFastRecovery)
	s.stats.RexmitFastRTO()
}
