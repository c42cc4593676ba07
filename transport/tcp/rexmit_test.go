package tcp

import (
	"testing"

	"github.com/YaoZengzeng/yustack/seqnum"
	"github.com/stretchr/testify/require"
)

func TestRexmitMovesFirstUnackedToUnsent(t *testing.T) {
	h := newTestHarness(harnessOpts{mss: 4})

	require.NoError(t, h.ep.snd.Write([]byte("aaaabbbb"), WriteCopy))
	require.NoError(t, h.ep.snd.Output(nil))
	require.True(t, h.ep.snd.unsent.Empty())

	first := h.ep.snd.unacked.Front()
	nrtxBefore := h.ep.snd.nrtx

	h.ep.snd.Rexmit()

	require.Equal(t, first, h.ep.snd.unsent.Front())
	require.Equal(t, nrtxBefore+1, h.ep.snd.nrtx)

	remaining := 0
	for seg := h.ep.snd.unacked.Front(); seg != nil; seg = seg.Next() {
		remaining++
	}
	require.Equal(t, 1, remaining)
}

func TestRexmitFastIsNoOpDuringFastRecovery(t *testing.T) {
	h := newTestHarness(harnessOpts{mss: 4})
	require.NoError(t, h.ep.snd.Write([]byte("aaaabbbb"), WriteCopy))
	require.NoError(t, h.ep.snd.Output(nil))

	h.ep.snd.RexmitFast()
	ssthreshAfterFirst := h.ep.snd.ssthresh

	h.ep.snd.RexmitFast()
	require.Equal(t, ssthreshAfterFirst, h.ep.snd.ssthresh)
}

func TestRexmitFastHalvesWindowWithFloor(t *testing.T) {
	h := newTestHarness(harnessOpts{mss: 4, sndWnd: 8})
	require.NoError(t, h.ep.snd.Write([]byte("aaaabbbb"), WriteCopy))
	require.NoError(t, h.ep.snd.Output(nil))

	h.ep.snd.RexmitFast()

	require.True(t, h.ep.snd.flagIsSet(flagInFastRecovery))
	require.GreaterOrEqual(t, h.ep.snd.ssthresh, seqnum.Size(2*4))
	require.Equal(t, h.ep.snd.ssthresh+seqnum.Size(3*4), h.ep.snd.cwnd)
}

func queuedSegmentCount(s *sender) int {
	n := 0
	for seg := s.unacked.Front(); seg != nil; seg = seg.Next() {
		n++
	}
	for seg := s.unsent.Front(); seg != nil; seg = seg.Next() {
		n++
	}
	return n
}

func TestRexmitRTOMergesUnackedAndUnsentOntoUnsent(t *testing.T) {
	h := newTestHarness(harnessOpts{mss: 4, sndWnd: 4})

	// the narrow window caps segments at 2 bytes, and Nagle holds the second
	// one behind the unacked first, so some of the data stays queued
	require.NoError(t, h.ep.snd.Write([]byte("aaaabbbb"), WriteCopy))
	require.NoError(t, h.ep.snd.Output(nil))
	sentBefore := len(h.fep.sent)
	require.NotZero(t, sentBefore)
	require.False(t, h.ep.snd.unacked.Empty())
	require.False(t, h.ep.snd.unsent.Empty())
	segsBefore := queuedSegmentCount(h.ep.snd)

	nrtxBefore := h.ep.snd.nrtx
	h.ep.snd.flagSet(flagInFastRecovery)

	h.ep.snd.RexmitRTO(nil)

	// no segment is lost across the merge, and the window still admits
	// some of it, re-sent, into unacked
	require.Equal(t, segsBefore, queuedSegmentCount(h.ep.snd))
	require.False(t, h.ep.snd.unacked.Empty())
	require.Equal(t, nrtxBefore+1, h.ep.snd.nrtx)
	require.False(t, h.ep.snd.flagIsSet(flagInFastRecovery))
	// RexmitRTO re-runs Output, which re-sends whatever the window allows
	require.Greater(t, len(h.fep.sent), sentBefore)
}
