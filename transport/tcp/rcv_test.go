package tcp

import (
	"testing"

	"github.com/YaoZengzeng/yustack/seqnum"
	"github.com/stretchr/testify/require"
)

func TestHandleAckAppliesPeerWindowScale(t *testing.T) {
	h := newTestHarness(harnessOpts{sndWndScale: 2})

	h.ep.rcv.handleAck(h.ep.snd, h.ep.snd.lastAck, 10)

	require.Equal(t, seqnum.Size(40), h.ep.snd.sndWnd)
}

func TestHandleAckRetiresFullyAckedSegments(t *testing.T) {
	h := newTestHarness(harnessOpts{mss: 8})
	// NoDelay so the 2-byte second segment isn't held back by Nagle behind
	// the still-unacked first one
	h.ep.snd.flagSet(flagNoDelay)

	require.NoError(t, h.ep.snd.Write([]byte("0123456789"), WriteCopy)) // 8 + 2
	require.NoError(t, h.ep.snd.Output(nil))
	require.Len(t, h.fep.sent, 2)

	sndBufBefore := h.ep.snd.sndBuf
	last := h.ep.snd.unacked.Back()
	require.NotNil(t, last)
	ack := last.endSeq()

	h.ep.rcv.handleAck(h.ep.snd, ack, 8192)

	require.True(t, h.ep.snd.unacked.Empty())
	require.Equal(t, sndBufBefore+10, h.ep.snd.sndBuf)
	require.Equal(t, ack, h.ep.snd.lastAck)
}

func TestHandleAckPartialRetiresOnlyCoveredSegments(t *testing.T) {
	h := newTestHarness(harnessOpts{mss: 4})

	require.NoError(t, h.ep.snd.Write([]byte("aaaabbbbcccc"), WriteCopy)) // 3 segments of 4
	require.NoError(t, h.ep.snd.Output(nil))
	// cwnd starts at 2*mss = 8, so only the first two segments go out
	require.Len(t, h.fep.sent, 2)

	first := h.ep.snd.unacked.Front()
	ack := first.endSeq()

	h.ep.rcv.handleAck(h.ep.snd, ack, 8192)

	// only the first segment is retired; one remains unacked
	count := 0
	for seg := h.ep.snd.unacked.Front(); seg != nil; seg = seg.Next() {
		count++
	}
	require.Equal(t, 1, count)
}

func TestHandleAckDuplicateTriggersFastRetransmitOnThird(t *testing.T) {
	h := newTestHarness(harnessOpts{mss: 4})

	require.NoError(t, h.ep.snd.Write([]byte("aaaabbbb"), WriteCopy))
	require.NoError(t, h.ep.snd.Output(nil))
	require.Len(t, h.fep.sent, 2)

	dup := h.ep.snd.lastAck

	h.ep.rcv.handleAck(h.ep.snd, dup, 8192)
	require.Equal(t, 1, h.ep.snd.dupAcks)
	require.False(t, h.ep.snd.flagIsSet(flagInFastRecovery))

	h.ep.rcv.handleAck(h.ep.snd, dup, 8192)
	require.Equal(t, 2, h.ep.snd.dupAcks)
	require.False(t, h.ep.snd.flagIsSet(flagInFastRecovery))

	h.ep.rcv.handleAck(h.ep.snd, dup, 8192)
	require.Equal(t, 3, h.ep.snd.dupAcks)
	require.True(t, h.ep.snd.flagIsSet(flagInFastRecovery))

	// RexmitFast moved the first unacked segment back onto unsent
	require.False(t, h.ep.snd.unsent.Empty())
}

func TestHandleAckGrowsCwndInSlowStart(t *testing.T) {
	h := newTestHarness(harnessOpts{mss: 8})
	require.Less(t, h.ep.snd.cwnd, h.ep.snd.ssthresh)

	require.NoError(t, h.ep.snd.Write([]byte("01234567"), WriteCopy))
	require.NoError(t, h.ep.snd.Output(nil))

	before := h.ep.snd.cwnd
	ack := h.ep.snd.unacked.Front().endSeq()
	h.ep.rcv.handleAck(h.ep.snd, ack, 8192)

	require.Equal(t, before+seqnum.Size(8), h.ep.snd.cwnd)
}

func TestHandleAckIgnoresAckOutsideRange(t *testing.T) {
	h := newTestHarness(harnessOpts{})
	lastAckBefore := h.ep.snd.lastAck
	cwndBefore := h.ep.snd.cwnd

	// an ack beyond anything ever sent is out of [lastAck, sndNxt+1): the
	// window field is still honored (it's applied unconditionally), but
	// lastAck and cwnd must not move since no new data was acknowledged
	h.ep.rcv.handleAck(h.ep.snd, h.ep.snd.sndNxt+1000, 999)

	require.Equal(t, lastAckBefore, h.ep.snd.lastAck)
	require.Equal(t, cwndBefore, h.ep.snd.cwnd)
}
