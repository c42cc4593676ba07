package tcp

import (
	"testing"

	"github.com/YaoZengzeng/yustack/header"
	"github.com/stretchr/testify/require"
)

func TestWriteSegmentsOneMSSEach(t *testing.T) {
	h := newTestHarness(harnessOpts{mss: 8})
	// NoDelay so the 7-byte second segment isn't held back by Nagle behind
	// the still-unacked first one
	h.ep.snd.flagSet(flagNoDelay)
	data := []byte("0123456789ABCDE") // 15 bytes, mss 8 -> 8 + 7

	require.NoError(t, h.ep.snd.Write(data, WriteCopy))
	require.NoError(t, h.ep.snd.Output(nil))

	require.Len(t, h.fep.sent, 2)
	require.Equal(t, []byte("01234567"), []byte(h.fep.sent[0].Payload()))
	require.Equal(t, []byte("89ABCDE"), []byte(h.fep.sent[1].Payload()))

	// the last segment carries PSH since WriteMore wasn't requested
	require.NotZero(t, h.fep.sent[1].Flags()&header.TCPFlagPsh)
}

func TestWriteCoalescesIntoOversizeTail(t *testing.T) {
	h := newTestHarness(harnessOpts{mss: 64})

	// WriteMore on an otherwise-empty, brand-new connection is the one case
	// that grants the very first segment an oversize reserve, so a
	// follow-up Write can still extend it in place instead of allocating a
	// new segment
	require.NoError(t, h.ep.snd.Write([]byte("hello "), WriteMore))
	require.NoError(t, h.ep.snd.Write([]byte("world"), WriteCopy))

	require.Equal(t, 1, h.ep.snd.sndQueuelen)

	require.NoError(t, h.ep.snd.Output(nil))
	require.Len(t, h.fep.sent, 1)
	require.Equal(t, []byte("hello world"), []byte(h.fep.sent[0].Payload()))
}

func TestWriteFirstSegmentOnIdleConnectionGetsNoOversizeWithoutMore(t *testing.T) {
	h := newTestHarness(harnessOpts{mss: 64})

	// no WriteMore, nothing queued yet, Nagle's "first segment" carve-out
	// applies: this segment gets no oversize reserve
	require.NoError(t, h.ep.snd.Write([]byte("hello "), WriteCopy))
	require.Zero(t, h.ep.snd.unsent.Back().buf.oversizeLeft())

	// a second Write can't extend it in place, so it becomes its own segment
	require.NoError(t, h.ep.snd.Write([]byte("world"), WriteCopy))
	require.Equal(t, 2, h.ep.snd.sndQueuelen)
}

func TestWriteRejectsOversizedPayload(t *testing.T) {
	h := newTestHarness(harnessOpts{})
	h.ep.snd.sndBuf = 4

	err := h.ep.snd.Write([]byte("too long"), WriteCopy)
	require.ErrorIs(t, err, ErrMem)
	require.True(t, h.ep.snd.flagIsSet(flagNagleMemErr))
}

func TestWriteRejectsEmptyPayload(t *testing.T) {
	h := newTestHarness(harnessOpts{})
	require.ErrorIs(t, h.ep.snd.Write(nil, WriteCopy), ErrArg)
}

func TestOutputRespectsSendWindow(t *testing.T) {
	// sndWnd == cwnd == 2*mss: exactly two 1000-byte segments fit, the
	// third of three stays queued
	h := newTestHarness(harnessOpts{mss: 1000, sndWnd: 2000})

	data := make([]byte, 3000)
	require.NoError(t, h.ep.snd.Write(data, WriteCopy))
	require.NoError(t, h.ep.snd.Output(nil))

	require.Len(t, h.fep.sent, 2)
	require.False(t, h.ep.snd.unsent.Empty())
}

func TestOutputNagleHoldsSmallSegmentBehindUnacked(t *testing.T) {
	h := newTestHarness(harnessOpts{mss: 1000})

	require.NoError(t, h.ep.snd.Write([]byte("first"), WriteCopy))
	require.NoError(t, h.ep.snd.Output(nil))
	require.Len(t, h.fep.sent, 1)

	// a second small write shouldn't go out immediately: Nagle holds it
	// because there's still unacked data in flight
	require.NoError(t, h.ep.snd.Write([]byte("second"), WriteCopy))
	require.NoError(t, h.ep.snd.Output(nil))
	require.Len(t, h.fep.sent, 1)
	require.False(t, h.ep.snd.unsent.Empty())
}

func TestOutputNoDelayBypassesNagle(t *testing.T) {
	h := newTestHarness(harnessOpts{mss: 1000})
	h.ep.snd.flagSet(flagNoDelay)

	require.NoError(t, h.ep.snd.Write([]byte("first"), WriteCopy))
	require.NoError(t, h.ep.snd.Output(nil))
	require.NoError(t, h.ep.snd.Write([]byte("second"), WriteCopy))
	require.NoError(t, h.ep.snd.Output(nil))

	require.Len(t, h.fep.sent, 2)
}

func TestEnqueueFlagsRejectsNonControlFlags(t *testing.T) {
	h := newTestHarness(harnessOpts{})
	require.ErrorIs(t, h.ep.snd.enqueueFlags(flagAck), ErrArg)
}

func TestSendFinAppendsToOversizeTail(t *testing.T) {
	h := newTestHarness(harnessOpts{mss: 64})

	require.NoError(t, h.ep.snd.Write([]byte("bye"), WriteCopy))
	require.NoError(t, h.ep.snd.sendFin())

	// FIN piggybacks onto the already-queued data segment rather than
	// allocating a second one
	require.Equal(t, 1, h.ep.snd.sndQueuelen)
	require.NoError(t, h.ep.snd.Output(nil))

	seg := h.fep.lastSent(t)
	require.NotZero(t, seg.Flags()&header.TCPFlagFin)
	require.True(t, h.ep.snd.flagIsSet(flagPCBFin))
}

func TestSendFinEnqueuesControlSegmentWhenNoTailAvailable(t *testing.T) {
	h := newTestHarness(harnessOpts{})
	require.NoError(t, h.ep.snd.sendFin())
	require.NoError(t, h.ep.snd.Output(nil))

	seg := h.fep.lastSent(t)
	require.NotZero(t, seg.Flags()&header.TCPFlagFin)
	require.Zero(t, len(seg.Payload()))
}

func TestOutputSendsAckNowImmediately(t *testing.T) {
	h := newTestHarness(harnessOpts{})
	h.ep.snd.flagSet(flagAckNow)

	require.NoError(t, h.ep.snd.Output(nil))

	seg := h.fep.lastSent(t)
	require.NotZero(t, seg.Flags()&header.TCPFlagAck)
	require.Zero(t, len(seg.Payload()))
	require.False(t, h.ep.snd.flagIsSet(flagAckNow))
}
