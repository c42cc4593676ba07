package tcp

import (
	"time"

	"github.com/YaoZengzeng/yustack/buffer"
	"github.com/YaoZengzeng/yustack/checksum"
	"github.com/YaoZengzeng/yustack/header"
	"github.com/YaoZengzeng/yustack/seqnum"
)

// pcbFlags are internal per-connection bookkeeping bits, distinct from both
// the wire-level TCP flags (flagFin, flagSyn, ...) and a single outSegment's
// segFlags. The FIN bit is named flagPCBFin rather than flagFin to avoid
// colliding with the wire flag constant already declared in segment.go.
type pcbFlags uint8

const (
	// flagAckNow means a pure ACK is owed to the peer as soon as Output
	// next runs, bypassing delayed-ack coalescing
	flagAckNow pcbFlags = 1 << iota

	// flagNagleMemErr means a previous Write hit ErrMem; the next Output
	// ignores the Nagle gate once to help drain whatever did get queued
	flagNagleMemErr

	// flagPCBFin means a FIN has been queued for this connection
	flagPCBFin

	// flagInFastRecovery means RexmitFast has already fired for the
	// current loss episode
	flagInFastRecovery

	// flagNoDelay disables the Nagle algorithm (TCP_NODELAY)
	flagNoDelay

	// flagTimestamp means the timestamp option was negotiated; data
	// segments, SYN/FIN segments, bare ACKs and keepalives then carry it,
	// zero-window probes are sent without it
	flagTimestamp

	// flagWndScale means the window scale option was negotiated
	flagWndScale
)

// WriteFlags are the flags accepted by sender.Write
type WriteFlags uint8

const (
	// WriteCopy is the default (and only implemented) mode: Write always
	// copies its argument into a new or existing segment buffer. Kept as
	// a named flag for call-site compatibility with the source API even
	// though there is no zero-copy mode (see the design notes on why
	// zero-copy writes are out of scope).
	WriteCopy WriteFlags = 0

	// WriteMore suppresses setting PSH on the last segment built by this
	// Write, signalling that more data is coming immediately
	WriteMore WriteFlags = 1 << iota
)

// sender holds the state necessary to send TCP segments: the PCB fields
// described by the engine's data model, the unsent/unacked queues, and the
// congestion and retransmission machinery that drives them.
type sender struct {
	ep *endpoint

	flags pcbFlags

	// mss is the peer-advertised maximum segment size (payload only)
	mss uint16

	// sndWnd is the peer's currently advertised receive window; sndWndMax
	// is the largest window it has ever advertised, used to cap how big a
	// single segment may grow
	sndWnd    seqnum.Size
	sndWndMax seqnum.Size

	// sndWndScale is the number of bits to shift a received window field
	// left by; peerWndScaleOK records whether the peer's SYN actually
	// carried a window scale option
	sndWndScale  uint8
	peerWndScaleOK bool

	// cwnd and ssthresh are the congestion window and slow-start
	// threshold, in bytes
	cwnd     seqnum.Size
	ssthresh seqnum.Size

	// sndBuf is the remaining send-buffer credit, in bytes
	sndBuf int

	// sndQueuelen is the combined fragment count of unsent and unacked,
	// capped at TCPSndQueueLen
	sndQueuelen int

	// sndLbb is the sequence number of the next byte to enqueue
	sndLbb seqnum.Value

	// sndNxt is the highest sequence number transmitted so far
	sndNxt seqnum.Value

	// lastAck is the highest cumulative ack received
	lastAck seqnum.Value

	// rttest/rtseq mark the segment used for the RTT sample in flight;
	// rttest is the zero time.Time when no sample is in flight
	rttest time.Time
	rtseq  seqnum.Value

	srtt       time.Duration
	rttvar     time.Duration
	srttInited bool
	rto        time.Duration

	nrtx    int
	dupAcks int

	unsent outSegmentList
	unacked outSegmentList

	// unsentOversize mirrors the oversizeLeft of the last unsent segment,
	// kept so Write doesn't have to walk the list just to check it
	unsentOversize int

	timerRetransmitExpires time.Time
	timerDelayedAckExpires time.Time

	stats Stats
}

func newSender(ep *endpoint, iss, irs seqnum.Value, sndWnd seqnum.Size, mss uint16, sndWndScale int) *sender {
	s := &sender{
		ep:       ep,
		sndWnd:   sndWnd,
		sndWndMax: sndWnd,
		lastAck:  iss + 1,
		sndNxt:   iss + 1,
		sndLbb:   iss + 1,
		rto:      1 * time.Second,
		ssthresh: TCPInitialSSThresh,
		cwnd:     seqnum.Size(mss) * 2,
		mss:      mss,
		sndBuf:   TCPDefaultSndBuf,
		stats:    noopStats{},
	}

	if sndWndScale > 0 {
		s.sndWndScale = uint8(sndWndScale)
		s.peerWndScaleOK = true
	}

	return s
}

func (s *sender) flagIsSet(f pcbFlags) bool { return s.flags&f != 0 }
func (s *sender) flagSet(f pcbFlags)        { s.flags |= f }
func (s *sender) flagsClear(f pcbFlags)     { s.flags &^= f }

// mssLocal returns the largest payload size (excluding options) a newly
// built data segment may carry: the smaller of the peer's mss and half its
// largest-ever advertised window, per §4.2.
func (s *sender) mssLocal() int {
	m := int(s.mss)
	if half := int(s.sndWndMax) / 2; half > 0 && half < m {
		m = half
	}
	if m <= 0 {
		m = int(s.mss)
	}
	return m
}

func (s *sender) optLen() int {
	if s.flagIsSet(flagTimestamp) {
		return 12
	}
	return 0
}

// Write enqueues data for transmission, following the commit-or-rollback
// algorithm described in §4.2: top up the oversize tail of the last unsent
// segment, then build whatever new segments are needed for the remainder.
// Nothing is mutated on the endpoint (apart from flagNagleMemErr on
// failure) until every step has succeeded.
func (s *sender) Write(data []byte, flags WriteFlags) error {
	if len(data) == 0 {
		return ErrArg
	}
	if !s.ep.state.writable() {
		return ErrConn
	}
	if len(data) > s.sndBuf {
		s.flagSet(flagNagleMemErr)
		s.stats.MemErr()
		return ErrMem
	}

	segMax := s.mssLocal() - s.optLen()
	if segMax <= 0 {
		segMax = 1
	}

	offset := 0

	// Phase 1: stage the bytes that fit in the oversize tail of the last
	// unsent segment, if it has room and isn't a control segment; they
	// are copied in at commit
	tail := s.unsent.Back()
	var tailChunk []byte
	if tail != nil && tail.buf.oversizeLeft() > 0 && len(tail.buf.payload) > 0 &&
		tail.tcpFlags&(flagSyn|flagFin|flagRst) == 0 {
		n := tail.buf.oversizeLeft()
		if rem := len(data) - offset; n > rem {
			n = rem
		}
		tailChunk = data[offset : offset+n]
		offset += n
	}

	// Phase 2/3: build new segments for whatever remains
	var queue outSegmentList
	queuelen := 0
	more := flags&WriteMore != 0
	noDelay := s.flagIsSet(flagNoDelay)
	queuesNonEmpty := !s.unsent.Empty() || !s.unacked.Empty()
	for offset < len(data) {
		chunkLen := segMax
		if rem := len(data) - offset; chunkLen > rem {
			chunkLen = rem
		}

		buf := preallocSegBuf(chunkLen, segMax, more, noDelay, queue.Empty(), queuesNonEmpty)
		copy(buf.payload, data[offset:offset+chunkLen])

		seg := &outSegment{buf: buf, tcpFlags: flagAck}
		xsum := checksum.Checksum(buf.payload, 0)
		seg.addChecksum(xsum, chunkLen)
		if s.flagIsSet(flagTimestamp) {
			seg.segFlags |= segOptTS
		}

		queue.PushBack(seg)
		queuelen++
		offset += chunkLen
	}

	if s.sndQueuelen+queuelen > TCPSndQueueLen {
		// Rollback: queue was never linked into s.unsent, so there's
		// nothing to undo beyond letting it be garbage collected
		s.flagSet(flagNagleMemErr)
		s.stats.MemErr()
		return ErrMem
	}

	// Commit
	if len(tailChunk) > 0 {
		xsum := checksum.Checksum(tailChunk, 0)
		tail.buf.append(tailChunk)
		tail.addChecksum(xsum, len(tailChunk))
	}

	lbb := s.sndLbb.Add(seqnum.Size(len(tailChunk)))
	for seg := queue.Front(); seg != nil; seg = seg.Next() {
		seg.seqNo = lbb
		lbb = lbb.Add(seqnum.Size(len(seg.buf.payload)))
	}

	s.sndLbb = lbb
	s.sndBuf -= len(data)
	s.sndQueuelen += queuelen
	s.unsent.PushBackList(&queue)

	if last := s.unsent.Back(); last != nil {
		s.unsentOversize = last.buf.oversizeLeft()
		if flags&WriteMore == 0 {
			last.tcpFlags |= flagPsh
		}
	}

	return nil
}

// enqueueFlags builds a zero-payload control segment carrying the requested
// wire flags (SYN and/or FIN) per §4.3.
func (s *sender) enqueueFlags(flags uint8) error {
	if flags&(header.TCPFlagSyn|header.TCPFlagFin) == 0 {
		return ErrArg
	}
	if s.sndBuf < 1 {
		s.flagSet(flagNagleMemErr)
		s.stats.MemErr()
		return ErrMem
	}
	if s.sndQueuelen >= TCPSndQueueLen {
		s.flagSet(flagNagleMemErr)
		s.stats.MemErr()
		return ErrMem
	}

	buf := newSegBuf(0, 0)
	seg := &outSegment{buf: buf, seqNo: s.sndLbb, tcpFlags: flags}

	if flags&header.TCPFlagSyn != 0 {
		seg.segFlags |= segOptMSS
		if !(s.ep.state == StateSynRcvd && !s.peerWndScaleOK) {
			seg.segFlags |= segOptWndScale
		}
	}
	if s.flagIsSet(flagTimestamp) {
		seg.segFlags |= segOptTS
	}

	s.unsent.PushBack(seg)
	s.sndLbb = s.sndLbb.Add(1)
	s.sndBuf--
	s.sndQueuelen++

	if flags&header.TCPFlagFin != 0 {
		s.flagSet(flagPCBFin)
	}

	return nil
}

// sendFin queues a connection-closing FIN, attaching it to the last unsent
// segment when possible instead of paying for a whole new control segment
func (s *sender) sendFin() error {
	if tail := s.unsent.Back(); tail != nil && tail.tcpFlags&(flagSyn|flagFin|flagRst) == 0 {
		tail.tcpFlags |= flagFin
		s.sndLbb = s.sndLbb.Add(1)
		s.flagSet(flagPCBFin)
		return nil
	}
	return s.enqueueFlags(header.TCPFlagFin)
}

// doOutputNagle reports whether seg may be sent right now given the Nagle
// algorithm: a small segment is held back while there is still unacked data
// in flight, unless TCP_NODELAY is set
func (s *sender) doOutputNagle(seg *outSegment) bool {
	if len(seg.buf.payload) >= int(s.mss) {
		return true
	}
	if s.unacked.Empty() {
		return true
	}
	if s.flagIsSet(flagNoDelay) {
		return true
	}
	return false
}

// Output drains as much of the unsent queue as the send window allows,
// per §4.4
func (s *sender) Output(ctx *InputContext) error {
	if ctx.processing(s.ep) {
		return nil
	}

	wnd := s.sndWnd
	if s.cwnd < wnd {
		wnd = s.cwnd
	}

	if s.flagIsSet(flagAckNow) {
		head := s.unsent.Front()
		if head == nil || seqnum.Size(s.lastAck.Size(head.seqNo))+head.tcpLen() > wnd {
			return s.SendEmptyAck()
		}
	}

	for {
		seg := s.unsent.Front()
		if seg == nil {
			break
		}

		if seqnum.Size(s.lastAck.Size(seg.seqNo))+seg.tcpLen() > wnd {
			break
		}

		if !s.doOutputNagle(seg) && !s.flagIsSet(flagNagleMemErr) && !s.flagIsSet(flagPCBFin) {
			break
		}

		s.unsent.Remove(seg)
		if s.ep.state != StateSynSent {
			seg.tcpFlags |= flagAck
			s.flagsClear(flagAckNow)
			s.timerDelayedAckExpires = time.Time{}
		}

		if err := s.outputSegment(seg); err != nil {
			s.unsent.PushFront(seg)
			return err
		}

		s.sndNxt.UpdateForward(seg.endSeq())

		if seg.tcpLen() > 0 {
			s.unacked.InsertSorted(seg)
		}
	}

	if s.unsent.Empty() {
		s.unsentOversize = 0
	}
	s.flagsClear(flagNagleMemErr)

	return nil
}

// SendEmptyAck builds and transmits a bare ACK, per §4.5. It is not queued
// (ACKs are never retransmitted) and, unlike Output, does not consult the
// re-entrance guard: a control ACK carries no sequence-affecting state and
// is always safe to send from either the input or the output path.
func (s *sender) SendEmptyAck() error {
	rcvNxt, rcvWnd := s.ep.rcv.getSendParams()

	buf := newSegBuf(0, 0)
	if err := s.transmit(buf, flagAck, s.sndNxt, rcvNxt, rcvWnd, s.flagIsSet(flagTimestamp)); err != nil {
		return ErrBuf
	}

	s.flagsClear(flagAckNow)
	s.timerDelayedAckExpires = time.Time{}
	return nil
}

// outputSegment finalizes and transmits a segment already pulled off the
// unsent queue, per §4.6. Ownership of seg is not affected; the caller
// (Output) is responsible for linking it into unacked afterwards.
func (s *sender) outputSegment(seg *outSegment) error {
	rcvNxt, rcvWnd := s.ep.rcv.getSendParams()

	optLen := 0
	if seg.segFlags&segOptMSS != 0 {
		optLen += 4
	}
	if seg.segFlags&segOptWndScale != 0 {
		optLen += 4
	}
	if seg.segFlags&segOptTS != 0 {
		optLen += 12
	}
	headerLen := header.TCPMinimumSize + optLen

	// A resent segment starts from a fresh header region, so the header
	// prepended by its previous transmission isn't sent again
	seg.buf.hdr = buffer.NewPrependable(maxTCPHeaderLen + header.IPv4MinimumSize)
	hdrBytes := seg.buf.hdr.Prepend(headerLen)
	tcpHdr := header.TCP(hdrBytes)

	wnd := uint16(rcvWnd)
	if seg.segFlags&segOptWndScale == 0 {
		wnd = uint16(rcvWnd >> s.ep.rcv.rcvWndScale)
	}

	tcpHdr.Encode(&header.TCPFields{
		SrcPort:       s.ep.id.LocalPort,
		DstPort:       s.ep.id.RemotePort,
		SeqNum:        uint32(seg.seqNo),
		AckNum:        uint32(rcvNxt),
		DataOffset:    uint8(headerLen),
		Flags:         seg.tcpFlags,
		WindowSize:    wnd,
		UrgentPointer: 0,
	})

	opts := hdrBytes[header.TCPMinimumSize:headerLen]
	off := 0
	if seg.segFlags&segOptMSS != 0 {
		off += header.EncodeMSSOption(uint32(TCPDefaultMSS), opts[off:])
	}
	if seg.segFlags&segOptTS != 0 {
		off += header.EncodeTSOption(uint32(time.Now().UnixNano()/int64(time.Millisecond)), 0, opts[off:])
	}
	if seg.segFlags&segOptWndScale != 0 {
		off += header.EncodeWSOption(int(TCPRcvWndScale), opts[off:])
	}

	s.ep.rcv.rcvAnnRightEdge = rcvNxt.Add(rcvWnd)
	s.timerRetransmitExpires = time.Now().Add(s.rto)

	if err := s.resolveRoute(); err != nil {
		return nil
	}

	if s.rttest.IsZero() {
		s.rttest = time.Now()
		s.rtseq = seg.seqNo
	}

	xsum := checksum.Checksum(hdrBytes, 0)
	if seg.segFlags&segDataChecksummed != 0 {
		sum := seg.chksum
		if seg.chksumSwapped {
			sum = checksum.SwapBytes(sum)
		}
		xsum = checksum.Combine(xsum, sum)
	} else {
		xsum = checksum.Checksum(seg.buf.payload, xsum)
	}
	pseudo := header.PseudoHeaderChecksum(header.TCPProtocolNumber, s.ep.id.LocalAddress, s.ep.id.RemoteAddress, uint16(headerLen+len(seg.buf.payload)))
	tcpHdr.SetChecksum(^checksum.Combine(xsum, pseudo))

	payload := buffer.NewVectorisedView([]buffer.View{buffer.View(seg.buf.payload)}, len(seg.buf.payload))
	if err := s.ep.route.WritePacket(seg.buf.hdr, payload, header.TCPProtocolNumber, TCPDefaultTTL); err != nil {
		return err
	}

	s.stats.Xmit()
	return nil
}

// transmit builds and sends a bare, unqueued header-only (or 1-byte payload)
// segment; shared by SendEmptyAck, Keepalive and ZeroWindowProbe
func (s *sender) transmit(buf *segBuf, tcpFlags uint8, seqNo, ackNo seqnum.Value, rcvWnd seqnum.Size, withTS bool) error {
	headerLen := header.TCPMinimumSize
	if withTS {
		headerLen += 12
	}
	hdrBytes := buf.hdr.Prepend(headerLen)
	tcpHdr := header.TCP(hdrBytes)

	tcpHdr.Encode(&header.TCPFields{
		SrcPort:    s.ep.id.LocalPort,
		DstPort:    s.ep.id.RemotePort,
		SeqNum:     uint32(seqNo),
		AckNum:     uint32(ackNo),
		DataOffset: uint8(headerLen),
		Flags:      tcpFlags,
		WindowSize: uint16(rcvWnd >> s.ep.rcv.rcvWndScale),
	})
	if withTS {
		header.EncodeTSOption(uint32(time.Now().UnixNano()/int64(time.Millisecond)), 0, hdrBytes[header.TCPMinimumSize:])
	}

	if err := s.resolveRoute(); err != nil {
		return err
	}

	xsum := checksum.Checksum(hdrBytes, 0)
	xsum = checksum.Checksum(buf.payload, xsum)
	pseudo := header.PseudoHeaderChecksum(header.TCPProtocolNumber, s.ep.id.LocalAddress, s.ep.id.RemoteAddress, uint16(headerLen+len(buf.payload)))
	tcpHdr.SetChecksum(^checksum.Combine(xsum, pseudo))

	payload := buffer.NewVectorisedView([]buffer.View{buffer.View(buf.payload)}, len(buf.payload))
	if err := s.ep.route.WritePacket(buf.hdr, payload, header.TCPProtocolNumber, TCPDefaultTTL); err != nil {
		return err
	}

	s.stats.Xmit()
	return nil
}

// resolveRoute fills in the endpoint's route local address lazily, the first
// time a segment actually needs to go out, by asking the stack's route table
// for a viable row toward the remote address
func (s *sender) resolveRoute() error {
	if s.ep.route.LocalAddress != "" {
		return nil
	}

	r, err := s.ep.stack.FindRoute(s.ep.boundNicId, s.ep.id.LocalAddress, s.ep.id.RemoteAddress, s.ep.netProtocol)
	if err != nil {
		return err
	}
	s.ep.route = r
	return nil
}

// updateRTO folds a completed RTT sample into srtt/rttvar and recomputes rto,
// following the same smoothing the sample collection in handleAck expects
func (s *sender) updateRTO() {
	sample := time.Since(s.rttest)
	if !s.srttInited {
		s.srtt = sample
		s.rttvar = sample / 2
		s.srttInited = true
	} else {
		delta := sample - s.srtt
		if delta < 0 {
			delta = -delta
		}
		s.rttvar += (delta - s.rttvar) / 4
		s.srtt += (sample - s.srtt) / 8
	}

	rto := s.srtt + 4*s.rttvar
	if rto < RTOUnits {
		rto = RTOUnits
	}
	if rto > TCPMaxRTO {
		rto = TCPMaxRTO
	}
	s.rto = rto
	s.rttest = time.Time{}
}
