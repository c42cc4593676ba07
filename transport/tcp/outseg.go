package tcp

import (
	"github.com/YaoZengzeng/yustack/buffer"
	"github.com/YaoZengzeng/yustack/checksum"
	"github.com/YaoZengzeng/yustack/header"
	"github.com/YaoZengzeng/yustack/seqnum"
)

// segFlags are internal bookkeeping bits carried by an outSegment, distinct
// from the wire-level TCP flags (header.TCPFlag*) it will eventually carry.
type segFlags uint8

const (
	// segOptMSS marks a segment that should carry the MSS option (only
	// ever set, together with the flagSyn wire flag, on the initial SYN)
	segOptMSS segFlags = 1 << iota

	// segOptTS marks a segment that should carry a timestamp option
	segOptTS

	// segOptWndScale marks a segment that should carry the window scale
	// option (only ever set on SYN segments)
	segOptWndScale

	// segDataChecksummed marks a segment whose payload checksum has
	// already been folded into chksum while the data was copied in, so
	// outputSegment only has to combine it with the pseudo-header instead
	// of rescanning the payload
	segDataChecksummed
)

// segBuf is the storage backing one or more outSegments: a header region
// reserved for the eventual TCP header, plus an application data payload
// that may carry spare tail capacity (oversize) so that a later Write call
// can coalesce more bytes into it without allocating a new buffer.
type segBuf struct {
	hdr     buffer.Prependable
	payload []byte
}

// newSegBuf allocates a segBuf whose payload is "length" bytes long right
// away, additionally reserving up to "oversize" bytes of spare tail capacity.
// The header region reserves room for the TCP header itself plus whatever
// the network and link layers beneath it will prepend later in
// types.Route.WritePacket; a segment can be built before a route is
// resolved, so this reserves the IPv4 case unconditionally rather than
// querying a route that might not exist yet.
func newSegBuf(length, oversize int) *segBuf {
	return &segBuf{
		hdr:     buffer.NewPrependable(maxTCPHeaderLen + header.IPv4MinimumSize),
		payload: make([]byte, length, length+oversize),
	}
}

// oversizeLeft reports how many more bytes can be appended to buf.payload
// in place, without reallocating
func (b *segBuf) oversizeLeft() int {
	return cap(b.payload) - len(b.payload)
}

// append grows buf.payload in place by copying data into its spare tail
// capacity. The caller must have already checked b.oversizeLeft() >= len(data)
func (b *segBuf) append(data []byte) {
	n := len(b.payload)
	b.payload = b.payload[:n+len(data)]
	copy(b.payload[n:], data)
}

// preallocSegBuf decides how much oversize tailroom a newly allocated segBuf
// should reserve, mirroring tcp_pbuf_prealloc: reserve it when the caller
// explicitly asked for more data to follow (WriteMore), or when Nagle is
// enabled (TF_NODELAY unset) and either this isn't the first new segment
// built by the current Write call, or the connection already has other
// segments queued -- in all of these cases a follow-up Write is likely to
// want to extend this same buffer rather than pay for a new allocation. A
// brand-new connection's very first segment, written without MORE and with
// Nagle's caveats not applying, gets no oversize reserve.
func preallocSegBuf(length, maxLength int, more, noDelay, firstSegOfCall, queuesNonEmpty bool) *segBuf {
	oversize := 0
	if length < maxLength && (more || (!noDelay && (!firstSegOfCall || queuesNonEmpty))) {
		oversize = maxLength - length
		if oversize > TCPOversize {
			oversize = TCPOversize
		}
	}
	return newSegBuf(length, oversize)
}

// outSegment represents one outgoing TCP segment: a byte range of the send
// stream, still waiting to go out (on the unsent queue) or already sent and
// waiting to be acknowledged (on the unacked queue).
type outSegment struct {
	outSegmentEntry

	buf *segBuf

	// seqNo is the sequence number of the first payload byte (or, for a
	// bare SYN/FIN, the sequence number the flag itself consumes)
	seqNo seqnum.Value

	// tcpFlags are the wire-level TCP flags (header.TCPFlag*) this
	// segment will be sent with
	tcpFlags uint8

	segFlags segFlags

	// chksum accumulates the one's-complement partial checksum of the
	// payload bytes as they're copied in by Write, so that outputSegment
	// doesn't have to re-scan the payload at emit time
	chksum        uint16
	chksumSwapped bool
}

// tcpLen is the segment's length in sequence-number space: payload bytes
// plus one each for SYN and FIN, exactly as segment.logicalLen() computes for
// inbound segments
func (s *outSegment) tcpLen() seqnum.Size {
	l := seqnum.Size(len(s.buf.payload))
	if s.tcpFlags&flagSyn != 0 {
		l++
	}
	if s.tcpFlags&flagFin != 0 {
		l++
	}
	return l
}

// endSeq is the sequence number one past the last byte (or flag) this
// segment covers
func (s *outSegment) endSeq() seqnum.Value {
	return s.seqNo.Add(s.tcpLen())
}

// addChecksum folds the checksum of a newly-appended payload range into the
// segment's running accumulator
func (s *outSegment) addChecksum(xsum uint16, n int) {
	s.chksum, s.chksumSwapped = checksum.Accumulate(s.chksum, s.chksumSwapped, xsum, n)
	s.segFlags |= segDataChecksummed
}
