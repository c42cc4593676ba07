package header

import (
	"encoding/binary"

	"github.com/YaoZengzeng/yustack/checksum"
	"github.com/YaoZengzeng/yustack/types"
)

const (
	srcPort    = 0
	dstPort    = 2
	seqNum     = 4
	ackNum     = 8
	dataOffset = 12
	tcpFlags   = 13
	winSize    = 14
	tcpChecksum = 16
	urgentPtr  = 18
)

// Flags that may be set in a TCP segment
const (
	TCPFlagFin = 1 << iota
	TCPFlagSyn
	TCPFlagRst
	TCPFlagPsh
	TCPFlagAck
	TCPFlagUrg
)

// Options that may appear in the option space of a TCP segment.
const (
	TCPOptionEOL = 0
	TCPOptionNOP = 1
	TCPOptionMSS = 2
	TCPOptionWS  = 3
	TCPOptionTS  = 8
)

// Length, in bytes, of the fixed part of each option kind this engine
// builds. Used to keep the header a multiple of 4 bytes via NOP padding.
const (
	tcpOptionMSSLength = 4
	tcpOptionTSLength  = 10
	tcpOptionWSLength  = 3
)

// TCPFields contains the fields of a TCP packet. It is used to describe the
// fields of a packet that needs to be encoded
type TCPFields struct {
	SrcPort uint16

	DstPort uint16

	SeqNum uint32

	AckNum uint32

	DataOffset uint8

	Flags uint8

	WindowSize uint16

	Checksum uint16

	UrgentPointer uint16
}

// TCP represents a TCP header stored in a byte order
type TCP []byte

const (
	// TCPMinimumSize is the minimum size of a valid TCP packet
	TCPMinimumSize = 20

	// TCPProtocolNumber is TCP's transport protocol number
	TCPProtocolNumber types.TransportProtocolNumber = 6
)

func (b TCP) SourcePort() uint16 {
	return binary.BigEndian.Uint16(b[srcPort:])
}

func (b TCP) DestinationPort() uint16 {
	return binary.BigEndian.Uint16(b[dstPort:])
}

func (b TCP) SequenceNumber() uint32 {
	return binary.BigEndian.Uint32(b[seqNum:])
}

func (b TCP) AckNumber() uint32 {
	return binary.BigEndian.Uint32(b[ackNum:])
}

func (b TCP) DataOffset() uint8 {
	return (b[dataOffset] >> 4) * 4
}

func (b TCP) Payload() []byte {
	return b[b.DataOffset():]
}

func (b TCP) Flags() uint8 {
	return b[tcpFlags]
}

func (b TCP) WindowSize() uint16 {
	return binary.BigEndian.Uint16(b[winSize:])
}

// Checksum returns the checksum field of the TCP header
func (b TCP) Checksum() uint16 {
	return binary.BigEndian.Uint16(b[tcpChecksum:])
}

// UrgentPointer returns the "urgent pointer" field of the TCP header
func (b TCP) UrgentPointer() uint16 {
	return binary.BigEndian.Uint16(b[urgentPtr:])
}

// Options returns the option bytes, i.e. everything between the fixed header
// and DataOffset().
func (b TCP) Options() []byte {
	return b[TCPMinimumSize:b.DataOffset()]
}

// SetSourcePort sets the "source port" field of the TCP header
func (b TCP) SetSourcePort(port uint16) {
	binary.BigEndian.PutUint16(b[srcPort:], port)
}

// SetDestinationPort sets the "destination port" field of the TCP header
func (b TCP) SetDestinationPort(port uint16) {
	binary.BigEndian.PutUint16(b[dstPort:], port)
}

// SetSequenceNumber sets the "sequence number" field of the TCP header
func (b TCP) SetSequenceNumber(seq uint32) {
	binary.BigEndian.PutUint32(b[seqNum:], seq)
}

// SetAckNumber sets the "ack number" field of the TCP header
func (b TCP) SetAckNumber(ack uint32) {
	binary.BigEndian.PutUint32(b[ackNum:], ack)
}

// SetDataOffset sets the "data offset" field from a header length in bytes,
// stored as a count of 4-byte words; a length that isn't a multiple of 4 is
// rounded down.
func (b TCP) SetDataOffset(headerLen uint8) {
	b[dataOffset] = (headerLen / 4) << 4
}

// SetFlags sets the flags field of the TCP header
func (b TCP) SetFlags(flags uint8) {
	b[tcpFlags] = flags
}

// SetWindowSize sets the "window size" field of the TCP header
func (b TCP) SetWindowSize(win uint16) {
	binary.BigEndian.PutUint16(b[winSize:], win)
}

// SetUrgentPointer sets the "urgent pointer" field of the TCP header
func (b TCP) SetUrgentPointer(urgentPointer uint16) {
	binary.BigEndian.PutUint16(b[urgentPtr:], urgentPointer)
}

// SetChecksum sets the checksum field of the TCP header
func (b TCP) SetChecksum(xsum uint16) {
	binary.BigEndian.PutUint16(b[tcpChecksum:], xsum)
}

// Encode encodes all the fields of the TCP header
func (b TCP) Encode(t *TCPFields) {
	b.SetSourcePort(t.SrcPort)
	b.SetDestinationPort(t.DstPort)
	b.SetSequenceNumber(t.SeqNum)
	b.SetAckNumber(t.AckNum)
	b.SetDataOffset(t.DataOffset)
	b.SetFlags(t.Flags)
	b.SetWindowSize(t.WindowSize)
	b.SetChecksum(t.Checksum)
	b.SetUrgentPointer(t.UrgentPointer)
}

// CalculateChecksum calculates the checksum of the TCP segment given the
// partial checksum of the pseudo-header (see PseudoHeaderChecksum).
func (b TCP) CalculateChecksum(partialChecksum uint16) uint16 {
	return checksum.Checksum(b, partialChecksum)
}

// PseudoHeaderChecksum computes the TCP checksum contribution of the pseudo
// header: source address, destination address, protocol number and segment
// length (RFC 793 §3.1).
func PseudoHeaderChecksum(protocol types.TransportProtocolNumber, srcAddr, dstAddr types.Address, totalLen uint16) uint16 {
	xsum := checksum.Checksum([]byte(srcAddr), 0)
	xsum = checksum.Checksum([]byte(dstAddr), xsum)
	xsum = checksum.Checksum([]byte{0, uint8(protocol)}, xsum)

	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], totalLen)
	return checksum.Checksum(lenBuf[:], xsum)
}

// EncodeMSSOption encodes a TCP MSS option (kind=2, len=4) into b, which must
// be at least 4 bytes long, and returns the number of bytes written.
func EncodeMSSOption(mss uint32, b []byte) int {
	binary.BigEndian.PutUint32(b, 0x02040000|mss&0xffff)
	return tcpOptionMSSLength
}

// EncodeWSOption encodes a TCP window scale option (NOP, kind=3, len=3,
// shift), padded to 4 bytes, into b and returns the number of bytes written.
func EncodeWSOption(shift int, b []byte) int {
	binary.BigEndian.PutUint32(b, 0x01030300|uint32(shift))
	return tcpOptionWSLength + 1
}

// EncodeTSOption encodes a TCP timestamp option (NOP, NOP, kind=8, len=10,
// TSval, TSecr), 12 bytes total, into b and returns the number of bytes
// written.
func EncodeTSOption(tsVal, tsEcr uint32, b []byte) int {
	binary.BigEndian.PutUint32(b, 0x0101080a)
	binary.BigEndian.PutUint32(b[4:], tsVal)
	binary.BigEndian.PutUint32(b[8:], tsEcr)
	return tcpOptionTSLength + 2
}

// TCPOptions stores the parsed values from the options in a TCP segment.
type TCPOptions struct {
	// MSS is the maximum segment size provided by the peer in a SYN segment
	MSS uint16

	// TS is true if the timestamp option was present.
	TS bool

	// TSVal is the value in the TSVal field of the timestamp option.
	TSVal uint32

	// TSEcr is the value in the TSEcr field of the timestamp option.
	TSEcr uint32

	// WS is the value in the window scale option, or -1 if the option
	// wasn't present.
	WS int
}

// TCPSynOptions is the set of TCP options that are expected on a SYN segment,
// used by tests to assert on the options an emitted SYN carries.
type TCPSynOptions struct {
	MSS   uint16
	WS    int
	TS    bool
	TSVal uint32
	TSEcr uint32
}

// ParseTCPOptions parses the options in b and returns them in a TCPOptions
// structure.
func ParseTCPOptions(b []byte) TCPOptions {
	opts := TCPOptions{WS: -1}
	for i := 0; i < len(b); {
		switch b[i] {
		case TCPOptionEOL:
			i = len(b)
		case TCPOptionNOP:
			i++
		case TCPOptionMSS:
			if i+4 > len(b) {
				return opts
			}
			opts.MSS = binary.BigEndian.Uint16(b[i+2:])
			i += 4
		case TCPOptionWS:
			if i+3 > len(b) {
				return opts
			}
			opts.WS = int(b[i+2])
			i += 3
		case TCPOptionTS:
			if i+10 > len(b) {
				return opts
			}
			opts.TS = true
			opts.TSVal = binary.BigEndian.Uint32(b[i+2:])
			opts.TSEcr = binary.BigEndian.Uint32(b[i+6:])
			i += 10
		default:
			if i+1 >= len(b) || b[i+1] == 0 {
				return opts
			}
			i += int(b[i+1])
		}
	}
	return opts
}
