package tcp

import "time"

// Tunables controlling the shape of outgoing segments and the pacing of the
// retransmission machinery.
const (
	// TCPSndQueueLen is the maximum number of segments allowed on the
	// combined unsent+unacked queues of a single connection
	TCPSndQueueLen = 40

	// TCPOversize is the maximum number of spare tailroom bytes a segment
	// buffer may reserve beyond its committed payload, so that a later,
	// small Write can be coalesced into it instead of allocating a new
	// buffer
	TCPOversize = 536

	// TCPDefaultMSS is the maximum segment size assumed for a peer that
	// didn't advertise one of its own
	TCPDefaultMSS = 536

	// TCPDefaultWnd is the default receive window advertised before the
	// connection has a chance to grow it
	TCPDefaultWnd = 8192

	// TCPDefaultSndBuf is the send-buffer credit a new connection starts
	// with; Write returns ErrMem once more bytes than this are queued
	// and not yet acknowledged
	TCPDefaultSndBuf = 1 << 16

	// TCPDefaultTTL is the IP TTL outgoing segments are sent with
	TCPDefaultTTL = 64

	// TCPRcvWndScale is the window scale factor this engine advertises
	TCPRcvWndScale = 0

	// RTOUnits is the granularity of the retransmission timer and the
	// lower bound updateRTO clamps rto to
	RTOUnits = 500 * time.Millisecond

	// TCPMaxRTO is the upper bound updateRTO clamps rto to
	TCPMaxRTO = 60 * time.Second

	// TCPInitialSSThresh is the initial slow-start threshold, in bytes,
	// used before the first loss is observed
	TCPInitialSSThresh = 1 << 30

	// maxTCPHeaderLen is the largest TCP header (including options) this
	// engine will ever build: fixed header + MSS + window scale (with
	// NOP padding) + timestamp (with NOP padding)
	maxTCPHeaderLen = 20 + 4 + 4 + 12
)

// maxSegmentsPerWake is the maximum number of segments to process in the main
// protocol goroutine per wake-up. Yielding [after this number of segments are
// processed] allows other events to be processed as well (e.g., timeouts,
// resets, etc.)
const maxSegmentsPerWake = 100

// The following are used to set up sleepers
const (
	wakerForNotification = iota
	wakerForNewSegment
	wakerForResend
)
