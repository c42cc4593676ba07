package tcp

// EndpointState represents the state of a TCP endpoint, following the
// state names of RFC 793's state diagram
type EndpointState int

const (
	StateClosed EndpointState = iota
	StateListen
	StateSynSent
	StateSynRcvd
	StateEstablished
	StateFinWait1
	StateFinWait2
	StateClosing
	StateTimeWait
	StateCloseWait
	StateLastAck
)

func (s EndpointState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateListen:
		return "LISTEN"
	case StateSynSent:
		return "SYN-SENT"
	case StateSynRcvd:
		return "SYN-RCVD"
	case StateEstablished:
		return "ESTABLISHED"
	case StateFinWait1:
		return "FIN-WAIT-1"
	case StateFinWait2:
		return "FIN-WAIT-2"
	case StateClosing:
		return "CLOSING"
	case StateTimeWait:
		return "TIME-WAIT"
	case StateCloseWait:
		return "CLOSE-WAIT"
	case StateLastAck:
		return "LAST-ACK"
	default:
		return "UNKNOWN"
	}
}

// connected reports whether a connection in this state may still send data
func (s EndpointState) connected() bool {
	switch s {
	case StateEstablished, StateFinWait1, StateFinWait2, StateCloseWait:
		return true
	default:
		return false
	}
}

// writable reports whether a connection in this state may still accept new
// application data to send: exactly {Established, CloseWait, SynSent,
// SynRcvd}, per §3.1/§4.2. This differs from connected(): FinWait1/FinWait2
// have already had their write half shut down, while SynSent/SynRcvd haven't
// reached Established yet but may still buffer data ahead of the handshake.
func (s EndpointState) writable() bool {
	switch s {
	case StateEstablished, StateCloseWait, StateSynSent, StateSynRcvd:
		return true
	default:
		return false
	}
}
