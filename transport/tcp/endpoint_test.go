package tcp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteAllowedInSynSentAndSynRcvd(t *testing.T) {
	for _, state := range []EndpointState{StateSynSent, StateSynRcvd, StateEstablished, StateCloseWait} {
		h := newTestHarness(harnessOpts{})
		h.ep.state = state

		_, err := h.ep.Write([]byte("hello"), nil)
		require.NoError(t, err, "state %s", state)
	}
}

func TestWriteRejectedOutsideWritableStates(t *testing.T) {
	for _, state := range []EndpointState{StateFinWait1, StateFinWait2, StateClosing, StateTimeWait, StateLastAck, StateClosed, StateListen} {
		h := newTestHarness(harnessOpts{})
		h.ep.state = state

		_, err := h.ep.Write([]byte("hello"), nil)
		require.ErrorIs(t, err, ErrConn, "state %s", state)
	}
}
