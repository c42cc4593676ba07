package tcp

// InputContext replaces the "currently processing input for this pcb"
// thread-local sentinel with an explicit value threaded through the call
// stack: Output refuses to run reentrantly for the same connection while its
// own input path further up the stack is already driving it, exactly as the
// global sentinel did, but without the hidden global state.
type InputContext struct {
	// pcb is the endpoint whose input handler is currently executing, or
	// nil outside of input processing
	pcb *endpoint
}

// processing reports whether ep's input handler is the one currently
// executing, i.e. whether a call to Output on ep from here would be
// reentrant
func (c *InputContext) processing(ep *endpoint) bool {
	return c != nil && c.pcb == ep
}
