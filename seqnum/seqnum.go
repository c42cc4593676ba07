// Package seqnum defines the types and arithmetic for dealing with TCP
// sequence numbers, as specified in RFC 793. Sequence numbers wrap around at
// 2^32, so ordinary "<" comparisons don't work; every comparison here is done
// modulo 2^32 using signed 32-bit subtraction, exactly as the original
// engine's TCP_SEQ_LT family of macros does.
package seqnum

// Value represents the value of a sequence number.
type Value uint32

// Size represents the size of a sequence number window.
type Size uint32

// LessThan checks if v is before w, i.e., if it's earlier than w.
func (v Value) LessThan(w Value) bool {
	return int32(v-w) < 0
}

// LessThanEq checks if v is before or at w.
func (v Value) LessThanEq(w Value) bool {
	return v == w || v.LessThan(w)
}

// InWindow checks if v is in the window that starts at 'first' and spans
// 'size' bytes.
func (v Value) InWindow(first Value, size Size) bool {
	return v.Size(first) < size
}

// InRange checks if v is in the range [low, high).
func (v Value) InRange(low, high Value) bool {
	return v-low < high-low
}

// Size computes the distance between v and w, which must satisfy v <= w, as
// the number of bytes that would need to be ACKed to advance from v to w.
func (v Value) Size(w Value) Size {
	return Size(w - v)
}

// Add adds the given sequence number and returns the result.
func (v Value) Add(delta Size) Value {
	return v + Value(delta)
}

// UpdateForward updates v such that it becomes w, but only if that would
// move v forward; it's a convenience wrapper used by callers that
// track a high-water mark (snd_nxt, lastack) and only ever want it to
// advance.
func (v *Value) UpdateForward(w Value) {
	if v.LessThan(w) {
		*v = w
	}
}
