package tcp

// outSegmentList is a concrete, intrusive doubly-linked list of *outSegment,
// generated by hand after the same template udp_packet_list.go uses for
// *udpPacket. It additionally supports a sequence-ordered insert, needed to
// put a fast-retransmitted segment back onto the unacked queue in the right
// place when it was already partially acknowledged out of order.
type outSegmentList struct {
	head *outSegment
	tail *outSegment
}

func (l *outSegmentList) Reset() {
	l.head = nil
	l.tail = nil
}

func (l *outSegmentList) Empty() bool {
	return l.head == nil
}

func (l *outSegmentList) Front() *outSegment {
	return l.head
}

func (l *outSegmentList) Back() *outSegment {
	return l.tail
}

func (l *outSegmentList) PushFront(e *outSegment) {
	e.SetNext(l.head)
	e.SetPrev(nil)

	if l.head != nil {
		l.head.SetPrev(e)
	} else {
		l.tail = e
	}

	l.head = e
}

func (l *outSegmentList) PushBack(e *outSegment) {
	e.SetNext(nil)
	e.SetPrev(l.tail)

	if l.tail != nil {
		l.tail.SetNext(e)
	} else {
		l.head = e
	}

	l.tail = e
}

func (l *outSegmentList) PushBackList(m *outSegmentList) {
	if l.head == nil {
		l.head = m.head
		l.tail = m.tail
	} else if m.head != nil {
		l.tail.SetNext(m.head)
		m.head.SetPrev(l.tail)

		l.tail = m.tail
	}

	m.head = nil
	m.tail = nil
}

func (l *outSegmentList) InsertAfter(b, e *outSegment) {
	a := b.Next()
	e.SetNext(a)
	e.SetPrev(b)
	b.SetNext(e)

	if a != nil {
		a.SetPrev(e)
	} else {
		l.tail = e
	}
}

func (l *outSegmentList) InsertBefore(a, e *outSegment) {
	b := a.Prev()
	e.SetNext(a)
	e.SetPrev(b)
	a.SetPrev(e)

	if b != nil {
		b.SetNext(e)
	} else {
		l.head = e
	}
}

func (l *outSegmentList) Remove(e *outSegment) {
	prev := e.Prev()
	next := e.Next()

	if prev != nil {
		prev.SetNext(next)
	} else {
		l.head = next
	}

	if next != nil {
		next.SetPrev(prev)
	} else {
		l.tail = prev
	}
}

// InsertSorted inserts e into the list, ordered by ascending seqNo, starting
// the scan from the back since a fast-retransmitted segment usually belongs
// near the end of the unacked queue.
func (l *outSegmentList) InsertSorted(e *outSegment) {
	if l.Empty() {
		l.PushBack(e)
		return
	}

	for cur := l.tail; cur != nil; cur = cur.Prev() {
		if cur.seqNo.LessThanEq(e.seqNo) {
			l.InsertAfter(cur, e)
			return
		}
	}

	l.PushFront(e)
}

type outSegmentEntry struct {
	next *outSegment
	prev *outSegment
}

func (e *outSegmentEntry) Next() *outSegment {
	return e.next
}

func (e *outSegmentEntry) Prev() *outSegment {
	return e.prev
}

func (e *outSegmentEntry) SetNext(entry *outSegment) {
	e.next = entry
}

func (e *outSegmentEntry) SetPrev(entry *outSegment) {
	e.prev = entry
}
