package mlist

import "container/list"

// ReceiveOrderList is the arrival-ordered queue: plain FIFO, no time key.
type ReceiveOrderList struct {
	l *list.List
}

// NewReceiveOrderList constructs an empty receive-order queue.
func NewReceiveOrderList() *ReceiveOrderList {
	return &ReceiveOrderList{l: list.New()}
}

// Empty reports whether no message is queued.
func (r *ReceiveOrderList) Empty() bool {
	return r.l.Len() == 0
}

// Enqueue appends e to the tail of the receive-order queue.
func (r *ReceiveOrderList) Enqueue(e *Element) {
	e.owner = r.l
	e.node = r.l.PushBack(e)
}

// PopFront unlinks and returns the head element, or nil if empty.
func (r *ReceiveOrderList) PopFront() *Element {
	front := r.l.Front()
	if front == nil {
		return nil
	}
	e := front.Value.(*Element)
	e.Unlink()
	return e
}

// Len reports the number of queued elements.
func (r *ReceiveOrderList) Len() int {
	return r.l.Len()
}
