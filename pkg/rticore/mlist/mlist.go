// Package mlist provides the pooled, doubly-linked message elements the
// time-management engine schedules messages through: each element lives in
// at most one time-or-receive-order queue and at most one object-instance
// bucket at a time. Elements are addressed by stable *Element pointers
// backed by container/list nodes rather than by index, so an element can
// move between queues, get reparented into an object-instance bucket, and
// be recycled through a pool without ever invalidating a handle held
// elsewhere.
package mlist

import (
	"container/list"

	"github.com/onox/openrti-timecore/pkg/rticore/rtiids"
)

// Element is one scheduled message. Payload holds whatever the caller
// queued (a protocol grant, a time-stamped application message, ...).
type Element struct {
	Payload  interface{}
	Instance rtiids.ObjectInstanceHandle

	node     *list.Element
	owner    *list.List
	instNode *list.Element
	instList *list.List
}

// Unlink removes the element from whichever time/receive-order list and
// object-instance bucket it currently belongs to. Safe to call on an
// element that is not linked anywhere.
func (e *Element) Unlink() {
	if e.owner != nil {
		e.owner.Remove(e.node)
		e.owner = nil
		e.node = nil
	}
	if e.instList != nil {
		e.instList.Remove(e.instNode)
		e.instList = nil
		e.instNode = nil
	}
	e.Instance = ""
}

// Pool recycles Elements: Get favors a free element over allocating a new
// one, Put clears the payload before returning it to the pool.
type Pool struct {
	free *list.List
}

// NewPool constructs an empty element pool.
func NewPool() *Pool {
	return &Pool{free: list.New()}
}

// Get returns a ready-to-link element, recycling one from the pool when
// possible and allocating a fresh one (heap fallback) otherwise.
func (p *Pool) Get(payload interface{}) *Element {
	if p.free.Len() == 0 {
		return &Element{Payload: payload}
	}
	front := p.free.Front()
	e := front.Value.(*Element)
	p.free.Remove(front)
	e.Payload = payload
	return e
}

// Put clears and returns an element to the pool. The caller must have
// already called Unlink.
func (p *Pool) Put(e *Element) {
	e.Payload = nil
	p.free.PushBack(e)
}

// Pooled reports how many elements currently sit idle in the pool.
func (p *Pool) Pooled() int {
	return p.free.Len()
}

// Prewarm tops the pool up to n idle elements, allocating whatever is
// missing. Used at startup to pay the allocation cost once instead of
// on a federation's first burst of scheduled messages.
func (p *Pool) Prewarm(n int) {
	for p.free.Len() < n {
		p.free.PushBack(&Element{})
	}
}

// Stats is a point-in-time snapshot of queue occupancy, for operator
// tooling and diagnostics.
type Stats struct {
	Pooled int
	Live   int
}
