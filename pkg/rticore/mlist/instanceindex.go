package mlist

import (
	"container/list"

	"github.com/onox/openrti-timecore/pkg/rticore/rtiids"
)

// InstanceIndex buckets elements by the object instance they reference,
// independent of whichever time-or-receive-order list they also live in.
// An element with no instance handle is never indexed here.
type InstanceIndex struct {
	buckets map[rtiids.ObjectInstanceHandle]*list.List
}

// NewInstanceIndex constructs an empty object-instance index.
func NewInstanceIndex() *InstanceIndex {
	return &InstanceIndex{buckets: make(map[rtiids.ObjectInstanceHandle]*list.List)}
}

// Link indexes e under handle, in addition to whatever time/receive-order
// list it already belongs to.
func (idx *InstanceIndex) Link(handle rtiids.ObjectInstanceHandle, e *Element) {
	if !handle.Valid() {
		return
	}
	bucket, ok := idx.buckets[handle]
	if !ok {
		bucket = list.New()
		idx.buckets[handle] = bucket
	}
	e.Instance = handle
	e.instList = bucket
	e.instNode = bucket.PushBack(e)
}

// EraseAll unlinks and recycles every element indexed under handle without
// returning them for dispatch, guaranteeing that no message referencing a
// deleted object instance is ever delivered. Recycled elements are pushed
// into pool.
func (idx *InstanceIndex) EraseAll(handle rtiids.ObjectInstanceHandle, pool *Pool) int {
	bucket, ok := idx.buckets[handle]
	if !ok {
		return 0
	}
	count := 0
	for bucket.Len() > 0 {
		front := bucket.Front()
		e := front.Value.(*Element)
		e.Unlink()
		pool.Put(e)
		count++
	}
	delete(idx.buckets, handle)
	return count
}
