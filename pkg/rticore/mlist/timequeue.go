package mlist

import (
	"container/list"

	"github.com/onox/openrti-timecore/pkg/rticore/ltime"
)

// TimeQueue is the time-keyed bucket map: one FIFO list of Elements per
// (time, tag) pair, ordered by Pair.Less.
type TimeQueue struct {
	buckets map[ltime.Pair]*list.List
	order   []ltime.Pair // kept sorted; small federations never need a tree
}

// NewTimeQueue constructs an empty time-keyed queue.
func NewTimeQueue() *TimeQueue {
	return &TimeQueue{buckets: make(map[ltime.Pair]*list.List)}
}

// Empty reports whether no message is queued at any time.
func (q *TimeQueue) Empty() bool {
	return len(q.order) == 0
}

// Front returns the earliest (time, tag) pair with a non-empty bucket.
// The second return is false if the queue is empty.
func (q *TimeQueue) Front() (ltime.Pair, bool) {
	if len(q.order) == 0 {
		return ltime.Pair{}, false
	}
	return q.order[0], true
}

// FrontBucketEmpty reports whether the earliest bucket has no elements
// left (can happen after every element in it has been unlinked without
// going through PopFront, e.g. object-instance retraction).
func (q *TimeQueue) FrontBucketEmpty() bool {
	if len(q.order) == 0 {
		return false
	}
	return q.buckets[q.order[0]].Len() == 0
}

// DropFrontBucket removes the (now empty) earliest bucket's bookkeeping.
// Caller must have checked FrontBucketEmpty first.
func (q *TimeQueue) DropFrontBucket() {
	if len(q.order) == 0 {
		return
	}
	p := q.order[0]
	delete(q.buckets, p)
	q.order = q.order[1:]
}

// Enqueue links e into the bucket for p, creating the bucket if needed.
func (q *TimeQueue) Enqueue(p ltime.Pair, e *Element) {
	bucket, ok := q.buckets[p]
	if !ok {
		bucket = list.New()
		q.buckets[p] = bucket
		q.insertSorted(p)
	}
	e.owner = bucket
	e.node = bucket.PushBack(e)
}

func (q *TimeQueue) insertSorted(p ltime.Pair) {
	i := 0
	for ; i < len(q.order); i++ {
		if p.Less(q.order[i]) {
			break
		}
	}
	q.order = append(q.order, ltime.Pair{})
	copy(q.order[i+1:], q.order[i:])
	q.order[i] = p
}

// PopFront unlinks and returns the head element of the earliest non-empty
// bucket, dropping the bucket's bookkeeping if it becomes empty. Returns
// nil if the queue is empty.
func (q *TimeQueue) PopFront() *Element {
	for len(q.order) > 0 {
		p := q.order[0]
		bucket := q.buckets[p]
		if bucket.Len() == 0 {
			q.DropFrontBucket()
			continue
		}
		front := bucket.Front()
		e := front.Value.(*Element)
		e.Unlink()
		if bucket.Len() == 0 {
			q.DropFrontBucket()
		}
		return e
	}
	return nil
}

// Len returns the number of distinct time buckets currently populated.
func (q *TimeQueue) Len() int {
	return len(q.order)
}

// Back returns the latest (time, tag) pair with a populated bucket. The
// second return is false if the queue is empty.
func (q *TimeQueue) Back() (ltime.Pair, bool) {
	if len(q.order) == 0 {
		return ltime.Pair{}, false
	}
	return q.order[len(q.order)-1], true
}
