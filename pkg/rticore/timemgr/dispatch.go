package timemgr

import (
	"time"

	"github.com/onox/openrti-timecore/pkg/rticore/lbts"
	"github.com/onox/openrti-timecore/pkg/rticore/ltime"
	"github.com/onox/openrti-timecore/pkg/rticore/rtiids"
)

// ObjectInstanceCarrier is implemented by any payload queued through
// QueueTimeStampedMessage or QueueReceiveOrderMessage that references a
// specific object instance, so that EraseMessagesForObjectInstance can
// find and retract it.
type ObjectInstanceCarrier interface {
	ObjectInstanceHandle() rtiids.ObjectInstanceHandle
}

// QueueTimeStampedMessage schedules payload for delivery at t in
// timestamp order. A payload whose timestamp violates the current
// incoming bound is a protocol violation by the sender and is logged and
// dropped rather than delivered.
func (e *Engine) QueueTimeStampedMessage(t ltime.Time, payload interface{}) {
	if e.timeConstrainedEnabled() {
		if e.canAdvanceTo(ltime.Pair{Time: t, Tag: ltime.TagComplete}) {
			e.logger.Warnf("dropping time-stamped message at %v: below GALT", t)
			return
		}
		if (ltime.Pair{Time: t, Tag: ltime.TagComplete}).Less(e.logicalTime) {
			e.logger.Warnf("dropping time-stamped message at %v: before logical time %v", t, e.logicalTime.Time)
			return
		}
	}
	e.queueTimeStampedMessage(ltime.Pair{Time: t, Tag: ltime.TagPayload}, payload)
}

// queueTimeStampedMessage is the internal entry point shared by the
// public payload path and the synthetic self-messages. In next-message
// mode, a message earlier than the currently pending time pulls the
// pending time back to it — the defining next-message semantic.
func (e *Engine) queueTimeStampedMessage(p ltime.Pair, payload interface{}) {
	e.enqueueTimeStamped(p, payload)

	if !e.advance.isAnyNextMessageMode() || !e.timeConstrainedEnabled() {
		return
	}
	if !p.Time.Less(e.pendingLogicalTime.Time) {
		return
	}
	if e.logicalTime.Time.Less(p.Time) || e.logicalTime.Time.Equal(p.Time) {
		e.pendingLogicalTime.Time = p.Time
	}

	if e.timeAdvanceToBeScheduled && e.timeRegulationEnabled() {
		e.sendCommitLowerBoundTimeStampIfChangedLookahead(e.pendingLogicalTime.Time, e.targetLookahead, lbts.NextMessageCommit)
	}
	e.checkForPendingTimeAdvance(true)
}

func (e *Engine) enqueueTimeStamped(p ltime.Pair, payload interface{}) {
	element := e.pool.Get(payload)
	e.timeQueue.Enqueue(p, element)
	if carrier, ok := payload.(ObjectInstanceCarrier); ok {
		if h := carrier.ObjectInstanceHandle(); h.Valid() {
			e.instanceIndex.Link(h, element)
		}
	}
}

// QueueReceiveOrderMessage schedules payload for arrival-order delivery,
// unordered with respect to logical time.
func (e *Engine) QueueReceiveOrderMessage(payload interface{}) {
	element := e.pool.Get(payload)
	e.receiveOrder.Enqueue(element)
	if carrier, ok := payload.(ObjectInstanceCarrier); ok {
		if h := carrier.ObjectInstanceHandle(); h.Valid() {
			e.instanceIndex.Link(h, element)
		}
	}
}

// EraseMessagesForObjectInstance recycles every still-queued message that
// references h without ever surfacing it to a dispatch, guaranteeing no
// message about a deleted object instance is ever delivered.
func (e *Engine) EraseMessagesForObjectInstance(h rtiids.ObjectInstanceHandle) int {
	return e.instanceIndex.EraseAll(h, e.pool)
}

// receiveOrderMessagesPermitted reports whether the receive-order queue
// may be drained ahead of the timestamp-ordered one: unconstrained
// federates and any federate with asynchronous delivery enabled, or one
// with its own advance still pending, may always interleave RO traffic.
func (e *Engine) receiveOrderMessagesPermitted() bool {
	return !e.timeConstrainedEnabled() || e.asyncDeliveryOn || e.timeAdvancePending()
}

// timeStampOrderMessagesPermitted reports whether the earliest queued
// timestamp-ordered message may be delivered right now.
func (e *Engine) timeStampOrderMessagesPermitted(front ltime.Pair) bool {
	if e.advance.isFlushQueue() {
		return true
	}
	if !e.timeConstrainedEnabled() {
		return true
	}
	return e.canAdvanceTo(front) && front.LessEqual(e.pendingLogicalTime)
}

// CallbackMessageAvailable reports whether DispatchCallback would
// currently deliver something.
func (e *Engine) CallbackMessageAvailable() bool {
	if e.receiveOrderMessagesPermitted() && !e.receiveOrder.Empty() {
		return true
	}
	e.dropEmptyFrontBuckets()
	if front, ok := e.timeQueue.Front(); ok {
		return e.timeStampOrderMessagesPermitted(front)
	}
	return false
}

func (e *Engine) dropEmptyFrontBuckets() {
	for !e.timeQueue.Empty() && e.timeQueue.FrontBucketEmpty() {
		e.timeQueue.DropFrontBucket()
	}
	e.checkForPendingFlushQueue()
}

// DispatchCallback delivers at most one message or synthetic transition,
// in the priority order: permitted receive-order traffic first, then the
// earliest permitted timestamp-ordered message. Returns false if nothing
// was delivered.
func (e *Engine) DispatchCallback() (bool, error) {
	if err := e.guardCallback(); err != nil {
		return false, err
	}

	if e.receiveOrderMessagesPermitted() && !e.receiveOrder.Empty() {
		element := e.receiveOrder.PopFront()
		e.deliver(element.Payload)
		e.pool.Put(element)
		return true, nil
	}

	e.dropEmptyFrontBuckets()

	front, ok := e.timeQueue.Front()
	if !ok || !e.timeStampOrderMessagesPermitted(front) {
		return false, nil
	}
	element := e.timeQueue.PopFront()
	e.logicalTime = ltime.MaxPair(e.logicalTime, front)
	e.deliver(element.Payload)
	e.pool.Put(element)

	// Draining the message that blocked a pending advance does not by
	// itself re-trigger anything else, so re-check here.
	e.checkForPendingTimeAdvance(true)
	e.checkForPendingFlushQueue()
	return true, nil
}

func (e *Engine) deliver(payload interface{}) {
	e.inCallback = true
	defer func() { e.inCallback = false }()

	switch payload.(type) {
	case timeRegulationEnabledCallback:
		e.regulation = RegulationEnabled
		e.logicalTime = e.pendingLogicalTime
		e.sink.TimeRegulationEnabled(e.logicalTime.Time)
	case timeConstrainedEnabledCallback:
		e.constrained = ConstrainedEnabled
		e.logicalTime = e.pendingLogicalTime
		e.sink.TimeConstrainedEnabled(e.logicalTime.Time)
	case timeAdvanceGrantedCallback:
		if (e.advance.isAnyNextMessageMode() || e.advance.isFlushQueue()) && e.timeRegulationEnabled() {
			e.setOutboundLowerTimeStampAndCurrentLookahead(e.pendingLogicalTime.Time, e.lastOutboundLowerBoundTimeStamp)
			// A resolved next-message advance must collapse the ordinary
			// bound back up to match, or peers would see this federate as
			// permanently stuck in next-message mode.
			e.sendCommitLowerBoundTimeStampIfChangedPair(e.outboundLowerBoundTimeStamp, lbts.TimeAdvanceCommit|lbts.NextMessageCommit)
		}
		e.logicalTime = e.pendingLogicalTime
		e.advance = AdvanceGranted
		e.sink.TimeAdvanceGrant(e.logicalTime.Time)
	default:
		// Application payload: forwarding it further than this core is
		// the host's responsibility, not time management's.
	}
}

// EvokeCallback dispatches at most one callback, waiting up to timeout
// for one to become available.
func (e *Engine) EvokeCallback(timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		dispatched, err := e.DispatchCallback()
		if err != nil || dispatched {
			return dispatched, err
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}
		time.Sleep(time.Millisecond)
	}
}

// EvokeMultipleCallbacks dispatches callbacks until none remain available
// or maxTimeout elapses, waiting at least minTimeout before giving up if
// nothing was ever available. Returns the number dispatched.
func (e *Engine) EvokeMultipleCallbacks(minTimeout, maxTimeout time.Duration) (int, error) {
	deadline := time.Now().Add(maxTimeout)
	minDeadline := time.Now().Add(minTimeout)
	count := 0
	for {
		dispatched, err := e.DispatchCallback()
		if err != nil {
			return count, err
		}
		if dispatched {
			count++
			continue
		}
		if count > 0 {
			return count, nil
		}
		if !time.Now().Before(minDeadline) || !time.Now().Before(deadline) {
			return count, nil
		}
		time.Sleep(time.Millisecond)
	}
}
