package timemgr

import (
	"github.com/onox/openrti-timecore/pkg/rticore/lbts"
	"github.com/onox/openrti-timecore/pkg/rticore/ltime"
)

// TimeAdvanceRequest begins an advance to t under the strict (TAR)
// semantics: the grant fires only once every message timestamped at or
// before t, including one stamped exactly t, has been delivered.
func (e *Engine) TimeAdvanceRequest(t ltime.Time) error {
	return e.beginAdvance(t, AdvanceTAR)
}

// TimeAdvanceRequestAvailable begins an advance to t under the available
// (TARA) semantics: the grant may fire alongside payloads still arriving
// at exactly t.
func (e *Engine) TimeAdvanceRequestAvailable(t ltime.Time) error {
	return e.beginAdvance(t, AdvanceTARA)
}

// NextMessageRequest begins an advance to the earlier of t and the
// timestamp of the next queued message, shrinking further as smaller
// messages arrive, under strict semantics.
func (e *Engine) NextMessageRequest(t ltime.Time) error {
	return e.beginAdvance(t, AdvanceNMR)
}

// NextMessageRequestAvailable is NextMessageRequest under available
// semantics.
func (e *Engine) NextMessageRequestAvailable(t ltime.Time) error {
	return e.beginAdvance(t, AdvanceNMRA)
}

// FlushQueueRequest advances straight to the later of t and the
// timestamp of the last queued message, draining everything queued
// along the way regardless of the constrained gate.
func (e *Engine) FlushQueueRequest(t ltime.Time) error {
	return e.beginAdvance(t, AdvanceFlushQueue)
}

func (e *Engine) beginAdvance(t ltime.Time, mode AdvanceMode) error {
	if err := e.guardCallback(); err != nil {
		return err
	}
	if e.timeAdvancePending() {
		return ErrInTimeAdvancingState
	}
	if e.timeRegulationEnablePending() {
		return ErrRequestForTimeRegulationPending
	}
	if e.timeConstrainedEnablePending() {
		return ErrRequestForTimeConstrainedPending
	}
	if t.Less(e.logicalTime.Time) {
		return ErrInvalidLogicalTime
	}

	e.advance = mode
	tag := e.pendingTimeSecondField()

	switch {
	case mode.isFlushQueue():
		target := t
		if back, ok := e.timeQueue.Back(); ok && target.Less(back.Time) {
			target = back.Time
		}
		e.pendingLogicalTime = ltime.Pair{Time: target, Tag: tag}
	case mode.isAnyNextMessageMode():
		target := t
		if front, ok := e.timeQueue.Front(); ok && front.Time.Less(target) {
			target = front.Time
		}
		e.pendingLogicalTime = ltime.Pair{Time: target, Tag: tag}
	case mode.isAnyAdvanceRequest():
		e.pendingLogicalTime = ltime.Pair{Time: t, Tag: tag}
	}

	e.timeAdvanceToBeScheduled = mode.isAnyNextMessageMode()

	if e.timeRegulationEnabled() {
		// Outside next-message mode the two committed bounds must stay
		// equal, so a plain TAR/TARA/flush commits both. An NMR/NMRA only
		// advances the next-message bound, letting it diverge ahead of the
		// ordinary one until the deadlock-breaking handshake resolves.
		kind := lbts.TimeAdvanceCommit | lbts.NextMessageCommit
		if mode.isAnyNextMessageMode() {
			kind = lbts.NextMessageCommit
		}
		e.sendCommitLowerBoundTimeStampIfChangedLookahead(e.pendingLogicalTime.Time, e.targetLookahead, kind)
	}

	e.checkForPendingTimeAdvance(true)
	if mode.isFlushQueue() {
		e.checkForPendingFlushQueue()
	}
	return nil
}

// checkForPendingTimeAdvance re-evaluates whether the pending advance can
// be granted now, queuing the synthetic TimeAdvanceGranted callback if
// so. allowNextMessage disables the next-message deadlock-breaking path
// when false, used by callers that only want a plain TAR/TARA check.
func (e *Engine) checkForPendingTimeAdvance(allowNextMessage bool) {
	if !e.timeAdvancePending() || e.advance.isFlushQueue() {
		return
	}

	if e.timeConstrainedEnabled() {
		if !e.canAdvanceTo(e.pendingLogicalTime) {
			// Not yet grantable: still narrow our own committed bound up to
			// GALT so peers blocked behind us can progress, even though we
			// can't reach the pending target ourselves yet.
			if e.timeRegulationEnabled() && !e.federateLowerBoundMap.Empty() {
				e.sendCommitLowerBoundTimeStampIfChangedLookahead(e.federateLowerBoundMap.GALT(), e.targetLookahead, lbts.TimeAdvanceCommit)
			}
			if allowNextMessage && e.advance.isAnyNextMessageMode() {
				e.checkForPendingNextMessageAdvance()
			}
			return
		}
	}

	if !e.timeQueue.Empty() {
		front, _ := e.timeQueue.Front()
		if front.LessEqual(e.pendingLogicalTime) {
			return
		}
	}

	e.grantPendingAdvance()
}

func (e *Engine) checkForPendingNextMessageAdvance() {
	was := e.getLockedByNextMessage()
	defer e.refreshLockedByNextMessage(was)

	if !e.canAdvanceToNextMessage(e.pendingLogicalTime) {
		if e.timeRegulationEnabled() && !e.federateLowerBoundMap.Empty() {
			e.sendCommitLowerBoundTimeStampIfChangedLookahead(e.federateLowerBoundMap.NextMessageGALT(), e.targetLookahead, lbts.NextMessageCommit)
		}
		return
	}
	if !e.getIsSafeToAdvanceToNextMessage() {
		return
	}
	if !e.timeQueue.Empty() {
		front, _ := e.timeQueue.Front()
		if front.LessEqual(e.pendingLogicalTime) {
			return
		}
	}
	e.grantPendingAdvance()
}

// checkForPendingFlushQueue grants a pending flush-queue advance once
// every message up to its target has drained from the time queue.
func (e *Engine) checkForPendingFlushQueue() {
	if !e.timeAdvancePending() || !e.advance.isFlushQueue() {
		return
	}
	if front, ok := e.timeQueue.Front(); ok && !e.pendingLogicalTime.Less(front) {
		return
	}
	e.grantPendingAdvance()
}

func (e *Engine) grantPendingAdvance() {
	e.timeAdvanceToBeScheduled = false
	e.queueTimeStampedMessage(e.pendingLogicalTime, timeAdvanceGrantedCallback{})
}
