package timemgr

import (
	"github.com/onox/openrti-timecore/pkg/rticore/lbts"
	"github.com/onox/openrti-timecore/pkg/rticore/ltime"
	"github.com/onox/openrti-timecore/pkg/rticore/rtiids"
)

func (e *Engine) canAdvanceTo(p ltime.Pair) bool {
	return e.federateLowerBoundMap.CanAdvanceTo(p)
}

func (e *Engine) canAdvanceToNextMessage(p ltime.Pair) bool {
	return e.federateLowerBoundMap.CanAdvanceToNextMessage(p)
}

func (e *Engine) getLockedByNextMessage() bool {
	if !e.timeConstrainedEnabled() {
		return false
	}
	if !e.advance.isAnyNextMessageMode() {
		return false
	}
	return e.federateLowerBoundMap.LockedByNextMessage(e.commitID)
}

func (e *Engine) getIsSafeToAdvanceToNextMessage() bool {
	if !e.advance.isAnyNextMessageMode() {
		return false
	}
	return e.federateLowerBoundMap.IsSafeToAdvanceToNextMessage(e.commitID)
}

// sendCommitLowerBoundTimeStampIfChangedPair collapses a pair to its
// governing time before delegating to the plain-time overload.
func (e *Engine) sendCommitLowerBoundTimeStampIfChangedPair(p ltime.Pair, kind lbts.CommitKind) {
	e.sendCommitLowerBoundTimeStampIfChanged(ltime.ToTime(e.factory, p), kind)
}

// sendCommitLowerBoundTimeStampIfChangedLookahead adds lookahead to t,
// clamps against the already-committed bound, and forwards.
func (e *Engine) sendCommitLowerBoundTimeStampIfChangedLookahead(t ltime.Time, lookahead ltime.Interval, kind lbts.CommitKind) {
	candidate := t.Add(lookahead)
	if e.outboundLowerTimeStampSecondField(lookahead) == ltime.TagComplete {
		candidate = e.factory.NextAfter(candidate)
	}
	if candidate.Less(e.committedOutboundLowerBoundTimeStamp) {
		candidate = e.committedOutboundLowerBoundTimeStamp
	}
	e.sendCommitLowerBoundTimeStampIfChanged(candidate, kind)
}

// sendCommitLowerBoundTimeStampIfChanged is the single gatekeeper for
// outbound CommitLowerBoundTimeStamp messages: it never commits backward,
// adds NextMessageCommit whenever an advance commit would pass the
// committed next-message bound (peers require advance <= next-message),
// and strips whichever bit of kind would be a no-op before deciding
// whether to emit at all.
func (e *Engine) sendCommitLowerBoundTimeStampIfChanged(t ltime.Time, kind lbts.CommitKind) {
	if t.Less(e.committedOutboundLowerBoundTimeStamp) {
		return
	}
	if kind&lbts.TimeAdvanceCommit != 0 && !e.committedOutboundLowerBoundTimeStamp.Less(t) {
		kind &^= lbts.TimeAdvanceCommit
	}
	if kind&lbts.TimeAdvanceCommit != 0 && e.committedNextMessageLowerBoundTimeStamp.Less(t) {
		kind |= lbts.NextMessageCommit
	}
	if kind&lbts.NextMessageCommit != 0 && e.committedNextMessageLowerBoundTimeStamp.Equal(t) {
		kind &^= lbts.NextMessageCommit
	}
	if kind == 0 {
		return
	}
	e.sendCommitLowerBoundTimeStamp(t, kind)
}

func (e *Engine) sendCommitLowerBoundTimeStamp(t ltime.Time, kind lbts.CommitKind) {
	if kind&lbts.TimeAdvanceCommit != 0 {
		e.committedOutboundLowerBoundTimeStamp = t
	}
	if kind&lbts.NextMessageCommit != 0 {
		e.committedNextMessageLowerBoundTimeStamp = t
		if !e.committedOutboundLowerBoundTimeStamp.Equal(e.committedNextMessageLowerBoundTimeStamp) {
			e.commitID++
		}
	}

	e.sink.Send(CommitLowerBoundTimeStamp{
		Header:     e.rpcHeader(),
		Federation: e.source.FederationHandle(),
		Federate:   e.source.FederateHandle(),
		Time:       t,
		CommitType: kind,
		CommitID:   e.commitID,
	})
}

// sendCommitLowerBoundTimeStampResponses re-acknowledges every peer
// currently in next-message mode, used once this federate itself becomes
// regulating in a federation that already has next-message activity.
func (e *Engine) sendCommitLowerBoundTimeStampResponses() {
	for _, h := range e.federateLowerBoundMap.NextMessageFederateHandles() {
		e.sendCommitLowerBoundTimeStampResponse(h.Federate, h.CommitID)
	}
}

func (e *Engine) sendCommitLowerBoundTimeStampResponse(peer rtiids.FederateHandle, commitID uint64) {
	if !e.source.FederateHandle().Valid() {
		return
	}
	e.sink.Send(CommitLowerBoundTimeStampResponse{
		Header:          e.rpcHeader(),
		Federation:      e.source.FederationHandle(),
		Federate:        peer,
		CommitID:        commitID,
		SendingFederate: e.source.FederateHandle(),
	})
}

func (e *Engine) sendLockedByNextMessageRequest(locked bool) {
	e.sink.Send(LockedByNextMessageRequest{
		Header:          e.rpcHeader(),
		Federation:      e.source.FederationHandle(),
		Locked:          locked,
		SendingFederate: e.source.FederateHandle(),
	})
}

// refreshLockedByNextMessage re-evaluates the lock witness and, if it
// changed, broadcasts the new value. Call this after any mutation that
// could affect the predicate: a commit, a response, an insert/erase, or
// an explicit lock-flag change.
func (e *Engine) refreshLockedByNextMessage(was bool) {
	now := e.getLockedByNextMessage()
	if was != now {
		e.sendLockedByNextMessageRequest(now)
	}
}
