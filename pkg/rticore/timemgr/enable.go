package timemgr

import (
	"github.com/onox/openrti-timecore/pkg/rticore/lbts"
	"github.com/onox/openrti-timecore/pkg/rticore/ltime"
	"github.com/onox/openrti-timecore/pkg/rticore/rtiids"
)

// EnableTimeRegulation begins the two-phase handshake that makes this
// federate regulating at the given logical time and lookahead. The
// EnablePending phase completes once every known peer has been heard
// from (see checkTimeRegulationEnabled) and the synthetic grant message
// reaches the head of the dispatch queue.
func (e *Engine) EnableTimeRegulation(t ltime.Time, lookahead ltime.Interval) error {
	if err := e.guardCallback(); err != nil {
		return err
	}
	if e.timeRegulationEnabledOrPending() {
		return ErrTimeRegulationAlreadyEnabled
	}
	if e.timeConstrainedEnablePending() {
		return ErrRequestForTimeConstrainedPending
	}
	if e.timeAdvancePending() {
		return ErrInTimeAdvancingState
	}
	if t.Less(e.logicalTime.Time) {
		return ErrInvalidLogicalTime
	}
	if lookahead.Less(e.factory.ZeroInterval()) {
		return ErrInvalidLookahead
	}

	e.regulation = RegulationEnablePending
	e.currentLookahead = lookahead
	e.targetLookahead = lookahead

	// Footnote: an already-established strict (>) bound is never relaxed
	// by a later >= proposal, so take the maximum.
	e.pendingLogicalTime = ltime.MaxPair(e.logicalTime, ltime.Pair{Time: t, Tag: ltime.TagAvailable})

	e.outboundLowerBoundTimeStamp = ltime.Pair{
		Time: e.pendingLogicalTime.Time.Add(e.currentLookahead),
		Tag:  ltime.TagAvailable,
	}
	e.lastOutboundLowerBoundTimeStamp = e.outboundLowerBoundTimeStamp
	e.committedOutboundLowerBoundTimeStamp = e.outboundLowerBoundTimeStamp.Time
	e.committedNextMessageLowerBoundTimeStamp = e.outboundLowerBoundTimeStamp.Time

	e.timeRegulationEnableFederateHandleSet = make(map[rtiids.FederateHandle]struct{})
	for _, h := range e.source.KnownFederateHandles() {
		e.timeRegulationEnableFederateHandleSet[h] = struct{}{}
	}
	e.timeRegulationEnableFederateHandleSet[e.source.FederateHandle()] = struct{}{}

	e.sink.Send(EnableTimeRegulationRequest{
		Header:     e.rpcHeader(),
		Federation: e.source.FederationHandle(),
		Federate:   e.source.FederateHandle(),
		Time:       e.outboundLowerBoundTimeStamp.Time,
		CommitID:   e.commitID,
	})

	// Once regulating, this federate must participate in next-message
	// deadlock detection, so make sure every peer already in next-message
	// mode knows which commit id we have already observed from it.
	e.sendCommitLowerBoundTimeStampResponses()

	return nil
}

// DisableTimeRegulation immediately drops this federate out of
// regulation; no handshake is required since no peer depends on a
// resigning regulator's future bounds.
func (e *Engine) DisableTimeRegulation() error {
	if err := e.guardCallback(); err != nil {
		return err
	}
	if !e.timeRegulationEnabled() {
		return ErrTimeRegulationIsNotEnabled
	}
	if e.timeConstrainedEnablePending() {
		return ErrRequestForTimeConstrainedPending
	}
	if e.timeAdvancePending() {
		return ErrInTimeAdvancingState
	}

	e.regulation = RegulationDisabled
	e.currentLookahead = e.targetLookahead
	e.outboundLowerBoundTimeStamp = ltime.Pair{Time: e.factory.InitialTime(), Tag: ltime.TagAvailable}
	e.lastOutboundLowerBoundTimeStamp = e.outboundLowerBoundTimeStamp
	e.committedOutboundLowerBoundTimeStamp = e.outboundLowerBoundTimeStamp.Time
	e.committedNextMessageLowerBoundTimeStamp = e.outboundLowerBoundTimeStamp.Time

	e.sink.Send(DisableTimeRegulationRequest{
		Header:     e.rpcHeader(),
		Federation: e.source.FederationHandle(),
		Federate:   e.source.FederateHandle(),
	})
	return nil
}

// EnableTimeConstrained installs the receive-side ordering constraint.
// It is modeled as an advance to the current time: the synthetic grant
// fires once every message already queued ahead of it has drained.
func (e *Engine) EnableTimeConstrained() error {
	if err := e.guardCallback(); err != nil {
		return err
	}
	if e.timeConstrainedEnabledOrPending() {
		return ErrTimeConstrainedAlreadyEnabled
	}
	if e.timeAdvancePending() {
		return ErrInTimeAdvancingState
	}

	e.constrained = ConstrainedEnablePending
	e.pendingLogicalTime = ltime.Pair{Time: e.logicalTime.Time, Tag: ltime.TagAvailable}

	e.queueTimeStampedMessage(e.pendingLogicalTime, timeConstrainedEnabledCallback{})
	return nil
}

// DisableTimeConstrained immediately drops this federate out of the
// receive-side constraint.
func (e *Engine) DisableTimeConstrained() error {
	if err := e.guardCallback(); err != nil {
		return err
	}
	if !e.timeConstrainedEnabled() {
		return ErrTimeConstrainedIsNotEnabled
	}
	if e.timeRegulationEnablePending() {
		return ErrRequestForTimeRegulationPending
	}
	if e.timeConstrainedEnablePending() {
		return ErrRequestForTimeConstrainedPending
	}
	if e.timeAdvancePending() {
		return ErrInTimeAdvancingState
	}
	e.constrained = ConstrainedDisabled
	return nil
}

// EnableAsynchronousDelivery allows receive-order messages to be
// delivered even while constrained and no advance is pending.
func (e *Engine) EnableAsynchronousDelivery() error {
	if e.asyncDeliveryOn {
		return ErrAsynchronousDeliveryAlreadyEnabled
	}
	e.asyncDeliveryOn = true
	return nil
}

// DisableAsynchronousDelivery reverts EnableAsynchronousDelivery.
func (e *Engine) DisableAsynchronousDelivery() error {
	if !e.asyncDeliveryOn {
		return ErrAsynchronousDeliveryAlreadyDisabled
	}
	e.asyncDeliveryOn = false
	return nil
}

// ModifyLookahead changes the target lookahead a regulating federate
// uses for future outbound bound computations.
func (e *Engine) ModifyLookahead(lookahead ltime.Interval) error {
	if err := e.guardCallback(); err != nil {
		return err
	}
	if !e.timeRegulationEnabled() {
		return ErrTimeRegulationIsNotEnabled
	}
	if e.timeAdvancePending() {
		return ErrInTimeAdvancingState
	}
	if e.timeConstrainedEnablePending() {
		return ErrRequestForTimeConstrainedPending
	}
	if lookahead.Less(e.factory.ZeroInterval()) {
		return ErrInvalidLookahead
	}

	e.targetLookahead = lookahead
	e.lastOutboundLowerBoundTimeStamp = e.outboundLowerBoundTimeStamp
	e.setOutboundLowerTimeStampAndCurrentLookahead(e.logicalTime.Time, e.lastOutboundLowerBoundTimeStamp)

	e.sendCommitLowerBoundTimeStampIfChangedPair(e.outboundLowerBoundTimeStamp, lbts.TimeAdvanceCommit|lbts.NextMessageCommit)
	return nil
}

// checkTimeRegulationEnabled fires once every peer this federate waited
// on for EnableTimeRegulation has responded. It folds in any corrected
// logical time peers demanded, broadcasts the final committed bound, and
// schedules the synthetic TimeRegulationEnabled callback.
func (e *Engine) checkTimeRegulationEnabled() {
	if !e.timeRegulationEnablePending() {
		return
	}
	if len(e.timeRegulationEnableFederateHandleSet) != 0 {
		return
	}

	for _, t := range e.timeRegulationEnableFederateHandleTimeMap {
		if !e.outboundLowerBoundTimeStamp.Time.Less(t) {
			continue
		}
		e.outboundLowerBoundTimeStamp = ltime.Pair{Time: t, Tag: ltime.TagAvailable}
		corrected := t.Add(e.currentLookahead.Negate())
		e.pendingLogicalTime = ltime.MaxPair(e.pendingLogicalTime, ltime.Pair{Time: corrected, Tag: ltime.TagAvailable})
	}
	e.timeRegulationEnableFederateHandleTimeMap = make(map[rtiids.FederateHandle]ltime.Time)

	e.sendCommitLowerBoundTimeStamp(e.outboundLowerBoundTimeStamp.Time, lbts.TimeAdvanceCommit|lbts.NextMessageCommit)

	e.queueTimeStampedMessage(e.pendingLogicalTime, timeRegulationEnabledCallback{})
}
