package timemgr

import "github.com/onox/openrti-timecore/pkg/rticore/rtiids"

// AcceptInternalMessage routes a message delivered by the transport layer
// to the handler for its concrete type. Messages addressed to a different
// federate than this engine's own are still partly processed: most carry
// information about a peer that every federate must track locally.
func (e *Engine) AcceptInternalMessage(msg interface{}) {
	if h, ok := msg.(WithRPCHeader); ok {
		if err := e.checkRPCHeader(h.GetRPCHeader()); err != nil {
			e.logger.Warnf("dropping %T: %v", msg, err)
			return
		}
	}

	switch m := msg.(type) {
	case EnableTimeRegulationRequest:
		e.acceptEnableTimeRegulationRequest(m)
	case EnableTimeRegulationResponse:
		e.acceptEnableTimeRegulationResponse(m)
	case DisableTimeRegulationRequest:
		e.acceptDisableTimeRegulationRequest(m)
	case CommitLowerBoundTimeStamp:
		e.acceptCommitLowerBoundTimeStamp(m)
	case CommitLowerBoundTimeStampResponse:
		e.acceptCommitLowerBoundTimeStampResponse(m)
	case LockedByNextMessageRequest:
		e.acceptLockedByNextMessageRequest(m)
	}
}

// acceptEnableTimeRegulationRequest registers a newly regulating peer and
// answers with any correction this federate's own constrained time
// demands. Every federate answers every request, including its own: the
// self-addressed response is what lets checkTimeRegulationEnabled see its
// own enable complete.
func (e *Engine) acceptEnableTimeRegulationRequest(m EnableTimeRegulationRequest) {
	if m.Federate != e.source.FederateHandle() {
		e.federateLowerBoundMap.Insert(m.Federate, m.Time, m.Time, m.CommitID, e.commitID-1)
	}

	corrected, valid := m.Time, false
	if e.timeConstrainedEnabled() && m.Time.Less(e.logicalTime.Time) {
		corrected, valid = e.logicalTime.Time, true
	}
	e.sink.Send(EnableTimeRegulationResponse{
		Header:             e.rpcHeader(),
		Federation:         m.Federation,
		Federate:           m.Federate,
		RespondingFederate: e.source.FederateHandle(),
		Time:               corrected,
		TimeValid:          valid,
	})

	e.checkForPendingTimeAdvance(true)
}

func (e *Engine) acceptEnableTimeRegulationResponse(m EnableTimeRegulationResponse) {
	if m.Federate != e.source.FederateHandle() || !e.timeRegulationEnablePending() {
		return
	}
	delete(e.timeRegulationEnableFederateHandleSet, m.RespondingFederate)
	if m.TimeValid {
		e.timeRegulationEnableFederateHandleTimeMap[m.RespondingFederate] = m.Time
	}
	e.checkTimeRegulationEnabled()
}

func (e *Engine) acceptDisableTimeRegulationRequest(m DisableTimeRegulationRequest) {
	if m.Federate == e.source.FederateHandle() {
		return
	}
	was := e.getLockedByNextMessage()
	if e.federateLowerBoundMap.Erase(m.Federate) {
		e.checkForPendingTimeAdvance(true)
		e.checkForPendingFlushQueue()
	}
	e.refreshLockedByNextMessage(was)
}

func (e *Engine) acceptCommitLowerBoundTimeStamp(m CommitLowerBoundTimeStamp) {
	if m.Federate == e.source.FederateHandle() {
		return
	}
	was := e.getLockedByNextMessage()
	frontChanged, mustRespond := e.federateLowerBoundMap.Commit(m.Federate, m.Time, m.CommitType, m.CommitID)
	if mustRespond {
		e.sendCommitLowerBoundTimeStampResponse(m.Federate, m.CommitID)
	}
	if frontChanged {
		e.checkForPendingTimeAdvance(true)
		e.checkForPendingFlushQueue()
	}
	e.refreshLockedByNextMessage(was)
}

func (e *Engine) acceptCommitLowerBoundTimeStampResponse(m CommitLowerBoundTimeStampResponse) {
	if m.Federate != e.source.FederateHandle() {
		return
	}
	e.federateLowerBoundMap.SetFederateWaitCommitID(m.SendingFederate, m.CommitID)
	e.checkForPendingTimeAdvance(true)
}

func (e *Engine) acceptLockedByNextMessageRequest(m LockedByNextMessageRequest) {
	if m.SendingFederate == e.source.FederateHandle() {
		return
	}
	e.federateLowerBoundMap.SetFederateLockedByNextMessage(m.SendingFederate, m.Locked)
	e.checkForPendingTimeAdvance(true)
}

// RemoveFederateFromTimeManagement drops every piece of per-federate time
// management state held about h, for use when h resigns or is evicted
// from the federation. Safe to call for a federate that was never
// regulating.
func (e *Engine) RemoveFederateFromTimeManagement(h rtiids.FederateHandle) {
	was := e.getLockedByNextMessage()

	if _, waiting := e.timeRegulationEnableFederateHandleSet[h]; waiting {
		delete(e.timeRegulationEnableFederateHandleSet, h)
		e.checkTimeRegulationEnabled()
	}
	delete(e.timeRegulationEnableFederateHandleTimeMap, h)

	if e.federateLowerBoundMap.Erase(h) {
		e.checkForPendingTimeAdvance(true)
		e.checkForPendingFlushQueue()
	}
	e.refreshLockedByNextMessage(was)
}
