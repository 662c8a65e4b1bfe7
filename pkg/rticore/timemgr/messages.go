package timemgr

import (
	"github.com/onox/openrti-timecore/pkg/rticore/lbts"
	"github.com/onox/openrti-timecore/pkg/rticore/ltime"
	"github.com/onox/openrti-timecore/pkg/rticore/rtiids"
)

// RPCHeader rides on every internal protocol message so a receiving
// federate can reject one it cannot safely interpret before touching any
// of its own state.
type RPCHeader struct {
	ProtocolVersion string
}

// WithRPCHeader is implemented by every internal protocol message.
type WithRPCHeader interface {
	GetRPCHeader() RPCHeader
}

// EnableTimeRegulationRequest is broadcast by a federate (including back
// to itself, via the root server round trip) when it begins becoming
// regulating.
type EnableTimeRegulationRequest struct {
	Header     RPCHeader
	Federation rtiids.FederationHandle
	Federate   rtiids.FederateHandle
	Time       ltime.Time
	CommitID   uint64
}

func (m EnableTimeRegulationRequest) GetRPCHeader() RPCHeader { return m.Header }

// EnableTimeRegulationResponse is sent by every federate, the requester
// included, back to the requester; a constrained responder carries a
// corrected time if the requester's proposal would violate an
// already-established ordering guarantee.
type EnableTimeRegulationResponse struct {
	Header             RPCHeader
	Federation         rtiids.FederationHandle
	Federate           rtiids.FederateHandle
	RespondingFederate rtiids.FederateHandle
	Time               ltime.Time
	TimeValid          bool
}

func (m EnableTimeRegulationResponse) GetRPCHeader() RPCHeader { return m.Header }

// DisableTimeRegulationRequest announces that the sending federate is no
// longer regulating.
type DisableTimeRegulationRequest struct {
	Header     RPCHeader
	Federation rtiids.FederationHandle
	Federate   rtiids.FederateHandle
}

func (m DisableTimeRegulationRequest) GetRPCHeader() RPCHeader { return m.Header }

// CommitLowerBoundTimeStamp announces a new committed lower bound for one
// or both of a regulating federate's two bounds.
type CommitLowerBoundTimeStamp struct {
	Header     RPCHeader
	Federation rtiids.FederationHandle
	Federate   rtiids.FederateHandle
	Time       ltime.Time
	CommitType lbts.CommitKind
	CommitID   uint64
}

func (m CommitLowerBoundTimeStamp) GetRPCHeader() RPCHeader { return m.Header }

// CommitLowerBoundTimeStampResponse acknowledges a peer's next-message
// commit id, the handshake that lets next-message deadlocks resolve.
type CommitLowerBoundTimeStampResponse struct {
	Header          RPCHeader
	Federation      rtiids.FederationHandle
	Federate        rtiids.FederateHandle
	CommitID        uint64
	SendingFederate rtiids.FederateHandle
}

func (m CommitLowerBoundTimeStampResponse) GetRPCHeader() RPCHeader { return m.Header }

// LockedByNextMessageRequest broadcasts a change in whether the sending
// federate is currently locked waiting on a next-message advance.
type LockedByNextMessageRequest struct {
	Header          RPCHeader
	Federation      rtiids.FederationHandle
	Locked          bool
	SendingFederate rtiids.FederateHandle
}

func (m LockedByNextMessageRequest) GetRPCHeader() RPCHeader { return m.Header }

// timeRegulationEnabledCallback, timeConstrainedEnabledCallback, and
// timeAdvanceGrantedCallback are synthetic self-messages: they travel
// through the same time-ordered queue as any other scheduled message so
// that a pending mode transition only takes effect once every message
// ordered before it has been delivered. They never cross the wire, so
// they carry no RPCHeader.
type timeRegulationEnabledCallback struct{}
type timeConstrainedEnabledCallback struct{}
type timeAdvanceGrantedCallback struct{}
