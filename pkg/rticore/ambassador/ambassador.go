// Package ambassador defines the thin sink/source port the time-management
// engine uses to deliver callbacks and emit protocol messages, without
// depending on how those messages reach other federates or how callbacks
// are surfaced to application code.
package ambassador

import (
	"github.com/onox/openrti-timecore/pkg/rticore/ltime"
	"github.com/onox/openrti-timecore/pkg/rticore/rtiids"
)

// Sink is how the engine hands work back to its host: outbound protocol
// messages to send, and synthetic callbacks to deliver once dispatched.
type Sink interface {
	// Send transmits a protocol message (one of the types in the timemgr
	// package) to the rest of the federation.
	Send(message interface{})

	// TimeRegulationEnabled is invoked once the synthetic grant for a
	// completed enableTimeRegulation reaches the head of the dispatch
	// queue.
	TimeRegulationEnabled(t ltime.Time)

	// TimeConstrainedEnabled is the constrained-mode analog.
	TimeConstrainedEnabled(t ltime.Time)

	// TimeAdvanceGrant delivers a granted time advance.
	TimeAdvanceGrant(t ltime.Time)
}

// Source supplies federation membership facts the engine consults but
// does not own — the federate roster belongs to declaration management,
// which sits outside this core.
type Source interface {
	// FederateHandle is this federate's own handle.
	FederateHandle() rtiids.FederateHandle

	// FederationHandle is the federation this federate has joined.
	FederationHandle() rtiids.FederationHandle

	// KnownFederateHandles lists every federate handle currently known to
	// be joined, used to seed the enable-time-regulation wait set.
	KnownFederateHandles() []rtiids.FederateHandle
}
