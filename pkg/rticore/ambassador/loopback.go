package ambassador

import (
	"github.com/onox/openrti-timecore/pkg/rticore/ltime"
	"github.com/onox/openrti-timecore/pkg/rticore/rtiids"
)

// Loopback is a single-federate test double: it records every sent
// message and every delivered callback instead of forwarding them
// anywhere, and reports a fixed, caller-supplied federation roster.
type Loopback struct {
	Federate     rtiids.FederateHandle
	Federation   rtiids.FederationHandle
	KnownPeers   []rtiids.FederateHandle
	Sent         []interface{}
	Regulation   []ltime.Time
	Constrained  []ltime.Time
	AdvanceGrant []ltime.Time
}

// NewLoopback constructs a Loopback for federate self within federation.
func NewLoopback(self rtiids.FederateHandle, federation rtiids.FederationHandle) *Loopback {
	return &Loopback{Federate: self, Federation: federation, KnownPeers: []rtiids.FederateHandle{self}}
}

func (l *Loopback) Send(message interface{}) {
	l.Sent = append(l.Sent, message)
}

func (l *Loopback) TimeRegulationEnabled(t ltime.Time) {
	l.Regulation = append(l.Regulation, t)
}

func (l *Loopback) TimeConstrainedEnabled(t ltime.Time) {
	l.Constrained = append(l.Constrained, t)
}

func (l *Loopback) TimeAdvanceGrant(t ltime.Time) {
	l.AdvanceGrant = append(l.AdvanceGrant, t)
}

func (l *Loopback) FederateHandle() rtiids.FederateHandle { return l.Federate }

func (l *Loopback) FederationHandle() rtiids.FederationHandle { return l.Federation }

func (l *Loopback) KnownFederateHandles() []rtiids.FederateHandle { return l.KnownPeers }
