package timemgr

import (
	"testing"

	"github.com/onox/openrti-timecore/pkg/rticore/ambassador"
	"github.com/onox/openrti-timecore/pkg/rticore/ltime"
	"github.com/onox/openrti-timecore/pkg/rticore/rtiids"
)

func newTestEngine(self rtiids.FederateHandle, peers ...rtiids.FederateHandle) (*Engine, *ambassador.Loopback) {
	lb := ambassador.NewLoopback(self, "federation-1")
	lb.KnownPeers = append([]rtiids.FederateHandle{self}, peers...)
	e := New(Config{Factory: ltime.NewInt64Factory(), Sink: lb, Source: lb})
	return e, lb
}

// pump drives every engine's dispatch queue and relays every sent message
// to every engine (including its sender) until nothing moves, simulating
// a reliable broadcast transport.
func pump(t *testing.T, engines map[rtiids.FederateHandle]*Engine, lbs map[rtiids.FederateHandle]*ambassador.Loopback) {
	t.Helper()
	for steps := 0; steps < 1000; steps++ {
		progressed := false
		for _, e := range engines {
			if drain(t, e, 1000) > 0 {
				progressed = true
			}
		}
		for _, lb := range lbs {
			if len(lb.Sent) == 0 {
				continue
			}
			msgs := lb.Sent
			lb.Sent = nil
			progressed = true
			for _, m := range msgs {
				for _, e := range engines {
					e.AcceptInternalMessage(m)
				}
			}
		}
		if !progressed {
			return
		}
	}
	t.Fatalf("pump did not converge")
}

func drain(t *testing.T, e *Engine, max int) int {
	t.Helper()
	n := 0
	for i := 0; i < max; i++ {
		dispatched, err := e.DispatchCallback()
		if err != nil {
			t.Fatalf("DispatchCallback: %v", err)
		}
		if !dispatched {
			break
		}
		n++
	}
	return n
}

// A solo federate's TimeAdvanceRequest is granted immediately: nothing
// regulates against it.
func TestSoloTimeAdvanceRequestGrantsImmediately(t *testing.T) {
	e, lb := newTestEngine("f1")

	if err := e.TimeAdvanceRequest(ltime.NewInt64Time(10)); err != nil {
		t.Fatalf("TimeAdvanceRequest: %v", err)
	}
	if drain(t, e, 10) != 1 {
		t.Fatalf("expected exactly one dispatched callback")
	}
	if len(lb.AdvanceGrant) != 1 || lb.AdvanceGrant[0].(ltime.Int64Time) != 10 {
		t.Fatalf("expected grant at time 10, got %v", lb.AdvanceGrant)
	}
	if e.AdvanceState() != AdvanceGranted {
		t.Fatalf("expected AdvanceGranted, got %v", e.AdvanceState())
	}
}

// A regulating pair: the constrained federate may not advance past the
// regulator's committed bound until the regulator commits further.
func TestRegulatedPairBlocksUntilCommit(t *testing.T) {
	reg, regLb := newTestEngine("reg", "con")
	con, conLb := newTestEngine("con", "reg")
	engines := map[rtiids.FederateHandle]*Engine{"reg": reg, "con": con}
	lbs := map[rtiids.FederateHandle]*ambassador.Loopback{"reg": regLb, "con": conLb}

	if err := reg.EnableTimeRegulation(ltime.NewInt64Time(0), ltime.NewInt64Interval(1)); err != nil {
		t.Fatalf("EnableTimeRegulation: %v", err)
	}
	if err := con.EnableTimeConstrained(); err != nil {
		t.Fatalf("EnableTimeConstrained: %v", err)
	}
	pump(t, engines, lbs)

	if reg.RegulationState() != RegulationEnabled {
		t.Fatalf("expected regulator enabled, got %v", reg.RegulationState())
	}
	if con.ConstrainedState() != ConstrainedEnabled {
		t.Fatalf("expected constrained enabled, got %v", con.ConstrainedState())
	}

	if err := con.TimeAdvanceRequest(ltime.NewInt64Time(5)); err != nil {
		t.Fatalf("TimeAdvanceRequest: %v", err)
	}
	pump(t, engines, lbs)
	if len(conLb.AdvanceGrant) != 0 {
		t.Fatalf("expected no grant yet, got %v", conLb.AdvanceGrant)
	}

	if err := reg.TimeAdvanceRequest(ltime.NewInt64Time(6)); err != nil {
		t.Fatalf("regulator TimeAdvanceRequest: %v", err)
	}
	pump(t, engines, lbs)

	if len(regLb.AdvanceGrant) != 1 {
		t.Fatalf("expected regulator granted once, got %v", regLb.AdvanceGrant)
	}
	if len(conLb.AdvanceGrant) != 1 {
		t.Fatalf("expected constrained federate granted once regulator committed past it, got %v", conLb.AdvanceGrant)
	}
}

// NextMessageRequest grants immediately when no message is queued and no
// peer blocks it, mirroring a TAR to the requested time.
func TestNextMessageRequestGrantsWhenQueueEmpty(t *testing.T) {
	e, _ := newTestEngine("f1")

	if err := e.NextMessageRequest(ltime.NewInt64Time(100)); err != nil {
		t.Fatalf("NextMessageRequest: %v", err)
	}
	if drain(t, e, 10) != 1 {
		t.Fatalf("expected immediate grant")
	}
}

// A message queued before a NextMessageRequest's target pulls the
// granted time back to the message's own timestamp.
func TestNextMessageRequestShrinksToEarliestMessage(t *testing.T) {
	e, lb := newTestEngine("f1")

	e.QueueTimeStampedMessage(ltime.NewInt64Time(3), "payload-at-3")
	if err := e.NextMessageRequest(ltime.NewInt64Time(100)); err != nil {
		t.Fatalf("NextMessageRequest: %v", err)
	}

	// The payload at 3 must be dispatched before the grant, which now
	// targets time 3 rather than 100.
	drain(t, e, 10)
	if len(lb.AdvanceGrant) != 1 || lb.AdvanceGrant[0].(ltime.Int64Time) != 3 {
		t.Fatalf("expected grant shrunk to time 3, got %v", lb.AdvanceGrant)
	}
}

// FlushQueueRequest drains every queued message regardless of the
// constrained gate and then grants at the later of the request time and
// the last queued message's time.
func TestFlushQueueDrainsEverythingThenGrants(t *testing.T) {
	e, lb := newTestEngine("f1")

	// Queued before constrained is enabled: a constrained federate with no
	// regulating peer drops every incoming time-stamped message.
	e.QueueTimeStampedMessage(ltime.NewInt64Time(5), "a")
	e.QueueTimeStampedMessage(ltime.NewInt64Time(9), "b")

	if err := e.EnableTimeConstrained(); err != nil {
		t.Fatalf("EnableTimeConstrained: %v", err)
	}
	drain(t, e, 10)

	if err := e.FlushQueueRequest(ltime.NewInt64Time(1)); err != nil {
		t.Fatalf("FlushQueueRequest: %v", err)
	}
	n := drain(t, e, 10)
	if n != 3 {
		t.Fatalf("expected 2 payloads + 1 grant dispatched, got %d", n)
	}
	if len(lb.AdvanceGrant) != 1 || lb.AdvanceGrant[0].(ltime.Int64Time) != 9 {
		t.Fatalf("expected grant at time 9 (last queued message), got %v", lb.AdvanceGrant)
	}
}

// EraseMessagesForObjectInstance retracts every queued message
// referencing an object instance without ever surfacing it for dispatch.
type objectMessage struct {
	instance rtiids.ObjectInstanceHandle
}

func (m objectMessage) ObjectInstanceHandle() rtiids.ObjectInstanceHandle { return m.instance }

func TestEraseMessagesForObjectInstanceRetractsBeforeDelivery(t *testing.T) {
	e, _ := newTestEngine("f1")

	e.QueueTimeStampedMessage(ltime.NewInt64Time(1), objectMessage{instance: "obj-1"})
	e.QueueTimeStampedMessage(ltime.NewInt64Time(2), objectMessage{instance: "obj-1"})
	e.QueueTimeStampedMessage(ltime.NewInt64Time(3), objectMessage{instance: "obj-2"})

	erased := e.EraseMessagesForObjectInstance("obj-1")
	if erased != 2 {
		t.Fatalf("expected 2 messages erased, got %d", erased)
	}

	if err := e.FlushQueueRequest(ltime.NewInt64Time(3)); err != nil {
		t.Fatalf("FlushQueueRequest: %v", err)
	}
	delivered := 0
	for {
		dispatched, err := e.DispatchCallback()
		if err != nil {
			t.Fatalf("DispatchCallback: %v", err)
		}
		if !dispatched {
			break
		}
		delivered++
	}
	if delivered != 2 { // obj-2 payload + grant
		t.Fatalf("expected 2 dispatches (remaining payload + grant), got %d", delivered)
	}
}

// Three mutually regulating and constrained federates all issue a
// next-message-available request with nothing queued. None may grant
// until every peer has both entered next-message mode and declared
// itself locked, a genuine three-way circular wait that only resolves
// once the LockedByNextMessageRequest/commit-id handshake lets every
// federate observe the other two as locked.
func TestThreeFederateNextMessageDeadlockBreaks(t *testing.T) {
	names := []rtiids.FederateHandle{"f1", "f2", "f3"}
	engines := make(map[rtiids.FederateHandle]*Engine)
	lbs := make(map[rtiids.FederateHandle]*ambassador.Loopback)
	for _, n := range names {
		var peers []rtiids.FederateHandle
		for _, m := range names {
			if m != n {
				peers = append(peers, m)
			}
		}
		e, lb := newTestEngine(n, peers...)
		engines[n] = e
		lbs[n] = lb
	}

	for _, n := range names {
		if err := engines[n].EnableTimeRegulation(ltime.NewInt64Time(0), ltime.NewInt64Interval(1)); err != nil {
			t.Fatalf("%s EnableTimeRegulation: %v", n, err)
		}
		if err := engines[n].EnableTimeConstrained(); err != nil {
			t.Fatalf("%s EnableTimeConstrained: %v", n, err)
		}
	}
	pump(t, engines, lbs)
	for _, n := range names {
		if engines[n].RegulationState() != RegulationEnabled {
			t.Fatalf("%s expected regulation enabled, got %v", n, engines[n].RegulationState())
		}
		if engines[n].ConstrainedState() != ConstrainedEnabled {
			t.Fatalf("%s expected constrained enabled, got %v", n, engines[n].ConstrainedState())
		}
	}

	for _, n := range names {
		if err := engines[n].NextMessageRequestAvailable(ltime.NewInt64Time(100)); err != nil {
			t.Fatalf("%s NextMessageRequestAvailable: %v", n, err)
		}
	}
	pump(t, engines, lbs)

	for _, n := range names {
		if len(lbs[n].AdvanceGrant) != 1 {
			t.Fatalf("%s expected exactly one grant once the three-way lock resolved, got %v", n, lbs[n].AdvanceGrant)
		}
		if engines[n].AdvanceState() != AdvanceGranted {
			t.Fatalf("%s expected AdvanceGranted after resolving the deadlock, got %v", n, engines[n].AdvanceState())
		}
	}
}

// A call from within a dispatched callback is rejected.
func TestCallNotAllowedFromWithinCallback(t *testing.T) {
	e, _ := newTestEngine("f1")
	if err := e.TimeAdvanceRequest(ltime.NewInt64Time(1)); err != nil {
		t.Fatalf("TimeAdvanceRequest: %v", err)
	}

	e.inCallback = true
	if err := e.TimeAdvanceRequest(ltime.NewInt64Time(2)); err != ErrCallNotAllowedFromWithinCallback {
		t.Fatalf("expected ErrCallNotAllowedFromWithinCallback, got %v", err)
	}
	e.inCallback = false
}

// EnableTimeRegulation rejects a logical time that precedes the
// federate's current time.
func TestEnableTimeRegulationRejectsPastTime(t *testing.T) {
	e, _ := newTestEngine("f1")
	if err := e.TimeAdvanceRequest(ltime.NewInt64Time(10)); err != nil {
		t.Fatalf("TimeAdvanceRequest: %v", err)
	}
	drain(t, e, 10)

	if err := e.EnableTimeRegulation(ltime.NewInt64Time(5), ltime.NewInt64Interval(0)); err != ErrInvalidLogicalTime {
		t.Fatalf("expected ErrInvalidLogicalTime, got %v", err)
	}
}

// ModifyLookahead never lets the outbound bound regress below the
// previously committed one.
func TestModifyLookaheadNeverRegressesCommittedBound(t *testing.T) {
	e, lb := newTestEngine("f1")
	engines := map[rtiids.FederateHandle]*Engine{"f1": e}
	lbs := map[rtiids.FederateHandle]*ambassador.Loopback{"f1": lb}

	if err := e.EnableTimeRegulation(ltime.NewInt64Time(0), ltime.NewInt64Interval(5)); err != nil {
		t.Fatalf("EnableTimeRegulation: %v", err)
	}
	pump(t, engines, lbs)
	if e.RegulationState() != RegulationEnabled {
		t.Fatalf("expected regulation enabled, got %v", e.RegulationState())
	}

	before := e.committedOutboundLowerBoundTimeStamp

	if err := e.ModifyLookahead(ltime.NewInt64Interval(1)); err != nil {
		t.Fatalf("ModifyLookahead: %v", err)
	}
	if e.committedOutboundLowerBoundTimeStamp.Less(before) {
		t.Fatalf("committed bound regressed from %v to %v", before, e.committedOutboundLowerBoundTimeStamp)
	}
}
