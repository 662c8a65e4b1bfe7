package lbts

import (
	"fmt"

	"github.com/onox/openrti-timecore/pkg/rticore/ltime"
	"github.com/onox/openrti-timecore/pkg/rticore/rtiids"
)

// CommitKind is the bit-flag naming which of a federate's two committed
// bounds a CommitLowerBoundTimeStamp message carries.
type CommitKind uint

const (
	TimeAdvanceCommit CommitKind = 1 << iota
	NextMessageCommit
)

// commit is the per-federate bookkeeping entry.
type commit struct {
	timeAdvance *countEntry
	nextMessage *countEntry
	commitID    uint64
	waitingFor  uint64
	locked      bool
}

func (c *commit) inNextMessageMode() bool {
	return !c.timeAdvance.time.Equal(c.nextMessage.time)
}

// Map tracks, per regulating federate, the lower bound it has committed to
// for ordinary time advance and the (possibly larger) bound it has
// committed to for next-message advance, and derives the federation-wide
// fronts (GALT and next-message GALT) from those bounds in O(1).
type Map struct {
	timeAdvance *countMap
	nextMessage *countMap
	federates   map[rtiids.FederateHandle]*commit
}

// New constructs an empty lower-bound-timestamp map.
func New() *Map {
	return &Map{
		timeAdvance: newCountMap(),
		nextMessage: newCountMap(),
		federates:   make(map[rtiids.FederateHandle]*commit),
	}
}

// Empty reports whether no regulating peer is currently tracked.
func (m *Map) Empty() bool {
	return len(m.federates) == 0
}

// Insert registers a newly observed regulating peer. Panics if the peer
// is already present.
func (m *Map) Insert(peer rtiids.FederateHandle, t, nextT ltime.Time, commitID, beforeOwnCommitID uint64) {
	if _, exists := m.federates[peer]; exists {
		panic(fmt.Sprintf("lbts: federate %q already present", peer))
	}
	i := m.timeAdvance.insert(t)
	j := m.nextMessage.insert(nextT)
	m.federates[peer] = &commit{
		timeAdvance: i,
		nextMessage: j,
		commitID:    commitID,
		waitingFor:  beforeOwnCommitID,
	}
}

// Erase drops a peer's bounds entirely (resignation or
// DisableTimeRegulationRequest). Reports whether the global advance or
// next-message front may have changed.
func (m *Map) Erase(peer rtiids.FederateHandle) bool {
	c, ok := m.federates[peer]
	if !ok {
		return false
	}
	delete(m.federates, peer)
	changedAdvance := m.timeAdvance.erase(c.timeAdvance)
	changedNext := m.nextMessage.erase(c.nextMessage)
	return changedAdvance || changedNext
}

// Commit applies a peer's CommitLowerBoundTimeStamp. Returns
// (frontChanged, commitIDChangedWhileInNMR): the second is true exactly
// when the caller must respond with a CommitLowerBoundTimeStampResponse so
// the peer can observe our acknowledgement.
func (m *Map) Commit(peer rtiids.FederateHandle, t ltime.Time, kind CommitKind, newCommitID uint64) (frontChanged, commitIDChangedWhileInNMR bool) {
	if m.timeAdvance.empty() || m.nextMessage.empty() {
		panic("lbts: commit received with no regulating federate registered")
	}
	c, ok := m.federates[peer]
	if !ok {
		panic(fmt.Sprintf("lbts: commit from unknown federate %q", peer))
	}

	if kind&TimeAdvanceCommit != 0 {
		newEntry, changed := m.timeAdvance.move(c.timeAdvance, t)
		c.timeAdvance = newEntry
		frontChanged = changed
	}
	if kind&NextMessageCommit != 0 {
		newEntry, _ := m.nextMessage.move(c.nextMessage, t)
		c.nextMessage = newEntry
	}

	// A peer that drops out of next-message mode on this commit has its
	// lock flag cleared here rather than waiting for an explicit
	// LockedByNextMessageRequest(false); this mirrors a federate that
	// silently reverts to ordinary advance without unlocking first.
	if !c.inNextMessageMode() {
		c.locked = false
	}

	if c.commitID != newCommitID {
		if !c.inNextMessageMode() {
			panic("lbts: commit id changed outside next-message mode")
		}
		c.commitID = newCommitID
		commitIDChangedWhileInNMR = true
	}

	if c.timeAdvance.time.Less(c.nextMessage.time) || c.timeAdvance.time.Equal(c.nextMessage.time) {
		// invariant holds
	} else {
		panic("lbts: per-peer ordering invariant violated")
	}
	if m.timeAdvance.front().time.Less(m.nextMessage.front().time) || m.timeAdvance.front().time.Equal(m.nextMessage.front().time) {
		// invariant holds
	} else {
		panic("lbts: front ordering invariant violated")
	}

	return frontChanged, commitIDChangedWhileInNMR
}

// CanAdvanceTo reports whether p may be granted given the current advance
// fronts: O(1).
func (m *Map) CanAdvanceTo(p ltime.Pair) bool {
	if m.Empty() {
		return true
	}
	if p.Tag > 0 {
		return p.Time.Less(m.timeAdvance.front().time)
	}
	return p.Time.Less(m.timeAdvance.front().time) || p.Time.Equal(m.timeAdvance.front().time)
}

// CanAdvanceToNextMessage is CanAdvanceTo against the next-message front.
func (m *Map) CanAdvanceToNextMessage(p ltime.Pair) bool {
	if m.Empty() {
		return true
	}
	if p.Tag > 0 {
		return p.Time.Less(m.nextMessage.front().time)
	}
	return p.Time.Less(m.nextMessage.front().time) || p.Time.Equal(m.nextMessage.front().time)
}

// GALT is the Greatest Available Logical Time: O(1).
func (m *Map) GALT() ltime.Time {
	if m.Empty() {
		panic("lbts: GALT requested on empty map")
	}
	return m.timeAdvance.front().time
}

// NextMessageGALT is the next-message analog of GALT: O(1).
func (m *Map) NextMessageGALT() ltime.Time {
	if m.Empty() {
		panic("lbts: NextMessageGALT requested on empty map")
	}
	return m.nextMessage.front().time
}

// ConstrainedByNextMessage reports whether the two fronts currently
// differ: O(1).
func (m *Map) ConstrainedByNextMessage() bool {
	if m.Empty() {
		return false
	}
	return m.timeAdvance.front().time.Less(m.nextMessage.front().time)
}

// SetFederateWaitCommitID records the commit id a peer told us (via
// CommitLowerBoundTimeStampResponse) that it has observed from us.
func (m *Map) SetFederateWaitCommitID(peer rtiids.FederateHandle, commitID uint64) {
	if c, ok := m.federates[peer]; ok {
		c.waitingFor = commitID
	}
}

// SetFederateLockedByNextMessage records a peer's LockedByNextMessageRequest.
func (m *Map) SetFederateLockedByNextMessage(peer rtiids.FederateHandle, locked bool) {
	if c, ok := m.federates[peer]; ok {
		c.locked = locked
	}
}

// LockedByNextMessage is the termination witness: true iff constrained by
// next-message mode AND every peer that could still block us (timeAdvance
// below the next-message front) is itself in next-message mode and has
// acknowledged ownCommitID. O(n).
func (m *Map) LockedByNextMessage(ownCommitID uint64) bool {
	if !m.ConstrainedByNextMessage() {
		return false
	}
	front := m.nextMessage.front().time
	for _, c := range m.federates {
		if !c.timeAdvance.time.Less(front) {
			continue
		}
		if !c.inNextMessageMode() {
			continue
		}
		if c.waitingFor != ownCommitID {
			return false
		}
	}
	return true
}

// IsSafeToAdvanceToNextMessage additionally requires every such peer to
// have declared itself locked: O(n). Authorizes a next-message grant.
func (m *Map) IsSafeToAdvanceToNextMessage(ownCommitID uint64) bool {
	if !m.ConstrainedByNextMessage() {
		return false
	}
	front := m.nextMessage.front().time
	for _, c := range m.federates {
		if !c.timeAdvance.time.Less(front) {
			continue
		}
		if !c.inNextMessageMode() {
			continue
		}
		if c.waitingFor != ownCommitID {
			return false
		}
		if !c.locked {
			return false
		}
	}
	return true
}

// NextMessageFederateHandles lists every peer currently in next-message
// mode together with the commit id we last observed from it: O(n). Used
// to (re-)send CommitLowerBoundTimeStampResponse after we ourselves become
// a regulating federate in next-message-aware territory.
func (m *Map) NextMessageFederateHandles() []struct {
	Federate rtiids.FederateHandle
	CommitID uint64
} {
	var out []struct {
		Federate rtiids.FederateHandle
		CommitID uint64
	}
	for h, c := range m.federates {
		if !c.inNextMessageMode() {
			continue
		}
		out = append(out, struct {
			Federate rtiids.FederateHandle
			CommitID uint64
		}{Federate: h, CommitID: c.commitID})
	}
	return out
}

// InNextMessageMode reports a peer's mode, used only by call sites that
// assert mode consistency before mutating shared state.
func (m *Map) InNextMessageMode(peer rtiids.FederateHandle) bool {
	c, ok := m.federates[peer]
	if !ok {
		return false
	}
	return c.inNextMessageMode()
}
