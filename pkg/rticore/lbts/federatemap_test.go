package lbts

import (
	"testing"

	"github.com/onox/openrti-timecore/pkg/rticore/ltime"
	"github.com/onox/openrti-timecore/pkg/rticore/rtiids"
)

func TestMap_EmptyAdmitsAnyAdvance(t *testing.T) {
	m := New()
	if !m.Empty() {
		t.Fatal("expected fresh map to be empty")
	}
	p := ltime.Pair{Time: ltime.Int64Time(100), Tag: ltime.TagComplete}
	if !m.CanAdvanceTo(p) {
		t.Fatal("expected unconstrained advance to always be grantable")
	}
	if !m.CanAdvanceToNextMessage(p) {
		t.Fatal("expected unconstrained next-message advance to always be grantable")
	}
}

func TestMap_GALTIsMinimumAcrossPeers(t *testing.T) {
	m := New()
	m.Insert("a", ltime.Int64Time(10), ltime.Int64Time(10), 1, 0)
	m.Insert("b", ltime.Int64Time(5), ltime.Int64Time(5), 1, 0)
	m.Insert("c", ltime.Int64Time(20), ltime.Int64Time(20), 1, 0)

	if got := m.GALT(); got != ltime.Int64Time(5) {
		t.Fatalf("expected GALT 5, got %v", got)
	}
	if got := m.NextMessageGALT(); got != ltime.Int64Time(5) {
		t.Fatalf("expected next-message GALT 5, got %v", got)
	}
}

func TestMap_CommitAdvancesFrontAndReportsChange(t *testing.T) {
	m := New()
	m.Insert("a", ltime.Int64Time(10), ltime.Int64Time(10), 1, 0)
	m.Insert("b", ltime.Int64Time(5), ltime.Int64Time(5), 1, 0)

	frontChanged, _ := m.Commit("b", ltime.Int64Time(8), TimeAdvanceCommit|NextMessageCommit, 1)
	if !frontChanged {
		t.Fatal("expected the unique occupant of the old front to signal frontChanged")
	}
	if got := m.GALT(); got != ltime.Int64Time(8) {
		t.Fatalf("expected GALT 8 after commit, got %v", got)
	}

	frontChanged, _ = m.Commit("a", ltime.Int64Time(9), TimeAdvanceCommit|NextMessageCommit, 1)
	if frontChanged {
		t.Fatal("expected no front change when another peer still occupies the minimum")
	}
}

func TestMap_EraseReleasesPeerAndMayChangeFront(t *testing.T) {
	m := New()
	m.Insert("a", ltime.Int64Time(10), ltime.Int64Time(10), 1, 0)
	m.Insert("b", ltime.Int64Time(5), ltime.Int64Time(5), 1, 0)

	changed := m.Erase("b")
	if !changed {
		t.Fatal("expected erasing the sole front occupant to signal change")
	}
	if got := m.GALT(); got != ltime.Int64Time(10) {
		t.Fatalf("expected GALT 10 after erase, got %v", got)
	}
	if m.Erase("b") {
		t.Fatal("expected erasing an already-absent peer to report no change")
	}
}

func TestMap_ConstrainedByNextMessageDivergesFronts(t *testing.T) {
	m := New()
	m.Insert("a", ltime.Int64Time(10), ltime.Int64Time(10), 1, 0)
	if m.ConstrainedByNextMessage() {
		t.Fatal("expected fronts to agree before any next-message commit")
	}

	m.Commit("a", ltime.Int64Time(10), 0, 1) // no-op commit, same time
	m.Commit("a", ltime.Int64Time(20), NextMessageCommit, 1)
	if !m.ConstrainedByNextMessage() {
		t.Fatal("expected next-message front to have advanced past the time-advance front")
	}
	if got := m.GALT(); got != ltime.Int64Time(10) {
		t.Fatalf("expected GALT to stay at 10, got %v", got)
	}
	if got := m.NextMessageGALT(); got != ltime.Int64Time(20) {
		t.Fatalf("expected next-message GALT 20, got %v", got)
	}
}

func TestMap_LockedByNextMessageRequiresAllBlockersAcknowledged(t *testing.T) {
	m := New()
	// Seeded near wraparound, the same seed the engine starts its own
	// commit id at.
	const seedCommitID = ^uint64(0) - 17

	m.Insert("slow", ltime.Int64Time(50), ltime.Int64Time(50), seedCommitID, 0)
	m.Insert("fast", ltime.Int64Time(1), ltime.Int64Time(1), seedCommitID, seedCommitID+1)

	// fast commits into next-message mode, diverging its own bounds and the
	// federation's next-message front.
	m.Commit("fast", ltime.Int64Time(1), TimeAdvanceCommit, seedCommitID)
	m.Commit("fast", ltime.Int64Time(50), NextMessageCommit, seedCommitID+1)

	if !m.ConstrainedByNextMessage() {
		t.Fatal("expected constrained-by-next-message once fast diverged")
	}

	// slow sits at the next-message front rather than below it, so it is
	// not a blocker; fast is below the front and in next-message mode, but
	// was registered as having already acknowledged seedCommitID+1, so the
	// witness should already hold.
	if !m.LockedByNextMessage(seedCommitID + 1) {
		t.Fatal("expected lock witness to hold when no peer is blocking")
	}

	m.Insert("blocker", ltime.Int64Time(0), ltime.Int64Time(0), seedCommitID, 0)
	m.Commit("blocker", ltime.Int64Time(0), NextMessageCommit, seedCommitID)
	// blocker is now in next-message mode (timeAdvance 0 != nextMessage 0?
	// no — force divergence explicitly below).
	m.Commit("blocker", ltime.Int64Time(-1), TimeAdvanceCommit, seedCommitID)

	if m.LockedByNextMessage(seedCommitID + 1) {
		t.Fatal("expected lock witness to fail while blocker has not acknowledged our commit id")
	}

	m.SetFederateWaitCommitID("blocker", seedCommitID+1)
	if !m.LockedByNextMessage(seedCommitID + 1) {
		t.Fatal("expected lock witness to hold once blocker acknowledged our commit id")
	}
}

func TestMap_IsSafeToAdvanceRequiresExplicitLock(t *testing.T) {
	m := New()
	m.Insert("fast", ltime.Int64Time(1), ltime.Int64Time(1), 1, 0)
	m.Insert("blocker", ltime.Int64Time(0), ltime.Int64Time(0), 1, 0)

	m.Commit("fast", ltime.Int64Time(50), NextMessageCommit, 2)
	m.Commit("blocker", ltime.Int64Time(-1), TimeAdvanceCommit, 1)
	m.SetFederateWaitCommitID("blocker", 2)

	if m.IsSafeToAdvanceToNextMessage(2) {
		t.Fatal("expected advance to be unsafe until blocker declares itself locked")
	}
	m.SetFederateLockedByNextMessage("blocker", true)
	if !m.IsSafeToAdvanceToNextMessage(2) {
		t.Fatal("expected advance to become safe once blocker is locked and acknowledged")
	}
}

func TestMap_CommitOutsideNextMessageModeClearsLock(t *testing.T) {
	m := New()
	m.Insert("a", ltime.Int64Time(0), ltime.Int64Time(0), 1, 0)
	m.SetFederateLockedByNextMessage("a", true)

	// A plain time-advance commit that keeps both bounds equal drops the
	// peer out of next-message mode and should clear its lock flag.
	m.Commit("a", ltime.Int64Time(5), TimeAdvanceCommit|NextMessageCommit, 1)

	if m.federates["a"].locked {
		t.Fatal("expected lock flag cleared once the peer left next-message mode")
	}
}

func TestMap_NextMessageFederateHandlesListsOnlyDivergedPeers(t *testing.T) {
	m := New()
	m.Insert("steady", ltime.Int64Time(0), ltime.Int64Time(0), 1, 0)
	m.Insert("diverged", ltime.Int64Time(0), ltime.Int64Time(0), 1, 0)

	m.Commit("diverged", ltime.Int64Time(10), NextMessageCommit, 2)

	handles := m.NextMessageFederateHandles()
	if len(handles) != 1 || handles[0].Federate != rtiids.FederateHandle("diverged") {
		t.Fatalf("expected exactly one diverged peer, got %+v", handles)
	}
	if handles[0].CommitID != 2 {
		t.Fatalf("expected recorded commit id 2, got %d", handles[0].CommitID)
	}
}
