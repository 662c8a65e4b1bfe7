package transport

import (
	"testing"

	"github.com/onox/openrti-timecore/pkg/rticore/lbts"
	"github.com/onox/openrti-timecore/pkg/rticore/ltime"
	"github.com/onox/openrti-timecore/pkg/rticore/timemgr"
)

var testFactory = ltime.NewInt64Factory()

func roundTrip(t *testing.T, message interface{}) interface{} {
	t.Helper()
	data, err := encodeMessage(testFactory, message)
	if err != nil {
		t.Fatalf("encodeMessage: %v", err)
	}
	decoded, err := decodeMessage(testFactory, data)
	if err != nil {
		t.Fatalf("decodeMessage: %v", err)
	}
	return decoded
}

func TestEncodeDecodeEnableTimeRegulationRequest(t *testing.T) {
	want := timemgr.EnableTimeRegulationRequest{
		Header:     timemgr.RPCHeader{ProtocolVersion: "1.0.0"},
		Federation: "federation-1",
		Federate:   "f1",
		Time:       ltime.NewInt64Time(42),
		CommitID:   7,
	}
	got, ok := roundTrip(t, want).(timemgr.EnableTimeRegulationRequest)
	if !ok {
		t.Fatalf("decoded to wrong type: %#v", got)
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %#v, want %#v", got, want)
	}
}

func TestEncodeDecodeCommitLowerBoundTimeStamp(t *testing.T) {
	want := timemgr.CommitLowerBoundTimeStamp{
		Header:     timemgr.RPCHeader{ProtocolVersion: "1.0.0"},
		Federation: "federation-1",
		Federate:   "f1",
		Time:       ltime.NewInt64Time(9),
		CommitType: lbts.NextMessageCommit,
		CommitID:   3,
	}
	got, ok := roundTrip(t, want).(timemgr.CommitLowerBoundTimeStamp)
	if !ok {
		t.Fatalf("decoded to wrong type: %#v", got)
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %#v, want %#v", got, want)
	}
}

func TestEncodeDecodeLockedByNextMessageRequest(t *testing.T) {
	want := timemgr.LockedByNextMessageRequest{
		Header:          timemgr.RPCHeader{ProtocolVersion: "1.0.0"},
		Federation:      "federation-1",
		Locked:          true,
		SendingFederate: "f2",
	}
	got, ok := roundTrip(t, want).(timemgr.LockedByNextMessageRequest)
	if !ok {
		t.Fatalf("decoded to wrong type: %#v", got)
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %#v, want %#v", got, want)
	}
}

func TestEncodeMessageRejectsUnknownType(t *testing.T) {
	if _, err := encodeMessage(testFactory, struct{}{}); err == nil {
		t.Fatalf("expected an error encoding an unrecognized message type")
	}
}

func TestDecodeMessageRejectsUnknownKind(t *testing.T) {
	if _, err := decodeMessage(testFactory, []byte(`{"kind":"NotARealKind"}`)); err == nil {
		t.Fatalf("expected an error decoding an unrecognized kind")
	}
}
