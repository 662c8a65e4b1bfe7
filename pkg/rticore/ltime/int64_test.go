package ltime

import "testing"

func TestInt64Factory_NextAfter(t *testing.T) {
	f := NewInt64Factory()
	next := f.NextAfter(Int64Time(10))
	if next.(Int64Time) != 11 {
		t.Fatalf("expected 11, got %v", next)
	}
}

func TestInt64Factory_EncodeDecodeRoundTrip(t *testing.T) {
	f := NewInt64Factory()
	original := Int64Time(-42)
	encoded := f.EncodeTime(original)
	decoded, err := f.DecodeTime(encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decoded.Equal(original) {
		t.Fatalf("expected %v, got %v", original, decoded)
	}
}

func TestInt64Factory_IsZeroInterval(t *testing.T) {
	f := NewInt64Factory()
	if !f.IsZeroInterval(f.ZeroInterval()) {
		t.Fatal("expected zero interval")
	}
	if f.IsPositiveInterval(f.ZeroInterval()) {
		t.Fatal("zero interval must not be positive")
	}
	if !f.IsPositiveInterval(NewInt64Interval(1)) {
		t.Fatal("expected positive interval")
	}
}

func TestPair_Ordering(t *testing.T) {
	a := Pair{Time: Int64Time(5), Tag: TagPayload}
	b := Pair{Time: Int64Time(5), Tag: TagAvailable}
	c := Pair{Time: Int64Time(6), Tag: TagPayload}

	if !a.Less(b) {
		t.Fatal("payload must sort before available grant at same time")
	}
	if !b.Less(c) {
		t.Fatal("earlier time must sort first regardless of tag")
	}
	if c.Less(a) {
		t.Fatal("later time must not sort before earlier time")
	}
}

func TestToTime(t *testing.T) {
	f := NewInt64Factory()
	complete := Pair{Time: Int64Time(5), Tag: TagComplete}
	if ToTime(f, complete).(Int64Time) != 6 {
		t.Fatalf("expected complete tag to push the governing time to NextAfter")
	}
	available := Pair{Time: Int64Time(5), Tag: TagAvailable}
	if ToTime(f, available).(Int64Time) != 5 {
		t.Fatalf("expected available tag to leave the governing time unchanged")
	}
}
