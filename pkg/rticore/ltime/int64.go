package ltime

import (
	"encoding/binary"
	"fmt"
)

// Int64Time is a logical time backed by a plain tick counter, the Go
// rendition of HLAinteger64Time.
type Int64Time int64

// Int64Interval is the interval type paired with Int64Time.
type Int64Interval int64

func (t Int64Time) Add(i Interval) Time {
	return t + Int64Time(i.(Int64Interval))
}

func (t Int64Time) Sub(other Time) Interval {
	return Int64Interval(t - other.(Int64Time))
}

func (t Int64Time) Less(other Time) bool {
	return t < other.(Int64Time)
}

func (t Int64Time) Equal(other Time) bool {
	return t == other.(Int64Time)
}

func (t Int64Time) String() string {
	return fmt.Sprintf("%d", int64(t))
}

func (i Int64Interval) Add(other Interval) Interval {
	return i + other.(Int64Interval)
}

func (i Int64Interval) Less(other Interval) bool {
	return i < other.(Int64Interval)
}

func (i Int64Interval) IsZero() bool {
	return i == 0
}

func (i Int64Interval) Negate() Interval {
	return -i
}

// Int64Factory is the built-in HLAinteger64TimeFactory analog: logical
// time is a monotonically increasing 64-bit tick count, lookahead is a
// non-negative number of ticks.
type Int64Factory struct{}

// NewInt64Factory constructs the integer-tick logical time factory.
func NewInt64Factory() Int64Factory {
	return Int64Factory{}
}

func (Int64Factory) InitialTime() Time {
	return Int64Time(0)
}

func (Int64Factory) ZeroInterval() Interval {
	return Int64Interval(0)
}

func (Int64Factory) NextAfter(t Time) Time {
	return t.(Int64Time) + 1
}

func (Int64Factory) IsZeroInterval(i Interval) bool {
	return i.(Int64Interval) == 0
}

func (Int64Factory) IsPositiveInterval(i Interval) bool {
	return i.(Int64Interval) > 0
}

func (Int64Factory) EncodeTime(t Time) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(t.(Int64Time)))
	return buf
}

func (Int64Factory) DecodeTime(data []byte) (Time, error) {
	if len(data) != 8 {
		return nil, fmt.Errorf("ltime: invalid int64 time encoding of length %d", len(data))
	}
	return Int64Time(binary.BigEndian.Uint64(data)), nil
}

func (Int64Factory) EncodeInterval(i Interval) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(i.(Int64Interval)))
	return buf
}

func (Int64Factory) DecodeInterval(data []byte) (Interval, error) {
	if len(data) != 8 {
		return nil, fmt.Errorf("ltime: invalid int64 interval encoding of length %d", len(data))
	}
	return Int64Interval(binary.BigEndian.Uint64(data)), nil
}

// NewInt64Time is a convenience constructor used by callers that keep
// native int64 values (tests, CLI flag parsing).
func NewInt64Time(v int64) Int64Time {
	return Int64Time(v)
}

// NewInt64Interval is a convenience constructor mirroring NewInt64Time.
func NewInt64Interval(v int64) Int64Interval {
	return Int64Interval(v)
}
