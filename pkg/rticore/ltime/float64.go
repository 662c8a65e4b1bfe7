package ltime

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Float64Time is a logical time backed by an IEEE-754 double, the Go
// rendition of HLAfloat64Time.
type Float64Time float64

// Float64Interval is the interval type paired with Float64Time.
type Float64Interval float64

func (t Float64Time) Add(i Interval) Time {
	return t + Float64Time(i.(Float64Interval))
}

func (t Float64Time) Sub(other Time) Interval {
	return Float64Interval(t - other.(Float64Time))
}

func (t Float64Time) Less(other Time) bool {
	return t < other.(Float64Time)
}

func (t Float64Time) Equal(other Time) bool {
	return t == other.(Float64Time)
}

func (t Float64Time) String() string {
	return fmt.Sprintf("%g", float64(t))
}

func (i Float64Interval) Add(other Interval) Interval {
	return i + other.(Float64Interval)
}

func (i Float64Interval) Less(other Interval) bool {
	return i < other.(Float64Interval)
}

func (i Float64Interval) IsZero() bool {
	return float64(i) == 0
}

func (i Float64Interval) Negate() Interval {
	return -i
}

// Float64Factory is the built-in HLAfloat64TimeFactory analog. NextAfter
// uses math.Nextafter towards +Inf: the smallest representable increment
// rather than a fixed epsilon.
type Float64Factory struct{}

// NewFloat64Factory constructs the floating-point logical time factory.
func NewFloat64Factory() Float64Factory {
	return Float64Factory{}
}

func (Float64Factory) InitialTime() Time {
	return Float64Time(0)
}

func (Float64Factory) ZeroInterval() Interval {
	return Float64Interval(0)
}

func (Float64Factory) NextAfter(t Time) Time {
	v := float64(t.(Float64Time))
	return Float64Time(math.Nextafter(v, math.Inf(1)))
}

func (Float64Factory) IsZeroInterval(i Interval) bool {
	return float64(i.(Float64Interval)) == 0
}

func (Float64Factory) IsPositiveInterval(i Interval) bool {
	return float64(i.(Float64Interval)) > 0
}

func (Float64Factory) EncodeTime(t Time) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(float64(t.(Float64Time))))
	return buf
}

func (Float64Factory) DecodeTime(data []byte) (Time, error) {
	if len(data) != 8 {
		return nil, fmt.Errorf("ltime: invalid float64 time encoding of length %d", len(data))
	}
	return Float64Time(math.Float64frombits(binary.BigEndian.Uint64(data))), nil
}

func (Float64Factory) EncodeInterval(i Interval) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(float64(i.(Float64Interval))))
	return buf
}

func (Float64Factory) DecodeInterval(data []byte) (Interval, error) {
	if len(data) != 8 {
		return nil, fmt.Errorf("ltime: invalid float64 interval encoding of length %d", len(data))
	}
	return Float64Interval(math.Float64frombits(binary.BigEndian.Uint64(data))), nil
}
