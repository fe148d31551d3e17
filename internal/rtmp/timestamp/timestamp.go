// Package timestamp implements RTMP's wrap-around 32-bit millisecond
// timestamp arithmetic and ordering.
//
// RTMP streams are expected to run indefinitely, so the wire timestamp is a
// modular uint32: it overflows and underflows by design and comparisons must
// treat two timestamps within 2^31-1 of each other as adjacent, reversing the
// natural order once that distance is exceeded.
package timestamp

// Timestamp is a 32-bit unsigned millisecond counter with wrap-aware
// ordering. The zero value is timestamp 0.
type Timestamp struct {
	value uint32
}

// New constructs a Timestamp from a raw wire value.
func New(value uint32) Timestamp {
	return Timestamp{value: value}
}

// Value returns the raw uint32 wire value.
func (t Timestamp) Value() uint32 {
	return t.value
}

// Add returns t + other, wrapping silently on overflow.
func (t Timestamp) Add(other Timestamp) Timestamp {
	return Timestamp{value: t.value + other.value}
}

// AddUint32 returns t + delta, wrapping silently on overflow.
func (t Timestamp) AddUint32(delta uint32) Timestamp {
	return Timestamp{value: t.value + delta}
}

// Sub returns t - other, wrapping silently on underflow.
func (t Timestamp) Sub(other Timestamp) Timestamp {
	return Timestamp{value: t.value - other.value}
}

// SubUint32 returns t - delta, wrapping silently on underflow.
func (t Timestamp) SubUint32(delta uint32) Timestamp {
	return Timestamp{value: t.value - delta}
}

// maxAdjacent is 2^31 - 1: the largest distance at which two timestamps are
// still considered ordered rather than wrapped.
const maxAdjacent uint32 = 1<<31 - 1

// Compare returns -1, 0, or 1 as a is less than, equal to, or greater than
// b, using RTMP's cyclic adjacency rule: let d = a-b (unsigned wrap); if
// d <= 2^31-1 then a is the later timestamp, otherwise the wrap went the
// other way and a orders before b. The relation is cyclic, not a total
// order; real timestamp distances stay well inside the adjacency window.
func Compare(a, b Timestamp) int {
	d := a.value - b.value
	switch {
	case d == 0:
		return 0
	case d <= maxAdjacent:
		return 1
	default:
		return -1
	}
}

// Less reports whether a orders before b.
func Less(a, b Timestamp) bool {
	return Compare(a, b) < 0
}

// Equal reports whether a and b have the same raw value.
func Equal(a, b Timestamp) bool {
	return a.value == b.value
}

// Greater reports whether a orders after b.
func Greater(a, b Timestamp) bool {
	return Compare(a, b) > 0
}
