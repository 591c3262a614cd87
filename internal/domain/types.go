package domain

import (
	"math"
	"net"
	"time"
)

// StateDim is the number of components in a state vector and in the
// header timestamp tuple.
const StateDim = 6

// NameSize is the size of the fixed Name slot in a packet, in bytes.
const NameSize = 64

// StateVector is an ordered sequence of six doubles carrying one domain
// measurement (position/velocity triplets, sensor channels, etc.).
type StateVector [StateDim]float64

// DistanceTo returns the Euclidean distance between two state vectors.
// It is the default comparison used by the diff handler.
func (v StateVector) DistanceTo(o StateVector) float64 {
	var sum float64
	for i := range v {
		d := v[i] - o[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Timestamp is the raw six-field wall-clock snapshot carried in a header.
// Fields are doubles on the wire and are not calendar-validated.
type Timestamp struct {
	Year   float64
	Month  float64
	Day    float64
	Hour   float64
	Minute float64
	Second float64
}

// TimestampFromTime snapshots t into the wire representation.
func TimestampFromTime(t time.Time) Timestamp {
	return Timestamp{
		Year:   float64(t.Year()),
		Month:  float64(t.Month()),
		Day:    float64(t.Day()),
		Hour:   float64(t.Hour()),
		Minute: float64(t.Minute()),
		Second: float64(t.Second()),
	}
}

// Header is the fixed 60-byte datagram header.
type Header struct {
	// MsgType discriminates message families; the receiver does not
	// interpret it beyond passing it through to handlers.
	MsgType int32

	// Timestamp is the sender's clock snapshot at build time.
	Timestamp Timestamp

	// PackageNumber is the count of packets following the header.
	PackageNumber int32

	// PackageLength is the declared per-packet byte size. A conforming
	// sender always writes the compiled packet size here.
	PackageLength int32
}

// Packet is the fixed 121-byte per-entity payload.
type Packet struct {
	IsValid  bool
	ID       int32
	ParentID int32

	// Name is UTF-8 and at most 64 bytes once encoded; decode strips the
	// zero padding.
	Name string

	State StateVector
}

// Event is one valid packet as dispatched to a handler, together with
// the reception context it arrived in.
type Event struct {
	Addr       net.Addr
	ID         int32
	ParentID   int32
	Name       string
	State      StateVector
	ReceivedAt time.Time
	Header     Header
}

// HistoryEntry is the last recorded (timestamp, state) pair for one
// entity. The timestamp is the header timestamp of the datagram that
// produced the recorded state, not the arrival time.
type HistoryEntry struct {
	Timestamp Timestamp
	State     StateVector
}
