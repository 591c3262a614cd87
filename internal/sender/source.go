package sender

import (
	"fmt"
	"math/rand"

	"github.com/tracklab-io/statefeed/internal/domain"
)

// ExampleSource returns a PacketSource generating numPackets example
// packets per cycle: sequential IDs starting at idStart, names of the
// form "<prefix>_<id>", and state vectors that wander randomly around
// the ID. The same IDs repeat every cycle so a receiver exercises its
// per-entity diffing.
func ExampleSource(numPackets int, idStart int32, prefix string) PacketSource {
	return func(cycle int) []domain.Packet {
		packets := make([]domain.Packet, numPackets)
		for i := range packets {
			id := idStart + int32(i)
			packets[i] = domain.Packet{
				IsValid:  true,
				ID:       id,
				ParentID: 0,
				Name:     fmt.Sprintf("%s_%d", prefix, id),
				State:    exampleState(float64(id)),
			}
		}
		return packets
	}
}

// exampleState builds a state vector near base: wide jitter on the
// first three components, narrow on the last three.
func exampleState(base float64) domain.StateVector {
	return domain.StateVector{
		base + rand.Float64()*2 - 1,
		base + rand.Float64()*2 - 1,
		base + rand.Float64()*2 - 1,
		base + rand.Float64()*0.2 - 0.1,
		base + rand.Float64()*0.2 - 0.1,
		base + rand.Float64()*0.2 - 0.1,
	}
}
