package store

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/tracklab-io/statefeed/internal/domain"
	"github.com/tracklab-io/statefeed/internal/ports"
	"github.com/tracklab-io/statefeed/pkg/log"
)

// DistanceFunc compares a new state vector against the stored one.
// The diff handler triggers when the result strictly exceeds the
// threshold.
type DistanceFunc func(current, previous domain.StateVector) float64

// Euclidean is the default distance.
func Euclidean(current, previous domain.StateVector) float64 {
	return current.DistanceTo(previous)
}

// DiffHandler is the default event handler: it tracks each entity's
// last triggering state in a Store and emits a structured log record
// when an entity is first sighted and whenever its state moves farther
// than the threshold from the recorded one.
//
// The threshold can be changed at runtime (see SetThreshold); the
// distance function is fixed at construction.
type DiffHandler struct {
	store     *Store
	distance  DistanceFunc
	logger    ports.Logger
	threshold atomic.Uint64 // float64 bits
}

// NewDiffHandler creates a diff handler over store. A nil distance
// selects Euclidean; a nil logger discards the event log.
func NewDiffHandler(store *Store, distance DistanceFunc, threshold float64, logger ports.Logger) *DiffHandler {
	if distance == nil {
		distance = Euclidean
	}
	if logger == nil {
		logger = log.NoopLogger{}
	}
	h := &DiffHandler{
		store:    store,
		distance: distance,
		logger:   logger,
	}
	h.SetThreshold(threshold)
	return h
}

// Threshold returns the current trigger threshold.
func (h *DiffHandler) Threshold() float64 {
	return math.Float64frombits(h.threshold.Load())
}

// SetThreshold replaces the trigger threshold. Safe to call while
// events are being handled.
func (h *DiffHandler) SetThreshold(v float64) {
	h.threshold.Store(math.Float64bits(v))
}

// Store returns the underlying state store.
func (h *DiffHandler) Store() *Store {
	return h.store
}

// Handle applies the diff policy to one entity event.
//
// First sighting initializes the entry and logs it; no comparison is
// made. Afterwards the entry is replaced, and a record logged, only
// when the distance strictly exceeds the threshold. An identical vector
// at threshold zero therefore never triggers, and the store always
// reflects the last triggering state rather than the last seen one.
func (h *DiffHandler) Handle(ctx context.Context, ev domain.Event) error {
	entry := domain.HistoryEntry{Timestamp: ev.Header.Timestamp, State: ev.State}

	h.store.Visit(ev.ID, func(prev domain.HistoryEntry, seen bool) (domain.HistoryEntry, bool) {
		if !seen {
			h.logger.Info("initialized",
				ports.String("addr", addrString(ev)),
				ports.Int32("id", ev.ID),
				ports.String("name", ev.Name),
				ports.Any("state", ev.State),
				ports.Time("received_at", ev.ReceivedAt),
			)
			return entry, true
		}

		d := h.distance(ev.State, prev.State)
		if d <= h.Threshold() {
			return prev, false
		}

		h.logger.Info("state update",
			ports.String("addr", addrString(ev)),
			ports.Int32("id", ev.ID),
			ports.String("name", ev.Name),
			ports.Any("prev_state", prev.State),
			ports.Any("new_state", ev.State),
			ports.Float64("distance", d),
			ports.Time("received_at", ev.ReceivedAt),
		)
		return entry, true
	})
	return nil
}

func addrString(ev domain.Event) string {
	if ev.Addr == nil {
		return ""
	}
	return ev.Addr.String()
}
