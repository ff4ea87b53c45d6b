package metrics

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ValidationEvent is one recorded validation outcome, kept for the
// admin surface's recent-activity view.
type ValidationEvent struct {
	EventID      string    `json:"event_id"`
	TypeName     string    `json:"type_name"`
	Result       string    `json:"result"` // "ok" or "fail"
	ConstraintID string    `json:"constraint_id,omitempty"`
	Message      string    `json:"message,omitempty"`
	EmittedAt    time.Time `json:"emitted_at"`
}

const eventRingCapacity = 100

var (
	eventMu   sync.Mutex
	eventRing []ValidationEvent
	eventNext int
)

// RecordValidationEvent pushes an event onto the bounded ring,
// evicting the oldest entry once capacity is reached.
func RecordValidationEvent(typeName, result, constraintID, message string) {
	eventMu.Lock()
	defer eventMu.Unlock()

	ev := ValidationEvent{
		EventID:      uuid.NewString(),
		TypeName:     typeName,
		Result:       result,
		ConstraintID: constraintID,
		Message:      message,
		EmittedAt:    time.Now(),
	}
	if len(eventRing) < eventRingCapacity {
		eventRing = append(eventRing, ev)
		return
	}
	eventRing[eventNext] = ev
	eventNext = (eventNext + 1) % eventRingCapacity
}

// RecentValidationEvents returns a snapshot of the ring, oldest first.
func RecentValidationEvents() []ValidationEvent {
	eventMu.Lock()
	defer eventMu.Unlock()

	if len(eventRing) < eventRingCapacity {
		out := make([]ValidationEvent, len(eventRing))
		copy(out, eventRing)
		return out
	}
	out := make([]ValidationEvent, 0, eventRingCapacity)
	out = append(out, eventRing[eventNext:]...)
	out = append(out, eventRing[:eventNext]...)
	return out
}

// ResetEvents clears the event ring. Test-only.
func ResetEvents() {
	eventMu.Lock()
	defer eventMu.Unlock()
	eventRing = nil
	eventNext = 0
}
