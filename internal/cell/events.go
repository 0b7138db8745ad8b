package cell

// EventKind categorizes run events.
type EventKind string

const (
	// EventSpawn records a founder cell placed before the first tick.
	EventSpawn EventKind = "spawn"

	// EventTransition records a stage change.
	EventTransition EventKind = "transition"

	// EventDivision records a parent replaced by two daughters.
	EventDivision EventKind = "division"

	// EventFault records a per-cell fault that did not abort the tick.
	EventFault EventKind = "fault"
)

// Event is one entry of a run's event log.
//
// Seq is a monotonic counter across the whole run; events of one tick are
// ordered by the host's ascending-id visit order.
type Event struct {
	Seq    int64     `json:"seq"`
	Tick   int64     `json:"tick"`
	Kind   EventKind `json:"kind"`
	CellID ID        `json:"cell_id"`

	From Type `json:"from"`
	To   Type `json:"to"`

	Daughters [2]ID `json:"daughters"`

	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
