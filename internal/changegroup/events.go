package changegroup

// EventName identifies the change notification event emitted to sinks.
const EventName = "changeGroup:changes"

// Change is one control whose value differed from the previous poll.
type Change struct {
	Name   string `json:"Name"`
	Value  any    `json:"Value"`
	String string `json:"String"`
}

// ChangeEvent is the payload emitted whenever a poll observes changes.
//
// Timestamp carries nanosecond precision; TimestampMs is the same instant in
// milliseconds for consumers that cannot handle 64-bit nanosecond values.
// SequenceNumber is monotonic across all groups for the process lifetime,
// starting at zero.
type ChangeEvent struct {
	GroupID        string   `json:"groupId"`
	Changes        []Change `json:"changes"`
	Timestamp      int64    `json:"timestamp"`
	TimestampMs    int64    `json:"timestampMs"`
	SequenceNumber uint64   `json:"sequenceNumber"`
}

// Sink receives change events as polls observe them.
//
// Implementations must not block for long: emission happens on the polling
// path and a slow sink delays that group's next poll.
type Sink interface {
	EmitChanges(event ChangeEvent)
}
