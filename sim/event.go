package sim

import "fmt"

// EventKind tags the two event variants the dispatch loop understands.
// Keeping the kind a closed enum makes dispatch exhaustive: there is no
// open payload to inspect, only the fixed fields below.
type EventKind uint8

const (
	// Arrival delivers one packet to Destination at Time.
	Arrival EventKind = iota
	// Departure completes service of the head packet at Destination.
	Departure
)

// String returns the human-readable kind name.
func (k EventKind) String() string {
	switch k {
	case Arrival:
		return "Arrival"
	case Departure:
		return "Departure"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// NodeKind distinguishes the owner types an event origin can refer to.
type NodeKind uint8

const (
	// SourceNode identifies a traffic source.
	SourceNode NodeKind = iota
	// QueueNode identifies an M/M/1/K queue.
	QueueNode
)

// NodeRef names a node in the simulation by kind and id. Arrival events
// originating from a SourceNode cause the engine to re-arm that source
// after dispatch; arrivals originating from a QueueNode are forwarded
// packets and trigger nothing beyond the receiving queue's transition.
type NodeRef struct {
	Kind NodeKind
	ID   int
}

// SourceRef returns a NodeRef naming source id.
func SourceRef(id int) NodeRef { return NodeRef{Kind: SourceNode, ID: id} }

// QueueRef returns a NodeRef naming queue id.
func QueueRef(id int) NodeRef { return NodeRef{Kind: QueueNode, ID: id} }

// String formats the reference the way run logs and event traces print it.
func (r NodeRef) String() string {
	if r.Kind == SourceNode {
		return fmt.Sprintf("Source %d", r.ID)
	}
	return fmt.Sprintf("Queue %d", r.ID)
}

// Event is an immutable record of one pending state transition: at Time,
// Kind happens at queue Destination, on behalf of Origin. The unexported
// seq is the insertion sequence number assigned by the FutureEventList at
// Schedule time; it breaks timestamp ties deterministically so replays with
// the same seed dispatch in the same order.
type Event struct {
	Time        float64
	Kind        EventKind
	Destination int
	Origin      NodeRef

	seq uint64
}

// Seq returns the insertion sequence number. Zero until scheduled.
func (e Event) Seq() uint64 { return e.seq }

// Before reports whether e precedes other in the dispatch order
// (time ascending, then insertion sequence ascending).
func (e Event) Before(other Event) bool {
	if e.Time != other.Time {
		return e.Time < other.Time
	}
	return e.seq < other.seq
}

// String renders the event in the same shape the processed-event log uses.
func (e Event) String() string {
	return fmt.Sprintf("%s Event at %.5fs, Destination Queue: %d, Origin: %s",
		e.Kind, e.Time, e.Destination, e.Origin)
}
