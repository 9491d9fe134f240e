package sim

import (
	"container/heap"
	"fmt"
)

// eventHeap implements heap.Interface over Events.
// Ordering: time ascending, then insertion sequence ascending, so two runs
// that schedule the same events in the same order also poll them in the
// same order regardless of heap-internal sift behavior.
type eventHeap []Event

func (h eventHeap) Len() int           { return len(h) }
func (h eventHeap) Less(i, j int) bool { return h[i].Before(h[j]) }
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// FutureEventList holds the pending events of a simulation, ordered by
// (time, insertion sequence). It is the sole driver of simulated time:
// the engine's clock only ever advances to the timestamp of the event
// returned by PollEarliest.
type FutureEventList struct {
	heap    eventHeap
	nextSeq uint64
}

// NewFutureEventList returns an empty FutureEventList.
func NewFutureEventList() *FutureEventList {
	return &FutureEventList{heap: make(eventHeap, 0)}
}

// Schedule inserts ev, stamping it with the next insertion sequence number.
// A negative event time would break the monotonic-poll guarantee and is
// rejected as an invariant violation.
func (fel *FutureEventList) Schedule(ev Event) error {
	if ev.Time < 0 {
		return fmt.Errorf("%w: scheduling %s with negative time", ErrInvariantViolation, ev)
	}
	fel.nextSeq++
	ev.seq = fel.nextSeq
	heap.Push(&fel.heap, ev)
	return nil
}

// PollEarliest removes and returns the globally earliest pending event.
// Successive calls return non-decreasing times. Returns ErrEmptyFEL when
// nothing is pending; callers treat that as the natural stop condition.
func (fel *FutureEventList) PollEarliest() (Event, error) {
	if len(fel.heap) == 0 {
		return Event{}, ErrEmptyFEL
	}
	return heap.Pop(&fel.heap).(Event), nil
}

// Peek returns the earliest pending event without removing it.
func (fel *FutureEventList) Peek() (Event, error) {
	if len(fel.heap) == 0 {
		return Event{}, ErrEmptyFEL
	}
	return fel.heap[0], nil
}

// IsEmpty reports whether no events are pending.
func (fel *FutureEventList) IsEmpty() bool { return len(fel.heap) == 0 }

// Len returns the number of pending events.
func (fel *FutureEventList) Len() int { return len(fel.heap) }
