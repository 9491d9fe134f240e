// Package trace provides the processed-event log produced by a simulation
// run. It has no dependencies on sim/ — it stores pure data types handed to
// external reporting and visualization consumers.
package trace

import "fmt"

// Outcome classifies how an event appears in the processed-event log.
type Outcome string

const (
	// OutcomePolled marks an event the dispatch loop extracted and executed.
	OutcomePolled Outcome = "polled"
	// OutcomeScheduled marks an event newly inserted into the future-event
	// list while another event was being executed.
	OutcomeScheduled Outcome = "scheduled"
	// OutcomeDropped marks an arrival that met a full buffer.
	OutcomeDropped Outcome = "dropped"
)

// Record is one line of the processed-event log.
type Record struct {
	Time        float64
	Kind        string
	Destination int
	Origin      string
	Outcome     Outcome
}

// String renders the record the way run transcripts print it.
func (r Record) String() string {
	return fmt.Sprintf("[Time=%.5f] %s: %s Event, Destination Queue: %d, Origin: %s",
		r.Time, r.Outcome, r.Kind, r.Destination, r.Origin)
}
