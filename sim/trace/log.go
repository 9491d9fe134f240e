package trace

// EventLog is the append-only processed-event log of a run. Records are
// appended in dispatch order, so the Time fields of polled records are
// non-decreasing and equal-time records preserve scheduling sequence.
type EventLog struct {
	records []Record
}

// NewEventLog returns an empty log.
func NewEventLog() *EventLog {
	return &EventLog{records: make([]Record, 0)}
}

// Append adds a record to the log.
func (l *EventLog) Append(r Record) {
	l.records = append(l.records, r)
}

// Records returns the log contents in append order. The returned slice is
// the log's internal storage; callers must not modify it.
func (l *EventLog) Records() []Record {
	return l.records
}

// Len returns the number of records.
func (l *EventLog) Len() int {
	return len(l.records)
}
