package trace

// LogSummary aggregates outcome counts from an EventLog.
type LogSummary struct {
	TotalRecords   int
	PolledCount    int
	ScheduledCount int
	DroppedCount   int
	PerQueueDrops  map[int]int // destination queue id → dropped arrivals
	EndTime        float64     // time of the last polled record
}

// Summarize computes aggregate statistics from an EventLog.
// Safe for nil or empty logs (returns zero-value fields).
func Summarize(l *EventLog) *LogSummary {
	summary := &LogSummary{
		PerQueueDrops: make(map[int]int),
	}
	if l == nil {
		return summary
	}

	summary.TotalRecords = l.Len()
	for _, r := range l.Records() {
		switch r.Outcome {
		case OutcomePolled:
			summary.PolledCount++
			summary.EndTime = r.Time
		case OutcomeScheduled:
			summary.ScheduledCount++
		case OutcomeDropped:
			summary.DroppedCount++
			summary.PerQueueDrops[r.Destination]++
		}
	}
	return summary
}
