package sim

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// queueStats holds the per-queue counters and timing sums the collector
// accumulates as events are processed.
//
// Conservation invariant at any simulation instant:
// arrived == transmitted + dropped + currently buffered.
type queueStats struct {
	name        string
	arrived     int64
	dropped     int64
	transmitted int64
	transitSum  float64
	transits    []float64

	// Batch-window accounting: a mean transit time is emitted every
	// batchWindow transmitted packets, a loss ratio every batchWindow
	// offered packets.
	windowTransit     float64
	windowTransmitted int64
	windowOffered     int64
	windowDropped     int64
	batchMeans        []float64
	lossRatios        []float64
}

// MetricsCollector accumulates per-queue counters during a run and exposes
// aggregate statistics afterwards. It is owned by the Simulator and mutated
// only from the dispatch loop.
type MetricsCollector struct {
	batchWindow int
	stats       map[int]*queueStats
}

// NewMetricsCollector creates a collector. batchWindow sets how many
// packets make up one batch-statistics window; 0 or negative disables
// batch statistics.
func NewMetricsCollector(batchWindow int) *MetricsCollector {
	return &MetricsCollector{
		batchWindow: batchWindow,
		stats:       make(map[int]*queueStats),
	}
}

// RegisterQueue makes the collector track queueID under the given name.
// Registration at topology-load time guarantees every queue appears in the
// report even if no packet ever reaches it.
func (m *MetricsCollector) RegisterQueue(queueID int, name string) {
	m.stats[queueID] = &queueStats{name: name}
}

func (m *MetricsCollector) get(queueID int) *queueStats {
	qs, ok := m.stats[queueID]
	if !ok {
		qs = &queueStats{name: fmt.Sprintf("Queue %d", queueID)}
		m.stats[queueID] = qs
	}
	return qs
}

// RecordArrival counts one packet offered to queueID, accepted or not.
func (m *MetricsCollector) RecordArrival(queueID int) {
	qs := m.get(queueID)
	qs.arrived++
	qs.windowOffered++
	if m.batchWindow > 0 && qs.windowOffered == int64(m.batchWindow) {
		qs.lossRatios = append(qs.lossRatios, float64(qs.windowDropped)/float64(m.batchWindow))
		qs.windowOffered = 0
		qs.windowDropped = 0
	}
}

// RecordDrop counts one packet dropped by queueID's full buffer.
func (m *MetricsCollector) RecordDrop(queueID int) {
	qs := m.get(queueID)
	qs.dropped++
	qs.windowDropped++
}

// RecordDeparture counts one packet transmitted by queueID and accumulates
// its transit time (departure minus arrival at this queue).
func (m *MetricsCollector) RecordDeparture(queueID int, transit float64) {
	qs := m.get(queueID)
	qs.transmitted++
	qs.transitSum += transit
	qs.transits = append(qs.transits, transit)
	qs.windowTransit += transit
	qs.windowTransmitted++
	if m.batchWindow > 0 && qs.windowTransmitted == int64(m.batchWindow) {
		qs.batchMeans = append(qs.batchMeans, qs.windowTransit/float64(m.batchWindow))
		qs.windowTransit = 0
		qs.windowTransmitted = 0
	}
}

// Buffered returns arrived - transmitted - dropped for queueID, i.e. the
// number of packets the conservation law says must currently sit in its
// buffer.
func (m *MetricsCollector) Buffered(queueID int) int64 {
	qs := m.get(queueID)
	return qs.arrived - qs.transmitted - qs.dropped
}

// QueueReport is the per-queue slice of the final report.
type QueueReport struct {
	QueueID        int
	Name           string
	Arrived        int64
	Transmitted    int64
	Dropped        int64
	DropRatio      float64
	AvgTransitTime float64 // seconds
	P50TransitTime float64 // seconds
	P95TransitTime float64 // seconds
	BatchMeans     []float64
	LossRatios     []float64
}

// Report computes the per-queue aggregates, ordered by queue id. Zero
// denominators (no packets arrived or transmitted) report as zero. The
// method reads collector state without mutating it, so repeated calls
// after run completion yield identical results.
func (m *MetricsCollector) Report() []QueueReport {
	ids := make([]int, 0, len(m.stats))
	for id := range m.stats {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	reports := make([]QueueReport, 0, len(ids))
	for _, id := range ids {
		qs := m.stats[id]
		qr := QueueReport{
			QueueID:     id,
			Name:        qs.name,
			Arrived:     qs.arrived,
			Transmitted: qs.transmitted,
			Dropped:     qs.dropped,
			BatchMeans:  append([]float64(nil), qs.batchMeans...),
			LossRatios:  append([]float64(nil), qs.lossRatios...),
		}
		if qs.arrived > 0 {
			qr.DropRatio = float64(qs.dropped) / float64(qs.arrived)
		}
		if qs.transmitted > 0 {
			qr.AvgTransitTime = qs.transitSum / float64(qs.transmitted)
			sorted := append([]float64(nil), qs.transits...)
			sort.Float64s(sorted)
			qr.P50TransitTime = stat.Quantile(0.5, stat.Empirical, sorted, nil)
			qr.P95TransitTime = stat.Quantile(0.95, stat.Empirical, sorted, nil)
		}
		reports = append(reports, qr)
	}
	return reports
}

// Print displays one queue's aggregates in the run transcript format.
// Times are converted to milliseconds for readability.
func (qr QueueReport) Print() {
	fmt.Printf("------------- %s -------------\n", qr.Name)
	fmt.Printf("Packets Arrived      : %d\n", qr.Arrived)
	fmt.Printf("Packets Transmitted  : %d\n", qr.Transmitted)
	fmt.Printf("Packets Dropped      : %d\n", qr.Dropped)
	fmt.Printf("Dropped Ratio        : %.5f\n", qr.DropRatio)
	fmt.Printf("Avg Transit Time (ms): %.5f\n", qr.AvgTransitTime*1000)
	fmt.Printf("P50 Transit Time (ms): %.5f\n", qr.P50TransitTime*1000)
	fmt.Printf("P95 Transit Time (ms): %.5f\n", qr.P95TransitTime*1000)
}
