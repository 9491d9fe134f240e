package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/qnetsim/qnetsim/sim/trace"
)

func singleQueueConfig(seed int64, lambda, mu float64, k int, horizon float64) *ScenarioConfig {
	return &ScenarioConfig{
		Seed:    seed,
		Horizon: horizon,
		Queues: []QueueConfig{
			{ID: 0, Name: "Q0", Capacity: k, ServiceRate: mu},
		},
		Sources: []SourceConfig{
			{ID: 0, Rate: lambda, Destination: 0},
		},
	}
}

func TestSimulator_SingleQueue_ConcreteScenario(t *testing.T) {
	// GIVEN a single source (lambda=5/s) feeding one queue (mu=10/s, K=5)
	// with a 1000s horizon and a fixed seed
	cfg := singleQueueConfig(42, 5, 10, 5, 1000)
	s, err := NewSimulator(cfg)
	if err != nil {
		t.Fatalf("NewSimulator: unexpected error %v", err)
	}

	// WHEN the simulation runs to the horizon
	if err := s.Run(); err != nil {
		t.Fatalf("Run: unexpected error %v", err)
	}

	// THEN roughly lambda*horizon packets arrived, some but far fewer than
	// half were dropped, and the conservation law closes the books
	report := s.Report()
	if len(report.Queues) != 1 {
		t.Fatalf("report queues: got %d, want 1", len(report.Queues))
	}
	qr := report.Queues[0]

	if qr.Arrived < 4500 || qr.Arrived > 5500 {
		t.Errorf("arrived: got %d, want ~5000", qr.Arrived)
	}
	if qr.Dropped == 0 {
		t.Error("expected a finite buffer at rho=0.5 to drop at least one packet over 1000s")
	}
	if qr.DropRatio >= 0.5 {
		t.Errorf("drop ratio: got %g, want well below 0.5", qr.DropRatio)
	}

	buffered := qr.Arrived - qr.Transmitted - qr.Dropped
	if buffered != int64(s.Queues[0].Len()) {
		t.Errorf("conservation: arrived-transmitted-dropped=%d, buffer holds %d", buffered, s.Queues[0].Len())
	}
	if buffered < 0 || buffered > int64(s.Queues[0].Capacity) {
		t.Errorf("buffered count %d outside [0, K=%d]", buffered, s.Queues[0].Capacity)
	}
}

func TestSimulator_SingleQueue_TransitTimeMatchesAnalyticModel(t *testing.T) {
	// GIVEN the same lambda=5, mu=10, K=5 queue and its closed-form model
	cfg := singleQueueConfig(42, 5, 10, 5, 1000)
	s, err := NewSimulator(cfg)
	if err != nil {
		t.Fatalf("NewSimulator: unexpected error %v", err)
	}
	model, err := NewMM1K(5, 10, 5)
	if err != nil {
		t.Fatalf("NewMM1K: unexpected error %v", err)
	}

	// WHEN the simulation runs long enough to average out
	if err := s.Run(); err != nil {
		t.Fatalf("Run: unexpected error %v", err)
	}
	qr := s.Report().Queues[0]

	// THEN drop ratio and mean transit track the stationary predictions
	if math.Abs(qr.DropRatio-model.BlockingProbability()) > 0.02 {
		t.Errorf("drop ratio: got %g, analytic blocking %g", qr.DropRatio, model.BlockingProbability())
	}
	want := model.MeanSojourn()
	if math.Abs(qr.AvgTransitTime-want) > 0.15*want {
		t.Errorf("avg transit: got %g, analytic sojourn %g", qr.AvgTransitTime, want)
	}
}

func TestSimulator_StableQueue_LargeK_NoDrops(t *testing.T) {
	// GIVEN lambda < mu and an effectively unbounded buffer
	cfg := singleQueueConfig(7, 5, 10, 1000, 1000)
	s, err := NewSimulator(cfg)
	if err != nil {
		t.Fatalf("NewSimulator: unexpected error %v", err)
	}

	// WHEN the simulation runs
	if err := s.Run(); err != nil {
		t.Fatalf("Run: unexpected error %v", err)
	}
	qr := s.Report().Queues[0]

	// THEN the long-run drop ratio vanishes and the mean transit time
	// approaches the M/M/1 sojourn 1/(mu-lambda) = 0.2s
	if qr.Dropped != 0 {
		t.Errorf("dropped: got %d, want 0 with K=1000 at rho=0.5", qr.Dropped)
	}
	want, err := MM1Sojourn(5, 10)
	if err != nil {
		t.Fatalf("MM1Sojourn: unexpected error %v", err)
	}
	if math.Abs(qr.AvgTransitTime-want) > 0.15*want {
		t.Errorf("avg transit: got %g, want ~%g", qr.AvgTransitTime, want)
	}
}

func TestSimulator_OverloadedQueue_SmallK_HighDropRatio(t *testing.T) {
	// GIVEN lambda=20 against mu=10 and K=3
	cfg := singleQueueConfig(3, 20, 10, 3, 500)
	s, err := NewSimulator(cfg)
	if err != nil {
		t.Fatalf("NewSimulator: unexpected error %v", err)
	}

	// WHEN the simulation runs
	if err := s.Run(); err != nil {
		t.Fatalf("Run: unexpected error %v", err)
	}
	qr := s.Report().Queues[0]

	// THEN the drop ratio sits near the analytic blocking (~0.53 at rho=2)
	if qr.DropRatio < 0.4 || qr.DropRatio > 0.65 {
		t.Errorf("drop ratio: got %g, want ~0.53", qr.DropRatio)
	}
}

func TestSimulator_ChainedQueues_DeparturesBecomeArrivals(t *testing.T) {
	// GIVEN Q0 chained deterministically into Q1, source feeding only Q0
	cfg := &ScenarioConfig{
		Seed:    11,
		Horizon: 200,
		Queues: []QueueConfig{
			{ID: 0, Name: "Q0", Capacity: 100, ServiceRate: 10},
			{ID: 1, Name: "Q1", Capacity: 100, ServiceRate: 10},
		},
		Sources: []SourceConfig{
			{ID: 0, Rate: 5, Destination: 0},
		},
		Routes: []RouteConfig{
			{From: 0, To: []RouteChoice{{Destination: intPtr(1), Weight: 1}}},
		},
	}
	s, err := NewSimulator(cfg)
	if err != nil {
		t.Fatalf("NewSimulator: unexpected error %v", err)
	}

	// WHEN the simulation runs
	if err := s.Run(); err != nil {
		t.Fatalf("Run: unexpected error %v", err)
	}

	// THEN every Q0 departure produced exactly one Q1 arrival
	report := s.Report()
	q0, q1 := report.Queues[0], report.Queues[1]
	if q1.Arrived != q0.Transmitted {
		t.Errorf("Q1 arrived %d, want exactly Q0 transmitted %d", q1.Arrived, q0.Transmitted)
	}
	if q0.Transmitted == 0 {
		t.Error("no packets flowed through the chain")
	}
}

func TestSimulator_EventLog_TimesNonDecreasing(t *testing.T) {
	// GIVEN a completed run
	cfg := singleQueueConfig(42, 5, 10, 5, 50)
	s, err := NewSimulator(cfg)
	if err != nil {
		t.Fatalf("NewSimulator: unexpected error %v", err)
	}
	if err := s.Run(); err != nil {
		t.Fatalf("Run: unexpected error %v", err)
	}

	// WHEN the polled records of the processed-event log are scanned
	last := 0.0
	polled := 0
	for _, r := range s.Log.Records() {
		if r.Outcome != trace.OutcomePolled {
			continue
		}
		// THEN dispatch times never decrease
		if r.Time < last {
			t.Fatalf("event log time went backwards: %g after %g", r.Time, last)
		}
		last = r.Time
		polled++
	}
	if int64(polled) != s.EventsProcessed() {
		t.Errorf("polled records: got %d, want %d processed events", polled, s.EventsProcessed())
	}
	if last > 50 {
		t.Errorf("polled record at %g past the 50s horizon", last)
	}
}

func TestSimulator_MaxEvents_StopsLoop(t *testing.T) {
	// GIVEN a run capped at 100 processed events with no horizon
	cfg := singleQueueConfig(42, 5, 10, 5, 0)
	cfg.MaxEvents = 100
	s, err := NewSimulator(cfg)
	if err != nil {
		t.Fatalf("NewSimulator: unexpected error %v", err)
	}

	// WHEN the simulation runs
	if err := s.Run(); err != nil {
		t.Fatalf("Run: unexpected error %v", err)
	}

	// THEN exactly 100 events were dispatched (live sources never drain
	// the FEL on their own)
	if s.EventsProcessed() != 100 {
		t.Errorf("events processed: got %d, want 100", s.EventsProcessed())
	}
}

func TestSimulator_Report_IdempotentAfterRun(t *testing.T) {
	// GIVEN a completed run
	cfg := singleQueueConfig(42, 5, 10, 5, 100)
	s, err := NewSimulator(cfg)
	if err != nil {
		t.Fatalf("NewSimulator: unexpected error %v", err)
	}
	if err := s.Run(); err != nil {
		t.Fatalf("Run: unexpected error %v", err)
	}

	// WHEN the report is computed twice without further dispatch
	first := s.Report()
	second := s.Report()

	// THEN the aggregates are identical
	if first.EventsProcessed != second.EventsProcessed || first.SimEndTime != second.SimEndTime {
		t.Errorf("run aggregates differ: %+v vs %+v", first, second)
	}
	for i := range first.Queues {
		a, b := first.Queues[i], second.Queues[i]
		if a.Arrived != b.Arrived || a.AvgTransitTime != b.AvgTransitTime || a.P95TransitTime != b.P95TransitTime {
			t.Errorf("queue %d reports differ:\nfirst:  %+v\nsecond: %+v", a.QueueID, a, b)
		}
	}
}

func TestSimulator_RogueDeparture_AbortsRun(t *testing.T) {
	// GIVEN a simulator with a departure injected for an empty queue
	cfg := singleQueueConfig(42, 5, 10, 5, 100)
	s, err := NewSimulator(cfg)
	if err != nil {
		t.Fatalf("NewSimulator: unexpected error %v", err)
	}
	if err := s.FEL.Schedule(Event{Time: 0, Kind: Departure, Destination: 0, Origin: QueueRef(0)}); err != nil {
		t.Fatalf("Schedule: unexpected error %v", err)
	}

	// WHEN the simulation runs
	err = s.Run()

	// THEN the run aborts with an invariant violation instead of
	// silently continuing
	if !errors.Is(err, ErrInvariantViolation) {
		t.Errorf("Run with rogue departure: got %v, want ErrInvariantViolation", err)
	}
}

func TestNewSimulator_InvalidScenario_FailsBeforeRun(t *testing.T) {
	// GIVEN a scenario routing to a queue that does not exist
	cfg := singleQueueConfig(42, 5, 10, 5, 100)
	cfg.Routes = []RouteConfig{
		{From: 0, To: []RouteChoice{{Destination: intPtr(9), Weight: 1}}},
	}

	// WHEN the simulator is constructed
	_, err := NewSimulator(cfg)

	// THEN the topology error surfaces before any simulated time elapses
	if !errors.Is(err, ErrInvalidTopology) {
		t.Errorf("NewSimulator: got %v, want ErrInvalidTopology", err)
	}
}
