package sim

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/qnetsim/qnetsim/sim/trace"
)

// Simulator owns the simulation clock, the future-event list, the node
// arenas and the collectors. It is the single authority over time: nodes
// return the events they want scheduled and only the dispatch loop inserts
// them into the FEL and advances the clock.
//
// Nodes are held in id-indexed arenas rather than holding references to
// each other, so routing cycles in the topology never become ownership
// cycles in memory.
type Simulator struct {
	Clock     float64
	Horizon   float64 // simulated-time cutoff; 0 = unlimited
	MaxEvents int64   // processed-event cap; 0 = unlimited

	FEL     *FutureEventList
	Queues  map[int]*Queue
	Sources map[int]*Source
	Routing *RoutingTable
	Metrics *MetricsCollector
	Log     *trace.EventLog

	RNG        *PartitionedRNG
	routingRNG *rand.Rand

	sourceIDs       []int // iteration order for initial arrivals
	eventsProcessed int64
	ran             bool
}

// NewSimulator builds a Simulator from a validated scenario. All
// InvalidParameter and InvalidTopology conditions surface here, before any
// simulated time elapses.
func NewSimulator(cfg *ScenarioConfig) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rng := NewPartitionedRNG(NewSimulationKey(cfg.Seed))

	batchWindow := cfg.BatchWindow
	switch {
	case batchWindow == 0:
		batchWindow = DefaultBatchWindow
	case batchWindow < 0:
		batchWindow = 0 // disabled
	}
	metrics := NewMetricsCollector(batchWindow)

	queues := make(map[int]*Queue, len(cfg.Queues))
	for _, qc := range cfg.Queues {
		sampler := NewExpSampler(rng.ForSubsystem(SubsystemQueue(qc.ID)))
		q, err := NewQueue(qc.ID, qc.Name, qc.Capacity, qc.ServiceRate, sampler)
		if err != nil {
			return nil, err
		}
		queues[qc.ID] = q
		metrics.RegisterQueue(q.ID, q.Name)
	}

	sources := make(map[int]*Source, len(cfg.Sources))
	sourceIDs := make([]int, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		sampler := NewExpSampler(rng.ForSubsystem(SubsystemSource(sc.ID)))
		var (
			src *Source
			err error
		)
		if sc.Erlangs > 0 {
			src, err = NewSourceFromErlangs(sc.ID, sc.Erlangs, queues[sc.Destination].ServiceRate, sc.Destination, sampler)
		} else {
			src, err = NewSource(sc.ID, sc.Rate, sc.Destination, sampler)
		}
		if err != nil {
			return nil, err
		}
		sources[sc.ID] = src
		sourceIDs = append(sourceIDs, sc.ID)
	}
	sort.Ints(sourceIDs)

	routing, err := cfg.routingTable()
	if err != nil {
		return nil, err
	}

	return &Simulator{
		Horizon:    cfg.Horizon,
		MaxEvents:  cfg.MaxEvents,
		FEL:        NewFutureEventList(),
		Queues:     queues,
		Sources:    sources,
		Routing:    routing,
		Metrics:    metrics,
		Log:        trace.NewEventLog(),
		RNG:        rng,
		routingRNG: rng.ForSubsystem(SubsystemRouting),
		sourceIDs:  sourceIDs,
	}, nil
}

// schedule inserts ev into the FEL and records it in the processed-event
// log with outcome "scheduled".
func (s *Simulator) schedule(ev Event) error {
	if err := s.FEL.Schedule(ev); err != nil {
		return err
	}
	s.Log.Append(trace.Record{
		Time:        s.Clock,
		Kind:        ev.Kind.String(),
		Destination: ev.Destination,
		Origin:      ev.Origin.String(),
		Outcome:     trace.OutcomeScheduled,
	})
	return nil
}

// Run executes the dispatch loop until the FEL empties, the horizon is
// exceeded, or the processed-event cap is reached. An invariant violation
// aborts the run with the offending event wrapped in the error.
func (s *Simulator) Run() error {
	if s.ran {
		return fmt.Errorf("%w: simulator already ran", ErrInvariantViolation)
	}
	s.ran = true

	// Pre-arm every source with its first self-arrival, in id order so
	// equal-seed runs assign identical sequence numbers.
	for _, id := range s.sourceIDs {
		ev, err := s.Sources[id].NextArrival(0)
		if err != nil {
			return err
		}
		if err := s.schedule(ev); err != nil {
			return err
		}
	}

	for !s.FEL.IsEmpty() {
		ev, err := s.FEL.PollEarliest()
		if err != nil {
			break // natural stop
		}
		if s.Horizon > 0 && ev.Time > s.Horizon {
			logrus.Infof("[%.5fs] horizon %.5fs reached", ev.Time, s.Horizon)
			break
		}

		s.Clock = ev.Time
		s.Log.Append(trace.Record{
			Time:        s.Clock,
			Kind:        ev.Kind.String(),
			Destination: ev.Destination,
			Origin:      ev.Origin.String(),
			Outcome:     trace.OutcomePolled,
		})
		logrus.Debugf("[%.5fs] executing %s", s.Clock, ev)

		if err := s.dispatch(ev); err != nil {
			return fmt.Errorf("dispatching %s at clock %.5fs: %w", ev, s.Clock, err)
		}

		s.eventsProcessed++
		if s.MaxEvents > 0 && s.eventsProcessed >= s.MaxEvents {
			logrus.Infof("[%.5fs] event cap %d reached", s.Clock, s.MaxEvents)
			break
		}
	}

	logrus.Infof("[%.5fs] simulation ended after %d events", s.Clock, s.eventsProcessed)
	return nil
}

// dispatch applies one polled event to its owning node and schedules the
// follow-on events the node and the routing table produce.
func (s *Simulator) dispatch(ev Event) error {
	switch ev.Kind {
	case Arrival:
		return s.dispatchArrival(ev)
	case Departure:
		return s.dispatchDeparture(ev)
	default:
		return fmt.Errorf("%w: unknown event kind %d", ErrInvariantViolation, ev.Kind)
	}
}

func (s *Simulator) dispatchArrival(ev Event) error {
	q, ok := s.Queues[ev.Destination]
	if !ok {
		return fmt.Errorf("%w: arrival for unknown queue %d", ErrInvariantViolation, ev.Destination)
	}

	s.Metrics.RecordArrival(q.ID)
	dep, dropped, err := q.OnArrival(ev.Time)
	if err != nil {
		return err
	}
	if dropped {
		s.Metrics.RecordDrop(q.ID)
		s.Log.Append(trace.Record{
			Time:        s.Clock,
			Kind:        ev.Kind.String(),
			Destination: ev.Destination,
			Origin:      ev.Origin.String(),
			Outcome:     trace.OutcomeDropped,
		})
	}
	if dep != nil {
		if err := s.schedule(*dep); err != nil {
			return err
		}
	}

	// An arrival from a source re-arms that source: the engine, not the
	// source, decides when the next self-arrival enters the FEL.
	if ev.Origin.Kind == SourceNode {
		src, ok := s.Sources[ev.Origin.ID]
		if !ok {
			return fmt.Errorf("%w: arrival from unknown source %d", ErrInvariantViolation, ev.Origin.ID)
		}
		next, err := src.NextArrival(s.Clock)
		if err != nil {
			return err
		}
		if err := s.schedule(next); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulator) dispatchDeparture(ev Event) error {
	q, ok := s.Queues[ev.Destination]
	if !ok {
		return fmt.Errorf("%w: departure for unknown queue %d", ErrInvariantViolation, ev.Destination)
	}

	transit, next, err := q.OnDeparture(ev.Time)
	if err != nil {
		return err
	}
	s.Metrics.RecordDeparture(q.ID, transit)

	if next != nil {
		if err := s.schedule(*next); err != nil {
			return err
		}
	}

	// Forward the departed packet downstream; packets routed to the sink
	// simply leave the network.
	if route, ok := s.Routing.Resolve(q.ID, s.routingRNG); ok && route.Destination != SinkID {
		arr := Event{
			Time:        s.Clock + route.Delay,
			Kind:        Arrival,
			Destination: route.Destination,
			Origin:      QueueRef(q.ID),
		}
		if err := s.schedule(arr); err != nil {
			return err
		}
	}
	return nil
}

// EventsProcessed returns the number of polled events dispatched so far.
func (s *Simulator) EventsProcessed() int64 { return s.eventsProcessed }

// RunReport bundles the final aggregates of a completed run.
type RunReport struct {
	Queues          []QueueReport
	EventsProcessed int64
	SimEndTime      float64
}

// Report returns the final aggregates. Calling it repeatedly after run
// completion yields identical results.
func (s *Simulator) Report() RunReport {
	end := s.Clock
	if s.Horizon > 0 {
		end = math.Min(end, s.Horizon)
	}
	return RunReport{
		Queues:          s.Metrics.Report(),
		EventsProcessed: s.eventsProcessed,
		SimEndTime:      end,
	}
}

// Print displays the report in the run transcript format.
func (r RunReport) Print() {
	fmt.Println("=== Simulation Report ===")
	fmt.Printf("Events Processed     : %d\n", r.EventsProcessed)
	fmt.Printf("Simulated Time (s)   : %.5f\n", r.SimEndTime)
	for _, qr := range r.Queues {
		qr.Print()
	}
}
