package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultBatchWindow is the batch-statistics window applied when a scenario
// leaves batch_window unset. A negative batch_window disables batch
// statistics entirely.
const DefaultBatchWindow = 5000

// QueueConfig declares one M/M/1/K node.
type QueueConfig struct {
	ID          int     `yaml:"id"`
	Name        string  `yaml:"name,omitempty"`
	Capacity    int     `yaml:"capacity"`
	ServiceRate float64 `yaml:"service_rate"`
}

// SourceConfig declares one Poisson source. Exactly one of Rate (arrivals
// per second) or Erlangs (offered load relative to the destination queue's
// service rate) must be set.
type SourceConfig struct {
	ID          int     `yaml:"id"`
	Rate        float64 `yaml:"rate,omitempty"`
	Erlangs     float64 `yaml:"erlangs,omitempty"`
	Destination int     `yaml:"destination"`
}

// RouteChoice is one weighted downstream option of a routing entry.
// Destination is a pointer so queue id 0 and "absent" stay distinguishable;
// set Sink instead to route packets out of the network.
type RouteChoice struct {
	Destination *int    `yaml:"destination,omitempty"`
	Sink        bool    `yaml:"sink,omitempty"`
	Weight      float64 `yaml:"weight,omitempty"`
	Delay       float64 `yaml:"delay,omitempty"`
}

// RouteConfig lists the downstream choices for departures from one queue.
type RouteConfig struct {
	From int           `yaml:"from"`
	To   []RouteChoice `yaml:"to"`
}

// ScenarioConfig is the top-level simulation scenario.
// Loaded from YAML via LoadScenario(path).
type ScenarioConfig struct {
	Seed        int64          `yaml:"seed"`
	Horizon     float64        `yaml:"horizon,omitempty"`     // simulated seconds; 0 = unlimited
	MaxEvents   int64          `yaml:"max_events,omitempty"`  // processed-event cap; 0 = unlimited
	BatchWindow int            `yaml:"batch_window,omitempty"`
	Queues      []QueueConfig  `yaml:"queues"`
	Sources     []SourceConfig `yaml:"sources"`
	Routes      []RouteConfig  `yaml:"routes,omitempty"`
}

// LoadScenario reads and validates a YAML scenario file.
func LoadScenario(path string) (*ScenarioConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %s: %w", path, err)
	}
	var cfg ScenarioConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects every InvalidParameter and InvalidTopology condition
// that can be checked without constructing the simulator: duplicate or
// dangling ids, non-positive rates and capacities, malformed route entries.
// Weight sums and zero-delay cycles are checked by NewRoutingTable.
func (cfg *ScenarioConfig) Validate() error {
	if len(cfg.Queues) == 0 {
		return fmt.Errorf("%w: scenario declares no queues", ErrInvalidTopology)
	}
	if len(cfg.Sources) == 0 {
		return fmt.Errorf("%w: scenario declares no sources", ErrInvalidTopology)
	}
	if cfg.Horizon < 0 {
		return fmt.Errorf("%w: horizon must be >= 0, got %g", ErrInvalidParameter, cfg.Horizon)
	}
	if cfg.MaxEvents < 0 {
		return fmt.Errorf("%w: max_events must be >= 0, got %d", ErrInvalidParameter, cfg.MaxEvents)
	}

	queueIDs := make(map[int]bool, len(cfg.Queues))
	for _, qc := range cfg.Queues {
		if queueIDs[qc.ID] {
			return fmt.Errorf("%w: duplicate queue id %d", ErrInvalidTopology, qc.ID)
		}
		queueIDs[qc.ID] = true
		if qc.Capacity < 1 {
			return fmt.Errorf("%w: queue %d capacity must be >= 1, got %d", ErrInvalidParameter, qc.ID, qc.Capacity)
		}
		if qc.ServiceRate <= 0 {
			return fmt.Errorf("%w: queue %d service_rate must be > 0, got %g", ErrInvalidParameter, qc.ID, qc.ServiceRate)
		}
	}

	sourceIDs := make(map[int]bool, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		if sourceIDs[sc.ID] {
			return fmt.Errorf("%w: duplicate source id %d", ErrInvalidTopology, sc.ID)
		}
		sourceIDs[sc.ID] = true
		if sc.Rate > 0 && sc.Erlangs > 0 {
			return fmt.Errorf("%w: source %d sets both rate and erlangs", ErrInvalidParameter, sc.ID)
		}
		if sc.Rate <= 0 && sc.Erlangs <= 0 {
			return fmt.Errorf("%w: source %d must set rate or erlangs", ErrInvalidParameter, sc.ID)
		}
		if !queueIDs[sc.Destination] {
			return fmt.Errorf("%w: source %d feeds unknown queue %d", ErrInvalidTopology, sc.ID, sc.Destination)
		}
	}

	routeFroms := make(map[int]bool, len(cfg.Routes))
	for _, rc := range cfg.Routes {
		if routeFroms[rc.From] {
			return fmt.Errorf("%w: duplicate route entry for queue %d", ErrInvalidTopology, rc.From)
		}
		routeFroms[rc.From] = true
		if len(rc.To) == 0 {
			return fmt.Errorf("%w: route from queue %d has no choices (omit the entry to route to the sink)", ErrInvalidTopology, rc.From)
		}
		for _, tc := range rc.To {
			if tc.Sink && tc.Destination != nil {
				return fmt.Errorf("%w: route from queue %d sets both sink and destination", ErrInvalidParameter, rc.From)
			}
			if !tc.Sink && tc.Destination == nil {
				return fmt.Errorf("%w: route from queue %d has a choice with neither sink nor destination", ErrInvalidParameter, rc.From)
			}
		}
	}
	return nil
}

// routingTable converts the scenario's route entries into a validated
// RoutingTable. A single-choice entry with the weight left unset defaults
// to weight 1.
func (cfg *ScenarioConfig) routingTable() (*RoutingTable, error) {
	queueIDs := make([]int, 0, len(cfg.Queues))
	for _, qc := range cfg.Queues {
		queueIDs = append(queueIDs, qc.ID)
	}

	routes := make(map[int][]Route, len(cfg.Routes))
	for _, rc := range cfg.Routes {
		rts := make([]Route, 0, len(rc.To))
		for _, tc := range rc.To {
			dest := SinkID
			if !tc.Sink {
				dest = *tc.Destination
			}
			weight := tc.Weight
			if weight == 0 && len(rc.To) == 1 {
				weight = 1
			}
			rts = append(rts, Route{Destination: dest, Weight: weight, Delay: tc.Delay})
		}
		routes[rc.From] = rts
	}
	return NewRoutingTable(routes, queueIDs)
}
