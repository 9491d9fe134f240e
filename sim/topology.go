package sim

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// SinkID is the destination marker for packets that leave the network.
const SinkID = -1

// weightTolerance bounds how far a queue's route weights may drift from 1.
const weightTolerance = 1e-9

// Route is one weighted downstream choice for a departing packet:
// a destination queue (or SinkID), the probability of taking it, and an
// optional propagation delay in seconds (0 = instantaneous hop, the
// default).
type Route struct {
	Destination int
	Weight      float64
	Delay       float64
}

// RoutingTable maps each queue id to its weighted downstream routes.
// Queues with no entry route every departure to the sink. The table is
// immutable after construction; Resolve is the only runtime operation.
type RoutingTable struct {
	routes map[int][]Route
}

// NewRoutingTable validates routes against the set of known queue ids and
// returns the table. Rejected at load time, before any simulated time
// elapses:
//   - a route from or to a queue id that does not exist,
//   - non-positive weights, or weights not summing to 1 within tolerance,
//   - negative delays,
//   - a routing cycle all of whose hops are zero-delay (such a cycle would
//     let a packet loop forever within one simulated instant).
func NewRoutingTable(routes map[int][]Route, queueIDs []int) (*RoutingTable, error) {
	known := make(map[int]bool, len(queueIDs))
	for _, id := range queueIDs {
		known[id] = true
	}

	for from, rts := range routes {
		if !known[from] {
			return nil, fmt.Errorf("%w: route from unknown queue %d", ErrInvalidTopology, from)
		}
		if len(rts) == 0 {
			return nil, fmt.Errorf("%w: queue %d has an empty route list (omit the entry to route to the sink)", ErrInvalidTopology, from)
		}
		var sum float64
		for _, rt := range rts {
			if rt.Destination != SinkID && !known[rt.Destination] {
				return nil, fmt.Errorf("%w: queue %d routes to unknown queue %d", ErrInvalidTopology, from, rt.Destination)
			}
			if rt.Weight <= 0 {
				return nil, fmt.Errorf("%w: queue %d route weight must be > 0, got %g", ErrInvalidParameter, from, rt.Weight)
			}
			if rt.Delay < 0 {
				return nil, fmt.Errorf("%w: queue %d route delay must be >= 0, got %g", ErrInvalidParameter, from, rt.Delay)
			}
			sum += rt.Weight
		}
		if math.Abs(sum-1) > weightTolerance {
			return nil, fmt.Errorf("%w: queue %d route weights sum to %g, want 1", ErrInvalidParameter, from, sum)
		}
	}

	if err := checkZeroDelayCycles(routes); err != nil {
		return nil, err
	}

	return &RoutingTable{routes: routes}, nil
}

// checkZeroDelayCycles scans the subgraph of zero-delay inter-queue hops
// for directed cycles, using Tarjan's strongly connected components.
func checkZeroDelayCycles(routes map[int][]Route) error {
	g := simple.NewDirectedGraph()
	for from, rts := range routes {
		for _, rt := range rts {
			if rt.Destination == SinkID || rt.Delay > 0 {
				continue
			}
			if rt.Destination == from {
				return fmt.Errorf("%w: queue %d has a zero-delay route to itself", ErrInvalidTopology, from)
			}
			u := simple.Node(int64(from))
			v := simple.Node(int64(rt.Destination))
			if g.Node(u.ID()) == nil {
				g.AddNode(u)
			}
			if g.Node(v.ID()) == nil {
				g.AddNode(v)
			}
			g.SetEdge(g.NewEdge(u, v))
		}
	}

	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) > 1 {
			ids := make([]int, 0, len(scc))
			for _, n := range scc {
				ids = append(ids, int(n.ID()))
			}
			sort.Ints(ids)
			return fmt.Errorf("%w: zero-delay routing cycle through queues %v", ErrInvalidTopology, ids)
		}
	}
	return nil
}

// Resolve picks the downstream route for one packet departing queueID.
// A single uniform draw selects among the weighted routes; a single-entry
// list is the deterministic special case and consumes no randomness.
// ok is false when the queue has no routing entry, meaning the packet
// exits to the sink.
func (rt *RoutingTable) Resolve(queueID int, rng *rand.Rand) (route Route, ok bool) {
	rts := rt.routes[queueID]
	if len(rts) == 0 {
		return Route{}, false
	}
	if len(rts) == 1 {
		return rts[0], true
	}

	u := rng.Float64()
	var cum float64
	for _, r := range rts {
		cum += r.Weight
		if u < cum {
			return r, true
		}
	}
	// Weights sum to 1 within tolerance; a draw past the last cumulative
	// bound lands on the final route.
	return rts[len(rts)-1], true
}

// Routes returns the route list configured for queueID (nil if none).
func (rt *RoutingTable) Routes(queueID int) []Route {
	return rt.routes[queueID]
}
