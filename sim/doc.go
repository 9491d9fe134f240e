// Package sim provides a discrete-event simulation core for networks of
// finite-capacity M/M/1/K queues fed by Poisson sources.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - event.go: the tagged Arrival/Departure event record and its total order
//   - fel.go: the future-event list driving simulated time
//   - simulator.go: the dispatch loop, node arenas, and stop conditions
//
// # Architecture
//
// Nodes never talk to each other directly. A Queue or Source transition
// returns the events it wants scheduled; the Simulator inserts them into
// the FutureEventList, advances the clock, and records everything in the
// sim/trace processed-event log. All randomness flows through a
// PartitionedRNG owned by the Simulator, one stream per node, so runs with
// equal seeds and scenarios replay identically.
//
// The closed-form model in analytic.go predicts long-run drop ratios and
// sojourn times for single queues and backs the simulation's statistical
// sanity checks.
package sim
