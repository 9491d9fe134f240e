package sim

import (
	"fmt"
	"math"
)

// MM1K is the closed-form M/M/1/K model: Poisson arrivals at Lambda,
// exponential service at Mu, one server, at most K packets in the system.
// It serves as the analytic oracle for long-run simulation results —
// blocking probability predicts the drop ratio, expected sojourn predicts
// the average transit time.
type MM1K struct {
	Lambda float64
	Mu     float64
	K      int

	rho float64
	p   []float64 // state probabilities p[0..K]
}

// NewMM1K solves the model for the given parameters.
func NewMM1K(lambda, mu float64, k int) (*MM1K, error) {
	if lambda <= 0 {
		return nil, fmt.Errorf("%w: lambda must be > 0, got %g", ErrInvalidParameter, lambda)
	}
	if mu <= 0 {
		return nil, fmt.Errorf("%w: mu must be > 0, got %g", ErrInvalidParameter, mu)
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: K must be >= 1, got %d", ErrInvalidParameter, k)
	}

	m := &MM1K{Lambda: lambda, Mu: mu, K: k, rho: lambda / mu}
	m.solve()
	return m, nil
}

// solve computes the stationary state probabilities
// p[i] = p[0] * rho^i, with p[0] normalizing the truncated geometric.
func (m *MM1K) solve() {
	m.p = make([]float64, m.K+1)
	var p0 float64
	if m.rho == 1 {
		p0 = 1 / float64(m.K+1)
	} else {
		p0 = (1 - m.rho) / (1 - math.Pow(m.rho, float64(m.K+1)))
	}
	for i := 0; i <= m.K; i++ {
		m.p[i] = p0 * math.Pow(m.rho, float64(i))
	}
}

// Rho returns the offered utilization lambda/mu.
func (m *MM1K) Rho() float64 { return m.rho }

// StateProbabilities returns the stationary distribution p[0..K].
func (m *MM1K) StateProbabilities() []float64 {
	return append([]float64(nil), m.p...)
}

// BlockingProbability returns p[K], the long-run fraction of arrivals that
// find the buffer full and are dropped.
func (m *MM1K) BlockingProbability() float64 {
	return m.p[m.K]
}

// Throughput returns the effective departure rate lambda * (1 - p[K]).
func (m *MM1K) Throughput() float64 {
	return m.Lambda * (1 - m.p[m.K])
}

// MeanInSystem returns the expected number of packets in the system.
func (m *MM1K) MeanInSystem() float64 {
	var l float64
	for i := 0; i <= m.K; i++ {
		l += float64(i) * m.p[i]
	}
	return l
}

// MeanSojourn returns the expected time an accepted packet spends in the
// system, by Little's law over the effective throughput.
func (m *MM1K) MeanSojourn() float64 {
	return m.MeanInSystem() / m.Throughput()
}

// MM1Sojourn returns the expected sojourn time 1/(mu-lambda) of the
// infinite-buffer M/M/1 queue. Only defined for lambda < mu.
func MM1Sojourn(lambda, mu float64) (float64, error) {
	if lambda <= 0 || mu <= 0 {
		return 0, fmt.Errorf("%w: rates must be > 0, got lambda=%g mu=%g", ErrInvalidParameter, lambda, mu)
	}
	if lambda >= mu {
		return 0, fmt.Errorf("%w: M/M/1 sojourn requires lambda < mu, got lambda=%g mu=%g", ErrInvalidParameter, lambda, mu)
	}
	return 1 / (mu - lambda), nil
}
