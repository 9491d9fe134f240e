package sim

import "fmt"

// Source is an unbounded Poisson traffic generator bound to one destination
// queue. It never terminates on its own: each dispatched arrival prompts the
// engine to call NextArrival again, so the source is silenced only by the
// run's stopping condition.
type Source struct {
	ID          int
	Rate        float64 // arrivals per second (lambda)
	Destination int     // destination queue id

	sampler *ExpSampler
}

// NewSource validates the arrival rate and binds the source to its own
// inter-arrival sampler stream.
func NewSource(id int, rate float64, destination int, sampler *ExpSampler) (*Source, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("%w: source %d arrival rate must be > 0, got %g", ErrInvalidParameter, id, rate)
	}
	if sampler == nil {
		return nil, fmt.Errorf("%w: source %d has no inter-arrival sampler", ErrInvalidParameter, id)
	}
	return &Source{ID: id, Rate: rate, Destination: destination, sampler: sampler}, nil
}

// NewSourceFromErlangs builds a source whose offered load is expressed in
// erlangs relative to the destination queue's service rate: lambda equals
// erlangs times serviceRate.
func NewSourceFromErlangs(id int, erlangs, serviceRate float64, destination int, sampler *ExpSampler) (*Source, error) {
	if erlangs <= 0 {
		return nil, fmt.Errorf("%w: source %d erlangs must be > 0, got %g", ErrInvalidParameter, id, erlangs)
	}
	if serviceRate <= 0 {
		return nil, fmt.Errorf("%w: source %d service rate must be > 0, got %g", ErrInvalidParameter, id, serviceRate)
	}
	return NewSource(id, erlangs*serviceRate, destination, sampler)
}

// NextArrival samples the next inter-arrival duration and returns the
// Arrival event for it. This is a pure transition over the source's own
// RNG stream; the dispatch loop decides when to call it and owns the
// resulting event's insertion into the FEL.
func (s *Source) NextArrival(now float64) (Event, error) {
	d, err := s.sampler.Sample(s.Rate)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Time:        now + d,
		Kind:        Arrival,
		Destination: s.Destination,
		Origin:      SourceRef(s.ID),
	}, nil
}
