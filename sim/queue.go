package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// packet is the unit held in a queue's buffer. The arrival timestamp is the
// moment the packet entered this queue, used to compute its transit time
// when the matching Departure fires.
type packet struct {
	arrivalTime float64
}

// Queue is a single M/M/1/K node: one server, exponential service at rate
// ServiceRate, bounded FIFO buffer of at most Capacity packets. The buffer
// counts the packet in service, so a Busy queue holds between 1 and
// Capacity packets and an Idle queue holds none.
//
// A Queue never touches the future-event list itself. Its transition
// methods return the Departure event to schedule (if any) and the dispatch
// loop owns all scheduling, keeping time advancement in one place.
type Queue struct {
	ID          int
	Name        string
	Capacity    int
	ServiceRate float64

	sampler *ExpSampler
	buffer  []packet
	busy    bool
}

// NewQueue validates the node parameters and binds the queue to its own
// service-time sampler stream.
func NewQueue(id int, name string, capacity int, serviceRate float64, sampler *ExpSampler) (*Queue, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: queue %d capacity must be >= 1, got %d", ErrInvalidParameter, id, capacity)
	}
	if serviceRate <= 0 {
		return nil, fmt.Errorf("%w: queue %d service rate must be > 0, got %g", ErrInvalidParameter, id, serviceRate)
	}
	if sampler == nil {
		return nil, fmt.Errorf("%w: queue %d has no service-time sampler", ErrInvalidParameter, id)
	}
	if name == "" {
		name = fmt.Sprintf("Queue %d", id)
	}
	return &Queue{
		ID:          id,
		Name:        name,
		Capacity:    capacity,
		ServiceRate: serviceRate,
		sampler:     sampler,
		buffer:      make([]packet, 0, capacity),
	}, nil
}

// OnArrival applies an Arrival at time t.
//
// A full buffer drops the packet: dropped is true and no event is produced.
// Otherwise the packet joins the tail; if the server was idle it starts
// service immediately and the returned event is the packet's Departure at
// t plus a sampled service duration. If the server was already busy a
// Departure for the current head is outstanding and nothing new is
// scheduled.
func (q *Queue) OnArrival(t float64) (dep *Event, dropped bool, err error) {
	if len(q.buffer) == q.Capacity {
		logrus.Debugf("[%.5fs] %s full (K=%d), packet dropped", t, q.Name, q.Capacity)
		return nil, true, nil
	}

	q.buffer = append(q.buffer, packet{arrivalTime: t})
	if q.busy {
		return nil, false, nil
	}

	d, err := q.sampler.Sample(q.ServiceRate)
	if err != nil {
		return nil, false, err
	}
	q.busy = true
	return &Event{
		Time:        t + d,
		Kind:        Departure,
		Destination: q.ID,
		Origin:      QueueRef(q.ID),
	}, false, nil
}

// OnDeparture applies a Departure at time t, completing service of the head
// packet. It returns the packet's transit time (t minus its arrival) and,
// when more packets wait, the Departure event for the new head. A Departure
// against an empty buffer means the engine scheduled an event the state
// machine never asked for; that aborts the run.
func (q *Queue) OnDeparture(t float64) (transit float64, next *Event, err error) {
	if len(q.buffer) == 0 {
		return 0, nil, fmt.Errorf("%w: departure at %.5fs against empty %s", ErrInvariantViolation, t, q.Name)
	}

	head := q.buffer[0]
	q.buffer = q.buffer[1:]
	transit = t - head.arrivalTime

	if len(q.buffer) == 0 {
		q.busy = false
		return transit, nil, nil
	}

	d, err := q.sampler.Sample(q.ServiceRate)
	if err != nil {
		return 0, nil, err
	}
	return transit, &Event{
		Time:        t + d,
		Kind:        Departure,
		Destination: q.ID,
		Origin:      QueueRef(q.ID),
	}, nil
}

// Len returns the number of buffered packets, including the one in service.
func (q *Queue) Len() int { return len(q.buffer) }

// IsBusy reports whether a Departure is outstanding for the current head.
func (q *Queue) IsBusy() bool { return q.busy }
