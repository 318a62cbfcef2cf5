package pipeline

import (
	"sync"
	"time"
)

// EventType classifies messages handed to the interactive goroutine.
type EventType string

const (
	EventTypeStatus  EventType = "status"
	EventTypeResult  EventType = "result"
	EventTypeFailure EventType = "failure"
)

// Event is a sequenced notification. Exactly one of Status, Result and
// Failure is set, matching Type.
type Event struct {
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Status    *Status   `json:"status,omitempty"`
	Result    *Result   `json:"result,omitempty"`
	Failure   *Failure  `json:"failure,omitempty"`
}

// Dispatcher is a Notifier that queues events for the interactive goroutine.
//
// Publishing never blocks the worker. The consumer waits on Ready and then
// calls Drain, which returns every pending event in publication order.
type Dispatcher struct {
	mu      sync.Mutex
	nextSeq int64
	pending []Event
	ready   chan struct{}
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{ready: make(chan struct{}, 1)}
}

// StatusChanged implements Notifier.
func (d *Dispatcher) StatusChanged(message string, severity Severity) {
	d.publish(Event{Type: EventTypeStatus, Status: &Status{Message: message, Severity: severity}})
}

// ResultReady implements Notifier.
func (d *Dispatcher) ResultReady(result Result) {
	d.publish(Event{Type: EventTypeResult, Result: &result})
}

// Failed implements Notifier.
func (d *Dispatcher) Failed(failure Failure) {
	d.publish(Event{Type: EventTypeFailure, Failure: &failure})
}

// publish appends one event and assigns sequence and timestamp.
func (d *Dispatcher) publish(event Event) Event {
	d.mu.Lock()
	d.nextSeq++
	event.Seq = d.nextSeq
	event.Timestamp = time.Now().UTC()
	d.pending = append(d.pending, event)
	d.mu.Unlock()

	select {
	case d.ready <- struct{}{}:
	default:
	}
	return event
}

// Ready is signaled when at least one event is pending. Several publications
// may collapse into a single signal.
func (d *Dispatcher) Ready() <-chan struct{} {
	return d.ready
}

// Drain removes and returns all pending events.
func (d *Dispatcher) Drain() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.pending) == 0 {
		return nil
	}
	out := d.pending
	d.pending = nil
	return out
}
