package tracing

import (
	"sync"

	"github.com/sarchlab/greenstep/sim"
)

// Names of the events counted by EventCountTracer.
const (
	EventCycle   = "cycle"
	EventFault   = "fault"
	EventRunning = "running"
	EventStopped = "stopped"
)

// EventCountTracer counts how many times each kind of scheduler event
// happened.
type EventCountTracer struct {
	lock       sync.Mutex
	eventNames []string
	eventCount map[string]uint64
}

// NewEventCountTracer creates a new EventCountTracer
func NewEventCountTracer() *EventCountTracer {
	return &EventCountTracer{
		eventCount: make(map[string]uint64),
	}
}

// GetEventNames returns the event names in the order they first happened.
func (t *EventCountTracer) GetEventNames() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	return append([]string(nil), t.eventNames...)
}

// GetEventCount returns how many times an event happened.
func (t *EventCountTracer) GetEventCount(name string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.eventCount[name]
}

// StartCycle does nothing.
func (t *EventCountTracer) StartCycle(_ sim.CycleInfo) {}

// EndCycle counts a completed cycle.
func (t *EventCountTracer) EndCycle(_ sim.CycleInfo) {
	t.count(EventCycle)
}

// Fault counts a fault.
func (t *EventCountTracer) Fault(_ *sim.Fault) {
	t.count(EventFault)
}

// StateChanged counts a state transition.
func (t *EventCountTracer) StateChanged(state sim.State) {
	if state == sim.StateRunning {
		t.count(EventRunning)
		return
	}

	t.count(EventStopped)
}

func (t *EventCountTracer) count(name string) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if _, ok := t.eventCount[name]; !ok {
		t.eventNames = append(t.eventNames, name)
	}

	t.eventCount[name]++
}
