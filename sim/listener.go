package sim

import "sync"

// EventType tells what happened to a simulation.
type EventType int

// Event types delivered to listeners.
const (
	EventStarted EventType = iota
	EventStopped
	EventSpeedChanged
	EventNewAct
)

func (t EventType) String() string {
	switch t {
	case EventStarted:
		return "Started"
	case EventStopped:
		return "Stopped"
	case EventSpeedChanged:
		return "SpeedChanged"
	case EventNewAct:
		return "NewAct"
	default:
		return "Unknown"
	}
}

// An Event is a notification about a scheduler state change.
type Event struct {
	Type      EventType
	Scheduler *Scheduler
}

// A Listener is notified of scheduler events. Listeners are called
// synchronously on the goroutine that caused the event.
type Listener interface {
	SimulationChanged(evt Event)
}

type listenerList struct {
	lock      sync.Mutex
	listeners []Listener
}

func (l *listenerList) add(listener Listener) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.listeners = append(l.listeners, listener)
}

func (l *listenerList) remove(listener Listener) {
	l.lock.Lock()
	defer l.lock.Unlock()

	for i, existing := range l.listeners {
		if existing == listener {
			l.listeners = append(l.listeners[:i:i], l.listeners[i+1:]...)
			return
		}
	}
}

func (l *listenerList) notify(evt Event) {
	l.lock.Lock()
	listeners := make([]Listener, len(l.listeners))
	copy(listeners, l.listeners)
	l.lock.Unlock()

	for _, listener := range listeners {
		listener.SimulationChanged(evt)
	}
}
