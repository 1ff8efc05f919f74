package sim

import "sync"

// An Actor is a unit of simulated behavior. The scheduler calls Act exactly
// once per step cycle.
type Actor interface {
	// Act performs one step of behavior. Act may add or remove actors from
	// the world it lives in; such changes are visible from the next cycle.
	Act()
}

// A World owns the actors that the scheduler steps.
type World interface {
	// Actors returns a copy of the actor collection in act order. The
	// scheduler calls Actors while holding the lock returned by WorldLock.
	Actors() []Actor

	// WorldLock returns the lock that guards the actor collection.
	WorldLock() sync.Locker
}

// WorldActor is a World that also acts once per cycle, before its actors.
type WorldActor interface {
	Act()
}

// WorldStarter is a World that wants to know when the simulation starts
// running.
type WorldStarter interface {
	Started()
}

// WorldStopper is a World that wants to know when the simulation stops.
type WorldStopper interface {
	Stopped()
}

// Membership is a World that can tell whether an actor still belongs to it.
// When a world implements Membership, actors removed earlier in a cycle are
// not stepped for the rest of that cycle.
type Membership interface {
	Contains(a Actor) bool
}

// A RenderTarget draws the world. Repaint only schedules a redraw and must
// not block on the drawing itself.
type RenderTarget interface {
	Repaint()
}

func snapshot(w World) []Actor {
	lock := w.WorldLock()
	lock.Lock()
	defer lock.Unlock()

	return w.Actors()
}
