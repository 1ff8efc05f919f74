// Package world provides the default World implementation: an ordered actor
// registry with grid geometry.
package world

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/sarchlab/greenstep/sim"
)

// ErrActorNotInWorld is returned when an operation needs an actor that is not
// part of the world.
var ErrActorNotInWorld = errors.New("actor is not in the world")

// AddedToWorldNotifier is an actor that wants to know when it is added to a
// world.
type AddedToWorldNotifier interface {
	AddedToWorld(w *ActorWorld)
}

type placement struct {
	x, y int
}

// An ActorWorld is a grid of cells that holds actors.
//
// Embed *ActorWorld in a struct to give a world its own Act, Started or
// Stopped behavior.
type ActorWorld struct {
	lock sync.Mutex

	width    int
	height   int
	cellSize int
	bounded  bool

	actors   *orderedmap.OrderedMap[sim.Actor, *placement]
	actOrder []reflect.Type
}

// New creates a bounded world. Actors cannot leave its area.
func New(width, height, cellSize int) *ActorWorld {
	return newWorld(width, height, cellSize, true)
}

// NewUnbounded creates a world whose actors may move outside its area.
func NewUnbounded(width, height, cellSize int) *ActorWorld {
	return newWorld(width, height, cellSize, false)
}

func newWorld(width, height, cellSize int, bounded bool) *ActorWorld {
	if width <= 0 || height <= 0 || cellSize <= 0 {
		panic(fmt.Sprintf("world: invalid geometry %dx%d, cell size %d",
			width, height, cellSize))
	}

	return &ActorWorld{
		width:    width,
		height:   height,
		cellSize: cellSize,
		bounded:  bounded,
		actors:   orderedmap.NewOrderedMap[sim.Actor, *placement](),
	}
}

// Width returns the width of the world in cells.
func (w *ActorWorld) Width() int {
	return w.width
}

// Height returns the height of the world in cells.
func (w *ActorWorld) Height() int {
	return w.height
}

// CellSize returns the size of a cell in pixels.
func (w *ActorWorld) CellSize() int {
	return w.cellSize
}

// Bounded tells if actors are kept inside the world area.
func (w *ActorWorld) Bounded() bool {
	return w.bounded
}

// WorldLock returns the lock guarding the actor collection.
func (w *ActorWorld) WorldLock() sync.Locker {
	return &w.lock
}

// Actors returns the actors in act order. The caller must hold WorldLock.
func (w *ActorWorld) Actors() []sim.Actor {
	actors := w.actors.Keys()
	if len(w.actOrder) == 0 {
		return actors
	}

	sort.SliceStable(actors, func(i, j int) bool {
		return w.actRank(actors[i]) < w.actRank(actors[j])
	})

	return actors
}

func (w *ActorWorld) actRank(a sim.Actor) int {
	t := reflect.TypeOf(a)
	for i, ordered := range w.actOrder {
		if t == ordered {
			return i
		}
	}

	return len(w.actOrder)
}

// SetActOrder makes actors of the same types as the samples act first, in
// the order of the samples. Actors of other types act afterwards in
// registration order. Calling SetActOrder without samples restores plain
// registration order.
func (w *ActorWorld) SetActOrder(samples ...sim.Actor) {
	order := make([]reflect.Type, 0, len(samples))
	for _, s := range samples {
		order = append(order, reflect.TypeOf(s))
	}

	w.lock.Lock()
	defer w.lock.Unlock()

	w.actOrder = order
}

// AddObject places an actor at a location. Adding an actor that is already in
// the world has no effect.
func (w *ActorWorld) AddObject(a sim.Actor, x, y int) {
	w.lock.Lock()
	if _, exists := w.actors.Get(a); exists {
		w.lock.Unlock()
		return
	}

	x, y = w.limit(x, y)
	w.actors.Set(a, &placement{x: x, y: y})
	w.lock.Unlock()

	if n, ok := a.(AddedToWorldNotifier); ok {
		n.AddedToWorld(w)
	}
}

// RemoveObject removes an actor. It returns false if the actor was not in the
// world.
func (w *ActorWorld) RemoveObject(a sim.Actor) bool {
	w.lock.Lock()
	defer w.lock.Unlock()

	return w.actors.Delete(a)
}

// RemoveObjects removes all the given actors.
func (w *ActorWorld) RemoveObjects(actors ...sim.Actor) {
	w.lock.Lock()
	defer w.lock.Unlock()

	for _, a := range actors {
		w.actors.Delete(a)
	}
}

// Contains tells if the actor is in the world.
func (w *ActorWorld) Contains(a sim.Actor) bool {
	w.lock.Lock()
	defer w.lock.Unlock()

	_, ok := w.actors.Get(a)

	return ok
}

// Objects returns all the actors in registration order.
func (w *ActorWorld) Objects() []sim.Actor {
	w.lock.Lock()
	defer w.lock.Unlock()

	return w.actors.Keys()
}

// NumberOfObjects returns the number of actors in the world.
func (w *ActorWorld) NumberOfObjects() int {
	w.lock.Lock()
	defer w.lock.Unlock()

	return w.actors.Len()
}

// ObjectsAt returns the actors at a cell in registration order.
func (w *ActorWorld) ObjectsAt(x, y int) []sim.Actor {
	w.lock.Lock()
	defer w.lock.Unlock()

	var found []sim.Actor
	for el := w.actors.Front(); el != nil; el = el.Next() {
		if el.Value.x == x && el.Value.y == y {
			found = append(found, el.Key)
		}
	}

	return found
}

// Location returns the cell of an actor.
func (w *ActorWorld) Location(a sim.Actor) (x, y int, err error) {
	w.lock.Lock()
	defer w.lock.Unlock()

	p, ok := w.actors.Get(a)
	if !ok {
		return 0, 0, ErrActorNotInWorld
	}

	return p.x, p.y, nil
}

// SetLocation moves an actor. In a bounded world the location is clamped to
// the world area.
func (w *ActorWorld) SetLocation(a sim.Actor, x, y int) error {
	w.lock.Lock()
	defer w.lock.Unlock()

	p, ok := w.actors.Get(a)
	if !ok {
		return fmt.Errorf("world: set location of %T: %w", a, ErrActorNotInWorld)
	}

	p.x, p.y = w.limit(x, y)

	return nil
}

func (w *ActorWorld) limit(x, y int) (int, int) {
	if !w.bounded {
		return x, y
	}

	return limitValue(x, w.width), limitValue(y, w.height)
}

func limitValue(v, limit int) int {
	if v < 0 {
		return 0
	}

	if v >= limit {
		return limit - 1
	}

	return v
}

// ObjectsOfType returns the actors of type T in registration order.
func ObjectsOfType[T any](w *ActorWorld) []T {
	var found []T
	for _, a := range w.Objects() {
		if t, ok := a.(T); ok {
			found = append(found, t)
		}
	}

	return found
}

var (
	_ sim.World      = (*ActorWorld)(nil)
	_ sim.Membership = (*ActorWorld)(nil)
)
