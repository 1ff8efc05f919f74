package sim

import (
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// State is the externally visible state of a Scheduler.
type State int

// Scheduler states.
const (
	StateStopped State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "Running"
	}

	return "Stopped"
}

// CycleInfo describes one step cycle. It is the Item of the cycle hooks.
type CycleInfo struct {
	Cycle      uint64
	Start      time.Time
	Duration   time.Duration
	ActorCount int
}

// HookPosBeforeCycle triggers before a cycle takes its actor snapshot.
var HookPosBeforeCycle = &HookPos{Name: "BeforeCycle"}

// HookPosAfterCycle triggers after a cycle completed and requested a repaint.
var HookPosAfterCycle = &HookPos{Name: "AfterCycle"}

// HookPosActorFault triggers when a fault aborts a cycle. The Item is a
// *Fault.
var HookPosActorFault = &HookPos{Name: "ActorFault"}

// HookPosStateChange triggers when the scheduler loop starts or stops
// running. The Item is the new State.
var HookPosStateChange = &HookPos{Name: "StateChange"}

// A Scheduler steps all the actors of a world at a configurable cadence on a
// dedicated goroutine.
//
// A Scheduler is created paused. Call Start once to launch its goroutine and
// SetPaused(false) to let it run.
type Scheduler struct {
	*HookableBase

	logger   *slog.Logger
	render   RenderTarget
	reporter FaultReporter

	listeners listenerList

	worldLock sync.RWMutex
	world     World

	pauseLock     sync.Mutex
	pauseCond     *sync.Cond
	paused        bool
	running       bool
	stepRequested bool
	abort         bool

	delayLock    sync.Mutex
	delay        time.Duration
	speed        int
	delayChanged bool

	// Cycles never overlap, no matter whether they come from the loop or
	// from RunOnce.
	cycleLock sync.Mutex
	cycle     atomic.Uint64

	wake         chan struct{}
	lastStepTime time.Time
	now          func() time.Time

	startOnce sync.Once
	done      chan struct{}
}

// NewScheduler creates a paused scheduler that repaints the given target.
func NewScheduler(render RenderTarget) *Scheduler {
	return MakeSchedulerBuilder().WithRenderTarget(render).Build()
}

// Start launches the scheduler goroutine. Calling Start more than once has no
// effect.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.done = make(chan struct{})
		go s.run()
	})
}

// Shutdown stops the scheduler goroutine and waits for it to exit. A cycle
// in progress is allowed to finish.
func (s *Scheduler) Shutdown() {
	s.pauseLock.Lock()
	s.abort = true
	s.pauseCond.Broadcast()
	s.pauseLock.Unlock()

	s.interrupt()

	s.startOnce.Do(func() {})
	if s.done != nil {
		<-s.done
	}
}

// SetPaused pauses or resumes the simulation. Pausing never cancels a cycle
// in progress; it only prevents the next one from starting.
func (s *Scheduler) SetPaused(paused bool) {
	s.pauseLock.Lock()
	s.paused = paused
	s.pauseCond.Broadcast()
	s.pauseLock.Unlock()

	if paused {
		s.interrupt()
		return
	}

	s.drainWake()
}

// Paused tells if the simulation is paused.
func (s *Scheduler) Paused() bool {
	s.pauseLock.Lock()
	defer s.pauseLock.Unlock()

	return s.paused
}

// State returns StateStopped while paused and StateRunning otherwise.
func (s *Scheduler) State() State {
	if s.Paused() {
		return StateStopped
	}

	return StateRunning
}

// RequestStep asks the scheduler goroutine to run exactly one cycle while
// the simulation is paused. It has no effect while running.
func (s *Scheduler) RequestStep() {
	s.pauseLock.Lock()
	defer s.pauseLock.Unlock()

	s.stepRequested = true
	s.pauseCond.Broadcast()
}

// SetWorld replaces the world used by the next cycle. A cycle in progress
// keeps stepping the world it started with.
func (s *Scheduler) SetWorld(w World) {
	s.worldLock.Lock()
	defer s.worldLock.Unlock()

	s.world = w
}

// InstallNewWorld discards the current world and installs w.
func (s *Scheduler) InstallNewWorld(w World) {
	s.SetWorld(w)
}

// World returns the current world, which may be nil.
func (s *Scheduler) World() World {
	s.worldLock.RLock()
	defer s.worldLock.RUnlock()

	return s.world
}

// SetDelay sets the target time between the starts of two consecutive
// cycles. Negative delays are treated as zero.
func (s *Scheduler) SetDelay(delay time.Duration) {
	if delay < 0 {
		delay = 0
	}

	s.delayLock.Lock()
	s.delay = delay
	s.delayChanged = true
	s.delayLock.Unlock()

	if !s.Paused() {
		s.interrupt()
	}
}

// Delay returns the target time between cycle starts.
func (s *Scheduler) Delay() time.Duration {
	s.delayLock.Lock()
	defer s.delayLock.Unlock()

	return s.delay
}

// SetSpeed sets the speed in the range [0, MaxSpeed] and derives the delay
// from it.
func (s *Scheduler) SetSpeed(speed int) {
	speed = ClampSpeed(speed)

	s.delayLock.Lock()
	if s.speed == speed {
		s.delayLock.Unlock()
		return
	}

	s.speed = speed
	s.delay = DelayForSpeed(speed)
	s.delayChanged = true
	s.delayLock.Unlock()

	if !s.Paused() {
		s.interrupt()
	}

	s.fire(EventSpeedChanged)
}

// Speed returns the current speed.
func (s *Scheduler) Speed() int {
	s.delayLock.Lock()
	defer s.delayLock.Unlock()

	return s.speed
}

// Cycle returns the number of cycles that have been started.
func (s *Scheduler) Cycle() uint64 {
	return s.cycle.Load()
}

// AddListener registers a listener for scheduler events.
func (s *Scheduler) AddListener(l Listener) {
	s.listeners.add(l)
}

// RemoveListener unregisters a listener.
func (s *Scheduler) RemoveListener(l Listener) {
	s.listeners.remove(l)
}

// RunOnce runs a single cycle on the calling goroutine. It returns false if a
// fault aborted the cycle.
func (s *Scheduler) RunOnce() bool {
	return s.runCycle()
}

func (s *Scheduler) run() {
	defer close(s.done)

	for {
		if s.consumeDelayChange() {
			s.sleep()
		}

		singleStep, ok := s.waitWhilePaused()
		if !ok {
			s.finish()
			return
		}

		if singleStep {
			s.runSingleStep()
			continue
		}

		if s.Paused() {
			continue
		}

		if s.runCycle() {
			s.sleep()
		}
	}
}

// waitWhilePaused blocks until the simulation is resumed, a single step is
// requested or the scheduler is shut down.
func (s *Scheduler) waitWhilePaused() (singleStep, ok bool) {
	s.pauseLock.Lock()

	if s.paused && s.running {
		s.running = false
		s.pauseLock.Unlock()

		s.stopped()

		s.pauseLock.Lock()
	}

	for s.paused && !s.stepRequested && !s.abort {
		s.pauseCond.Wait()
	}

	if s.abort {
		s.pauseLock.Unlock()
		return false, false
	}

	if s.stepRequested && s.paused {
		s.stepRequested = false
		s.pauseLock.Unlock()
		return true, true
	}

	s.stepRequested = false

	if s.running {
		s.pauseLock.Unlock()
		return false, true
	}

	s.running = true
	s.pauseLock.Unlock()

	s.started()

	return false, true
}

func (s *Scheduler) started() {
	s.drainWake()
	s.clearDelayChange()
	s.lastStepTime = s.now()

	s.notifyWorldStarted()
	s.InvokeHook(HookCtx{Domain: s, Pos: HookPosStateChange, Item: StateRunning})
	s.fire(EventStarted)
}

func (s *Scheduler) stopped() {
	s.notifyWorldStopped()
	s.InvokeHook(HookCtx{Domain: s, Pos: HookPosStateChange, Item: StateStopped})
	s.fire(EventStopped)
}

// runSingleStep runs one cycle between world Started and Stopped calls. The
// scheduler never leaves StateStopped, but listeners still get EventStopped
// so they can refresh after the step.
func (s *Scheduler) runSingleStep() {
	s.notifyWorldStarted()
	s.runCycle()
	s.notifyWorldStopped()
	s.fire(EventStopped)
}

func (s *Scheduler) finish() {
	s.pauseLock.Lock()
	wasRunning := s.running
	s.running = false
	s.pauseLock.Unlock()

	if wasRunning {
		s.notifyWorldStopped()
	}

	s.logger.Debug("scheduler shut down", "cycles", s.Cycle())
}

func (s *Scheduler) runCycle() bool {
	s.cycleLock.Lock()
	defer s.cycleLock.Unlock()

	w := s.World()
	if w == nil {
		return true
	}

	info := CycleInfo{
		Cycle: s.cycle.Add(1),
		Start: s.now(),
	}

	s.fire(EventNewAct)
	s.InvokeHook(HookCtx{Domain: s, Pos: HookPosBeforeCycle, Item: info})

	count, ok := s.actAll(w, info.Cycle)
	if !ok {
		return false
	}

	if s.render != nil {
		s.render.Repaint()
	}

	info.ActorCount = count
	info.Duration = s.now().Sub(info.Start)
	s.InvokeHook(HookCtx{Domain: s, Pos: HookPosAfterCycle, Item: info})

	return true
}

// actAll steps the world and then every actor in the snapshot. The first
// panic aborts the rest of the cycle.
func (s *Scheduler) actAll(w World, cycle uint64) (count int, ok bool) {
	var current Actor

	defer func() {
		if r := recover(); r != nil {
			s.handleFault(&Fault{
				Cycle: cycle,
				Actor: current,
				Value: r,
				Stack: debug.Stack(),
				Time:  time.Now(),
			})
			ok = false
		}
	}()

	if wa, isActor := w.(WorldActor); isActor {
		wa.Act()
	}

	actors := snapshot(w)
	membership, _ := w.(Membership)

	for _, a := range actors {
		if membership != nil && !membership.Contains(a) {
			continue
		}

		current = a
		a.Act()
	}

	return len(actors), true
}

func (s *Scheduler) handleFault(f *Fault) {
	s.pauseLock.Lock()
	s.paused = true
	s.pauseLock.Unlock()

	s.interrupt()

	s.logger.Error("simulation halted by fault",
		"cycle", f.Cycle,
		"error", f.Error())

	if s.reporter != nil {
		s.reporter.ReportFault(f)
	}

	s.InvokeHook(HookCtx{Domain: s, Pos: HookPosActorFault, Item: f})
}

// sleep waits until delay has passed since the last cycle start. An
// interruption ends the sleep early and leaves lastStepTime untouched.
func (s *Scheduler) sleep() {
	start := s.now()

	wait := s.Delay() - start.Sub(s.lastStepTime)
	if wait < 0 {
		wait = 0
	}

	if wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-s.wake:
			timer.Stop()
			return
		}
	}

	s.lastStepTime = start.Add(wait)
}

func (s *Scheduler) consumeDelayChange() bool {
	paused := s.Paused()

	s.delayLock.Lock()
	defer s.delayLock.Unlock()

	changed := s.delayChanged
	s.delayChanged = false

	return changed && !paused
}

func (s *Scheduler) clearDelayChange() {
	s.delayLock.Lock()
	s.delayChanged = false
	s.delayLock.Unlock()
}

func (s *Scheduler) interrupt() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) drainWake() {
	select {
	case <-s.wake:
	default:
	}
}

func (s *Scheduler) notifyWorldStarted() {
	if starter, ok := s.World().(WorldStarter); ok {
		s.guard(FaultSourceWorldStarted, starter.Started)
	}
}

func (s *Scheduler) notifyWorldStopped() {
	if stopper, ok := s.World().(WorldStopper); ok {
		s.guard(FaultSourceWorldStopped, stopper.Stopped)
	}
}

// guard runs world callbacks so that a panic halts the simulation instead of
// killing the scheduler goroutine.
func (s *Scheduler) guard(source FaultSource, f func()) {
	defer func() {
		if r := recover(); r != nil {
			s.handleFault(&Fault{
				Cycle:  s.Cycle(),
				Source: source,
				Value:  r,
				Stack:  debug.Stack(),
				Time:   time.Now(),
			})
		}
	}()

	f()
}

func (s *Scheduler) fire(t EventType) {
	s.listeners.notify(Event{Type: t, Scheduler: s})
}
