package sim

import (
	"log/slog"
	"sync"
	"time"
)

// SchedulerBuilder can build schedulers.
type SchedulerBuilder struct {
	render   RenderTarget
	reporter FaultReporter
	logger   *slog.Logger
	speed    int
	delay    time.Duration
	delaySet bool
	world    World
}

// MakeSchedulerBuilder creates a SchedulerBuilder with default parameters.
func MakeSchedulerBuilder() SchedulerBuilder {
	return SchedulerBuilder{
		speed: DefaultSpeed,
	}
}

// WithRenderTarget sets the target that is repainted after every cycle.
func (b SchedulerBuilder) WithRenderTarget(r RenderTarget) SchedulerBuilder {
	b.render = r
	return b
}

// WithFaultReporter sets where faults that stop the simulation are reported.
func (b SchedulerBuilder) WithFaultReporter(r FaultReporter) SchedulerBuilder {
	b.reporter = r
	return b
}

// WithLogger sets the logger of the scheduler.
func (b SchedulerBuilder) WithLogger(logger *slog.Logger) SchedulerBuilder {
	b.logger = logger
	return b
}

// WithSpeed sets the initial speed. The delay is derived from the speed
// unless WithDelay is also used.
func (b SchedulerBuilder) WithSpeed(speed int) SchedulerBuilder {
	b.speed = ClampSpeed(speed)
	return b
}

// WithDelay sets the initial delay between cycle starts.
func (b SchedulerBuilder) WithDelay(delay time.Duration) SchedulerBuilder {
	if delay < 0 {
		delay = 0
	}

	b.delay = delay
	b.delaySet = true

	return b
}

// WithWorld sets the initial world.
func (b SchedulerBuilder) WithWorld(w World) SchedulerBuilder {
	b.world = w
	return b
}

// Build creates a paused Scheduler. The scheduler goroutine is not started.
func (b SchedulerBuilder) Build() *Scheduler {
	s := &Scheduler{
		HookableBase: NewHookableBase(),
		render:       b.render,
		reporter:     b.reporter,
		logger:       b.logger,
		paused:       true,
		speed:        b.speed,
		delay:        DelayForSpeed(b.speed),
		world:        b.world,
		wake:         make(chan struct{}, 1),
		now:          time.Now,
	}

	if b.delaySet {
		s.delay = b.delay
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.pauseCond = sync.NewCond(&s.pauseLock)

	return s
}
