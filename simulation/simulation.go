// Package simulation wires a scheduler together with the services around
// it: tracers, recording, monitoring, and fault reporting.
package simulation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sarchlab/greenstep/datarecording"
	"github.com/sarchlab/greenstep/monitoring"
	"github.com/sarchlab/greenstep/sim"
	"github.com/sarchlab/greenstep/tracing"
)

// A Simulation owns one scheduler and the services attached to it.
type Simulation struct {
	id     string
	logger *slog.Logger

	scheduler *sim.Scheduler

	dataRecorder     datarecording.DataRecorder
	monitor          *monitoring.Monitor
	rateTracer       *tracing.RateTracer
	cycleTimeTracer  *tracing.CycleTimeTracer
	eventCountTracer *tracing.EventCountTracer
	dbTracer         *tracing.DBTracer

	done chan struct{}
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Scheduler returns the scheduler of the simulation.
func (s *Simulation) Scheduler() *sim.Scheduler {
	return s.scheduler
}

// InstallWorld makes w the world stepped from the next cycle on.
func (s *Simulation) InstallWorld(w sim.World) {
	s.scheduler.InstallNewWorld(w)
}

// Monitor returns the monitor, or nil if monitoring is disabled.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// DataRecorder returns the data recorder, or nil if recording is disabled.
func (s *Simulation) DataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// RateTracer returns the tracer that measures cycles per second.
func (s *Simulation) RateTracer() *tracing.RateTracer {
	return s.rateTracer
}

// CycleTimeTracer returns the tracer that measures how long cycles take.
func (s *Simulation) CycleTimeTracer() *tracing.CycleTimeTracer {
	return s.cycleTimeTracer
}

// EventCountTracer returns the tracer that counts cycles, faults, and state
// changes.
func (s *Simulation) EventCountTracer() *tracing.EventCountTracer {
	return s.eventCountTracer
}

// Done returns a channel that is closed once the cycle limit is reached. It
// is nil, and thus never ready, when no limit is set.
func (s *Simulation) Done() <-chan struct{} {
	return s.done
}

// Terminate stops the scheduler, shuts the monitor down, and closes the data
// recorder.
func (s *Simulation) Terminate() error {
	s.scheduler.Shutdown()

	var errs []error

	if s.monitor != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		errs = append(errs, s.monitor.StopServer(ctx))
	}

	errs = append(errs, s.closeRecorder())

	s.logger.Debug("simulation terminated",
		"id", s.id,
		"cycles", s.scheduler.Cycle(),
		"average_cycle_time", s.cycleTimeTracer.AverageTime(),
		"faults", s.eventCountTracer.GetEventCount(tracing.EventFault))

	return errors.Join(errs...)
}

func (s *Simulation) closeRecorder() error {
	if s.dataRecorder == nil {
		return nil
	}

	s.dbTracer.Terminate()

	return s.dataRecorder.Close()
}
