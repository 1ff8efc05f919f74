package simulation

import (
	"log/slog"
	"os"
	"time"

	"github.com/rs/xid"
	"github.com/sarchlab/greenstep/datarecording"
	"github.com/sarchlab/greenstep/faults"
	"github.com/sarchlab/greenstep/monitoring"
	"github.com/sarchlab/greenstep/sim"
	"github.com/sarchlab/greenstep/tracing"
)

// Builder can be used to build a simulation.
type Builder struct {
	render         sim.RenderTarget
	speed          int
	delay          time.Duration
	delaySet       bool
	monitorOn      bool
	monitorPort    int
	openBrowser    bool
	recordingOn    bool
	outputFileName string
	recordFrom     uint64
	recordTo       uint64
	cycleLimit     uint64
	reporters      []sim.FaultReporter
	logger         *slog.Logger
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		speed:       sim.DefaultSpeed,
		monitorOn:   true,
		recordingOn: true,
	}
}

// WithRenderTarget sets what is repainted after every cycle.
func (b Builder) WithRenderTarget(r sim.RenderTarget) Builder {
	b.render = r
	return b
}

// WithSpeed sets the initial speed.
func (b Builder) WithSpeed(speed int) Builder {
	b.speed = speed
	return b
}

// WithDelay sets the initial delay, overriding the one derived from the
// speed.
func (b Builder) WithDelay(delay time.Duration) Builder {
	b.delay = delay
	b.delaySet = true

	return b
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithBrowser opens the monitoring page once the server is up.
func (b Builder) WithBrowser() Builder {
	b.openBrowser = true
	return b
}

// WithoutRecording sets the simulation to not record cycles into a
// database.
func (b Builder) WithoutRecording() Builder {
	b.recordingOn = false
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithCycleRange limits the recorded cycles to [from, to]. Zero leaves a
// side open.
func (b Builder) WithCycleRange(from, to uint64) Builder {
	b.recordFrom = from
	b.recordTo = to

	return b
}

// WithCycleLimit pauses the simulation after the given number of cycles and
// closes the channel returned by Simulation.Done. Zero means no limit.
func (b Builder) WithCycleLimit(cycles uint64) Builder {
	b.cycleLimit = cycles
	return b
}

// WithFaultReporter adds a place where faults are reported. Faults are
// always printed to stderr as well.
func (b Builder) WithFaultReporter(r sim.FaultReporter) Builder {
	b.reporters = append(append([]sim.FaultReporter(nil), b.reporters...), r)
	return b
}

// WithLogger sets the logger of the simulation.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && (b.monitorPort != 0 || b.openBrowser) {
		panic("monitor options cannot be set when monitoring is disabled")
	}

	if !b.recordingOn && b.outputFileName != "" {
		panic("output file cannot be set when recording is disabled")
	}

	if !b.recordingOn && (b.recordFrom != 0 || b.recordTo != 0) {
		panic("cycle range cannot be set when recording is disabled")
	}

	if b.recordTo != 0 && b.recordFrom > b.recordTo {
		panic("cycle range must not end before it starts")
	}
}

// Build builds the simulation. The scheduler goroutine is started and the
// simulation is paused.
func (b Builder) Build() (*Simulation, error) {
	b.parametersMustBeValid()

	s := &Simulation{
		id:     xid.New().String(),
		logger: b.logger,
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	reporters := faults.Multi{faults.NewPrintReporter(os.Stderr)}
	reporters = append(reporters, b.reporters...)

	schedulerBuilder := sim.MakeSchedulerBuilder().
		WithRenderTarget(b.render).
		WithFaultReporter(reporters).
		WithLogger(s.logger).
		WithSpeed(b.speed)
	if b.delaySet {
		schedulerBuilder = schedulerBuilder.WithDelay(b.delay)
	}

	s.scheduler = schedulerBuilder.Build()
	s.scheduler.AcceptHook(sim.NewCycleLogger(s.logger))

	s.rateTracer = tracing.NewRateTracer(time.Second)
	s.cycleTimeTracer = tracing.NewCycleTimeTracer()
	s.eventCountTracer = tracing.NewEventCountTracer()
	tracing.CollectTrace(s.scheduler, s.rateTracer)
	tracing.CollectTrace(s.scheduler, s.cycleTimeTracer)
	tracing.CollectTrace(s.scheduler, s.eventCountTracer)

	if b.recordingOn {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = "greenstep_sim_" + s.id
		}

		s.dataRecorder = datarecording.New(outputPath)
		s.dbTracer = tracing.NewDBTracer(s.dataRecorder)
		s.dbTracer.SetCycleRange(b.recordFrom, b.recordTo)
		tracing.CollectTrace(s.scheduler, s.dbTracer)
	}

	if b.monitorOn {
		if err := b.startMonitor(s); err != nil {
			s.closeRecorder()
			return nil, err
		}
	}

	if b.cycleLimit > 0 {
		b.limitCycles(s)
	}

	s.scheduler.Start()

	s.logger.Debug("simulation built",
		"id", s.id,
		"speed", s.scheduler.Speed(),
		"delay", s.scheduler.Delay())

	return s, nil
}

func (b Builder) startMonitor(s *Simulation) error {
	s.monitor = monitoring.NewMonitor()
	if b.monitorPort > 0 {
		s.monitor.WithPortNumber(b.monitorPort)
	}

	if b.openBrowser {
		s.monitor.WithBrowser()
	}

	s.monitor.RegisterScheduler(s.scheduler)
	s.monitor.RegisterRateReporter(s.rateTracer)
	s.monitor.RegisterEventCounter(s.eventCountTracer)
	if s.dbTracer != nil {
		s.monitor.RegisterTraceSwitch(s.dbTracer)
	}

	return s.monitor.StartServer()
}

func (b Builder) limitCycles(s *Simulation) {
	l := newCycleLimit(b.cycleLimit, s.scheduler.SetPaused)
	if s.monitor != nil {
		l.showProgress(s.monitor)
	}

	tracing.CollectTrace(s.scheduler, l)
	s.done = l.done
}
