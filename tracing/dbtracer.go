package tracing

import (
	"fmt"
	"sync"
	"time"

	"github.com/sarchlab/greenstep/datarecording"
	"github.com/sarchlab/greenstep/sim"
	"github.com/tebeka/atexit"
)

// Tables written by DBTracer.
const (
	CycleTable = "greenstep_cycles"
	FaultTable = "greenstep_faults"
	StateTable = "greenstep_states"
)

// CycleEntry is a row of the cycle table.
type CycleEntry struct {
	Cycle      uint64
	StartNanos int64
	DurationUs float64
	ActorCount int
}

// FaultEntry is a row of the fault table.
type FaultEntry struct {
	Cycle     uint64
	Actor     string
	Message   string
	TimeNanos int64
}

// StateEntry is a row of the state transition table.
type StateEntry struct {
	State     string
	LastCycle uint64
	TimeNanos int64
}

// DBTracer is a tracer that stores cycles, faults, and state transitions
// into a data recorder.
type DBTracer struct {
	mu      sync.Mutex
	backend datarecording.DataRecorder
	now     func() time.Time

	startCycle, endCycle uint64

	isTracingFlag bool
	lastCycle     uint64
}

// NewDBTracer creates a new DBTracer. The tracer starts enabled.
func NewDBTracer(dataRecorder datarecording.DataRecorder) *DBTracer {
	dataRecorder.CreateTable(CycleTable, CycleEntry{})
	dataRecorder.CreateTable(FaultTable, FaultEntry{})
	dataRecorder.CreateTable(StateTable, StateEntry{})

	t := &DBTracer{
		backend:       dataRecorder,
		now:           time.Now,
		isTracingFlag: true,
	}

	atexit.Register(func() {
		t.Terminate()
	})

	return t
}

// SetCycleRange limits the recorded cycles to [start, end]. Zero leaves a
// side open.
func (t *DBTracer) SetCycleRange(start, end uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startCycle = start
	t.endCycle = end
}

// IsTracing tells if the tracer is recording.
func (t *DBTracer) IsTracing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.isTracingFlag
}

// EnableTracing resumes recording.
func (t *DBTracer) EnableTracing() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.isTracingFlag = true
}

// DisableTracing stops recording and flushes what was recorded so far.
func (t *DBTracer) DisableTracing() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.isTracingFlag = false
	t.backend.Flush()
}

// StartCycle does nothing.
func (t *DBTracer) StartCycle(_ sim.CycleInfo) {}

// EndCycle records a completed cycle.
func (t *DBTracer) EndCycle(info sim.CycleInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastCycle = info.Cycle

	if !t.isTracingFlag || !t.inRange(info.Cycle) {
		return
	}

	t.backend.InsertData(CycleTable, CycleEntry{
		Cycle:      info.Cycle,
		StartNanos: info.Start.UnixNano(),
		DurationUs: float64(info.Duration) / float64(time.Microsecond),
		ActorCount: info.ActorCount,
	})
}

func (t *DBTracer) inRange(cycle uint64) bool {
	if t.startCycle > 0 && cycle < t.startCycle {
		return false
	}

	if t.endCycle > 0 && cycle > t.endCycle {
		return false
	}

	return true
}

// Fault records a fault. Faults are recorded even outside the cycle range.
func (t *DBTracer) Fault(f *sim.Fault) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.isTracingFlag {
		return
	}

	actor := ""
	if f.Actor != nil {
		actor = fmt.Sprintf("%T", f.Actor)
	}

	t.backend.InsertData(FaultTable, FaultEntry{
		Cycle:     f.Cycle,
		Actor:     actor,
		Message:   fmt.Sprint(f.Value),
		TimeNanos: f.Time.UnixNano(),
	})
}

// StateChanged records a state transition.
func (t *DBTracer) StateChanged(state sim.State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.isTracingFlag {
		return
	}

	t.backend.InsertData(StateTable, StateEntry{
		State:     state.String(),
		LastCycle: t.lastCycle,
		TimeNanos: t.now().UnixNano(),
	})
}

// Terminate flushes the recorded data.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.backend.Flush()
}
