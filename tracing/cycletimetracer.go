package tracing

import (
	"sync"
	"time"

	"github.com/sarchlab/greenstep/sim"
)

// CycleTimeTracer collects how long cycles take to run. Only completed
// cycles count; a cycle aborted by a fault is dropped.
type CycleTimeTracer struct {
	lock        sync.Mutex
	averageTime time.Duration
	maxTime     time.Duration
	inflight    map[uint64]time.Time
	cycleCount  uint64
}

// NewCycleTimeTracer creates a new CycleTimeTracer.
func NewCycleTimeTracer() *CycleTimeTracer {
	return &CycleTimeTracer{
		inflight: make(map[uint64]time.Time),
	}
}

// AverageTime returns the average duration of a cycle.
func (t *CycleTimeTracer) AverageTime() time.Duration {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.averageTime
}

// MaxTime returns the longest cycle seen.
func (t *CycleTimeTracer) MaxTime() time.Duration {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.maxTime
}

// TotalCount returns the number of completed cycles.
func (t *CycleTimeTracer) TotalCount() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.cycleCount
}

// StartCycle records the cycle start time.
func (t *CycleTimeTracer) StartCycle(info sim.CycleInfo) {
	t.lock.Lock()
	t.inflight[info.Cycle] = info.Start
	t.lock.Unlock()
}

// EndCycle folds the cycle duration into the statistics.
func (t *CycleTimeTracer) EndCycle(info sim.CycleInfo) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if _, ok := t.inflight[info.Cycle]; !ok {
		return
	}

	delete(t.inflight, info.Cycle)

	d := info.Duration
	t.averageTime = time.Duration(
		(float64(t.averageTime)*float64(t.cycleCount) + float64(d)) /
			float64(t.cycleCount+1))
	t.cycleCount++

	if d > t.maxTime {
		t.maxTime = d
	}
}

// Fault forgets the aborted cycle.
func (t *CycleTimeTracer) Fault(f *sim.Fault) {
	t.lock.Lock()
	delete(t.inflight, f.Cycle)
	t.lock.Unlock()
}

// StateChanged does nothing.
func (t *CycleTimeTracer) StateChanged(_ sim.State) {}
