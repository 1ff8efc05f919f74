package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sarchlab/greenstep/sim"
)

// RateTracer measures how many cycles complete per second.
type RateTracer struct {
	lock   sync.Mutex
	window time.Duration
	ends   []time.Time
	total  uint64
	now    func() time.Time
}

// NewRateTracer creates a RateTracer that averages over the given window. A
// window that is not positive means one second.
func NewRateTracer(window time.Duration) *RateTracer {
	if window <= 0 {
		window = time.Second
	}

	return &RateTracer{
		window: window,
		now:    time.Now,
	}
}

// Rate returns the number of cycles per second completed within the window.
func (t *RateTracer) Rate() float64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.prune(t.now())

	return float64(len(t.ends)) / t.window.Seconds()
}

// Total returns the number of completed cycles.
func (t *RateTracer) Total() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.total
}

// StartCycle does nothing.
func (t *RateTracer) StartCycle(_ sim.CycleInfo) {}

// EndCycle records the end of a cycle.
func (t *RateTracer) EndCycle(info sim.CycleInfo) {
	end := info.Start.Add(info.Duration)

	t.lock.Lock()
	defer t.lock.Unlock()

	t.ends = append(t.ends, end)
	t.total++
	t.prune(end)
}

// Fault does nothing.
func (t *RateTracer) Fault(_ *sim.Fault) {}

// StateChanged does nothing.
func (t *RateTracer) StateChanged(_ sim.State) {}

func (t *RateTracer) prune(now time.Time) {
	cut := now.Add(-t.window)

	i := 0
	for i < len(t.ends) && !t.ends[i].After(cut) {
		i++
	}

	t.ends = t.ends[i:]
}

// LogEvery logs the cycle rate at each interval until ctx is done.
func (t *RateTracer) LogEvery(
	ctx context.Context,
	logger *slog.Logger,
	interval time.Duration,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Info("update rate",
				"cycles_per_second", t.Rate(),
				"total", t.Total())
		}
	}
}
