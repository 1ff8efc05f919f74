package simulation

import (
	"sync"

	"github.com/sarchlab/greenstep/monitoring"
	"github.com/sarchlab/greenstep/sim"
)

// cycleLimit pauses the scheduler once a number of cycles has completed.
type cycleLimit struct {
	limit    uint64
	pause    func(bool)
	progress *monitoring.ProgressBar
	complete func()

	once sync.Once
	done chan struct{}
}

func newCycleLimit(limit uint64, pause func(bool)) *cycleLimit {
	return &cycleLimit{
		limit: limit,
		pause: pause,
		done:  make(chan struct{}),
	}
}

func (l *cycleLimit) showProgress(m *monitoring.Monitor) {
	l.progress = m.CreateProgressBar("Cycles", l.limit)
	l.complete = func() { m.CompleteProgressBar(l.progress) }
}

func (l *cycleLimit) StartCycle(_ sim.CycleInfo) {}

func (l *cycleLimit) EndCycle(info sim.CycleInfo) {
	if info.Cycle > l.limit {
		return
	}

	if l.progress != nil {
		l.progress.IncrementFinished(1)
	}

	if info.Cycle < l.limit {
		return
	}

	l.once.Do(func() {
		l.pause(true)

		if l.complete != nil {
			l.complete()
		}

		close(l.done)
	})
}

func (l *cycleLimit) Fault(_ *sim.Fault) {}

func (l *cycleLimit) StateChanged(_ sim.State) {}
