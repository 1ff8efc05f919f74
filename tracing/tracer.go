// Package tracing collects information about scheduler cycles through the
// scheduler hooks.
package tracing

import "github.com/sarchlab/greenstep/sim"

// A Tracer collects information about the cycles of a scheduler.
type Tracer interface {
	StartCycle(info sim.CycleInfo)
	EndCycle(info sim.CycleInfo)
	Fault(f *sim.Fault)
	StateChanged(state sim.State)
}
