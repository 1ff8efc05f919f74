package sim

import (
	"fmt"
	"time"
)

// FaultSource tells which callback a fault escaped from.
type FaultSource int

// Fault sources.
const (
	FaultSourceAct FaultSource = iota
	FaultSourceWorldStarted
	FaultSourceWorldStopped
)

func (s FaultSource) String() string {
	switch s {
	case FaultSourceWorldStarted:
		return "started"
	case FaultSourceWorldStopped:
		return "stopped"
	default:
		return "act"
	}
}

// A Fault describes a panic that escaped a step cycle or a world callback.
type Fault struct {
	// Cycle is the number of the cycle that was aborted.
	Cycle uint64

	// Actor is the actor whose Act panicked. It is nil when the world's own
	// Act panicked.
	Actor Actor

	// Source is the callback that panicked.
	Source FaultSource

	// Value is the value passed to panic.
	Value any

	// Stack is the stack trace captured at recovery.
	Stack []byte

	Time time.Time
}

func (f *Fault) Error() string {
	if f.Actor == nil {
		return fmt.Sprintf("world %s failed in cycle %d: %v",
			f.Source, f.Cycle, f.Value)
	}

	return fmt.Sprintf("actor %T failed in cycle %d: %v",
		f.Actor, f.Cycle, f.Value)
}

// Unwrap returns the panic value when it is an error.
func (f *Fault) Unwrap() error {
	err, _ := f.Value.(error)
	return err
}

// A FaultReporter receives the faults that stop a simulation.
type FaultReporter interface {
	ReportFault(f *Fault)
}
