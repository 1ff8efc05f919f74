// Package faults delivers the faults that halt a simulation to places where
// people can see them.
package faults

import (
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sarchlab/greenstep/sim"
)

// PrintReporter writes each fault and its stack trace to a writer.
type PrintReporter struct {
	lock sync.Mutex
	out  io.Writer
}

// NewPrintReporter creates a PrintReporter.
func NewPrintReporter(out io.Writer) *PrintReporter {
	return &PrintReporter{out: out}
}

// ReportFault prints the fault.
func (r *PrintReporter) ReportFault(f *sim.Fault) {
	r.lock.Lock()
	defer r.lock.Unlock()

	fmt.Fprintf(r.out, "%s\n%s\n", f.Error(), f.Stack)
}

// SentryReporter sends faults to Sentry.
type SentryReporter struct {
	hub          *sentry.Hub
	flushTimeout time.Duration
}

// NewSentryReporter creates a reporter that sends faults through hub.
func NewSentryReporter(hub *sentry.Hub) *SentryReporter {
	return &SentryReporter{
		hub:          hub,
		flushTimeout: 5 * time.Second,
	}
}

// InitSentry configures the global Sentry client and returns its hub.
func InitSentry(dsn, release string) (*sentry.Hub, error) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:     dsn,
		Release: release,
	})
	if err != nil {
		return nil, fmt.Errorf("faults: init sentry: %w", err)
	}

	return sentry.CurrentHub(), nil
}

// ReportFault captures the fault as an exception and waits for it to be
// delivered.
func (r *SentryReporter) ReportFault(f *sim.Fault) {
	hub := r.hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("cycle", strconv.FormatUint(f.Cycle, 10))
		scope.SetTag("actor", fmt.Sprintf("%T", f.Actor))
		scope.SetTag("source", f.Source.String())
		scope.SetContext("fault", sentry.Context{
			"panic": fmt.Sprint(f.Value),
			"stack": string(f.Stack),
		})
	})

	hub.CaptureException(f)
	hub.Flush(r.flushTimeout)
}

// Multi reports every fault to all of its reporters in order.
type Multi []sim.FaultReporter

// ReportFault forwards the fault.
func (m Multi) ReportFault(f *sim.Fault) {
	for _, r := range m {
		r.ReportFault(f)
	}
}

var (
	_ sim.FaultReporter = (*PrintReporter)(nil)
	_ sim.FaultReporter = (*SentryReporter)(nil)
	_ sim.FaultReporter = Multi(nil)
)
