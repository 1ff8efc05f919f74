package tracing

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/greenstep/sim"
	"github.com/sarchlab/greenstep/world"
)

type ticker struct{ count int }

func (t *ticker) Act() { t.count++ }

type faulty struct{}

func (faulty) Act() { panic(errors.New("boom")) }

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func cycle(n uint64, start time.Duration, d time.Duration) sim.CycleInfo {
	return sim.CycleInfo{
		Cycle:      n,
		Start:      base.Add(start),
		Duration:   d,
		ActorCount: 1,
	}
}

var _ = Describe("CollectTrace", func() {
	It("should forward scheduler hooks to the tracer", func() {
		w := world.New(4, 4, 1)
		w.AddObject(&ticker{}, 0, 0)

		s := sim.MakeSchedulerBuilder().WithWorld(w).Build()
		counter := NewEventCountTracer()
		times := NewCycleTimeTracer()
		CollectTrace(s, counter)
		CollectTrace(s, times)

		s.RunOnce()
		s.RunOnce()

		Expect(counter.GetEventCount(EventCycle)).To(Equal(uint64(2)))
		Expect(times.TotalCount()).To(Equal(uint64(2)))
	})

	It("should count faults and drop the aborted cycle", func() {
		w := world.New(4, 4, 1)
		w.AddObject(faulty{}, 0, 0)

		s := sim.MakeSchedulerBuilder().WithWorld(w).Build()
		counter := NewEventCountTracer()
		times := NewCycleTimeTracer()
		CollectTrace(s, counter)
		CollectTrace(s, times)

		Expect(s.RunOnce()).To(BeFalse())

		Expect(counter.GetEventNames()).To(Equal([]string{EventFault}))
		Expect(times.TotalCount()).To(BeZero())
	})

	It("should not attach the same tracer twice", func() {
		s := sim.MakeSchedulerBuilder().Build()
		counter := NewEventCountTracer()
		CollectTrace(s, counter)

		Expect(func() { CollectTrace(s, counter) }).To(Panic())
	})
})

var _ = Describe("RateTracer", func() {
	var (
		t   *RateTracer
		now time.Time
	)

	BeforeEach(func() {
		t = NewRateTracer(time.Second)
		now = base
		t.now = func() time.Time { return now }
	})

	It("should report zero before any cycle", func() {
		Expect(t.Rate()).To(BeZero())
	})

	It("should count the cycles within the window", func() {
		for i := 0; i < 10; i++ {
			t.EndCycle(cycle(uint64(i+1), time.Duration(i)*100*time.Millisecond, 0))
		}

		now = base.Add(950 * time.Millisecond)
		Expect(t.Rate()).To(Equal(10.0))

		now = base.Add(1450 * time.Millisecond)
		Expect(t.Rate()).To(Equal(5.0))
		Expect(t.Total()).To(Equal(uint64(10)))
	})

	It("should default to a one second window", func() {
		Expect(NewRateTracer(0).window).To(Equal(time.Second))
	})
})

var _ = Describe("CycleTimeTracer", func() {
	It("should average and track the maximum", func() {
		t := NewCycleTimeTracer()

		t.StartCycle(cycle(1, 0, 0))
		t.EndCycle(cycle(1, 0, 10*time.Millisecond))
		t.StartCycle(cycle(2, 0, 0))
		t.EndCycle(cycle(2, 0, 30*time.Millisecond))

		Expect(t.AverageTime()).To(Equal(20 * time.Millisecond))
		Expect(t.MaxTime()).To(Equal(30 * time.Millisecond))
		Expect(t.TotalCount()).To(Equal(uint64(2)))
	})

	It("should ignore cycles it did not see start", func() {
		t := NewCycleTimeTracer()

		t.EndCycle(cycle(1, 0, 10*time.Millisecond))

		Expect(t.TotalCount()).To(BeZero())
	})
})

var _ = Describe("EventCountTracer", func() {
	It("should keep the order of first occurrence", func() {
		t := NewEventCountTracer()

		t.StateChanged(sim.StateRunning)
		t.EndCycle(cycle(1, 0, 0))
		t.EndCycle(cycle(2, 0, 0))
		t.StateChanged(sim.StateStopped)
		t.StateChanged(sim.StateRunning)

		Expect(t.GetEventNames()).To(Equal(
			[]string{EventRunning, EventCycle, EventStopped}))
		Expect(t.GetEventCount(EventRunning)).To(Equal(uint64(2)))
		Expect(t.GetEventCount(EventCycle)).To(Equal(uint64(2)))
		Expect(t.GetEventCount(EventFault)).To(BeZero())
	})
})

var _ = Describe("DBTracer", func() {
	var (
		mockCtrl *gomock.Controller
		recorder *MockDataRecorder
		t        *DBTracer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		recorder = NewMockDataRecorder(mockCtrl)
		recorder.EXPECT().CreateTable(CycleTable, CycleEntry{})
		recorder.EXPECT().CreateTable(FaultTable, FaultEntry{})
		recorder.EXPECT().CreateTable(StateTable, StateEntry{})

		t = NewDBTracer(recorder)
		t.now = func() time.Time { return base }
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should record completed cycles", func() {
		recorder.EXPECT().InsertData(CycleTable, CycleEntry{
			Cycle:      3,
			StartNanos: base.Add(time.Second).UnixNano(),
			DurationUs: 1500,
			ActorCount: 1,
		})

		t.EndCycle(cycle(3, time.Second, 1500*time.Microsecond))
	})

	It("should only record cycles in range", func() {
		t.SetCycleRange(2, 3)
		recorder.EXPECT().InsertData(CycleTable, gomock.Any()).Times(2)

		for i := uint64(1); i <= 4; i++ {
			t.EndCycle(cycle(i, 0, 0))
		}
	})

	It("should record faults", func() {
		recorder.EXPECT().InsertData(FaultTable, FaultEntry{
			Cycle:     5,
			Actor:     "*tracing.ticker",
			Message:   "boom",
			TimeNanos: base.UnixNano(),
		})

		t.Fault(&sim.Fault{
			Cycle: 5,
			Actor: &ticker{},
			Value: "boom",
			Time:  base,
		})
	})

	It("should record state changes with the last cycle", func() {
		recorder.EXPECT().InsertData(CycleTable, gomock.Any())
		recorder.EXPECT().InsertData(StateTable, StateEntry{
			State:     "Stopped",
			LastCycle: 9,
			TimeNanos: base.UnixNano(),
		})

		t.EndCycle(cycle(9, 0, 0))
		t.StateChanged(sim.StateStopped)
	})

	It("should not record while disabled", func() {
		recorder.EXPECT().Flush()

		t.DisableTracing()
		Expect(t.IsTracing()).To(BeFalse())

		t.EndCycle(cycle(1, 0, 0))
		t.StateChanged(sim.StateRunning)
		t.Fault(&sim.Fault{Cycle: 1, Value: "x", Time: base})

		t.EnableTracing()
		Expect(t.IsTracing()).To(BeTrue())
	})

	It("should flush on terminate", func() {
		recorder.EXPECT().Flush()

		t.Terminate()
	})
})
