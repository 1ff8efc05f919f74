package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/greenstep/sim"
	"github.com/sarchlab/greenstep/world"
)

type walker struct {
	Steps int
	Name  string
}

func (w *walker) Act() { w.Steps++ }

type fixedRate struct{}

func (fixedRate) Rate() float64 { return 12.5 }
func (fixedRate) Total() uint64 { return 40 }

type fixedCounts struct{}

func (fixedCounts) GetEventNames() []string { return []string{"cycle", "fault"} }
func (fixedCounts) GetEventCount(name string) uint64 {
	if name == "cycle" {
		return 9
	}

	return 1
}

type traceFlag struct{ on bool }

func (t *traceFlag) EnableTracing()  { t.on = true }
func (t *traceFlag) DisableTracing() { t.on = false }
func (t *traceFlag) IsTracing() bool { return t.on }

func call(h http.Handler, method, url string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, url, nil))

	return rec
}

func decode[T any](rec *httptest.ResponseRecorder) T {
	var v T
	Expect(json.Unmarshal(rec.Body.Bytes(), &v)).To(Succeed())

	return v
}

var _ = Describe("Monitor", func() {
	var (
		m       *Monitor
		s       *sim.Scheduler
		w       *world.ActorWorld
		a       *walker
		handler http.Handler
	)

	BeforeEach(func() {
		w = world.New(10, 10, 1)
		a = &walker{Name: "a"}
		w.AddObject(a, 0, 0)
		w.AddObject(&walker{Name: "b"}, 1, 1)

		s = sim.MakeSchedulerBuilder().
			WithWorld(w).
			WithSpeed(50).
			Build()

		m = NewMonitor()
		m.RegisterScheduler(s)
		handler = m.Handler()
	})

	AfterEach(func() {
		s.Shutdown()
	})

	It("should refuse requests without a scheduler", func() {
		rec := call(NewMonitor().Handler(), http.MethodGet, "/api/state")

		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("should report the state", func() {
		rec := call(handler, http.MethodGet, "/api/state")

		Expect(rec.Code).To(Equal(http.StatusOK))
		state := decode[stateRsp](rec)
		Expect(state.State).To(Equal("Stopped"))
		Expect(state.Paused).To(BeTrue())
		Expect(state.Speed).To(Equal(50))
		Expect(state.DelayMS).To(Equal(sim.DelayForSpeed(50).Milliseconds()))
	})

	It("should pause and continue", func() {
		rec := call(handler, http.MethodPost, "/api/continue")
		Expect(decode[stateRsp](rec).State).To(Equal("Running"))
		Expect(s.Paused()).To(BeFalse())

		rec = call(handler, http.MethodPost, "/api/pause")
		Expect(decode[stateRsp](rec).State).To(Equal("Stopped"))
		Expect(s.Paused()).To(BeTrue())
	})

	It("should set speed and delay", func() {
		call(handler, http.MethodPost, "/api/speed/100")
		Expect(s.Speed()).To(Equal(100))

		rec := call(handler, http.MethodPost, "/api/delay/250")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(s.Delay()).To(Equal(250 * time.Millisecond))

		Expect(call(handler, http.MethodPost, "/api/delay/abc").Code).
			To(Equal(http.StatusBadRequest))
		Expect(call(handler, http.MethodPost, "/api/speed/fast").Code).
			To(Equal(http.StatusBadRequest))
	})

	It("should reject speeds and delays out of range", func() {
		Expect(call(handler, http.MethodPost, "/api/speed/500").Code).
			To(Equal(http.StatusBadRequest))
		Expect(call(handler, http.MethodPost, "/api/speed/-1").Code).
			To(Equal(http.StatusBadRequest))
		Expect(s.Speed()).To(Equal(50))

		Expect(call(handler, http.MethodPost, "/api/delay/-5").Code).
			To(Equal(http.StatusBadRequest))
		Expect(s.Delay()).To(Equal(sim.DelayForSpeed(50)))

		Expect(call(handler, http.MethodPost, "/api/speed/0").Code).
			To(Equal(http.StatusOK))
		Expect(call(handler, http.MethodPost, "/api/delay/0").Code).
			To(Equal(http.StatusOK))
		Expect(s.Delay()).To(BeZero())
	})

	It("should step a paused simulation", func() {
		s.Start()

		rec := call(handler, http.MethodPost, "/api/step")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Eventually(s.Cycle).Should(Equal(uint64(1)))
	})

	It("should not step a running simulation", func() {
		s.SetPaused(false)

		rec := call(handler, http.MethodPost, "/api/step")

		Expect(rec.Code).To(Equal(http.StatusConflict))
	})

	It("should list actors in act order", func() {
		rec := call(handler, http.MethodGet, "/api/actors")

		actors := decode[[]actorRsp](rec)
		Expect(actors).To(Equal([]actorRsp{
			{Index: 0, Type: "*monitoring.walker"},
			{Index: 1, Type: "*monitoring.walker"},
		}))
	})

	It("should list no actors without a world", func() {
		s.SetWorld(nil)

		rec := call(handler, http.MethodGet, "/api/actors")

		Expect(decode[[]actorRsp](rec)).To(BeEmpty())
	})

	It("should serialize an actor", func() {
		a.Steps = 7

		rec := call(handler, http.MethodGet, "/api/actor/0")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).NotTo(BeEmpty())
	})

	It("should serialize a field of an actor by index", func() {
		a.Steps = 7
		req := url.PathEscape(`{"actor":0,"field_name":"Steps"}`)

		rec := call(handler, http.MethodGet, "/api/field/"+req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"t":"int","v":7`))
	})

	It("should reject field requests for unknown actors", func() {
		req := url.PathEscape(`{"actor":9,"field_name":"Steps"}`)
		Expect(call(handler, http.MethodGet, "/api/field/"+req).Code).
			To(Equal(http.StatusNotFound))

		req = url.PathEscape(`{"actor":"a","field_name":"Steps"}`)
		Expect(call(handler, http.MethodGet, "/api/field/"+req).Code).
			To(Equal(http.StatusBadRequest))
	})

	It("should reject unknown actors", func() {
		Expect(call(handler, http.MethodGet, "/api/actor/5").Code).
			To(Equal(http.StatusNotFound))
		Expect(call(handler, http.MethodGet, "/api/actor/x").Code).
			To(Equal(http.StatusBadRequest))
	})

	It("should report the cycle rate", func() {
		rec := call(handler, http.MethodGet, "/api/rate")
		Expect(decode[rateRsp](rec)).To(Equal(rateRsp{}))

		m.RegisterRateReporter(fixedRate{})
		rec = call(handler, http.MethodGet, "/api/rate")
		Expect(decode[rateRsp](rec)).To(Equal(
			rateRsp{CyclesPerSecond: 12.5, TotalCycles: 40}))
		Expect(rec.Body.String()).To(
			MatchJSON(`{"cycles_per_second":12.5,"total_cycles":40}`))
	})

	It("should list event counts in first-seen order", func() {
		rec := call(handler, http.MethodGet, "/api/events")
		Expect(decode[[]eventCountRsp](rec)).To(BeEmpty())

		m.RegisterEventCounter(fixedCounts{})
		rec = call(handler, http.MethodGet, "/api/events")
		Expect(decode[[]eventCountRsp](rec)).To(Equal([]eventCountRsp{
			{Name: "cycle", Count: 9},
			{Name: "fault", Count: 1},
		}))
	})

	It("should switch tracing", func() {
		Expect(call(handler, http.MethodPost, "/api/trace/start").Code).
			To(Equal(http.StatusServiceUnavailable))

		flag := &traceFlag{}
		m.RegisterTraceSwitch(flag)

		rec := call(handler, http.MethodPost, "/api/trace/start")
		Expect(decode[traceRsp](rec).Tracing).To(BeTrue())

		rec = call(handler, http.MethodPost, "/api/trace/stop")
		Expect(decode[traceRsp](rec).Tracing).To(BeFalse())

		Expect(call(handler, http.MethodPost, "/api/trace/toggle").Code).
			To(Equal(http.StatusBadRequest))
	})

	It("should list progress bars", func() {
		bar := m.CreateProgressBar("run", 10)
		bar.IncrementInProgress(3)
		bar.MoveInProgressToFinished(2)

		bars := decode[[]progressBarRsp](call(handler, http.MethodGet, "/api/progress"))
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Name).To(Equal("run"))
		Expect(bars[0].Finished).To(Equal(uint64(2)))
		Expect(bars[0].InProgress).To(Equal(uint64(1)))

		m.CompleteProgressBar(bar)
		bars = decode[[]progressBarRsp](call(handler, http.MethodGet, "/api/progress"))
		Expect(bars).To(BeEmpty())
	})

	It("should serve the page", func() {
		rec := call(handler, http.MethodGet, "/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(strings.HasPrefix(rec.Body.String(), "<!DOCTYPE html>")).To(BeTrue())
	})

	It("should replace reserved ports with a random one", func() {
		Expect(NewMonitor().WithPortNumber(80).portNumber).To(BeZero())
		Expect(NewMonitor().WithPortNumber(8080).portNumber).To(Equal(8080))
		Expect(NewMonitor().WithPortNumber(999).listenAddr()).To(Equal(":0"))
		Expect(NewMonitor().WithPortNumber(1000).listenAddr()).To(Equal(":1000"))
	})

	It("should serve on a real port", func() {
		Expect(m.StartServer()).To(Succeed())
		DeferCleanup(func() { Expect(m.StopServer(context.Background())).To(Succeed()) })

		rsp, err := http.Get(m.URL() + "/api/state")
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
	})
})
