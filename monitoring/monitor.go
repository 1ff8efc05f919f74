// Package monitoring turns a running simulation into a web server that can be
// inspected and controlled from a browser.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/sarchlab/greenstep/monitoring/web"
	"github.com/sarchlab/greenstep/sim"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Scheduler is the part of a scheduler that the monitor inspects and
// controls. *sim.Scheduler implements it.
type Scheduler interface {
	SetPaused(paused bool)
	Paused() bool
	State() sim.State
	RequestStep()
	SetSpeed(speed int)
	Speed() int
	SetDelay(delay time.Duration)
	Delay() time.Duration
	Cycle() uint64
	World() sim.World
}

// RateReporter reports how fast cycles complete.
type RateReporter interface {
	Rate() float64
	Total() uint64
}

// EventCounter reports how often each kind of scheduler event happened.
type EventCounter interface {
	GetEventNames() []string
	GetEventCount(name string) uint64
}

// TraceSwitch turns cycle recording on and off.
type TraceSwitch interface {
	EnableTracing()
	DisableTracing()
	IsTracing() bool
}

// Monitor can turn a simulation into a server and allows external monitoring
// and controlling of the simulation.
type Monitor struct {
	scheduler   Scheduler
	rate        RateReporter
	events      EventCounter
	trace       TraceSwitch
	portNumber  int
	openBrowser bool

	server   *http.Server
	listener net.Listener

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser makes StartServer open the monitoring page in a browser.
func (m *Monitor) WithBrowser() *Monitor {
	m.openBrowser = true
	return m
}

// RegisterScheduler registers the scheduler that is monitored.
func (m *Monitor) RegisterScheduler(s Scheduler) {
	m.scheduler = s
}

// RegisterRateReporter sets where the cycle rate is read from.
func (m *Monitor) RegisterRateReporter(r RateReporter) {
	m.rate = r
}

// RegisterEventCounter sets where the event counts are read from.
func (m *Monitor) RegisterEventCounter(c EventCounter) {
	m.events = c
}

// RegisterTraceSwitch sets the tracer that can be turned on and off.
func (m *Monitor) RegisterTraceSwitch(t TraceSwitch) {
	m.trace = t
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Handler returns the router that serves the monitoring API and page.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	fServer := http.FileServer(web.GetAssets())
	r.HandleFunc("/api/state", m.state)
	r.HandleFunc("/api/pause", m.pause)
	r.HandleFunc("/api/continue", m.continueRunning)
	r.HandleFunc("/api/step", m.step)
	r.HandleFunc("/api/speed/{speed}", m.setSpeed)
	r.HandleFunc("/api/delay/{ms}", m.setDelay)
	r.HandleFunc("/api/actors", m.listActors)
	r.HandleFunc("/api/actor/{index}", m.actorDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/rate", m.cycleRate)
	r.HandleFunc("/api/events", m.eventCounts)
	r.HandleFunc("/api/trace/{switch}", m.switchTrace)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.PathPrefix("/").Handler(fServer)

	return r
}

// StartServer starts the monitor as a web server in the background.
func (m *Monitor) StartServer() error {
	actualPort := m.listenAddr()

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return fmt.Errorf("monitoring: listen on %s: %w", actualPort, err)
	}

	m.listener = listener
	m.server = &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", m.URL())

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Panic(err)
		}
	}()

	if m.openBrowser {
		if err := browser.OpenURL(m.URL()); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open browser: %v\n", err)
		}
	}

	return nil
}

func (m *Monitor) listenAddr() string {
	if m.portNumber >= 1000 {
		return ":" + strconv.Itoa(m.portNumber)
	}

	return ":0"
}

// URL returns the address of the monitoring page. It is empty before the
// server starts.
func (m *Monitor) URL() string {
	if m.listener == nil {
		return ""
	}

	return fmt.Sprintf("http://localhost:%d",
		m.listener.Addr().(*net.TCPAddr).Port)
}

// StopServer shuts the web server down.
func (m *Monitor) StopServer(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

type stateRsp struct {
	State   string `json:"state"`
	Paused  bool   `json:"paused"`
	Speed   int    `json:"speed"`
	DelayMS int64  `json:"delay_ms"`
	Cycle   uint64 `json:"cycle"`
}

func (m *Monitor) state(w http.ResponseWriter, _ *http.Request) {
	s := m.schedulerOr503(w)
	if s == nil {
		return
	}

	writeJSON(w, stateRsp{
		State:   s.State().String(),
		Paused:  s.Paused(),
		Speed:   s.Speed(),
		DelayMS: s.Delay().Milliseconds(),
		Cycle:   s.Cycle(),
	})
}

func (m *Monitor) pause(w http.ResponseWriter, r *http.Request) {
	s := m.schedulerOr503(w)
	if s == nil {
		return
	}

	s.SetPaused(true)
	m.state(w, r)
}

func (m *Monitor) continueRunning(w http.ResponseWriter, r *http.Request) {
	s := m.schedulerOr503(w)
	if s == nil {
		return
	}

	s.SetPaused(false)
	m.state(w, r)
}

func (m *Monitor) step(w http.ResponseWriter, r *http.Request) {
	s := m.schedulerOr503(w)
	if s == nil {
		return
	}

	if !s.Paused() {
		http.Error(w, "simulation is running", http.StatusConflict)
		return
	}

	s.RequestStep()
	m.state(w, r)
}

func (m *Monitor) setSpeed(w http.ResponseWriter, r *http.Request) {
	s := m.schedulerOr503(w)
	if s == nil {
		return
	}

	speed, err := strconv.Atoi(mux.Vars(r)["speed"])
	if err != nil || speed < 0 || speed > sim.MaxSpeed {
		http.Error(w, "speed must be an integer in [0, 100]",
			http.StatusBadRequest)
		return
	}

	s.SetSpeed(speed)
	m.state(w, r)
}

func (m *Monitor) setDelay(w http.ResponseWriter, r *http.Request) {
	s := m.schedulerOr503(w)
	if s == nil {
		return
	}

	ms, err := strconv.ParseInt(mux.Vars(r)["ms"], 10, 64)
	if err != nil || ms < 0 {
		http.Error(w, "delay must be a non-negative number of milliseconds",
			http.StatusBadRequest)
		return
	}

	s.SetDelay(time.Duration(ms) * time.Millisecond)
	m.state(w, r)
}

type actorRsp struct {
	Index int    `json:"index"`
	Type  string `json:"type"`
}

func (m *Monitor) listActors(w http.ResponseWriter, _ *http.Request) {
	s := m.schedulerOr503(w)
	if s == nil {
		return
	}

	actors := m.actors(s)
	rsp := make([]actorRsp, 0, len(actors))
	for i, a := range actors {
		rsp = append(rsp, actorRsp{Index: i, Type: fmt.Sprintf("%T", a)})
	}

	writeJSON(w, rsp)
}

func (m *Monitor) actors(s Scheduler) []sim.Actor {
	world := s.World()
	if world == nil {
		return nil
	}

	lock := world.WorldLock()
	lock.Lock()
	defer lock.Unlock()

	return world.Actors()
}

func (m *Monitor) actorDetails(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		http.Error(w, "invalid actor index", http.StatusBadRequest)
		return
	}

	actor := m.findActorOr404(w, index)
	if actor == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(actor)
	serializer.SetMaxDepth(1)
	err = serializer.Serialize(w)

	dieOnErr(err)
}

type fieldReq struct {
	Actor     int    `json:"actor"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		http.Error(w, "invalid field request", http.StatusBadRequest)
		return
	}

	actor := m.findActorOr404(w, req.Actor)
	if actor == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(actor)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

func (m *Monitor) findActorOr404(w http.ResponseWriter, i int) sim.Actor {
	s := m.schedulerOr503(w)
	if s == nil {
		return nil
	}

	actors := m.actors(s)
	if i < 0 || i >= len(actors) {
		http.Error(w, "Actor not found", http.StatusNotFound)
		return nil
	}

	return actors[i]
}

type rateRsp struct {
	CyclesPerSecond float64 `json:"cycles_per_second"`
	TotalCycles     uint64  `json:"total_cycles"`
}

func (m *Monitor) cycleRate(w http.ResponseWriter, _ *http.Request) {
	if m.rate == nil {
		writeJSON(w, rateRsp{})
		return
	}

	writeJSON(w, rateRsp{
		CyclesPerSecond: m.rate.Rate(),
		TotalCycles:     m.rate.Total(),
	})
}

type eventCountRsp struct {
	Name  string `json:"name"`
	Count uint64 `json:"count"`
}

func (m *Monitor) eventCounts(w http.ResponseWriter, _ *http.Request) {
	rsp := []eventCountRsp{}

	if m.events != nil {
		for _, name := range m.events.GetEventNames() {
			rsp = append(rsp, eventCountRsp{
				Name:  name,
				Count: m.events.GetEventCount(name),
			})
		}
	}

	writeJSON(w, rsp)
}

type traceRsp struct {
	Tracing bool `json:"tracing"`
}

func (m *Monitor) switchTrace(w http.ResponseWriter, r *http.Request) {
	if m.trace == nil {
		http.Error(w, "recording is disabled", http.StatusServiceUnavailable)
		return
	}

	switch mux.Vars(r)["switch"] {
	case "start":
		m.trace.EnableTracing()
	case "stop":
		m.trace.DisableTracing()
	case "status":
	default:
		http.Error(w, "use start, stop, or status", http.StatusBadRequest)
		return
	}

	writeJSON(w, traceRsp{Tracing: m.trace.IsTracing()})
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bars := make([]progressBarRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func (m *Monitor) schedulerOr503(w http.ResponseWriter) Scheduler {
	if m.scheduler == nil {
		http.Error(w, "no scheduler registered", http.StatusServiceUnavailable)
	}

	return m.scheduler
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
