package server

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/stockcart/internal/modules/automation"
	"github.com/aristath/stockcart/internal/scheduler"
)

// HealthChecker is the database check behind the status endpoint
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// TickReporter exposes the last automation tick
type TickReporter interface {
	LastTick() automation.TickSummary
}

// ConnectionCounter reports live websocket sessions
type ConnectionCounter interface {
	Connections() int
}

// JobReporter reports scheduler job status
type JobReporter interface {
	Status() []scheduler.JobStatus
	RunNow(job scheduler.Job) error
}

// MarketClock reports when prices last moved
type MarketClock interface {
	LastRefresh() time.Time
}

// SystemHandlers serves operational endpoints
type SystemHandlers struct {
	log       zerolog.Logger
	startedAt time.Time
	db        HealthChecker
	ticks     TickReporter
	conns     ConnectionCounter
	jobs      JobReporter
	market    MarketClock

	mu          sync.RWMutex
	triggerable map[string]scheduler.Job
}

// NewSystemHandlers creates new system handlers. Any dependency may be nil.
func NewSystemHandlers(
	log zerolog.Logger,
	db HealthChecker,
	ticks TickReporter,
	conns ConnectionCounter,
	jobs JobReporter,
	market MarketClock,
) *SystemHandlers {
	h := &SystemHandlers{
		log:         log.With().Str("service", "system").Logger(),
		startedAt:   time.Now(),
		triggerable: make(map[string]scheduler.Job),
	}
	// Typed nils would defeat the nil checks below
	if !isNil(db) {
		h.db = db
	}
	if !isNil(ticks) {
		h.ticks = ticks
	}
	if !isNil(conns) {
		h.conns = conns
	}
	if !isNil(jobs) {
		h.jobs = jobs
	}
	if !isNil(market) {
		h.market = market
	}
	return h
}

// SystemStatusResponse is returned by GET /api/system/status
type SystemStatusResponse struct {
	Status            string                  `json:"status"`
	UptimeSeconds     int64                   `json:"uptime_seconds"`
	CPUPercent        float64                 `json:"cpu_percent"`
	MemoryPercent     float64                 `json:"memory_percent"`
	Goroutines        int                     `json:"goroutines"`
	Database          string                  `json:"database"`
	WebsocketSessions int                     `json:"websocket_sessions"`
	LastTick          *automation.TickSummary `json:"last_tick,omitempty"`
	LastMarketRefresh *time.Time              `json:"last_market_refresh,omitempty"`
}

// JobsStatusResponse is returned by GET /api/system/jobs
type JobsStatusResponse struct {
	TotalJobs int                   `json:"total_jobs"`
	Jobs      []scheduler.JobStatus `json:"jobs"`
}

// RegisterJob makes job runnable through HandleTriggerJob
func (h *SystemHandlers) RegisterJob(job scheduler.Job) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.triggerable[job.Name()] = job
}

// GetSystemStatusSnapshot collects the current system status
func (h *SystemHandlers) GetSystemStatusSnapshot(ctx context.Context) SystemStatusResponse {
	cpuPercent, memPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
		Database:      "unknown",
	}

	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			h.log.Warn().Err(err).Msg("Database health check failed")
			response.Database = "unhealthy"
			response.Status = "degraded"
		} else {
			response.Database = "healthy"
		}
	}

	if h.conns != nil {
		response.WebsocketSessions = h.conns.Connections()
	}

	if h.ticks != nil {
		if last := h.ticks.LastTick(); !last.StartedAt.IsZero() {
			response.LastTick = &last
		}
	}

	if h.market != nil {
		if last := h.market.LastRefresh(); !last.IsZero() {
			response.LastMarketRefresh = &last
		}
	}

	return response
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")
	h.writeJSON(w, http.StatusOK, h.GetSystemStatusSnapshot(r.Context()))
}

// HandleJobsStatus handles GET /api/system/jobs
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	jobs := []scheduler.JobStatus{}
	if h.jobs != nil {
		jobs = h.jobs.Status()
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })

	h.writeJSON(w, http.StatusOK, JobsStatusResponse{TotalJobs: len(jobs), Jobs: jobs})
}

// HandleTriggerJob handles POST /api/system/jobs/{name}/run
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	h.mu.RLock()
	job, ok := h.triggerable[name]
	h.mu.RUnlock()
	if !ok || h.jobs == nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	if err := h.jobs.RunNow(job); err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Triggered job failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "failed",
			"job":    name,
			"error":  err.Error(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "completed", "job": name})
}

// getSystemStats calculates CPU and RAM usage percentages.
// CPU is sampled over 100ms to keep the endpoint responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}
