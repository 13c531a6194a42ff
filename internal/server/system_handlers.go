package server

import (
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/bullbear/internal/database"
	"github.com/aristath/bullbear/internal/scheduler"
)

// SystemHandlers serves process status and manual job triggers
type SystemHandlers struct {
	db      *database.DB
	jobs    map[string]scheduler.Job
	started time.Time
	log     zerolog.Logger

	mu      sync.Mutex
	running map[string]bool
	wg      sync.WaitGroup
}

// NewSystemHandlers creates system handlers. db may be nil.
func NewSystemHandlers(db *database.DB, jobs []scheduler.Job, log zerolog.Logger) *SystemHandlers {
	byName := make(map[string]scheduler.Job, len(jobs))
	for _, j := range jobs {
		byName[j.Name()] = j
	}
	return &SystemHandlers{
		db:      db,
		jobs:    byName,
		started: time.Now(),
		running: make(map[string]bool),
		log:     log.With().Str("component", "system_handlers").Logger(),
	}
}

// SystemStatus is the payload of GET /api/system/status
type SystemStatus struct {
	UptimeSeconds int64           `json:"uptime_seconds"`
	GoVersion     string          `json:"go_version"`
	Goroutines    int             `json:"goroutines"`
	CPUPercent    float64         `json:"cpu_percent"`
	MemoryPercent float64         `json:"memory_percent"`
	CacheDB       *database.Stats `json:"cache_db,omitempty"`
	RunningJobs   []string        `json:"running_jobs"`
}

// HandleSystemStatus returns process and host statistics
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	status := SystemStatus{
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		GoVersion:     runtime.Version(),
		Goroutines:    runtime.NumGoroutine(),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		RunningJobs:   h.runningJobs(),
	}
	if h.db != nil {
		stats, err := h.db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to read cache database stats")
		} else {
			status.CacheDB = stats
		}
	}

	writeJSON(w, http.StatusOK, envelope(status, nil), h.log)
}

// getSystemStats samples CPU over a short interval so the call stays fast.
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

// HandleListJobs lists the jobs that can be triggered
// GET /api/jobs
func (h *SystemHandlers) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.jobs))
	for name := range h.jobs {
		names = append(names, name)
	}
	sort.Strings(names)

	writeJSON(w, http.StatusOK, envelope(names, map[string]interface{}{"running": h.runningJobs()}), h.log)
}

// HandleTriggerJob starts a job in the background
// POST /api/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	job, ok := h.jobs[name]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown job: "+name, h.log)
		return
	}

	h.mu.Lock()
	if h.running[name] {
		h.mu.Unlock()
		writeError(w, http.StatusConflict, "job already running: "+name, h.log)
		return
	}
	h.running[name] = true
	h.mu.Unlock()

	h.log.Info().Str("job", name).Msg("Manual job triggered")

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			h.mu.Lock()
			delete(h.running, name)
			h.mu.Unlock()
		}()
		if err := job.Run(); err != nil {
			h.log.Error().Err(err).Str("job", name).Msg("Manual job failed")
			return
		}
		h.log.Info().Str("job", name).Msg("Manual job completed")
	}()

	writeJSON(w, http.StatusAccepted, envelope(map[string]string{
		"status":  "started",
		"job":     name,
		"message": "Job triggered successfully",
	}, nil), h.log)
}

// Wait blocks until manually triggered jobs have finished.
func (h *SystemHandlers) Wait() {
	h.wg.Wait()
}

func (h *SystemHandlers) runningJobs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.running))
	for name := range h.running {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
