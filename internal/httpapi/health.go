package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"

	"speedwordle/internal/dictionary"
	"speedwordle/internal/match"
	"speedwordle/internal/matchmaking"
)

// HealthHandler handles health check and system monitoring endpoints
type HealthHandler struct {
	engine     *match.Engine
	queue      *matchmaking.Queue
	dictionary *dictionary.Dictionary
	startTime  time.Time
}

func NewHealthHandler(engine *match.Engine, queue *matchmaking.Queue, dict *dictionary.Dictionary) *HealthHandler {
	return &HealthHandler{
		engine:     engine,
		queue:      queue,
		dictionary: dict,
		startTime:  time.Now(),
	}
}

type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

type HealthResponse struct {
	Status       HealthStatus                `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version"`
	Uptime       string                      `json:"uptime"`
	System       SystemMetrics               `json:"system"`
	Application  ApplicationMetrics          `json:"application"`
	Dependencies map[string]DependencyHealth `json:"dependencies"`
}

type SystemMetrics struct {
	Memory     MemoryMetrics `json:"memory"`
	Goroutines int           `json:"goroutines"`
	CPUCount   int           `json:"cpuCount"`
}

type MemoryMetrics struct {
	Allocated   uint64 `json:"allocated"`
	TotalAlloc  uint64 `json:"totalAlloc"`
	Sys         uint64 `json:"sys"`
	NumGC       uint32 `json:"numGC"`
	HeapAlloc   uint64 `json:"heapAlloc"`
	HeapSys     uint64 `json:"heapSys"`
	HeapObjects uint64 `json:"heapObjects"`
}

// ApplicationMetrics reports the match engine and matchmaking queue state.
type ApplicationMetrics struct {
	Matches     MatchMetrics     `json:"matches"`
	Matchmaking MatchmakingMetrics `json:"matchmaking"`
}

type MatchMetrics struct {
	Active         int `json:"active"`
	BotMatches     int `json:"botMatches"`
	TrackedPlayers int `json:"trackedPlayers"`
}

type MatchmakingMetrics struct {
	Waiting int64 `json:"waiting"`
}

type DependencyHealth struct {
	Status       HealthStatus `json:"status"`
	Message      string       `json:"message,omitempty"`
	CheckedAt    time.Time    `json:"checkedAt"`
	ResponseTime string       `json:"responseTime,omitempty"`
}

// HealthCheck handles GET /health with comprehensive health information.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	start := time.Now()

	systemMetrics := h.collectSystemMetrics()
	appMetrics := h.collectApplicationMetrics(r)
	dependencies := h.checkDependencies()
	status := h.determineOverallHealth(systemMetrics, dependencies)

	response := HealthResponse{
		Status:       status,
		Timestamp:    time.Now(),
		Version:      "1.0.0",
		Uptime:       time.Since(h.startTime).String(),
		System:       systemMetrics,
		Application:  appMetrics,
		Dependencies: dependencies,
	}

	statusCode := http.StatusOK
	if status == HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode health check response: %v", err)
	}

	if duration := time.Since(start); duration > 100*time.Millisecond {
		log.Printf("Health check took %v (longer than expected)", duration)
	}
}

// LivenessProbe handles GET /health/liveness for Kubernetes-style liveness probes.
func (h *HealthHandler) LivenessProbe(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}

// ReadinessProbe handles GET /health/readiness for Kubernetes-style readiness probes.
func (h *HealthHandler) ReadinessProbe(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	dependencies := h.checkDependencies()
	ready := true
	for _, dep := range dependencies {
		if dep.Status == HealthStatusUnhealthy {
			ready = false
			break
		}
	}

	status := "ready"
	statusCode := http.StatusOK
	if !ready {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":       status,
		"timestamp":    time.Now(),
		"dependencies": dependencies,
	})
}

func (h *HealthHandler) collectSystemMetrics() SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemMetrics{
		Memory: MemoryMetrics{
			Allocated:   m.Alloc,
			TotalAlloc:  m.TotalAlloc,
			Sys:         m.Sys,
			NumGC:       m.NumGC,
			HeapAlloc:   m.HeapAlloc,
			HeapSys:     m.HeapSys,
			HeapObjects: m.HeapObjects,
		},
		Goroutines: runtime.NumGoroutine(),
		CPUCount:   runtime.NumCPU(),
	}
}

func (h *HealthHandler) collectApplicationMetrics(r *http.Request) ApplicationMetrics {
	engineMetrics := h.engine.Metrics()

	mm := MatchmakingMetrics{}
	if h.queue != nil {
		if n, err := h.queue.Len(r.Context()); err == nil {
			mm.Waiting = n
		}
	}

	return ApplicationMetrics{
		Matches: MatchMetrics{
			Active:         engineMetrics.ActiveMatches,
			BotMatches:     engineMetrics.BotMatches,
			TrackedPlayers: engineMetrics.TrackedPlayers,
		},
		Matchmaking: mm,
	}
}

func (h *HealthHandler) checkDependencies() map[string]DependencyHealth {
	return map[string]DependencyHealth{
		"dictionary": h.checkDictionaryHealth(),
	}
}

func (h *HealthHandler) checkDictionaryHealth() DependencyHealth {
	start := time.Now()

	if h.dictionary == nil {
		return DependencyHealth{
			Status:    HealthStatusUnhealthy,
			Message:   "dictionary not initialized",
			CheckedAt: time.Now(),
		}
	}

	// CRATE is a known answer-list word; a failed lookup means the word
	// lists never loaded.
	valid := h.dictionary.IsValidGuess("crate")
	responseTime := time.Since(start)

	if !valid {
		return DependencyHealth{
			Status:       HealthStatusDegraded,
			Message:      "dictionary validation test failed",
			CheckedAt:    time.Now(),
			ResponseTime: responseTime.String(),
		}
	}

	return DependencyHealth{
		Status:       HealthStatusHealthy,
		Message:      "dictionary operational",
		CheckedAt:    time.Now(),
		ResponseTime: responseTime.String(),
	}
}

func (h *HealthHandler) determineOverallHealth(system SystemMetrics, deps map[string]DependencyHealth) HealthStatus {
	unhealthyDeps, degradedDeps := 0, 0
	for _, dep := range deps {
		switch dep.Status {
		case HealthStatusUnhealthy:
			unhealthyDeps++
		case HealthStatusDegraded:
			degradedDeps++
		}
	}

	if unhealthyDeps > 0 {
		return HealthStatusUnhealthy
	}

	memoryUsageMB := float64(system.Memory.HeapAlloc) / 1024 / 1024
	if memoryUsageMB > 200 || system.Goroutines > 5000 || degradedDeps > 0 {
		return HealthStatusDegraded
	}

	return HealthStatusHealthy
}

// RegisterRoutes registers all health-related routes to the router.
func (h *HealthHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/health/liveness", h.LivenessProbe).Methods("GET")
	router.HandleFunc("/health/readiness", h.ReadinessProbe).Methods("GET")
}
