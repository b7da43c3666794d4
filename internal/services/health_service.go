package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"poscope/internal/infrastructure"
	"poscope/pkg/contracts"
)

// SessionCounter reports how many sessions are held
type SessionCounter interface {
	Len() int
}

// HealthService provides health check functionality
type HealthService struct {
	version     string
	buildTime   string
	gitCommit   string
	sessions    SessionCounter
	maxSessions int
	startTime   time.Time
	logger      *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// NewHealthService creates a health service using the linked build information
func NewHealthService(sessions SessionCounter, maxSessions int, logger *slog.Logger) *HealthService {
	info := contracts.GetVersionInfo()
	return NewHealthServiceWithBuildInfo(info.Version, info.BuildTime, info.GitCommit, sessions, maxSessions, logger)
}

// NewHealthServiceWithBuildInfo creates a health service with explicit build information
func NewHealthServiceWithBuildInfo(version, buildTime, gitCommit string, sessions SessionCounter, maxSessions int, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime),
		slog.String("git_commit", gitCommit))

	return &HealthService{
		version:     version,
		buildTime:   buildTime,
		gitCommit:   gitCommit,
		sessions:    sessions,
		maxSessions: maxSessions,
		startTime:   time.Now(),
		logger:      logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck returns readiness status
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  make(map[string]interface{}),
	}

	status.Services["sessions"] = hs.checkSessionHealth()

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	stats := infrastructure.CollectSystemStats(hs.startTime)
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":       stats.ProcessUptime.Seconds(),
			"go_version":   runtime.Version(),
			"goroutines":   stats.GoRoutines,
			"memory_bytes": stats.MemoryUsage,
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"model_format": contracts.ModelFormatVersion,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	if hs.gitCommit != "" {
		result["git_commit"] = hs.gitCommit
	}
	return result
}

func (hs *HealthService) checkSessionHealth() ServiceHealth {
	if hs.sessions == nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "session store not initialized",
		}
	}

	n := hs.sessions.Len()
	if hs.maxSessions > 0 && n >= hs.maxSessions {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("session limit reached (%d/%d)", n, hs.maxSessions),
		}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d active sessions", n),
		Uptime:  time.Since(hs.startTime).String(),
	}
}
