package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"
)

const Version = "1.0.0"

// HealthCheck checks one dependency. A nil check means the dependency is
// not configured.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	Checks      map[string]HealthCheck
	Environment string
	StartTime   time.Time
	Timeout     time.Duration
}

type HealthResponse struct {
	Success      bool              `json:"success"`
	Status       string            `json:"status"`
	Message      string            `json:"message"`
	Version      string            `json:"version"`
	Environment  string            `json:"environment"`
	Uptime       string            `json:"uptime"`
	Timestamp    time.Time         `json:"timestamp"`
	Dependencies map[string]string `json:"dependencies"`
}

func NewHealthHandler(environment string, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{
		Checks:      checks,
		Environment: environment,
		StartTime:   time.Now(),
		Timeout:     2 * time.Second,
	}
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	deps := make(map[string]string, len(names))
	status := "healthy"
	for _, name := range names {
		check := h.Checks[name]
		if check == nil {
			deps[name] = "not configured"
			continue
		}
		if err := check(ctx); err != nil {
			deps[name] = fmt.Sprintf("unhealthy: %v", err)
			status = "degraded"
			continue
		}
		deps[name] = "healthy"
	}

	response := HealthResponse{
		Success:      status == "healthy",
		Status:       status,
		Message:      "Cohort Enrollment API is running",
		Version:      Version,
		Environment:  h.Environment,
		Uptime:       time.Since(h.StartTime).Round(time.Second).String(),
		Timestamp:    time.Now().UTC(),
		Dependencies: deps,
	}

	code := http.StatusOK
	if status == "degraded" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, response)
}

// Root (GET /) lists the API entry points.
func Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Welcome to Cohort Enrollment Automation API",
		"version": Version,
		"endpoints": map[string]string{
			"health":  "/api/health",
			"form":    "/api/form",
			"email":   "/api/email",
			"metrics": "/metrics",
		},
	})
}
