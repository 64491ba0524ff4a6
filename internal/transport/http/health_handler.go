package http

import (
	"net/http"
	"time"

	"github.com/go-chi/render"

	"attendcalc/pkg/contracts"
)

// HealthResponse is the body of GET /healthz
type HealthResponse struct {
	Status   string                `json:"status"`
	Version  string                `json:"version"`
	Build    contracts.VersionInfo `json:"build"`
	Uptime   string                `json:"uptime"`
	Mappings int                   `json:"mappings"`
	Time     time.Time             `json:"time"`
}

// MappingCounter reports the size of the mapping table
type MappingCounter interface {
	Len() int
}

// HealthHandler handles liveness checks
type HealthHandler struct {
	build    contracts.VersionInfo
	started  time.Time
	mappings MappingCounter
	now      func() time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(build contracts.VersionInfo, mappings MappingCounter) *HealthHandler {
	return &HealthHandler{
		build:    build,
		started:  time.Now(),
		mappings: mappings,
		now:      time.Now,
	}
}

// HealthCheck handles GET /healthz
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	resp := HealthResponse{
		Status:  "ok",
		Version: h.build.Version,
		Build:   h.build,
		Uptime:  now.Sub(h.started).Round(time.Second).String(),
		Time:    now.UTC(),
	}
	if h.mappings != nil {
		resp.Mappings = h.mappings.Len()
	}
	render.JSON(w, r, resp)
}
