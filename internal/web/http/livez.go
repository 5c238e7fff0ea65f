package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/marsweb/pkg/httpx"
)

// HealthResponse is the body of GET /livez.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}

// LivezHandler always answers 200 while the process is serving.
// It does not check the API.
//
//	@Summary	Liveness check
//	@Tags		System
//	@Produce	json
//	@Success	200	{object}	HealthResponse	"Process is serving"
//	@Router		/livez [get]
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
		})
	}
}
