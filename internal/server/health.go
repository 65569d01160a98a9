package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/sweetshop/console/internal/backend"
)

type (
	// HealthSrvc handles business logic for health check functionality
	HealthSrvc struct {
		api *backend.Client
	}

	// HealthResponse represents the response structure for health check endpoint
	HealthResponse struct {
		Status    string    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
		Backend   bool      `json:"backend"`
	}
)

func NewHealthHandler(srvc *HealthSrvc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := hlog.FromRequest(r)

		response := srvc.check(ctx)

		w.Header().Set("Content-Type", "application/json")

		if response.Backend {
			logger.Debug().Msg("Backend healthcheck ok")
			w.WriteHeader(http.StatusOK)
		} else {
			logger.Error().Msg("Backend healthcheck failed")
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		if err := json.NewEncoder(w).Encode(response); err != nil {
			logger.Error().Err(err).Msg("Failed to encode health check response")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}
}

func NewHealthSrvc(api *backend.Client) *HealthSrvc {
	return &HealthSrvc{api: api}
}

// check probes the remote API at the transport level; any HTTP response
// counts as reachable.
func (s *HealthSrvc) check(ctx context.Context) HealthResponse {
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err := s.api.Ping(probeCtx)

	now := time.Now().UTC()

	backendOk := err == nil
	if backendOk {
		return HealthResponse{
			Status:    "serving",
			Timestamp: now,
			Backend:   backendOk,
		}
	} else {
		return HealthResponse{
			Status:    "not serving",
			Timestamp: now,
			Backend:   backendOk,
		}
	}
}
