// Package handler serves liveness and readiness checks for load balancers and Kubernetes.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const pingTimeout = 2 * time.Second

// Pinger checks connectivity (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server answers health checks. A nil Pinger skips the database check.
type Server struct {
	pinger Pinger
}

// NewServer returns a health server using pinger for readiness.
func NewServer(pinger Pinger) *Server {
	return &Server{pinger: pinger}
}

type healthResponse struct {
	Status string `json:"status"`
}

// Live always reports serving while the process runs.
func (s *Server) Live(w http.ResponseWriter, r *http.Request) {
	write(w, http.StatusOK, "serving")
}

// Ready reports not_serving when the database does not answer a ping.
func (s *Server) Ready(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		if err := s.pinger.PingContext(ctx); err != nil {
			write(w, http.StatusServiceUnavailable, "not_serving")
			return
		}
	}
	write(w, http.StatusOK, "serving")
}

func write(w http.ResponseWriter, status int, s string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(healthResponse{Status: s})
}
