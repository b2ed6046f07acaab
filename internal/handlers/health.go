package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type healthReport struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
	Uptime  string `json:"uptime"`
	API     string `json:"api"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	report := healthReport{
		Status:  "ok",
		Storage: "ok",
		Uptime:  time.Since(s.started).Round(time.Second).String(),
		API:     s.api.BaseURL(),
	}
	status := http.StatusOK
	if err := s.store.Ping(ctx); err != nil {
		s.log.Error("storage ping failed", zap.Error(err))
		report.Status, report.Storage = "degraded", "unavailable"
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(report)
}
