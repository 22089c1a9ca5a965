package api

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Services  healthServices `json:"services"`
}

type healthServices struct {
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbStatus := "disabled"
	if s.db != nil {
		dbStatus = "connected"
		if err := s.db.Ping(ctx); err != nil {
			dbStatus = "disconnected"
		}
	}

	cacheStatus := "disabled"
	if name := s.pnl.CacheName(); name != "" {
		cacheStatus = name
		if err := s.pnl.PingCache(ctx); err != nil {
			cacheStatus = name + " (unreachable)"
		}
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  healthServices{Database: dbStatus, Cache: cacheStatus},
	})
}
