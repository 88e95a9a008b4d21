package api

import (
	"net/http"
	"time"
)

// StatisticsHandler handles GET /v1/statistics. The public=true query
// returns the reduced projection; the default is the full admin view.
func (s *Server) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "statistics"
	const method = "GET"

	if r.URL.Query().Get("public") == "true" {
		stats, err := s.Manager.PublicStatistics(r.Context())
		if err != nil {
			s.finishRequest(endpoint, method, http.StatusInternalServerError, start)
			s.writeDomainError(w, err)
			return
		}
		s.finishRequest(endpoint, method, http.StatusOK, start)
		writeJSON(w, http.StatusOK, stats)
		return
	}

	stats, err := s.Manager.Statistics(r.Context())
	if err != nil {
		s.finishRequest(endpoint, method, http.StatusInternalServerError, start)
		s.writeDomainError(w, err)
		return
	}
	s.finishRequest(endpoint, method, http.StatusOK, start)
	writeJSON(w, http.StatusOK, stats)
}
