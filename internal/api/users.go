package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

// UserHistoryHandler handles GET /v1/users/{id}/history, newest first.
// The optional limit query caps the number of entries.
func (s *Server) UserHistoryHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "user_history"
	const method = "GET"

	userID := mux.Vars(r)["id"]
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.finishRequest(endpoint, method, http.StatusBadRequest, start)
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}

	history, err := s.Manager.UserHistory(r.Context(), userID, limit)
	if err != nil {
		s.finishRequest(endpoint, method, http.StatusBadRequest, start)
		s.writeDomainError(w, err)
		return
	}

	s.finishRequest(endpoint, method, http.StatusOK, start)
	writeJSON(w, http.StatusOK, history)
}

// userPermissions is the response for GET /v1/users/{id}/permissions.
type userPermissions struct {
	UserID     string `json:"user_id"`
	Reputation int    `json:"reputation"`
	TrustLevel string `json:"trust_level"`
	CanPost    bool   `json:"can_post"`
	CanComment bool   `json:"can_comment"`
}

// UserPermissionsHandler handles GET /v1/users/{id}/permissions.
func (s *Server) UserPermissionsHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "user_permissions"
	const method = "GET"

	userID := mux.Vars(r)["id"]
	rep := s.Manager.Reputation()

	score, err := rep.Reputation(r.Context(), userID)
	if err != nil {
		s.finishRequest(endpoint, method, http.StatusInternalServerError, start)
		s.writeDomainError(w, err)
		return
	}
	level, err := rep.TrustLevel(r.Context(), userID)
	if err != nil {
		s.finishRequest(endpoint, method, http.StatusInternalServerError, start)
		s.writeDomainError(w, err)
		return
	}
	canPost, err := s.Manager.CanUserPost(r.Context(), userID)
	if err != nil {
		s.finishRequest(endpoint, method, http.StatusInternalServerError, start)
		s.writeDomainError(w, err)
		return
	}
	canComment, err := s.Manager.CanUserComment(r.Context(), userID)
	if err != nil {
		s.finishRequest(endpoint, method, http.StatusInternalServerError, start)
		s.writeDomainError(w, err)
		return
	}

	s.finishRequest(endpoint, method, http.StatusOK, start)
	writeJSON(w, http.StatusOK, userPermissions{
		UserID:     userID,
		Reputation: score,
		TrustLevel: string(level),
		CanPost:    canPost,
		CanComment: canComment,
	})
}
