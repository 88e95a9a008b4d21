package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wardenhq/warden/internal/middleware"
	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/store"
	"github.com/wardenhq/warden/internal/token"
)

// CreateAppealRequest is the payload for filing an appeal.
type CreateAppealRequest struct {
	UserID   string `json:"user_id"`
	ActionID string `json:"action_id"`
	Reason   string `json:"reason"`
}

// ResolveAppealRequest is the payload for resolving an appeal. The
// reviewer token must be presented in the X-Reviewer-Token header.
type ResolveAppealRequest struct {
	Resolution string `json:"resolution"`
	Note       string `json:"note"`
}

// CreateAppealHandler handles POST /v1/appeals.
func (s *Server) CreateAppealHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "create_appeal"
	const method = "POST"

	var req CreateAppealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.finishRequest(endpoint, method, http.StatusBadRequest, start)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	appeal, err := s.Manager.CreateAppeal(r.Context(), req.UserID, req.ActionID, req.Reason)
	if err != nil {
		s.finishRequest(endpoint, method, http.StatusBadRequest, start)
		s.writeDomainError(w, err)
		return
	}

	s.finishRequest(endpoint, method, http.StatusCreated, start)
	writeJSON(w, http.StatusCreated, appeal)
}

// ResolveAppealHandler handles POST /v1/appeals/{id}/resolve. The caller
// must present a valid reviewer token; the manager additionally checks
// the reviewer's moderate capability.
func (s *Server) ResolveAppealHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "resolve_appeal"
	const method = "POST"

	reviewerID, err := token.Validate(r.Header.Get("X-Reviewer-Token"), s.ReviewerTTL, s.ReviewerSecret)
	if err != nil {
		middleware.LoggerFromRequest(r, s.Logger).Warn("reviewer token rejected", zap.Error(err))
		s.finishRequest(endpoint, method, http.StatusUnauthorized, start)
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid reviewer token"})
		return
	}

	var req ResolveAppealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.finishRequest(endpoint, method, http.StatusBadRequest, start)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	appealID := mux.Vars(r)["id"]
	appeal, err := s.Manager.ResolveAppeal(r.Context(), appealID, models.AppealStatus(req.Resolution), reviewerID, req.Note)
	if err != nil {
		s.finishRequest(endpoint, method, http.StatusBadRequest, start)
		s.writeDomainError(w, err)
		return
	}

	s.finishRequest(endpoint, method, http.StatusOK, start)
	writeJSON(w, http.StatusOK, appeal)
}

// ListAppealsHandler handles GET /v1/appeals with optional status and
// user_id filters.
func (s *Server) ListAppealsHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "list_appeals"
	const method = "GET"

	filter := store.AppealFilter{
		Status: models.AppealStatus(r.URL.Query().Get("status")),
		UserID: r.URL.Query().Get("user_id"),
	}
	if filter.Status != "" && !filter.Status.ValidResolution() && filter.Status != models.AppealPending {
		s.finishRequest(endpoint, method, http.StatusBadRequest, start)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown status filter"})
		return
	}

	appealsList, err := s.Manager.ListAppeals(r.Context(), filter)
	if err != nil {
		s.finishRequest(endpoint, method, http.StatusInternalServerError, start)
		s.writeDomainError(w, err)
		return
	}

	s.finishRequest(endpoint, method, http.StatusOK, start)
	writeJSON(w, http.StatusOK, appealsList)
}
