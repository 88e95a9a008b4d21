package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/wardenhq/warden/internal/models"
)

// ModerateContentRequest is the payload for text moderation.
type ModerateContentRequest struct {
	Content     string `json:"content"`
	UserID      string `json:"user_id"`
	ContentType string `json:"content_type"`
	ContentID   string `json:"content_id"`
}

// ModerateImageRequest is the payload for image moderation.
type ModerateImageRequest struct {
	ImageURL    string `json:"image_url"`
	UserID      string `json:"user_id"`
	ContentType string `json:"content_type"`
	ContentID   string `json:"content_id"`
}

// ModerateContentHandler handles POST /v1/moderate/content. It always
// answers 200 with a Decision; enforcing a block (e.g. rejecting the
// write with a 403) is the caller's job.
func (s *Server) ModerateContentHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "moderate_content"
	const method = "POST"

	var req ModerateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.finishRequest(endpoint, method, http.StatusBadRequest, start)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	if !s.allowRequest(endpoint, req.UserID) {
		s.finishRequest(endpoint, method, http.StatusTooManyRequests, start)
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
		return
	}

	rctx := models.RequestContext{
		UserID:      req.UserID,
		ContentType: req.ContentType,
		ContentID:   req.ContentID,
	}
	s.enrichContext(r, &rctx)

	decision, err := s.Manager.ModerateContent(r.Context(), req.Content, rctx)
	if err != nil {
		s.finishRequest(endpoint, method, http.StatusBadRequest, start)
		s.writeDomainError(w, err)
		return
	}

	s.finishRequest(endpoint, method, http.StatusOK, start)
	writeJSON(w, http.StatusOK, decision)
}

// ModerateImageHandler handles POST /v1/moderate/image.
func (s *Server) ModerateImageHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "moderate_image"
	const method = "POST"

	var req ModerateImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.finishRequest(endpoint, method, http.StatusBadRequest, start)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}
	if req.ImageURL == "" {
		s.finishRequest(endpoint, method, http.StatusBadRequest, start)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "image_url required"})
		return
	}

	if !s.allowRequest(endpoint, req.UserID) {
		s.finishRequest(endpoint, method, http.StatusTooManyRequests, start)
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
		return
	}

	rctx := models.RequestContext{
		UserID:      req.UserID,
		ContentType: req.ContentType,
		ContentID:   req.ContentID,
	}
	s.enrichContext(r, &rctx)

	decision, err := s.Manager.ModerateImage(r.Context(), req.ImageURL, rctx)
	if err != nil {
		s.finishRequest(endpoint, method, http.StatusBadRequest, start)
		s.writeDomainError(w, err)
		return
	}

	s.finishRequest(endpoint, method, http.StatusOK, start)
	writeJSON(w, http.StatusOK, decision)
}

func (s *Server) finishRequest(endpoint, method string, status int, start time.Time) {
	s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(status))
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}
