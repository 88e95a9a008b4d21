// Package api exposes the moderation engine over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/avct/uasurfer"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wardenhq/warden/internal/geoip"
	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/moderation"
	"github.com/wardenhq/warden/internal/observability"
	"github.com/wardenhq/warden/internal/ratelimit"
)

// Server groups dependencies for HTTP handlers.
type Server struct {
	Logger         *zap.Logger
	Manager        *moderation.Manager
	GeoIP          *geoip.GeoIP
	Metrics        observability.MetricsRegistry
	ReviewerSecret []byte
	ReviewerTTL    time.Duration
	// Limiter, when set, rate limits moderation submissions per user.
	Limiter *ratelimit.UserLimiter
}

// NewServer constructs a Server.
func NewServer(logger *zap.Logger, manager *moderation.Manager, geo *geoip.GeoIP, metrics observability.MetricsRegistry, reviewerSecret []byte, reviewerTTL time.Duration) *Server {
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		Logger:         logger,
		Manager:        manager,
		GeoIP:          geo,
		Metrics:        metrics,
		ReviewerSecret: reviewerSecret,
		ReviewerTTL:    reviewerTTL,
	}
}

// Routes registers all API routes on the router.
func (s *Server) Routes(r *mux.Router) {
	r.HandleFunc("/v1/moderate/content", s.ModerateContentHandler).Methods("POST")
	r.HandleFunc("/v1/moderate/image", s.ModerateImageHandler).Methods("POST")
	r.HandleFunc("/v1/appeals", s.CreateAppealHandler).Methods("POST")
	r.HandleFunc("/v1/appeals", s.ListAppealsHandler).Methods("GET")
	r.HandleFunc("/v1/appeals/{id}/resolve", s.ResolveAppealHandler).Methods("POST")
	r.HandleFunc("/v1/statistics", s.StatisticsHandler).Methods("GET")
	r.HandleFunc("/v1/users/{id}/history", s.UserHistoryHandler).Methods("GET")
	r.HandleFunc("/v1/users/{id}/permissions", s.UserPermissionsHandler).Methods("GET")
	r.HandleFunc("/health", s.HealthHandler).Methods("GET")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeDomainError maps the engine's error taxonomy onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrUnauthorized):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrInvalidState):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		s.Logger.Error("internal error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// clientIP extracts the originating IP, preferring X-Forwarded-For.
func clientIP(r *http.Request) net.IP {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if ip := net.ParseIP(first); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return net.ParseIP(r.RemoteAddr)
	}
	return net.ParseIP(host)
}

// deviceType classifies the request's User-Agent.
func deviceType(uaString string) string {
	if uaString == "" {
		return ""
	}
	u := uasurfer.Parse(uaString)
	switch u.DeviceType {
	case uasurfer.DeviceComputer:
		return "desktop"
	case uasurfer.DevicePhone:
		return "mobile"
	case uasurfer.DeviceTablet:
		return "tablet"
	default:
		return "other"
	}
}

// allowRequest consults the rate limiter. A nil limiter allows everything.
func (s *Server) allowRequest(endpoint, userID string) bool {
	if s.Limiter == nil {
		return true
	}
	return s.Limiter.Allow(endpoint, userID)
}

// enrichContext fills in region and device metadata from the request.
func (s *Server) enrichContext(r *http.Request, rctx *models.RequestContext) {
	if s.GeoIP != nil {
		rctx.Country = s.GeoIP.Country(clientIP(r))
	}
	rctx.DeviceType = deviceType(r.UserAgent())
}
