package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wardenhq/warden/internal/appeals"
	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/moderation"
	"github.com/wardenhq/warden/internal/observability"
	"github.com/wardenhq/warden/internal/ratelimit"
	"github.com/wardenhq/warden/internal/reputation"
	"github.com/wardenhq/warden/internal/store"
	"github.com/wardenhq/warden/internal/token"
)

var testSecret = []byte("test-secret")

func newTestServer(t *testing.T) (*mux.Router, store.Stores) {
	t.Helper()
	stores := store.NewMemory()
	rep := reputation.NewManager(stores.Reputation, reputation.DefaultConfig(), nil, nil)
	register := appeals.NewRegister(stores.Appeals, stores.Logs, nil, nil)

	manager := moderation.NewManager(moderation.Deps{
		Text:       moderation.NewLexicalScorer(),
		Image:      moderation.NewURLImageScorer(),
		Policy:     moderation.MustPolicy(moderation.DefaultPolicyConfig()),
		Logs:       stores.Logs,
		Reputation: rep,
		Appeals:    register,
	})

	srv := NewServer(zap.NewNop(), manager, nil, observability.NewNoOpRegistry(), testSecret, time.Hour)
	r := mux.NewRouter()
	srv.Routes(r)
	return r, stores
}

func doJSON(t *testing.T, r *mux.Router, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestModerateContentHandlerApproved(t *testing.T) {
	r, _ := newTestServer(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/moderate/content",
		`{"content":"A lovely day for gardening","user_id":"alice"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var decision models.Decision
	if err := json.Unmarshal(rec.Body.Bytes(), &decision); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decision.Action != models.ActionApproved {
		t.Fatalf("expected approved, got %s (%q)", decision.Action, decision.Reason)
	}
	if decision.LogID == "" {
		t.Fatal("expected log id in decision")
	}
}

func TestModerateContentHandlerBlockStillReturns200(t *testing.T) {
	r, _ := newTestServer(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/moderate/content",
		`{"content":"You are all idiots and I hate this toxic community","user_id":"bob"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("block decisions are returned, not enforced; expected 200, got %d", rec.Code)
	}

	var decision models.Decision
	if err := json.Unmarshal(rec.Body.Bytes(), &decision); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decision.Action != models.ActionBlock || !decision.Appealable {
		t.Fatalf("unexpected decision %+v", decision)
	}
}

func TestModerateContentHandlerBadInput(t *testing.T) {
	r, _ := newTestServer(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/moderate/content", `{"content":"hi"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing user_id should 400, got %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPost, "/v1/moderate/content", `{not json`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid json should 400, got %d", rec.Code)
	}
}

func TestModerateImageHandler(t *testing.T) {
	r, _ := newTestServer(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/moderate/image",
		`{"image_url":"https://cdn.example.com/images/nsfw/pic.jpg","user_id":"carl"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var decision models.Decision
	if err := json.Unmarshal(rec.Body.Bytes(), &decision); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decision.Action != models.ActionBlock {
		t.Fatalf("expected block, got %s", decision.Action)
	}

	rec = doJSON(t, r, http.MethodPost, "/v1/moderate/image", `{"user_id":"carl"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing image_url should 400, got %d", rec.Code)
	}
}

func TestAppealFlow(t *testing.T) {
	r, stores := newTestServer(t)
	ctx := context.Background()

	// Block something appealable.
	rec := doJSON(t, r, http.MethodPost, "/v1/moderate/content",
		`{"content":"You are all idiots and I hate this toxic community","user_id":"dana"}`, nil)
	var decision models.Decision
	if err := json.Unmarshal(rec.Body.Bytes(), &decision); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = doJSON(t, r, http.MethodPost, "/v1/appeals",
		`{"user_id":"dana","action_id":"`+decision.LogID+`","reason":"it was a quote"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var appeal models.Appeal
	if err := json.Unmarshal(rec.Body.Bytes(), &appeal); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// No token.
	rec = doJSON(t, r, http.MethodPost, "/v1/appeals/"+appeal.ID+"/resolve",
		`{"resolution":"approved"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without reviewer token, got %d", rec.Code)
	}

	// Valid token, but the reviewer lacks the moderate capability.
	juniorTok, err := token.Generate("junior", testSecret)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	rec = doJSON(t, r, http.MethodPost, "/v1/appeals/"+appeal.ID+"/resolve",
		`{"resolution":"approved"}`, map[string]string{"X-Reviewer-Token": juniorTok})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for untrusted reviewer, got %d: %s", rec.Code, rec.Body.String())
	}

	// A trusted reviewer resolves.
	if _, _, err := stores.Reputation.Apply(ctx, "senior", 500, 100, 0, 1000); err != nil {
		t.Fatalf("promote reviewer: %v", err)
	}
	seniorTok, err := token.Generate("senior", testSecret)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	rec = doJSON(t, r, http.MethodPost, "/v1/appeals/"+appeal.ID+"/resolve",
		`{"resolution":"approved","note":"quote confirmed"}`, map[string]string{"X-Reviewer-Token": seniorTok})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resolved models.Appeal
	if err := json.Unmarshal(rec.Body.Bytes(), &resolved); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resolved.Status != models.AppealApproved || resolved.ReviewerID != "senior" {
		t.Fatalf("unexpected resolution %+v", resolved)
	}

	// Second resolution conflicts.
	rec = doJSON(t, r, http.MethodPost, "/v1/appeals/"+appeal.ID+"/resolve",
		`{"resolution":"rejected"}`, map[string]string{"X-Reviewer-Token": seniorTok})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on double resolution, got %d", rec.Code)
	}
}

func TestListAppealsHandler(t *testing.T) {
	r, _ := newTestServer(t)

	rec := doJSON(t, r, http.MethodGet, "/v1/appeals?status=bogus", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodGet, "/v1/appeals?status=pending", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list []models.Appeal
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %+v", list)
	}
}

func TestStatisticsHandler(t *testing.T) {
	r, _ := newTestServer(t)

	doJSON(t, r, http.MethodPost, "/v1/moderate/content",
		`{"content":"A perfectly normal post","user_id":"eve"}`, nil)

	rec := doJSON(t, r, http.MethodGet, "/v1/statistics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var stats models.Statistics
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Total != 1 || stats.Daily != 1 {
		t.Fatalf("unexpected statistics %+v", stats)
	}

	rec = doJSON(t, r, http.MethodGet, "/v1/statistics?public=true", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var public models.PublicStatistics
	if err := json.Unmarshal(rec.Body.Bytes(), &public); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if public.Daily != 1 || !public.Healthy {
		t.Fatalf("unexpected public statistics %+v", public)
	}
}

func TestUserEndpoints(t *testing.T) {
	r, _ := newTestServer(t)

	doJSON(t, r, http.MethodPost, "/v1/moderate/content",
		`{"content":"hello world","user_id":"frank"}`, nil)

	rec := doJSON(t, r, http.MethodGet, "/v1/users/frank/history", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var history []models.LogEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(history) != 1 || history[0].UserID != "frank" {
		t.Fatalf("unexpected history %+v", history)
	}

	rec = doJSON(t, r, http.MethodGet, "/v1/users/frank/history?limit=-1", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative limit, got %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodGet, "/v1/users/frank/permissions", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var perms userPermissions
	if err := json.Unmarshal(rec.Body.Bytes(), &perms); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if perms.Reputation != 100 || perms.TrustLevel != "new" || !perms.CanPost || !perms.CanComment {
		t.Fatalf("unexpected permissions %+v", perms)
	}
}

func TestModerateContentHandlerRateLimited(t *testing.T) {
	stores := store.NewMemory()
	rep := reputation.NewManager(stores.Reputation, reputation.DefaultConfig(), nil, nil)
	register := appeals.NewRegister(stores.Appeals, stores.Logs, nil, nil)
	manager := moderation.NewManager(moderation.Deps{
		Text:       moderation.NewLexicalScorer(),
		Image:      moderation.NewURLImageScorer(),
		Policy:     moderation.MustPolicy(moderation.DefaultPolicyConfig()),
		Logs:       stores.Logs,
		Reputation: rep,
		Appeals:    register,
	})
	srv := NewServer(zap.NewNop(), manager, nil, observability.NewNoOpRegistry(), testSecret, time.Hour)
	srv.Limiter = ratelimit.NewUserLimiter(ratelimit.Config{Capacity: 2, RefillRate: 1, Enabled: true}, nil)
	r := mux.NewRouter()
	srv.Routes(r)

	body := `{"content":"hello","user_id":"gus"}`
	for i := 0; i < 2; i++ {
		rec := doJSON(t, r, http.MethodPost, "/v1/moderate/content", body, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 within the burst, got %d", rec.Code)
		}
	}
	rec := doJSON(t, r, http.MethodPost, "/v1/moderate/content", body, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 past the burst, got %d", rec.Code)
	}

	// Other users are unaffected.
	rec = doJSON(t, r, http.MethodPost, "/v1/moderate/content", `{"content":"hello","user_id":"hana"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for a different user, got %d", rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	r, _ := newTestServer(t)

	rec := doJSON(t, r, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected health body %q", rec.Body.String())
	}
}
