package moderation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wardenhq/warden/internal/analytics"
	"github.com/wardenhq/warden/internal/appeals"
	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/reputation"
	"github.com/wardenhq/warden/internal/store"
)

// panicScorer simulates a crashed classifier.
type panicScorer struct{}

func (panicScorer) ScoreText(string) models.ScoreSet { panic("classifier crashed") }

// rangeScorer returns an out-of-range score.
type rangeScorer struct{}

func (rangeScorer) ScoreText(string) models.ScoreSet {
	return models.ScoreSet{models.DimToxicity: 1.5}
}

type testEnv struct {
	manager *Manager
	stores  store.Stores
	mock    *analytics.Mock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	stores := store.NewMemory()
	rep := reputation.NewManager(stores.Reputation, reputation.DefaultConfig(), nil, nil)
	register := appeals.NewRegister(stores.Appeals, stores.Logs, nil, nil)
	mock := analytics.NewMock()

	m := NewManager(Deps{
		Text:       NewLexicalScorer(),
		Image:      NewURLImageScorer(),
		Policy:     MustPolicy(DefaultPolicyConfig()),
		Logs:       stores.Logs,
		Reputation: rep,
		Appeals:    register,
		Analytics:  mock,
	})
	return &testEnv{manager: m, stores: stores, mock: mock}
}

func TestModerateContentApproved(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	decision, err := env.manager.ModerateContent(ctx, "What a lovely photo of the mountains.", models.RequestContext{UserID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Action != models.ActionApproved {
		t.Fatalf("expected approved, got %s (%q)", decision.Action, decision.Reason)
	}
	if decision.Appealable {
		t.Fatal("approved decisions are not appealable")
	}
	if decision.LogID == "" {
		t.Fatal("decision must reference a log entry")
	}

	entry, err := env.stores.Logs.Get(ctx, decision.LogID)
	if err != nil {
		t.Fatalf("log entry not persisted: %v", err)
	}
	if entry.UserID != "alice" || entry.Action != models.ActionApproved {
		t.Fatalf("unexpected log entry %+v", entry)
	}
	if entry.ContentType != "text" {
		t.Fatalf("expected content type to default to text, got %q", entry.ContentType)
	}

	if recorded := env.mock.Recorded(); len(recorded) != 1 || recorded[0].ID != decision.LogID {
		t.Fatalf("expected one analytics event for %s, got %+v", decision.LogID, recorded)
	}
}

func TestModerateContentBlockDebitsReputation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	decision, err := env.manager.ModerateContent(ctx, "You are all idiots and I hate this toxic community", models.RequestContext{UserID: "bob"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Action != models.ActionBlock {
		t.Fatalf("expected block, got %s (%q)", decision.Action, decision.Reason)
	}
	if !decision.Appealable {
		t.Fatal("block decisions must be appealable")
	}

	// A toxicity-dominant block debits the generic violation delta.
	score, err := env.manager.Reputation().Reputation(ctx, "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score != 80 {
		t.Fatalf("expected reputation 80 after violation, got %d", score)
	}
}

func TestModerateContentSpamBlockUsesSpamDelta(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	content := "Buy now! Amazing discount offer today! Click here: http://s.example/a http://s.example/b http://s.example/c"
	decision, err := env.manager.ModerateContent(ctx, content, models.RequestContext{UserID: "carol"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Action != models.ActionBlock {
		t.Fatalf("expected block, got %s (%q)", decision.Action, decision.Reason)
	}

	score, err := env.manager.Reputation().Reputation(ctx, "carol")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score != 85 {
		t.Fatalf("expected reputation 85 after spam violation, got %d", score)
	}
}

func TestModerateImageNSFW(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	decision, err := env.manager.ModerateImage(ctx, "https://cdn.example.com/images/nsfw/pic123.jpg", models.RequestContext{UserID: "dave"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Action != models.ActionBlock {
		t.Fatalf("expected block, got %s (%q)", decision.Action, decision.Reason)
	}

	entry, err := env.stores.Logs.Get(ctx, decision.LogID)
	if err != nil {
		t.Fatalf("log entry not persisted: %v", err)
	}
	if entry.ContentType != "image" {
		t.Fatalf("expected content type image, got %q", entry.ContentType)
	}
}

func TestModerateContentRequiresUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.manager.ModerateContent(context.Background(), "hello", models.RequestContext{})
	if !errors.Is(err, models.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestModerateFailsOpenOnScorerPanic(t *testing.T) {
	env := newTestEnv(t)
	env.manager.text = panicScorer{}
	ctx := context.Background()

	decision, err := env.manager.ModerateContent(ctx, "anything", models.RequestContext{UserID: "erin"})
	if err != nil {
		t.Fatalf("fail-open must not surface scorer faults, got %v", err)
	}
	if decision.Action != models.ActionApproved {
		t.Fatalf("expected approved on fail-open, got %s", decision.Action)
	}
	if decision.Note == "" {
		t.Fatal("fail-open decisions must carry a diagnostic note")
	}

	// The failure streak marks the engine unhealthy until scoring recovers.
	public, err := env.manager.PublicStatistics(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if public.Healthy {
		t.Fatal("expected unhealthy after scoring failure")
	}

	env.manager.text = NewLexicalScorer()
	if _, err := env.manager.ModerateContent(ctx, "all good again", models.RequestContext{UserID: "erin"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	public, err = env.manager.PublicStatistics(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !public.Healthy {
		t.Fatal("expected healthy after successful scoring")
	}
}

func TestModerateFailsOpenOnOutOfRangeScore(t *testing.T) {
	env := newTestEnv(t)
	env.manager.text = rangeScorer{}

	decision, err := env.manager.ModerateContent(context.Background(), "anything", models.RequestContext{UserID: "frank"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Action != models.ActionApproved || decision.Note == "" {
		t.Fatalf("expected annotated fail-open approval, got %+v", decision)
	}
}

func TestAppealLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	decision, err := env.manager.ModerateContent(ctx, "You are all idiots and I hate this toxic community", models.RequestContext{UserID: "gina"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Action != models.ActionBlock {
		t.Fatalf("expected block, got %s", decision.Action)
	}

	// Wrong owner.
	if _, err := env.manager.CreateAppeal(ctx, "mallory", decision.LogID, "that was mine"); !errors.Is(err, models.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	// Unknown action.
	if _, err := env.manager.CreateAppeal(ctx, "gina", "no-such-action", "please"); !errors.Is(err, models.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	appeal, err := env.manager.CreateAppeal(ctx, "gina", decision.LogID, "context was missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if appeal.Status != models.AppealPending {
		t.Fatalf("expected pending appeal, got %s", appeal.Status)
	}

	// One appeal per action.
	if _, err := env.manager.CreateAppeal(ctx, "gina", decision.LogID, "again"); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}

	// An untrusted reviewer cannot resolve.
	if _, err := env.manager.ResolveAppeal(ctx, appeal.ID, models.AppealApproved, "junior", "lgtm"); !errors.Is(err, models.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	// Promote the reviewer to trusted and resolve.
	if _, _, err := env.stores.Reputation.Apply(ctx, "senior", 500, 100, 0, 1000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before, err := env.manager.Reputation().Reputation(ctx, "gina")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resolved, err := env.manager.ResolveAppeal(ctx, appeal.ID, models.AppealApproved, "senior", "context checks out")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Status != models.AppealApproved || resolved.ReviewerID != "senior" {
		t.Fatalf("unexpected resolved appeal %+v", resolved)
	}
	if resolved.ResolvedAt == nil {
		t.Fatal("resolved appeal must carry a resolution time")
	}

	after, err := env.manager.Reputation().Reputation(ctx, "gina")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if after != before+20 {
		t.Fatalf("expected +20 reputation after approved appeal, got %d -> %d", before, after)
	}

	// Exactly-once resolution.
	if _, err := env.manager.ResolveAppeal(ctx, appeal.ID, models.AppealRejected, "senior", "flip"); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestStatisticsWindows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	entries := []models.LogEntry{
		{ID: "e1", UserID: "u", ContentType: "text", Action: models.ActionApproved, CreatedAt: now.Add(-48 * time.Hour)},
		{ID: "e2", UserID: "u", ContentType: "text", Action: models.ActionBlock, Appealable: true, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "e3", UserID: "u", ContentType: "text", Action: models.ActionWarn, CreatedAt: now},
	}
	for _, e := range entries {
		if err := env.stores.Logs.Append(ctx, e); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if _, err := env.manager.CreateAppeal(ctx, "u", "e2", "too strict"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats, err := env.manager.Statistics(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Total != 3 {
		t.Fatalf("expected total 3, got %d", stats.Total)
	}
	if stats.Daily != 2 {
		t.Fatalf("expected daily 2, got %d", stats.Daily)
	}
	if stats.Weekly != 3 {
		t.Fatalf("expected weekly 3, got %d", stats.Weekly)
	}
	if stats.ByAction[models.ActionBlock] != 1 || stats.ByAction[models.ActionApproved] != 1 || stats.ByAction[models.ActionWarn] != 1 {
		t.Fatalf("unexpected action breakdown %+v", stats.ByAction)
	}
	if stats.PendingAppeals != 1 || stats.TotalAppeals != 1 {
		t.Fatalf("unexpected appeal counters %+v", stats)
	}
}

func TestUserHistoryNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	contents := []string{"first post", "second post", "third post"}
	for _, c := range contents {
		if _, err := env.manager.ModerateContent(ctx, c, models.RequestContext{UserID: "henry"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	history, err := env.manager.UserHistory(ctx, "henry", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(history))
	}

	limited, err := env.manager.UserHistory(ctx, "henry", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(limited))
	}
	if limited[0].ID != history[0].ID {
		t.Fatal("limited history must start from the newest entry")
	}

	if _, err := env.manager.UserHistory(ctx, "", 0); !errors.Is(err, models.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestPermissionChecks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	canPost, err := env.manager.CanUserPost(ctx, "newcomer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !canPost {
		t.Fatal("a fresh user starts at the new tier and may post")
	}

	// Drive the score below the restricted boundary.
	if _, _, err := env.stores.Reputation.Apply(ctx, "troll", -60, 100, 0, 1000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	canComment, err := env.manager.CanUserComment(ctx, "troll")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if canComment {
		t.Fatal("restricted users may not comment")
	}
}
