package main

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/reputation"
	"github.com/wardenhq/warden/internal/store"
)

func newTestAdminServer(t *testing.T) (*AdminServer, store.Stores) {
	t.Helper()
	stores := store.NewMemory()
	return &AdminServer{
		logs:       stores.Logs,
		appeals:    stores.Appeals,
		reputation: stores.Reputation,
		repCfg:     reputation.DefaultConfig(),
		logger:     zap.NewNop(),
	}, stores
}

func seedEntries(t *testing.T, stores store.Stores) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	entries := []models.LogEntry{
		{ID: "e1", UserID: "alice", ContentType: "text", Action: models.ActionApproved, CreatedAt: now.Add(-48 * time.Hour)},
		{ID: "e2", UserID: "alice", ContentType: "text", Action: models.ActionBlock, Appealable: true, CreatedAt: now.Add(-time.Hour)},
		{ID: "e3", UserID: "bob", ContentType: "image", Action: models.ActionWarn, CreatedAt: now},
	}
	for _, e := range entries {
		if err := stores.Logs.Append(ctx, e); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if err := stores.Appeals.Insert(ctx, models.Appeal{
		ID: "a1", UserID: "alice", ActionID: "e2", Reason: "too strict",
		Status: models.AppealPending, CreatedAt: now,
	}); err != nil {
		t.Fatalf("seed appeal: %v", err)
	}
}

func TestGetStatisticsTool(t *testing.T) {
	srv, stores := newTestAdminServer(t)
	seedEntries(t, stores)

	_, out, err := srv.GetStatistics(context.Background(), nil, GetStatisticsInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Total != 3 || out.Daily != 2 || out.Weekly != 3 {
		t.Fatalf("unexpected counts %+v", out)
	}
	if out.ByAction["block"] != 1 || out.ByAction["approved"] != 1 || out.ByAction["warn"] != 1 {
		t.Fatalf("unexpected breakdown %+v", out.ByAction)
	}
	if out.PendingAppeals != 1 || out.TotalAppeals != 1 {
		t.Fatalf("unexpected appeal counters %+v", out)
	}
}

func TestListAppealsTool(t *testing.T) {
	srv, stores := newTestAdminServer(t)
	seedEntries(t, stores)

	_, out, err := srv.ListAppeals(context.Background(), nil, ListAppealsInput{Status: "pending"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Appeals) != 1 || out.Appeals[0].ID != "a1" {
		t.Fatalf("unexpected appeals %+v", out.Appeals)
	}

	if _, _, err := srv.ListAppeals(context.Background(), nil, ListAppealsInput{Status: "bogus"}); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestGetUserHistoryTool(t *testing.T) {
	srv, stores := newTestAdminServer(t)
	seedEntries(t, stores)

	if _, _, err := stores.Reputation.Apply(context.Background(), "alice", -20, 100, 0, 1000); err != nil {
		t.Fatalf("seed reputation: %v", err)
	}

	_, out, err := srv.GetUserHistory(context.Background(), nil, GetUserHistoryInput{UserID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Entries) != 2 || out.Entries[0].ID != "e2" {
		t.Fatalf("expected newest-first history, got %+v", out.Entries)
	}
	if out.Reputation == nil || *out.Reputation != 80 {
		t.Fatalf("unexpected reputation %+v", out.Reputation)
	}
	if out.TrustLevel != "new" {
		t.Fatalf("unexpected trust level %q", out.TrustLevel)
	}

	if _, _, err := srv.GetUserHistory(context.Background(), nil, GetUserHistoryInput{}); err == nil {
		t.Fatal("expected error for missing user id")
	}
}
