package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/reputation"
	"github.com/wardenhq/warden/internal/store"
)

// Admin tool request/response types
type GetStatisticsInput struct{}

type GetStatisticsOutput struct {
	Total          int64            `json:"total"`
	Daily          int64            `json:"daily"`
	Weekly         int64            `json:"weekly"`
	ByAction       map[string]int64 `json:"by_action"`
	PendingAppeals int64            `json:"pending_appeals"`
	TotalAppeals   int64            `json:"total_appeals"`
}

type ListAppealsInput struct {
	Status string `json:"status,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

type ListAppealsOutput struct {
	Appeals []models.Appeal `json:"appeals"`
}

type GetUserHistoryInput struct {
	UserID string `json:"user_id"`
	Limit  int    `json:"limit,omitempty"`
}

type GetUserHistoryOutput struct {
	UserID     string            `json:"user_id"`
	Reputation *int              `json:"reputation,omitempty"`
	TrustLevel string            `json:"trust_level,omitempty"`
	Entries    []models.LogEntry `json:"entries"`
}

// AdminServer holds the read-side store handles exposed over MCP.
type AdminServer struct {
	logs       store.LogStore
	appeals    store.AppealStore
	reputation store.ReputationStore // nil when Redis is not configured
	repCfg     reputation.Config
	logger     *zap.Logger
}

// GetStatistics implements the get_statistics tool.
func (s *AdminServer) GetStatistics(ctx context.Context, req *mcp.CallToolRequest, input GetStatisticsInput) (*mcp.CallToolResult, GetStatisticsOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	total, byAction, err := s.logs.Counts(ctx)
	if err != nil {
		return nil, GetStatisticsOutput{}, fmt.Errorf("count log entries: %w", err)
	}
	now := time.Now()
	daily, err := s.logs.CountSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return nil, GetStatisticsOutput{}, fmt.Errorf("count daily entries: %w", err)
	}
	weekly, err := s.logs.CountSince(ctx, now.Add(-7*24*time.Hour))
	if err != nil {
		return nil, GetStatisticsOutput{}, fmt.Errorf("count weekly entries: %w", err)
	}

	all, err := s.appeals.List(ctx, store.AppealFilter{})
	if err != nil {
		return nil, GetStatisticsOutput{}, fmt.Errorf("list appeals: %w", err)
	}
	var pending int64
	for _, a := range all {
		if a.Status == models.AppealPending {
			pending++
		}
	}

	out := GetStatisticsOutput{
		Total:          total,
		Daily:          daily,
		Weekly:         weekly,
		ByAction:       make(map[string]int64, len(byAction)),
		PendingAppeals: pending,
		TotalAppeals:   int64(len(all)),
	}
	for action, n := range byAction {
		out.ByAction[string(action)] = n
	}

	s.logger.Info("get_statistics served", zap.Int64("total", total), zap.Int64("pending_appeals", pending))
	return nil, out, nil
}

// ListAppeals implements the list_appeals tool.
func (s *AdminServer) ListAppeals(ctx context.Context, req *mcp.CallToolRequest, input ListAppealsInput) (*mcp.CallToolResult, ListAppealsOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := store.AppealFilter{UserID: input.UserID}
	if input.Status != "" {
		status := models.AppealStatus(input.Status)
		if status != models.AppealPending && !status.Terminal() {
			return nil, ListAppealsOutput{}, fmt.Errorf("invalid appeal status %q", input.Status)
		}
		filter.Status = status
	}

	appealList, err := s.appeals.List(ctx, filter)
	if err != nil {
		return nil, ListAppealsOutput{}, fmt.Errorf("list appeals: %w", err)
	}

	s.logger.Info("list_appeals served", zap.String("status", input.Status), zap.Int("count", len(appealList)))
	return nil, ListAppealsOutput{Appeals: appealList}, nil
}

// GetUserHistory implements the get_user_history tool. Reputation fields
// are included only when a Redis backend is configured.
func (s *AdminServer) GetUserHistory(ctx context.Context, req *mcp.CallToolRequest, input GetUserHistoryInput) (*mcp.CallToolResult, GetUserHistoryOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if input.UserID == "" {
		return nil, GetUserHistoryOutput{}, fmt.Errorf("user_id is required")
	}

	entries, err := s.logs.ListByUser(ctx, input.UserID, input.Limit)
	if err != nil {
		return nil, GetUserHistoryOutput{}, fmt.Errorf("list history: %w", err)
	}

	out := GetUserHistoryOutput{UserID: input.UserID, Entries: entries}
	if s.reputation != nil {
		score, ok, err := s.reputation.Get(ctx, input.UserID)
		if err != nil {
			s.logger.Warn("reputation lookup failed", zap.String("user_id", input.UserID), zap.Error(err))
		} else {
			if !ok {
				score = s.repCfg.Start
			}
			out.Reputation = &score
			out.TrustLevel = string(reputation.TrustLevelFor(score))
		}
	}

	s.logger.Info("get_user_history served", zap.String("user_id", input.UserID), zap.Int("entries", len(entries)))
	return nil, out, nil
}

func main() {
	// Log to stderr only; stdout carries the MCP stdio transport.
	logCfg := zap.NewProductionConfig()
	logCfg.OutputPaths = []string{"stderr"}
	logCfg.ErrorOutputPaths = []string{"stderr"}
	logCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := logCfg.Build(zap.Fields(zap.String("service", "warden-mcp")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	pgDSN := os.Getenv("POSTGRES_DSN")
	if pgDSN == "" {
		logger.Fatal("POSTGRES_DSN is required")
	}

	pg, err := store.InitPostgres(pgDSN, 10, 5, 5*time.Minute)
	if err != nil {
		logger.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pg.Close()
	logger.Info("Postgres connected successfully")

	var repStore store.ReputationStore
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rs, err := store.InitRedis(addr)
		if err != nil {
			logger.Warn("Redis unavailable, reputation fields disabled", zap.Error(err))
		} else {
			defer rs.Close()
			repStore = rs
			logger.Info("Redis connected successfully")
		}
	}

	adminServer := &AdminServer{
		logs:       pg.Logs(),
		appeals:    pg.Appeals(),
		reputation: repStore,
		repCfg:     reputation.DefaultConfig(),
		logger:     logger,
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "warden",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_statistics",
		Description: "Return moderation decision totals, rolling daily/weekly counts and appeal counters",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
	}, adminServer.GetStatistics)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_appeals",
		Description: "List appeals, optionally filtered by status or user",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"status": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"pending", "approved", "rejected"},
					"description": "Appeal status to filter by (optional)",
				},
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "User ID to filter by (optional)",
				},
			},
		},
	}, adminServer.ListAppeals)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_user_history",
		Description: "Return a user's moderation history, newest first, with reputation when available",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "User ID to look up",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of entries to return (optional, 0 means all)",
				},
			},
			"required": []string{"user_id"},
		},
	}, adminServer.GetUserHistory)

	stdioTransport := &mcp.StdioTransport{}

	var logBuffer bytes.Buffer
	loggingTransport := &mcp.LoggingTransport{
		Transport: stdioTransport,
		Writer:    &logBuffer,
	}

	logger.Info("MCP server running via stdio")

	if err := server.Run(context.Background(), loggingTransport); err != nil {
		logger.Fatal("Server error", zap.Error(err), zap.String("mcp_logs", logBuffer.String()))
	}
}
