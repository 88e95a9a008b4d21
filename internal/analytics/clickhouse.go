// Package analytics streams moderation decision events to ClickHouse for
// the admin dashboard. Recording is best effort: failures are logged and
// counted but never block the moderation path.
package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"

	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/observability"
)

// Service records decision events. Implementations must tolerate
// unavailable storage without failing the caller's request.
type Service interface {
	RecordDecision(ctx context.Context, entry models.LogEntry) error
	Close() error
}

// ClickHouse implements Service on a ClickHouse events table.
type ClickHouse struct {
	DB      *sql.DB
	Logger  *zap.Logger
	Metrics observability.MetricsRegistry
}

var _ Service = (*ClickHouse)(nil)

// InitClickHouse connects to ClickHouse and ensures the events table
// exists.
func InitClickHouse(dsn string, logger *zap.Logger, metrics observability.MetricsRegistry) (*ClickHouse, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(25)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	create := `CREATE TABLE IF NOT EXISTS moderation_events (
       timestamp    DateTime,
       log_id       String,
       user_id      String,
       content_type String,
       action       String,
       reason       String,
       scores       String,
       appealable   UInt8,
       country      Nullable(String),
       device_type  Nullable(String)
    ) ENGINE = MergeTree() ORDER BY (timestamp, user_id)`
	if _, err := db.Exec(create); err != nil {
		return nil, fmt.Errorf("clickhouse create table: %w", err)
	}
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("Connected to ClickHouse")
	return &ClickHouse{DB: db, Logger: logger, Metrics: metrics}, nil
}

// RecordDecision inserts one event row for a moderation decision.
func (c *ClickHouse) RecordDecision(ctx context.Context, entry models.LogEntry) error {
	scores, err := json.Marshal(entry.Scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}
	appealable := uint8(0)
	if entry.Appealable {
		appealable = 1
	}
	_, err = c.DB.ExecContext(ctx,
		`INSERT INTO moderation_events (timestamp, log_id, user_id, content_type, action, reason, scores, appealable, country, device_type)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.CreatedAt, entry.ID, entry.UserID, entry.ContentType, string(entry.Action),
		entry.Reason, string(scores), appealable, nullString(entry.Country), nullString(entry.DeviceType))
	if err != nil {
		c.Metrics.IncrementPersistErrors()
		return fmt.Errorf("insert moderation event: %w", err)
	}
	return nil
}

// Event is one decision row read back from ClickHouse.
type Event struct {
	Timestamp   time.Time `json:"timestamp"`
	LogID       string    `json:"log_id"`
	UserID      string    `json:"user_id"`
	ContentType string    `json:"content_type"`
	Action      string    `json:"action"`
	Reason      string    `json:"reason"`
	Scores      string    `json:"scores"`
	Appealable  bool      `json:"appealable"`
	Country     string    `json:"country,omitempty"`
	DeviceType  string    `json:"device_type,omitempty"`
}

// GetEventsByLogID returns the events recorded for one decision.
func (c *ClickHouse) GetEventsByLogID(ctx context.Context, logID string) ([]Event, error) {
	return c.queryEvents(ctx,
		`SELECT timestamp, log_id, user_id, content_type, action, reason, scores, appealable, country, device_type
         FROM moderation_events WHERE log_id = ? ORDER BY timestamp`, logID)
}

// GetEventsByUser returns up to limit recent events for a user, newest
// first.
func (c *ClickHouse) GetEventsByUser(ctx context.Context, userID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	return c.queryEvents(ctx,
		`SELECT timestamp, log_id, user_id, content_type, action, reason, scores, appealable, country, device_type
         FROM moderation_events WHERE user_id = ? ORDER BY timestamp DESC LIMIT ?`, userID, limit)
}

func (c *ClickHouse) queryEvents(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := c.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query moderation events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var appealable uint8
		var country, deviceType sql.NullString
		if err := rows.Scan(&e.Timestamp, &e.LogID, &e.UserID, &e.ContentType, &e.Action,
			&e.Reason, &e.Scores, &appealable, &country, &deviceType); err != nil {
			return nil, fmt.Errorf("scan moderation event: %w", err)
		}
		e.Appealable = appealable == 1
		e.Country = country.String
		e.DeviceType = deviceType.String
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close shuts down the ClickHouse connection.
func (c *ClickHouse) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
