package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/wardenhq/warden/internal/models"
)

// Postgres wraps a postgres DB connection and exposes the log and appeal
// store facets backed by it.
type Postgres struct {
	DB *sql.DB
}

// schemaSQL sets up the necessary tables if they don't exist.
const schemaSQL = `CREATE TABLE IF NOT EXISTS moderation_log (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    content_type TEXT NOT NULL,
    content_id TEXT,
    action TEXT NOT NULL,
    reason TEXT NOT NULL,
    scores JSONB NOT NULL,
    appealable BOOLEAN NOT NULL,
    country TEXT,
    device_type TEXT,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS moderation_log_user_idx ON moderation_log (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS moderation_log_created_idx ON moderation_log (created_at);

CREATE TABLE IF NOT EXISTS appeals (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    action_id TEXT NOT NULL REFERENCES moderation_log(id),
    reason TEXT NOT NULL,
    status TEXT NOT NULL,
    reviewer_id TEXT,
    review_note TEXT,
    created_at TIMESTAMPTZ NOT NULL,
    resolved_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS appeals_status_idx ON appeals (status, created_at);`

// InitPostgres connects to Postgres with the given pool settings, applies
// the schema and returns the wrapper.
func InitPostgres(dsn string, maxOpen, maxIdle int, connMaxLifetime time.Duration) (*Postgres, error) {
	db, err := otelsql.Open("postgres", dsn,
		otelsql.WithAttributes(attribute.String("db.system", "postgresql")))
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	zap.L().Info("Connected to Postgres")
	return &Postgres{DB: db}, nil
}

// Logs returns the LogStore facet.
func (p *Postgres) Logs() *PostgresLogs { return &PostgresLogs{db: p.DB} }

// Appeals returns the AppealStore facet.
func (p *Postgres) Appeals() *PostgresAppeals { return &PostgresAppeals{db: p.DB} }

// Close closes the underlying connection pool.
func (p *Postgres) Close() {
	if p != nil && p.DB != nil {
		if err := p.DB.Close(); err != nil {
			zap.L().Error("postgres close", zap.Error(err))
		}
	}
}

// PostgresLogs implements LogStore on the moderation_log table.
type PostgresLogs struct {
	db *sql.DB
}

var _ LogStore = (*PostgresLogs)(nil)

func (p *PostgresLogs) Append(ctx context.Context, entry models.LogEntry) error {
	scores, err := json.Marshal(entry.Scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO moderation_log (id, user_id, content_type, content_id, action, reason, scores, appealable, country, device_type, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID, entry.UserID, entry.ContentType, entry.ContentID, string(entry.Action),
		entry.Reason, scores, entry.Appealable, nullable(entry.Country), nullable(entry.DeviceType), entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	return nil
}

func (p *PostgresLogs) Get(ctx context.Context, id string) (*models.LogEntry, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, user_id, content_type, content_id, action, reason, scores, appealable,
                COALESCE(country, ''), COALESCE(device_type, ''), created_at
         FROM moderation_log WHERE id = $1`, id)
	return scanLogEntry(row)
}

func (p *PostgresLogs) ListByUser(ctx context.Context, userID string, limit int) ([]models.LogEntry, error) {
	q := `SELECT id, user_id, content_type, content_id, action, reason, scores, appealable,
                 COALESCE(country, ''), COALESCE(device_type, ''), created_at
          FROM moderation_log WHERE user_id = $1 ORDER BY created_at DESC`
	args := []any{userID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list log entries: %w", err)
	}
	defer rows.Close()

	var out []models.LogEntry
	for rows.Next() {
		e, err := scanLogEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (p *PostgresLogs) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM moderation_log WHERE created_at >= $1`, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count log entries: %w", err)
	}
	return n, nil
}

func (p *PostgresLogs) Counts(ctx context.Context) (int64, map[models.Action]int64, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT action, COUNT(*) FROM moderation_log GROUP BY action`)
	if err != nil {
		return 0, nil, fmt.Errorf("count log entries: %w", err)
	}
	defer rows.Close()

	var total int64
	byAction := make(map[models.Action]int64)
	for rows.Next() {
		var action string
		var n int64
		if err := rows.Scan(&action, &n); err != nil {
			return 0, nil, fmt.Errorf("scan action count: %w", err)
		}
		byAction[models.Action(action)] = n
		total += n
	}
	return total, byAction, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLogEntry(row rowScanner) (*models.LogEntry, error) {
	var e models.LogEntry
	var action string
	var scores []byte
	err := row.Scan(&e.ID, &e.UserID, &e.ContentType, &e.ContentID, &action, &e.Reason,
		&scores, &e.Appealable, &e.Country, &e.DeviceType, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan log entry: %w", err)
	}
	e.Action = models.Action(action)
	if err := json.Unmarshal(scores, &e.Scores); err != nil {
		return nil, fmt.Errorf("unmarshal scores: %w", err)
	}
	return &e, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// PostgresAppeals implements AppealStore on the appeals table. Resolve
// relies on a conditional UPDATE so the pending -> terminal transition is
// atomic even under concurrent reviewers.
type PostgresAppeals struct {
	db *sql.DB
}

var _ AppealStore = (*PostgresAppeals)(nil)

func (p *PostgresAppeals) Insert(ctx context.Context, appeal models.Appeal) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO appeals (id, user_id, action_id, reason, status, created_at)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		appeal.ID, appeal.UserID, appeal.ActionID, appeal.Reason, string(appeal.Status), appeal.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert appeal: %w", err)
	}
	return nil
}

func (p *PostgresAppeals) Get(ctx context.Context, id string) (*models.Appeal, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, user_id, action_id, reason, status, COALESCE(reviewer_id, ''),
                COALESCE(review_note, ''), created_at, resolved_at
         FROM appeals WHERE id = $1`, id)
	return scanAppeal(row)
}

func (p *PostgresAppeals) List(ctx context.Context, filter AppealFilter) ([]models.Appeal, error) {
	q := `SELECT id, user_id, action_id, reason, status, COALESCE(reviewer_id, ''),
                 COALESCE(review_note, ''), created_at, resolved_at
          FROM appeals WHERE 1=1`
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		q += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if filter.ActionID != "" {
		args = append(args, filter.ActionID)
		q += fmt.Sprintf(" AND action_id = $%d", len(args))
	}
	q += " ORDER BY created_at"

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list appeals: %w", err)
	}
	defer rows.Close()

	var out []models.Appeal
	for rows.Next() {
		a, err := scanAppeal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (p *PostgresAppeals) Resolve(ctx context.Context, id string, status models.AppealStatus, reviewerID, note string, at time.Time) (*models.Appeal, error) {
	res, err := p.db.ExecContext(ctx,
		`UPDATE appeals SET status = $2, reviewer_id = $3, review_note = $4, resolved_at = $5
         WHERE id = $1 AND status = $6`,
		id, string(status), reviewerID, note, at, string(models.AppealPending))
	if err != nil {
		return nil, fmt.Errorf("resolve appeal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("resolve appeal: %w", err)
	}
	if n == 0 {
		// Either the appeal doesn't exist or it already left pending.
		if _, err := p.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, models.ErrInvalidState
	}
	return p.Get(ctx, id)
}

func scanAppeal(row rowScanner) (*models.Appeal, error) {
	var a models.Appeal
	var status string
	var resolvedAt sql.NullTime
	err := row.Scan(&a.ID, &a.UserID, &a.ActionID, &a.Reason, &status,
		&a.ReviewerID, &a.ReviewNote, &a.CreatedAt, &resolvedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan appeal: %w", err)
	}
	a.Status = models.AppealStatus(status)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	return &a, nil
}
