// Package sqlitestore is an embedded profile and usage store for single-node
// deployments and local development.
package sqlitestore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"pdfgate/internal/domain"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// Store implements domain.ProfileStore, domain.ProfileAdmin and
// domain.UsageStore on SQLite. It holds a single connection so the guarded
// credit decrement is serialized.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at dsn and applies the schema.
func Open(dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("sqlitestore: dsn is required")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitestore: set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitestore: set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitestore: create schema: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

const profileColumns = `id, email, plan_type, daily_limit, credits_remaining, created_at, updated_at`

// ReadProfile returns domain.ErrNotFound when no row matches.
func (s *Store) ReadProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, userID)
	return scanProfile(row)
}

// ReadProfileByEmail resolves a profile by case-insensitive email.
func (s *Store) ReadProfileByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE lower(email) = lower(?) LIMIT 1`, email)
	return scanProfile(row)
}

// DecrementCredit charges one credit when the balance is positive.
func (s *Store) DecrementCredit(ctx context.Context, userID string) (int, error) {
	var remaining int
	err := s.db.QueryRowContext(ctx,
		`UPDATE profiles
		 SET credits_remaining = credits_remaining - 1, updated_at = ?
		 WHERE id = ? AND credits_remaining > 0
		 RETURNING credits_remaining`,
		formatTime(s.now()), userID,
	).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNoCreditsLeft
	}
	if err != nil {
		return 0, fmt.Errorf("sqlitestore: decrement credit: %w", err)
	}
	return remaining, nil
}

// SetPlan updates the tier. A negative credits value keeps the balance.
func (s *Store) SetPlan(ctx context.Context, userID string, plan domain.PlanTier, credits int) (*domain.Profile, error) {
	if !plan.Valid() {
		return nil, domain.ErrInvalidPlan
	}
	row := s.db.QueryRowContext(ctx,
		`UPDATE profiles
		 SET plan_type = ?,
		     credits_remaining = CASE WHEN ? >= 0 THEN ? ELSE credits_remaining END,
		     updated_at = ?
		 WHERE id = ?
		 RETURNING `+profileColumns,
		string(plan), credits, credits, formatTime(s.now()), userID,
	)
	return scanProfile(row)
}

// UpsertProfile creates or replaces a profile row. It exists for seeding and
// the admin CLI; the conversion path never writes profiles.
func (s *Store) UpsertProfile(ctx context.Context, p domain.Profile) error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("sqlitestore: profile id is required")
	}
	if p.CreditsRemaining < 0 {
		return errors.New("sqlitestore: credits must not be negative")
	}
	now := formatTime(s.now())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (id, email, plan_type, daily_limit, credits_remaining, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		     email = excluded.email,
		     plan_type = excluded.plan_type,
		     daily_limit = excluded.daily_limit,
		     credits_remaining = excluded.credits_remaining,
		     updated_at = excluded.updated_at`,
		p.ID, p.Email, string(p.Plan), p.DailyLimit, p.CreditsRemaining, now, now,
	)
	if err != nil {
		return fmt.Errorf("sqlitestore: upsert profile: %w", err)
	}
	return nil
}

// AppendUsage inserts one audit row.
func (s *Store) AppendUsage(ctx context.Context, entry *domain.UsageLogEntry) error {
	if entry == nil {
		return errors.New("sqlitestore: usage entry is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_logs (id, user_id, tool_id, file_size_mb, input_format, output_format, conversion_category, created_at)
		 VALUES (?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?)`,
		entry.ID,
		entry.UserID,
		entry.ToolID,
		entry.FileSizeMB,
		entry.InputFormat,
		entry.OutputFormat,
		string(entry.Category),
		formatTime(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlitestore: append usage: %w", err)
	}
	return nil
}

// CountSince returns the number of usage rows for userID at or after since.
func (s *Store) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM usage_logs WHERE user_id = ? AND created_at >= ?`,
		userID, formatTime(since),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sqlitestore: count usage: %w", err)
	}
	return total, nil
}

// ListUsage returns the most recent entries for userID, newest first.
func (s *Store) ListUsage(ctx context.Context, userID string, limit int) ([]domain.UsageLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, tool_id, file_size_mb,
		        coalesce(input_format, ''), coalesce(output_format, ''), coalesce(conversion_category, ''), created_at
		 FROM usage_logs WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list usage: %w", err)
	}
	defer rows.Close()

	var out []domain.UsageLogEntry
	for rows.Next() {
		var (
			e        domain.UsageLogEntry
			category string
			created  string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.ToolID, &e.FileSizeMB, &e.InputFormat, &e.OutputFormat, &category, &created); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan usage: %w", err)
		}
		e.Category = domain.ToolCategory(category)
		if e.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanProfile(row *sql.Row) (*domain.Profile, error) {
	var (
		p                domain.Profile
		plan             string
		created, updated string
	)
	err := row.Scan(&p.ID, &p.Email, &plan, &p.DailyLimit, &p.CreditsRemaining, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: scan profile: %w", err)
	}
	p.Plan = domain.PlanTier(strings.ToLower(strings.TrimSpace(plan)))
	if p.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &p, nil
}

// timeLayout is fixed width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlitestore: parse time %q: %w", v, err)
	}
	return t, nil
}

var (
	_ domain.ProfileStore = (*Store)(nil)
	_ domain.ProfileAdmin = (*Store)(nil)
	_ domain.UsageStore   = (*Store)(nil)
)
