package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pdfgate/internal/domain"
	"pdfgate/internal/infra"
	"pdfgate/internal/sqlinline"
)

// UsageRepositoryPG implements domain.UsageStore backed by PostgreSQL.
type UsageRepositoryPG struct {
	db infra.SQLExecutor
}

// NewUsageRepository creates a UsageRepositoryPG.
func NewUsageRepository(db infra.SQLExecutor) *UsageRepositoryPG {
	return &UsageRepositoryPG{db: db}
}

// AppendUsage inserts one audit row. Entries are never updated.
func (r *UsageRepositoryPG) AppendUsage(ctx context.Context, entry *domain.UsageLogEntry) error {
	if entry == nil {
		return errors.New("usage entry is required")
	}
	_, err := r.db.Exec(ctx, sqlinline.QInsertUsageLog,
		entry.ID,
		entry.UserID,
		entry.ToolID,
		entry.FileSizeMB,
		entry.InputFormat,
		entry.OutputFormat,
		string(entry.Category),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert usage log: %w", err)
	}
	return nil
}

// CountSince returns how many conversions the user logged at or after since.
func (r *UsageRepositoryPG) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var total int
	if err := r.db.QueryRow(ctx, sqlinline.QCountUsageSince, userID, since).Scan(&total); err != nil {
		return 0, fmt.Errorf("count usage: %w", err)
	}
	return total, nil
}

var _ domain.UsageStore = (*UsageRepositoryPG)(nil)
