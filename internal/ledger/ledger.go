// Package ledger records usage events and meters free-tier credits.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pdfgate/internal/domain"
	"pdfgate/internal/registry"
)

// Ledger writes the usage audit trail and charges credits.
type Ledger struct {
	usage    domain.UsageStore
	profiles domain.ProfileStore
	timeout  time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// New constructs a Ledger. timeout bounds each store call; zero leaves the
// caller's deadline in charge.
func New(usage domain.UsageStore, profiles domain.ProfileStore, timeout time.Duration, logger zerolog.Logger) *Ledger {
	return &Ledger{
		usage:    usage,
		profiles: profiles,
		timeout:  timeout,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RecordUsage appends one audit entry.
func (l *Ledger) RecordUsage(ctx context.Context, userID, toolID string, fileSizeMB float64, meta domain.FormatMeta) error {
	entry := &domain.UsageLogEntry{
		ID:           uuid.NewString(),
		UserID:       userID,
		ToolID:       registry.Normalize(toolID),
		FileSizeMB:   fileSizeMB,
		InputFormat:  meta.InputFormat,
		OutputFormat: meta.OutputFormat,
		Category:     meta.Category,
		CreatedAt:    l.now(),
	}
	ctx, cancel := l.bound(ctx)
	defer cancel()
	if err := l.usage.AppendUsage(ctx, entry); err != nil {
		return fmt.Errorf("ledger: append usage: %w", err)
	}
	l.logger.Debug().
		Str("user_id", userID).
		Str("tool", entry.ToolID).
		Float64("file_size_mb", fileSizeMB).
		Msg("usage recorded")
	return nil
}

// ChargeCredit removes one credit from the user's balance using the store's
// atomic decrement.
func (l *Ledger) ChargeCredit(ctx context.Context, userID, toolID string, fileSizeMB float64) error {
	ctx, cancel := l.bound(ctx)
	defer cancel()
	remaining, err := l.profiles.DecrementCredit(ctx, userID)
	if err != nil {
		return fmt.Errorf("ledger: charge credit: %w", err)
	}
	l.logger.Debug().
		Str("user_id", userID).
		Str("tool", registry.Normalize(toolID)).
		Float64("file_size_mb", fileSizeMB).
		Int("credits_remaining", remaining).
		Msg("credit charged")
	return nil
}

func (l *Ledger) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout > 0 {
		return context.WithTimeout(ctx, l.timeout)
	}
	return ctx, func() {}
}
