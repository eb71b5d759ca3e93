package sqlitestore

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfgate/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "pdfgate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s *Store, id string, plan domain.PlanTier, credits int) {
	t.Helper()
	require.NoError(t, s.UpsertProfile(context.Background(), domain.Profile{
		ID:               id,
		Email:            id + "@example.com",
		Plan:             plan,
		DailyLimit:       5,
		CreditsRemaining: credits,
	}))
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open(" ")
	require.Error(t, err)
}

func TestReadProfile(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, "u-1", domain.PlanPro, 3)

	p, err := s.ReadProfile(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PlanPro, p.Plan)
	assert.Equal(t, 3, p.CreditsRemaining)
	assert.False(t, p.CreatedAt.IsZero())

	byEmail, err := s.ReadProfileByEmail(context.Background(), "U-1@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", byEmail.ID)

	_, err = s.ReadProfile(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDecrementCredit(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, "u-1", domain.PlanFree, 2)
	ctx := context.Background()

	left, err := s.DecrementCredit(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 1, left)

	left, err = s.DecrementCredit(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 0, left)

	_, err = s.DecrementCredit(ctx, "u-1")
	assert.ErrorIs(t, err, domain.ErrNoCreditsLeft)

	p, err := s.ReadProfile(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.CreditsRemaining)
}

func TestDecrementCreditConcurrent(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, "u-1", domain.PlanFree, 1)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		exhausted int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.DecrementCredit(context.Background(), "u-1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrNoCreditsLeft):
				exhausted++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, exhausted)
}

func TestSetPlan(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, "u-1", domain.PlanFree, 4)
	ctx := context.Background()

	p, err := s.SetPlan(ctx, "u-1", domain.PlanEnterprise, -1)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanEnterprise, p.Plan)
	assert.Equal(t, 4, p.CreditsRemaining)

	p, err = s.SetPlan(ctx, "u-1", domain.PlanFree, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, p.CreditsRemaining)

	_, err = s.SetPlan(ctx, "u-1", domain.PlanTier("gold"), 1)
	assert.ErrorIs(t, err, domain.ErrInvalidPlan)

	_, err = s.SetPlan(ctx, "missing", domain.PlanPro, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUnknownPlanIsReturnedVerbatim(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, "u-1", domain.PlanTier("premium"), 0)

	p, err := s.ReadProfile(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PlanTier("premium"), p.Plan)
	assert.False(t, p.Plan.Valid())
}

func TestUsageLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, tool := range []string{"pdf_to_word", "compress"} {
		require.NoError(t, s.AppendUsage(ctx, &domain.UsageLogEntry{
			ID:          tool,
			UserID:      "u-1",
			ToolID:      tool,
			FileSizeMB:  0.5,
			InputFormat: "pdf",
			Category:    domain.CategoryDocument,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}))
	}

	n, err := s.CountSince(ctx, "u-1", base.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entries, err := s.ListUsage(ctx, "u-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "compress", entries[0].ToolID)
	assert.Equal(t, "", entries[0].OutputFormat)
	assert.Equal(t, domain.CategoryDocument, entries[1].Category)

	assert.Error(t, s.AppendUsage(ctx, nil))
}
