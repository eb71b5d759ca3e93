package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfgate/internal/domain"
)

type memUsage struct {
	entries []*domain.UsageLogEntry
	err     error
}

func (m *memUsage) AppendUsage(_ context.Context, e *domain.UsageLogEntry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

// atomicProfiles mimics a store-side conditional decrement.
type atomicProfiles struct {
	mu      sync.Mutex
	credits int
}

func (p *atomicProfiles) ReadProfile(context.Context, string) (*domain.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &domain.Profile{Plan: domain.PlanFree, CreditsRemaining: p.credits}, nil
}

func (p *atomicProfiles) DecrementCredit(context.Context, string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.credits <= 0 {
		return 0, domain.ErrNoCreditsLeft
	}
	p.credits--
	return p.credits, nil
}

func TestRecordUsage(t *testing.T) {
	usage := &memUsage{}
	l := New(usage, &atomicProfiles{}, time.Second, zerolog.Nop())
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	err := l.RecordUsage(context.Background(), "u1", "PDF to DWG", 2.5, domain.FormatMeta{
		InputFormat:  "pdf",
		OutputFormat: "dwg",
		Category:     domain.CategoryCAD,
	})
	require.NoError(t, err)
	require.Len(t, usage.entries, 1)
	e := usage.entries[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "u1", e.UserID)
	assert.Equal(t, "pdf_to_dwg", e.ToolID)
	assert.Equal(t, 2.5, e.FileSizeMB)
	assert.Equal(t, "pdf", e.InputFormat)
	assert.Equal(t, "dwg", e.OutputFormat)
	assert.Equal(t, domain.CategoryCAD, e.Category)
	assert.Equal(t, fixed, e.CreatedAt)
}

func TestRecordUsageError(t *testing.T) {
	boom := errors.New("insert failed")
	l := New(&memUsage{err: boom}, &atomicProfiles{}, 0, zerolog.Nop())
	err := l.RecordUsage(context.Background(), "u1", "compress", 1, domain.FormatMeta{})
	assert.ErrorIs(t, err, boom)
}

func TestChargeCredit(t *testing.T) {
	profiles := &atomicProfiles{credits: 2}
	l := New(&memUsage{}, profiles, 0, zerolog.Nop())
	require.NoError(t, l.ChargeCredit(context.Background(), "u1", "compress", 1))
	require.NoError(t, l.ChargeCredit(context.Background(), "u1", "compress", 1))
	err := l.ChargeCredit(context.Background(), "u1", "compress", 1)
	assert.ErrorIs(t, err, domain.ErrNoCreditsLeft)
	assert.Equal(t, 0, profiles.credits)
}

func TestChargeCreditConcurrentNeverOverspends(t *testing.T) {
	profiles := &atomicProfiles{credits: 1}
	l := New(&memUsage{}, profiles, 0, zerolog.Nop())

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.ChargeCredit(context.Background(), "u1", "compress", 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, profiles.credits)
}
