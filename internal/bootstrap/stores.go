// Package bootstrap assembles the service from configuration. It is the only
// place concrete adapters are chosen.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"pdfgate/internal/adapter/repo"
	"pdfgate/internal/adapter/sqlitestore"
	"pdfgate/internal/domain"
	"pdfgate/internal/infra"
)

// ProfileBackend is what both store drivers offer for profiles.
type ProfileBackend interface {
	domain.ProfileStore
	domain.ProfileAdmin
	ReadProfileByEmail(ctx context.Context, email string) (*domain.Profile, error)
}

// UsageBackend is what both store drivers offer for usage logs.
type UsageBackend interface {
	domain.UsageStore
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)
}

// Stores holds the profile and usage adapters for the configured driver.
type Stores struct {
	Driver   string
	Profiles ProfileBackend
	Usage    UsageBackend
	close    func() error
}

// OpenStores connects the driver named by cfg.StoreDriver.
func OpenStores(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (*Stores, error) {
	switch cfg.StoreDriver {
	case infra.StoreDriverPostgres:
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		runner := infra.NewSQLRunner(pool, logger.With().Str("component", "sql").Logger())
		return &Stores{
			Driver:   cfg.StoreDriver,
			Profiles: repo.NewProfileRepository(runner),
			Usage:    repo.NewUsageRepository(runner),
			close:    func() error { pool.Close(); return nil },
		}, nil
	case infra.StoreDriverSQLite:
		store, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Stores{
			Driver:   cfg.StoreDriver,
			Profiles: store,
			Usage:    store,
			close:    store.Close,
		}, nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
}

// Close releases the underlying connections.
func (s *Stores) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}
