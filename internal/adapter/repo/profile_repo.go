package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"pdfgate/internal/domain"
	"pdfgate/internal/infra"
	"pdfgate/internal/sqlinline"
)

// ProfileRepositoryPG implements domain.ProfileStore and domain.ProfileAdmin
// backed by PostgreSQL.
type ProfileRepositoryPG struct {
	db infra.SQLExecutor
}

// NewProfileRepository creates a ProfileRepositoryPG. db is usually an
// *infra.SQLRunner so every statement carries its marker.
func NewProfileRepository(db infra.SQLExecutor) *ProfileRepositoryPG {
	return &ProfileRepositoryPG{db: db}
}

// ReadProfile fetches the current profile row. The plan is returned as
// stored; callers decide how to treat values outside the known tiers.
func (r *ProfileRepositoryPG) ReadProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrNotFound
	}
	return scanProfile(r.db.QueryRow(ctx, sqlinline.QSelectProfileByID, userID))
}

// ReadProfileByEmail resolves a profile by case-insensitive email.
func (r *ProfileRepositoryPG) ReadProfileByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	if strings.TrimSpace(email) == "" {
		return nil, domain.ErrNotFound
	}
	return scanProfile(r.db.QueryRow(ctx, sqlinline.QSelectProfileByEmail, email))
}

// DecrementCredit charges one credit. The statement only matches rows with a
// positive balance, so no row back means the balance was already zero or the
// user does not exist.
func (r *ProfileRepositoryPG) DecrementCredit(ctx context.Context, userID string) (int, error) {
	var remaining int
	if err := r.db.QueryRow(ctx, sqlinline.QDecrementCredit, userID).Scan(&remaining); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNoCreditsLeft
		}
		return 0, fmt.Errorf("decrement credit: %w", err)
	}
	return remaining, nil
}

// SetPlan applies a subscription change. A negative credits value keeps the
// current balance.
func (r *ProfileRepositoryPG) SetPlan(ctx context.Context, userID string, plan domain.PlanTier, credits int) (*domain.Profile, error) {
	if !plan.Valid() {
		return nil, domain.ErrInvalidPlan
	}
	return scanProfile(r.db.QueryRow(ctx, sqlinline.QUpdateProfilePlan, userID, string(plan), credits))
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var (
		p    domain.Profile
		plan string
	)
	if err := row.Scan(&p.ID, &p.Email, &plan, &p.DailyLimit, &p.CreditsRemaining, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p.Plan = domain.PlanTier(strings.ToLower(strings.TrimSpace(plan)))
	return &p, nil
}

var (
	_ domain.ProfileStore = (*ProfileRepositoryPG)(nil)
	_ domain.ProfileAdmin = (*ProfileRepositoryPG)(nil)
)
