package domain

import "context"

// ProfileStore reads account profiles and meters credits.
type ProfileStore interface {
	// ReadProfile returns ErrNotFound when the user has no profile.
	ReadProfile(ctx context.Context, userID string) (*Profile, error)
	// DecrementCredit atomically removes one credit and returns the new
	// balance. It returns ErrNoCreditsLeft when the balance is already zero.
	DecrementCredit(ctx context.Context, userID string) (int, error)
}

// ProfileAdmin applies external subscription events to a profile.
type ProfileAdmin interface {
	SetPlan(ctx context.Context, userID string, plan PlanTier, credits int) (*Profile, error)
}

// UsageStore persists audit entries.
type UsageStore interface {
	AppendUsage(ctx context.Context, entry *UsageLogEntry) error
}

// ContentExtractor exposes the document primitives the vector heuristic needs.
type ContentExtractor interface {
	ExtractText(ctx context.Context, file File) (string, error)
	CountEmbeddedImages(ctx context.Context, file File) (int, error)
}

// ExecutionBackend runs the actual conversion.
type ExecutionBackend interface {
	SubmitConversion(ctx context.Context, toolID string, file File) (*Artifact, error)
}
