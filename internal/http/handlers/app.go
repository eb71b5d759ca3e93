package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"pdfgate/internal/conversion"
	"pdfgate/internal/domain"
	"pdfgate/internal/middleware"
	"pdfgate/internal/registry"
)

// AccessEvaluator answers the per-tool lock state.
type AccessEvaluator interface {
	Evaluate(ctx context.Context, userID, toolID string) domain.AccessDecision
}

// ConversionRunner executes one conversion request.
type ConversionRunner interface {
	Execute(ctx context.Context, req conversion.Request) (*conversion.Result, error)
}

// ArtifactStore keeps produced artifacts for later download.
type ArtifactStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
}

// App carries the dependencies shared by every handler.
type App struct {
	Logger         zerolog.Logger
	Tools          *registry.Registry
	Access         AccessEvaluator
	Conversions    ConversionRunner
	Artifacts      ArtifactStore
	MaxUploadBytes int64
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{
		"error": map[string]string{"code": errCode, "message": message},
	})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
