package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"pdfgate/internal/conversion"
	"pdfgate/internal/domain"
	"pdfgate/internal/entitlement"
	"pdfgate/internal/http/handlers"
	"pdfgate/internal/http/httpapi"
	"pdfgate/internal/infra"
	"pdfgate/internal/ledger"
	"pdfgate/internal/pdfinspect"
	"pdfgate/internal/precondition"
	"pdfgate/internal/providers/converter"
	"pdfgate/internal/registry"
	"pdfgate/internal/storage"
	"pdfgate/internal/telemetry"
)

// Service is the fully wired API.
type Service struct {
	Config       *infra.Config
	Logger       zerolog.Logger
	Tools        *registry.Registry
	Stores       *Stores
	Evaluator    *entitlement.Evaluator
	Orchestrator *conversion.Orchestrator
	Artifacts    *storage.FileStore
	Telemetry    *telemetry.Provider
}

// Backends lets callers replace the remote collaborators, mostly in tests.
// Nil fields fall back to the configured implementations.
type Backends struct {
	Stores    *Stores
	Execution domain.ExecutionBackend
	Extractor domain.ContentExtractor
}

// NewService builds every component from cfg.
func NewService(ctx context.Context, cfg *infra.Config, logger zerolog.Logger, b Backends) (*Service, error) {
	tools, err := registry.Load(cfg.ToolRegistryFile)
	if err != nil {
		return nil, err
	}

	provider, err := telemetry.Setup(ctx, cfg.OTLPEndpoint)
	if err != nil {
		return nil, err
	}
	metrics, err := provider.Metrics()
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, err
	}

	stores := b.Stores
	if stores == nil {
		if stores, err = OpenStores(ctx, cfg, logger); err != nil {
			_ = provider.Shutdown(ctx)
			return nil, err
		}
	}

	backend := b.Execution
	if backend == nil {
		client, err := converter.NewClient(converter.Options{
			BaseURL:        cfg.ConverterBaseURL,
			APIKey:         cfg.ConverterAPIKey,
			Logger:         &logger,
			RequestTimeout: cfg.ExecuteTimeout,
		})
		if err != nil {
			_ = stores.Close()
			_ = provider.Shutdown(ctx)
			return nil, err
		}
		backend = client
	}

	extractor := b.Extractor
	if extractor == nil {
		extractor = pdfinspect.NewExtractor()
	}

	artifacts, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		_ = stores.Close()
		_ = provider.Shutdown(ctx)
		return nil, err
	}

	evaluator := entitlement.NewEvaluator(stores.Profiles, tools, cfg.ProfileTimeout, logger)
	orchestrator := conversion.New(conversion.Options{
		Tools:          tools,
		Vector:         precondition.NewVectorChecker(extractor, cfg.ExtractTimeout, logger),
		Entitlement:    evaluator,
		Ledger:         ledger.New(stores.Usage, stores.Profiles, cfg.LedgerTimeout, logger),
		Backend:        backend,
		ExecuteTimeout: cfg.ExecuteTimeout,
		Logger:         logger,
		Metrics:        metrics,
		Tracer:         provider.Tracer(),
	})

	logger.Info().
		Str("store", stores.Driver).
		Int("tools", tools.Len()).
		Bool("default_open", registry.DefaultOpen).
		Msg("service assembled")

	return &Service{
		Config:       cfg,
		Logger:       logger,
		Tools:        tools,
		Stores:       stores,
		Evaluator:    evaluator,
		Orchestrator: orchestrator,
		Artifacts:    artifacts,
		Telemetry:    provider,
	}, nil
}

// Handler returns the HTTP router for the service.
func (s *Service) Handler() http.Handler {
	app := &handlers.App{
		Logger:         s.Logger,
		Tools:          s.Tools,
		Access:         s.Evaluator,
		Conversions:    s.Orchestrator,
		Artifacts:      s.Artifacts,
		MaxUploadBytes: s.Config.MaxUploadBytes(),
	}
	return httpapi.NewRouter(app, httpapi.RouterOptions{
		JWTSecret:      s.Config.JWTSecret,
		AllowedOrigins: s.Config.CORSAllowedOrigins,
		RateLimit:      s.Config.RateLimitPerMin,
		Logger:         s.Logger,
	})
}

// Close releases stores and flushes telemetry.
func (s *Service) Close(ctx context.Context) error {
	var errs []error
	if err := s.Stores.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close stores: %w", err))
	}
	if err := s.Telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
