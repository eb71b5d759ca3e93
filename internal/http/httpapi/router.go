package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"pdfgate/internal/http/handlers"
	"pdfgate/internal/middleware"
)

// RouterOptions configures the cross-cutting middleware.
type RouterOptions struct {
	JWTSecret      string
	AllowedOrigins []string
	RateLimit      int
	Logger         zerolog.Logger
}

// NewRouter wires the public and authenticated API routes.
func NewRouter(app *handlers.App, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
	)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(opts.RateLimit, time.Minute))
			r.Get("/tools", app.ToolsList)
			r.Get("/tools/{tool}", app.ToolsGet)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthJWT(opts.JWTSecret))
			r.Use(middleware.RateLimit(opts.RateLimit, time.Minute))
			r.Get("/tools/{tool}/access", app.ToolsAccess)
			r.Post("/conversions", app.ConversionsCreate)
			r.Get("/artifacts/*", app.ArtifactsDownload)
		})
	})

	return r
}
