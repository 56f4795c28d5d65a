package httpapi

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/caseras1/ai-childbook/internal/http/handlers"
	"github.com/caseras1/ai-childbook/internal/middleware"
)

// Options configures the router beyond the handler container.
type Options struct {
	Logger          zerolog.Logger
	FrontendDir     string
	CORSOrigins     []string
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
	)

	r.Get("/healthz", app.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if app.Accounts != nil {
			r.Use(middleware.OptionalAccount(app.Accounts))
		}
		r.Get("/templates", app.Templates)
		r.Get("/models", app.Models)
		r.Get("/platform-models", app.PlatformModels)
		r.With(middleware.RateLimit(opts.RateLimitPerMin, time.Minute)).Post("/generate", app.Generate)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", app.AuthRegister)
			r.Post("/login", app.AuthLogin)
		})
		r.Route("/stories", func(r chi.Router) {
			r.Get("/", app.ListStories)
			r.Get("/{id}/pdf", app.StoryPDF)
			r.Get("/{id}/pages.zip", app.StoryPagesZip)
		})
	})

	if opts.FrontendDir != "" {
		if info, err := os.Stat(opts.FrontendDir); err == nil && info.IsDir() {
			r.Handle("/*", http.FileServer(http.Dir(opts.FrontendDir)))
		} else {
			opts.Logger.Warn().Str("dir", opts.FrontendDir).Msg("frontend directory missing, static files disabled")
		}
	}

	return r
}
