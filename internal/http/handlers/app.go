package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/caseras1/ai-childbook/internal/accounts"
	"github.com/caseras1/ai-childbook/internal/domain"
	"github.com/caseras1/ai-childbook/internal/infra"
	"github.com/caseras1/ai-childbook/internal/middleware"
	"github.com/caseras1/ai-childbook/internal/storage"
	"github.com/caseras1/ai-childbook/internal/story"
)

const platformModelsTTL = 10 * time.Minute

// StoryGenerator runs one story end to end.
type StoryGenerator interface {
	Generate(ctx context.Context, req story.Request) (*story.Document, error)
}

// ModelLister lists the provider's platform models.
type ModelLister interface {
	ListPlatformModels(ctx context.Context, limit int) ([]domain.PlatformModel, error)
}

// App carries the dependencies shared by every handler.
type App struct {
	Catalog   *story.Catalog
	Generator StoryGenerator
	Lister    ModelLister
	Accounts  *accounts.Service
	Store     *storage.FileStore
	Logger    zerolog.Logger

	runs  singleflight.Group
	cache *gocache.Cache
}

// NewApp builds the handler container. Accounts and Lister may be nil; the
// routes depending on them then answer 503.
func NewApp(catalog *story.Catalog, generator StoryGenerator, lister ModelLister, accts *accounts.Service, store *storage.FileStore, logger *infra.Logger) *App {
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &App{
		Catalog:   catalog,
		Generator: generator,
		Lister:    lister,
		Accounts:  accts,
		Store:     store,
		Logger:    *logger,
		cache:     gocache.New(platformModelsTTL, 2*platformModelsTTL),
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// error writes the {"error": message} body every client expects, with a
// machine-readable code alongside.
func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": message, "code": code})
}

func (a *App) currentAccountID(r *http.Request) *int64 {
	if acc := middleware.AccountFromContext(r.Context()); acc != nil {
		id := acc.ID
		return &id
	}
	return nil
}
