package handlers

import (
	"errors"
	"net/http"
	"strconv"

	gocache "github.com/patrickmn/go-cache"

	"github.com/caseras1/ai-childbook/internal/domain"
)

const (
	defaultModelLimit = 20
	maxModelLimit     = 100
)

// PlatformModels proxies the provider's model listing, cached per limit.
func (a *App) PlatformModels(w http.ResponseWriter, r *http.Request) {
	if a.Lister == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "provider is not configured")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultModelLimit
	}
	if limit > maxModelLimit {
		limit = maxModelLimit
	}
	cacheKey := "platform-models:" + strconv.Itoa(limit)
	if cached, ok := a.cache.Get(cacheKey); ok {
		a.json(w, http.StatusOK, map[string]any{"items": cached})
		return
	}
	models, err := a.Lister.ListPlatformModels(r.Context(), limit)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, domain.ErrAuth) {
			status = http.StatusServiceUnavailable
		}
		a.Logger.Error().Err(err).Msg("list platform models failed")
		a.error(w, status, "provider_error", err.Error())
		return
	}
	a.cache.Set(cacheKey, models, gocache.DefaultExpiration)
	a.json(w, http.StatusOK, map[string]any{"items": models})
}
