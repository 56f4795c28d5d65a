package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/caseras1/ai-childbook/internal/domain"
	"github.com/caseras1/ai-childbook/pkg/zip"
)

type storyDTO struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Subject   string    `json:"subject"`
	PDF       string    `json:"pdf"`
	PageCount int       `json:"page_count"`
	CreatedAt time.Time `json:"created_at"`
}

// ListStories returns the caller's stories, or every story for anonymous callers.
func (a *App) ListStories(w http.ResponseWriter, r *http.Request) {
	if a.Accounts == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "story history is disabled")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := a.Accounts.ListStories(r.Context(), a.currentAccountID(r), limit)
	if err != nil {
		a.Logger.Error().Err(err).Msg("list stories failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load stories")
		return
	}
	items := make([]storyDTO, 0, len(records))
	for _, rec := range records {
		items = append(items, storyDTO{
			ID:        rec.ID,
			Title:     rec.Title,
			Subject:   rec.Subject,
			PDF:       rec.Path,
			PageCount: rec.PageCount,
			CreatedAt: rec.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// StoryPDF streams the generated document.
func (a *App) StoryPDF(w http.ResponseWriter, r *http.Request) {
	rec, ok := a.loadStory(w, r)
	if !ok {
		return
	}
	if _, err := os.Stat(rec.Path); err != nil {
		a.error(w, http.StatusNotFound, "not_found", "document missing on disk")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(rec.Path)))
	http.ServeFile(w, r, rec.Path)
}

// StoryPagesZip bundles the downloaded page illustrations.
func (a *App) StoryPagesZip(w http.ResponseWriter, r *http.Request) {
	rec, ok := a.loadStory(w, r)
	if !ok {
		return
	}
	if a.Store == nil || rec.ImagesDir == "" {
		a.error(w, http.StatusNotFound, "not_found", "no page images recorded")
		return
	}
	dir, err := a.Store.Path(rec.ImagesDir)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "no page images recorded")
		return
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "page_*.png"))
	if len(matches) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "page images missing on disk")
		return
	}
	sort.Strings(matches)
	assets := make([]zip.Asset, 0, len(matches))
	for _, m := range matches {
		assets = append(assets, zip.Asset{Filename: filepath.Base(m), Path: m})
	}
	archive, err := zip.ArchiveAssets(assets)
	if err != nil {
		a.Logger.Error().Err(err).Int64("story_id", rec.ID).Msg("zip pages failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to archive pages")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=story-%d-pages.zip", rec.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

// loadStory resolves {id} and hides stories owned by another account.
func (a *App) loadStory(w http.ResponseWriter, r *http.Request) (*domain.StoryRecord, bool) {
	if a.Accounts == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "story history is disabled")
		return nil, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid story id")
		return nil, false
	}
	rec, err := a.Accounts.StoryByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "story not found")
			return nil, false
		}
		a.Logger.Error().Err(err).Int64("story_id", id).Msg("load story failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load story")
		return nil, false
	}
	if rec.AccountID != nil {
		caller := a.currentAccountID(r)
		if caller == nil || *caller != *rec.AccountID {
			a.error(w, http.StatusNotFound, "not_found", "story not found")
			return nil, false
		}
	}
	return rec, true
}
