package handlers

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/caseras1/ai-childbook/internal/domain"
	"github.com/caseras1/ai-childbook/internal/story"
)

const maxFormMemory = 1 << 20

type generateResponse struct {
	OK      bool   `json:"ok"`
	PDF     string `json:"pdf"`
	StoryID int64  `json:"story_id,omitempty"`
}

// Generate runs a story for the form fields story, model and child_name.
// Identical concurrent submissions share one run.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid form payload")
		return
	}
	storyKey := strings.TrimSpace(r.FormValue("story"))
	styleKey := strings.TrimSpace(r.FormValue("model"))
	childName := story.NormalizeChildName(r.FormValue("child_name"))

	tmpl, err := a.Catalog.Story(storyKey)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "Invalid story key")
		return
	}
	if childName == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "Child name required")
		return
	}

	req := story.Request{StoryKey: tmpl.Key, ChildName: childName, StyleKey: styleKey}
	runKey := strings.Join([]string{req.StoryKey, strings.ToLower(req.StyleKey), strings.ToLower(req.ChildName)}, "|")
	log := a.Logger.With().Str("story", req.StoryKey).Str("child", childName).Str("style", styleKey).Logger()

	// The run outlives a disconnecting client so that a shared result is
	// still produced for the others waiting on it.
	ctx := context.WithoutCancel(r.Context())
	v, err, shared := a.runs.Do(runKey, func() (any, error) {
		return a.Generator.Generate(ctx, req)
	})
	if err != nil {
		log.Error().Err(err).Msg("generate: story failed")
		a.error(w, generateStatus(err), "generation_failed", err.Error())
		return
	}
	doc := v.(*story.Document)
	if shared {
		log.Info().Str("pdf", doc.Path).Msg("generate: shared run result")
	}
	// Every caller gets its own history row, even when the run was shared.
	storyID := a.recordStory(ctx, doc, a.currentAccountID(r))
	a.json(w, http.StatusOK, generateResponse{OK: true, PDF: doc.Path, StoryID: storyID})
}

func generateStatus(err error) int {
	var (
		invalid *domain.InvalidRequestError
		unknown *domain.UnknownStoryError
	)
	if errors.As(err, &invalid) || errors.As(err, &unknown) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// recordStory stores one history row per finished document. A failure is
// logged and does not fail the request since the PDF already exists.
func (a *App) recordStory(ctx context.Context, doc *story.Document, accountID *int64) int64 {
	if a.Accounts == nil {
		return 0
	}
	rec := &domain.StoryRecord{
		AccountID: accountID,
		Title:     doc.Title,
		Subject:   doc.ChildName,
		Path:      doc.Path,
		ImagesDir: filepath.ToSlash(doc.ImagesDir),
		PageCount: doc.PageCount,
	}
	if err := a.Accounts.SaveStory(ctx, rec); err != nil {
		a.Logger.Error().Err(err).Str("pdf", doc.Path).Msg("generate: record story failed")
		return 0
	}
	return rec.ID
}
