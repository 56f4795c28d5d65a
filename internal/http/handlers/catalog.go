package handlers

import (
	"net/http"
)

type templateDTO struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	JSON  string `json:"json"`
}

type modelDTO struct {
	Key     string `json:"key"`
	Title   string `json:"title"`
	ModelID string `json:"model_id"`
}

// Templates lists the story templates in configuration order.
func (a *App) Templates(w http.ResponseWriter, r *http.Request) {
	stories := a.Catalog.Stories()
	out := make([]templateDTO, 0, len(stories))
	for _, s := range stories {
		out = append(out, templateDTO{Key: s.Key, Title: s.Title, JSON: s.Source})
	}
	a.json(w, http.StatusOK, out)
}

// Models lists the configured style presets.
func (a *App) Models(w http.ResponseWriter, r *http.Request) {
	styles := a.Catalog.Styles()
	out := make([]modelDTO, 0, len(styles))
	for _, s := range styles {
		out = append(out, modelDTO{Key: s.Key, Title: s.Title, ModelID: s.ModelID})
	}
	a.json(w, http.StatusOK, out)
}
