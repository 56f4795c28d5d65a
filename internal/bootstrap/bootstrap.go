// Package bootstrap wires the story pipeline from configuration. Both
// binaries share it.
package bootstrap

import (
	"fmt"

	"github.com/caseras1/ai-childbook/internal/compose"
	"github.com/caseras1/ai-childbook/internal/imagegen"
	"github.com/caseras1/ai-childbook/internal/infra"
	"github.com/caseras1/ai-childbook/internal/infra/credentials"
	"github.com/caseras1/ai-childbook/internal/providers/leonardo"
	"github.com/caseras1/ai-childbook/internal/storage"
	"github.com/caseras1/ai-childbook/internal/story"
)

// Pipeline holds the wired components of one process.
type Pipeline struct {
	Catalog      *story.Catalog
	Client       *leonardo.Client
	Store        *storage.FileStore
	Orchestrator *story.Orchestrator
}

// NewPipeline loads presets and wires provider, storage and renderer. The
// provider credential is read lazily on the first provider call.
func NewPipeline(cfg *infra.Config, logger *infra.Logger) (*Pipeline, error) {
	catalog, err := story.LoadCatalog(cfg.PresetsPath)
	if err != nil {
		return nil, err
	}
	store, err := storage.NewFileStore(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	client, err := leonardo.NewClient(leonardo.Options{
		Credentials:    credentials.NewSource(cfg.EnvFile),
		BaseURL:        cfg.LeonardoBaseURL,
		RequestTimeout: cfg.GenerationTimeout,
		Logger:         logger,
		ElementsField:  cfg.ElementsField,
		SendDatasetID:  cfg.SendDatasetID,
	})
	if err != nil {
		return nil, err
	}
	renderer, err := compose.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}
	orch, err := story.NewOrchestrator(story.Options{
		Catalog:         catalog,
		Provider:        client,
		Fetcher:         imagegen.NewFetcher(store, imagegen.FetcherOptions{Timeout: cfg.DownloadTimeout, Logger: logger}),
		Store:           store,
		Renderer:        renderer,
		Logger:          logger,
		PollInterval:    cfg.PollInterval,
		PollMaxAttempts: cfg.PollMaxAttempts,
	})
	if err != nil {
		return nil, err
	}
	return &Pipeline{Catalog: catalog, Client: client, Store: store, Orchestrator: orch}, nil
}
