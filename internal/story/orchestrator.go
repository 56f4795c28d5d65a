package story

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path"
	"strings"
	"time"

	"github.com/caseras1/ai-childbook/internal/compose"
	"github.com/caseras1/ai-childbook/internal/domain"
	"github.com/caseras1/ai-childbook/internal/imagegen"
	"github.com/caseras1/ai-childbook/internal/infra"
	"github.com/caseras1/ai-childbook/internal/metrics"
	"github.com/caseras1/ai-childbook/internal/storage"
)

// Options wires an Orchestrator.
type Options struct {
	Catalog         *Catalog
	Provider        imagegen.Provider
	Fetcher         *imagegen.Fetcher
	Store           *storage.FileStore
	Renderer        *compose.Renderer
	Logger          *infra.Logger
	PollInterval    time.Duration
	PollMaxAttempts int
	Now             func() time.Time
}

// Orchestrator turns a story template into a PDF, one page at a time.
type Orchestrator struct {
	catalog     *Catalog
	provider    imagegen.Provider
	poller      *imagegen.Poller
	fetcher     *imagegen.Fetcher
	store       *storage.FileStore
	renderer    *compose.Renderer
	logger      *infra.Logger
	interval    time.Duration
	maxAttempts int
	now         func() time.Time

	locks runLocks
}

// Request names what to generate. StyleKey and ModelID are optional overrides.
type Request struct {
	StoryKey  string
	ChildName string
	StyleKey  string
	ModelID   string
}

// Document describes a finished story PDF.
type Document struct {
	Path      string
	Title     string
	StoryKey  string
	ChildName string
	StyleKey  string
	ImagesDir string
	PageCount int
	Pages     []PageArtifact
}

// PageArtifact is the downloaded illustration behind one page.
type PageArtifact struct {
	Number       int
	ImagePath    string
	GenerationID string
	ImageURL     string
}

type pageMetadata struct {
	Page           int      `json:"page"`
	Prompt         string   `json:"prompt"`
	NegativePrompt string   `json:"negative_prompt,omitempty"`
	ModelID        string   `json:"model_id"`
	Style          string   `json:"style"`
	Width          int      `json:"width"`
	Height         int      `json:"height"`
	ImagePrompts   []string `json:"image_prompts,omitempty"`
	GenerationID   string   `json:"generation_id"`
	ImageURL       string   `json:"image_url"`
	Timestamp      string   `json:"timestamp"`
}

// NewOrchestrator validates the wiring and applies poll defaults.
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	switch {
	case opts.Catalog == nil:
		return nil, errors.New("story: catalog is required")
	case opts.Provider == nil:
		return nil, errors.New("story: provider is required")
	case opts.Store == nil:
		return nil, errors.New("story: file store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = imagegen.NewFetcher(opts.Store, imagegen.FetcherOptions{Logger: logger})
	}
	renderer := opts.Renderer
	if renderer == nil {
		r, err := compose.NewRenderer()
		if err != nil {
			return nil, err
		}
		renderer = r
	}
	interval := opts.PollInterval
	if interval < 0 {
		interval = imagegen.DefaultPollInterval
	}
	maxAttempts := opts.PollMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = imagegen.DefaultPollMaxAttempts
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		catalog:     opts.Catalog,
		provider:    opts.Provider,
		poller:      imagegen.NewPoller(opts.Provider, logger),
		fetcher:     fetcher,
		store:       opts.Store,
		renderer:    renderer,
		logger:      logger,
		interval:    interval,
		maxAttempts: maxAttempts,
		now:         now,
	}, nil
}

// Catalog exposes the loaded presets.
func (o *Orchestrator) Catalog() *Catalog { return o.catalog }

// Generate runs every page of the story in page order. Pages are processed
// strictly one after another; the first failing page aborts the run and no
// document is written.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (doc *Document, err error) {
	started := o.now()
	label := "unknown"
	defer func() {
		metrics.ObserveStory(label, err, time.Since(started))
	}()

	tmpl, err := o.catalog.Story(req.StoryKey)
	if err != nil {
		return nil, err
	}
	label = tmpl.Key
	childName := NormalizeChildName(req.ChildName)
	if childName == "" {
		return nil, &domain.InvalidRequestError{Field: "child_name", Reason: "is required"}
	}
	style := o.catalog.ResolveStyle(req.StyleKey)
	modelID := strings.TrimSpace(req.ModelID)
	if modelID == "" {
		modelID = style.ModelID
	}
	if domain.IsPlaceholder(modelID) {
		return nil, &domain.UnresolvedModelError{Key: style.Key, Field: "model_id"}
	}
	if domain.IsPlaceholder(style.BasePrompt) {
		return nil, &domain.UnresolvedModelError{Key: style.Key, Field: "base_prompt"}
	}

	imagesDir := ImagesDir(childName, tmpl.Key)
	pdfPath, err := o.store.Path(DocumentName(childName, tmpl.Title))
	if err != nil {
		return nil, err
	}
	// Runs for the same child and story share every output path whatever
	// the style, so they take turns.
	release, err := o.locks.acquire(ctx, imagesDir)
	if err != nil {
		return nil, err
	}
	defer release()
	log := o.logger.With().Str("story", tmpl.Key).Str("child", childName).Str("style", style.Key).Logger()
	log.Info().Int("pages", len(tmpl.Pages)).Str("model_id", modelID).Msg("story: generation started")

	doc = &Document{
		Path:      pdfPath,
		Title:     tmpl.Title,
		StoryKey:  tmpl.Key,
		ChildName: childName,
		StyleKey:  style.Key,
		ImagesDir: imagesDir,
	}
	rendered := make([]image.Image, 0, len(tmpl.Pages))
	for _, page := range tmpl.Pages {
		genReq := BuildRequest(style, tmpl.Variant, page, childName, modelID, o.catalog.NegativePrompt())
		artifact, err := o.generatePage(ctx, imagesDir, style.Key, page, genReq)
		if err != nil {
			log.Error().Err(err).Int("page", page.Number).Msg("story: page failed, aborting")
			return nil, fmt.Errorf("page %d: %w", page.Number, err)
		}
		img, err := compose.LoadImage(artifact.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page.Number, err)
		}
		out, err := o.renderer.RenderPage(img, page.Caption, fmt.Sprintf("Page %d", page.Number))
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page.Number, err)
		}
		rendered = append(rendered, out)
		doc.Pages = append(doc.Pages, artifact)
		log.Info().Int("page", page.Number).Str("image", artifact.ImagePath).Msg("story: page rendered")
	}

	if _, err := compose.Assemble(rendered, pdfPath); err != nil {
		return nil, err
	}
	doc.PageCount = len(rendered)
	log.Info().Str("pdf", pdfPath).Dur("elapsed", time.Since(started)).Msg("story: document saved")
	return doc, nil
}

func (o *Orchestrator) generatePage(ctx context.Context, imagesDir, styleKey string, page domain.StoryPage, req domain.GenerationRequest) (PageArtifact, error) {
	jobID, err := o.provider.StartGeneration(ctx, req)
	if err != nil {
		return PageArtifact{}, err
	}
	result, err := o.poller.Poll(ctx, jobID, o.interval, o.maxAttempts)
	if err != nil {
		return PageArtifact{}, err
	}
	imageURL, err := result.FirstImageURL()
	if err != nil {
		return PageArtifact{}, err
	}
	base := path.Join(imagesDir, fmt.Sprintf("page_%02d", page.Number))
	imagePath, err := o.fetcher.Download(ctx, imageURL, base+".png")
	if err != nil {
		return PageArtifact{}, err
	}
	meta := pageMetadata{
		Page:           page.Number,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		ModelID:        req.ModelID,
		Style:          styleKey,
		Width:          req.Width,
		Height:         req.Height,
		ImagePrompts:   req.ImagePrompts,
		GenerationID:   jobID,
		ImageURL:       imageURL,
		Timestamp:      o.now().UTC().Format(time.RFC3339),
	}
	if _, err := o.store.WriteJSON(ctx, base+".json", meta); err != nil {
		return PageArtifact{}, err
	}
	return PageArtifact{Number: page.Number, ImagePath: imagePath, GenerationID: jobID, ImageURL: imageURL}, nil
}
