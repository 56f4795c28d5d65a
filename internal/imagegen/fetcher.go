package imagegen

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/caseras1/ai-childbook/internal/domain"
	"github.com/caseras1/ai-childbook/internal/infra"
	"github.com/caseras1/ai-childbook/internal/storage"
)

// DefaultDownloadTimeout is longer than the generation call timeout because
// result images are far larger than API responses.
const DefaultDownloadTimeout = 120 * time.Second

// Fetcher downloads result images into a FileStore.
type Fetcher struct {
	store      *storage.FileStore
	httpClient *http.Client
	logger     *infra.Logger
}

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *infra.Logger
}

// NewFetcher builds a Fetcher writing under store.
func NewFetcher(store *storage.FileStore, opts FetcherOptions) *Fetcher {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultDownloadTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Fetcher{store: store, httpClient: client, logger: logger}
}

// Download issues an unauthenticated GET and writes the body to key inside
// the store, replacing any previous file. It returns the full local path.
func (f *Fetcher) Download(ctx context.Context, imageURL, key string) (string, error) {
	imageURL = strings.TrimSpace(imageURL)
	op := "download " + imageURL
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", &domain.TransportError{Op: op, URL: imageURL, Err: fmt.Errorf("build request: %w", err)}
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", &domain.TransportError{Op: op, URL: imageURL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &domain.TransportError{Op: op, URL: imageURL, Status: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.TransportError{Op: op, URL: imageURL, Err: fmt.Errorf("read body: %w", err)}
	}
	path, err := f.store.Write(ctx, key, data)
	if err != nil {
		return "", err
	}
	f.logger.Info().Str("url", imageURL).Str("path", path).Int("bytes", len(data)).Msg("download: image saved")
	return path, nil
}
