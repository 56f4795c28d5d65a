// Package imagegen drives a provider job from submission to a local file.
package imagegen

import (
	"context"

	"github.com/caseras1/ai-childbook/internal/domain"
)

// Starter submits generation jobs.
type Starter interface {
	StartGeneration(ctx context.Context, req domain.GenerationRequest) (string, error)
}

// StatusFetcher reads the state of a submitted job.
type StatusFetcher interface {
	FetchJobStatus(ctx context.Context, id string) (domain.JobStatus, error)
}

// Provider is everything the story pipeline needs from the image API.
type Provider interface {
	Starter
	StatusFetcher
}
