package domain

import "strings"

// GenerationStatus enumerates provider job states this system reacts to.
// Any other value is treated as still running.
type GenerationStatus string

const (
	GenerationPending   GenerationStatus = "PENDING"
	GenerationComplete  GenerationStatus = "COMPLETE"
	GenerationFailed    GenerationStatus = "FAILED"
	GenerationCancelled GenerationStatus = "CANCELLED"
	// GenerationTimedOut is local only; the provider never reports it.
	GenerationTimedOut GenerationStatus = "TIMED_OUT"
)

// NormalizeStatus upper-cases a provider status string.
func NormalizeStatus(s string) GenerationStatus {
	return GenerationStatus(strings.ToUpper(strings.TrimSpace(s)))
}

// Terminal reports whether polling must stop on this status.
func (s GenerationStatus) Terminal() bool {
	switch s {
	case GenerationComplete, GenerationFailed, GenerationCancelled:
		return true
	}
	return false
}

// ElementRef is a weighted reference to a provider-side trained element.
type ElementRef struct {
	ID     string
	Weight float64
}

// GenerationRequest is one image generation call.
type GenerationRequest struct {
	Prompt         string
	ModelID        string
	Width          int
	Height         int
	NumImages      int
	NegativePrompt string
	Elements       []ElementRef
	DatasetID      string
	Alchemy        *bool
	Contrast       *float64
	ImagePrompts   []string
}

// Validate checks the invariants every request must hold before it is sent.
func (r GenerationRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.Prompt) == "":
		return &InvalidRequestError{Field: "prompt", Reason: "must not be empty"}
	case strings.TrimSpace(r.ModelID) == "":
		return &InvalidRequestError{Field: "modelId", Reason: "must not be empty"}
	case r.Width <= 0 || r.Height <= 0:
		return &InvalidRequestError{Field: "width/height", Reason: "must be positive"}
	case r.NumImages < 1:
		return &InvalidRequestError{Field: "num_images", Reason: "must be at least 1"}
	}
	return nil
}

// JobStatus is one parsed status response. Transient marks a non-success
// HTTP answer that the poller should skip over.
type JobStatus struct {
	Status     GenerationStatus
	ImageURLs  []string
	HTTPStatus int
	Transient  bool
}

// GenerationResult is the terminal outcome of polling one job.
type GenerationResult struct {
	JobID     string
	Status    GenerationStatus
	ImageURLs []string
	Attempts  int
}

// FirstImageURL returns the first produced image of a complete result.
func (r GenerationResult) FirstImageURL() (string, error) {
	if len(r.ImageURLs) == 0 || strings.TrimSpace(r.ImageURLs[0]) == "" {
		return "", &ResponseFormatError{Op: "generation " + r.JobID, Body: "no generated image URL found"}
	}
	return r.ImageURLs[0], nil
}

// PlatformModel is a normalised entry of the provider's model catalogue.
type PlatformModel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
