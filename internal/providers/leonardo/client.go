// Package leonardo is the HTTP client for the Leonardo.Ai REST API.
package leonardo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/caseras1/ai-childbook/internal/domain"
	"github.com/caseras1/ai-childbook/internal/infra"
	"github.com/caseras1/ai-childbook/internal/metrics"
)

const (
	DefaultBaseURL = "https://cloud.leonardo.ai/api/rest/v1"

	// Values for Options.ElementsField.
	ElementsField     = "elements"
	UserElementsField = "userElements"
	NoElementsField   = "none"
)

// KeySource yields the bearer credential. It is consulted before every call
// so a missing key fails without any request leaving the process.
type KeySource interface {
	APIKey() (string, error)
}

// Options configures the Leonardo client.
type Options struct {
	Credentials    KeySource
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	Logger         *infra.Logger
	// ElementsField selects how style elements are serialised; empty means "elements".
	ElementsField string
	// SendDatasetID includes datasetId in generation payloads when set.
	SendDatasetID bool
}

// Client performs authenticated calls to the generation endpoints.
type Client struct {
	credentials   KeySource
	baseURL       string
	httpClient    *http.Client
	logger        *infra.Logger
	elementsField string
	sendDatasetID bool
}

type generationPayload struct {
	Prompt         string               `json:"prompt"`
	ModelID        string               `json:"modelId"`
	Width          int                  `json:"width"`
	Height         int                  `json:"height"`
	NumImages      int                  `json:"num_images"`
	NegativePrompt string               `json:"negative_prompt,omitempty"`
	Elements       []elementPayload     `json:"elements,omitempty"`
	UserElements   []userElementPayload `json:"userElements,omitempty"`
	DatasetID      string               `json:"datasetId,omitempty"`
	Alchemy        *bool                `json:"alchemy,omitempty"`
	Contrast       *float64             `json:"contrast,omitempty"`
	ImagePrompts   []string             `json:"imagePrompts,omitempty"`
}

type elementPayload struct {
	ID     string  `json:"id"`
	Weight float64 `json:"weight"`
}

type userElementPayload struct {
	UserLoraID int     `json:"userLoraId"`
	Weight     float64 `json:"weight"`
}

type generationResponse struct {
	SDGenerationJob *struct {
		GenerationID string `json:"generationId"`
	} `json:"sdGenerationJob"`
}

type statusBody struct {
	Status          *string `json:"status"`
	GeneratedImages []struct {
		URL string `json:"url"`
	} `json:"generated_images"`
}

type statusEnvelope struct {
	ByPK *statusBody `json:"generations_by_pk"`
	statusBody
}

// NewClient constructs a client with defaults for anything left unset.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	field := strings.TrimSpace(opts.ElementsField)
	switch field {
	case "":
		field = ElementsField
	case ElementsField, UserElementsField, NoElementsField:
	default:
		return nil, fmt.Errorf("leonardo: unknown elements field %q", field)
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Client{
		credentials:   opts.Credentials,
		baseURL:       baseURL,
		httpClient:    httpClient,
		logger:        logger,
		elementsField: field,
		sendDatasetID: opts.SendDatasetID,
	}, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// StartGeneration submits one generation job and returns its identifier.
func (c *Client) StartGeneration(ctx context.Context, req domain.GenerationRequest) (string, error) {
	const op = "POST /generations"
	key, err := c.apiKey()
	if err != nil {
		return "", err
	}
	if err := req.Validate(); err != nil {
		return "", err
	}
	payload, err := c.buildPayload(req)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("leonardo: encode request: %w", err)
	}
	c.logger.Info().RawJSON("payload", body).Msg("leonardo: " + op + " payload")

	resp, err := c.do(ctx, key, http.MethodPost, c.baseURL+"/generations", body)
	if err != nil {
		metrics.ObserveProviderCall("generations", "transport_error")
		return "", &domain.TransportError{Op: op, Err: err}
	}
	if resp.isHTML() {
		metrics.ObserveProviderCall("generations", "html")
		return "", resp.htmlError(op)
	}
	if !resp.ok() {
		metrics.ObserveProviderCall("generations", "rejected")
		return "", resp.rejectedError(op, payload.ModelID != "")
	}

	var decoded generationResponse
	if err := json.Unmarshal(resp.body, &decoded); err != nil {
		metrics.ObserveProviderCall("generations", "format_error")
		return "", &domain.ResponseFormatError{Op: op, ContentType: resp.contentType, Body: truncate(resp.body), Err: err}
	}
	if decoded.SDGenerationJob == nil || strings.TrimSpace(decoded.SDGenerationJob.GenerationID) == "" {
		metrics.ObserveProviderCall("generations", "format_error")
		return "", &domain.ResponseFormatError{Op: op, ContentType: resp.contentType, Body: truncate(resp.body), Err: fmt.Errorf("missing sdGenerationJob.generationId")}
	}
	metrics.ObserveProviderCall("generations", "ok")
	id := decoded.SDGenerationJob.GenerationID
	c.logger.Info().Str("job_id", id).Msg("leonardo: generation started")
	return id, nil
}

// FetchJobStatus reads the state of one job. A non-success HTTP status is
// returned as a Transient JobStatus rather than an error so pollers can
// keep going.
func (c *Client) FetchJobStatus(ctx context.Context, id string) (domain.JobStatus, error) {
	op := "GET /generations/" + id
	key, err := c.apiKey()
	if err != nil {
		return domain.JobStatus{}, err
	}
	resp, err := c.do(ctx, key, http.MethodGet, c.baseURL+"/generations/"+url.PathEscape(id), nil)
	if err != nil {
		metrics.ObserveProviderCall("generation_status", "transport_error")
		return domain.JobStatus{}, &domain.TransportError{Op: op, Err: err}
	}
	if !resp.ok() {
		metrics.ObserveProviderCall("generation_status", "transient")
		c.logger.Warn().Str("job_id", id).Int("status", resp.status).Str("body", truncate(resp.body)).Msg("leonardo: status check rejected")
		return domain.JobStatus{HTTPStatus: resp.status, Transient: true}, nil
	}
	if resp.isHTML() {
		metrics.ObserveProviderCall("generation_status", "html")
		return domain.JobStatus{}, resp.htmlError(op)
	}
	status, err := parseJobStatus(resp.body)
	if err != nil {
		metrics.ObserveProviderCall("generation_status", "format_error")
		return domain.JobStatus{}, &domain.ResponseFormatError{Op: op, ContentType: resp.contentType, Body: truncate(resp.body), Err: err}
	}
	metrics.ObserveProviderCall("generation_status", "ok")
	status.HTTPStatus = resp.status
	return status, nil
}

// parseJobStatus accepts the nested generations_by_pk shape first and the
// flat shape second.
func parseJobStatus(raw []byte) (domain.JobStatus, error) {
	var env statusEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.JobStatus{}, err
	}
	body := env.ByPK
	if body == nil || body.Status == nil {
		body = &env.statusBody
	}
	if body.Status == nil {
		return domain.JobStatus{}, fmt.Errorf("neither generations_by_pk.status nor status present")
	}
	out := domain.JobStatus{Status: domain.NormalizeStatus(*body.Status)}
	for _, img := range body.GeneratedImages {
		out.ImageURLs = append(out.ImageURLs, img.URL)
	}
	return out, nil
}

// ListPlatformModels returns up to limit public models, normalised to id and name.
func (c *Client) ListPlatformModels(ctx context.Context, limit int) ([]domain.PlatformModel, error) {
	const op = "GET /platformModels"
	if limit < 1 {
		limit = 1
	}
	key, err := c.apiKey()
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("page", "1")
	q.Set("perPage", strconv.Itoa(limit))
	resp, err := c.do(ctx, key, http.MethodGet, c.baseURL+"/platformModels?"+q.Encode(), nil)
	if err != nil {
		metrics.ObserveProviderCall("platform_models", "transport_error")
		return nil, &domain.TransportError{Op: op, Err: err}
	}
	if resp.isHTML() {
		metrics.ObserveProviderCall("platform_models", "html")
		return nil, resp.htmlError(op)
	}
	if !resp.ok() {
		metrics.ObserveProviderCall("platform_models", "rejected")
		return nil, resp.rejectedError(op, false)
	}
	models, err := parsePlatformModels(resp.body)
	if err != nil {
		metrics.ObserveProviderCall("platform_models", "format_error")
		return nil, &domain.ResponseFormatError{Op: op, ContentType: resp.contentType, Body: truncate(resp.body), Err: err}
	}
	metrics.ObserveProviderCall("platform_models", "ok")
	if len(models) > limit {
		models = models[:limit]
	}
	return models, nil
}

// CheckCredential verifies the key with the cheapest authenticated call.
func (c *Client) CheckCredential(ctx context.Context) error {
	_, err := c.ListPlatformModels(ctx, 1)
	return err
}

func parsePlatformModels(raw []byte) ([]domain.PlatformModel, error) {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	var list []any
	switch v := decoded.(type) {
	case []any:
		list = v
	case map[string]any:
		data, ok := v["data"].([]any)
		if !ok {
			return nil, fmt.Errorf("platformModels: no data list")
		}
		list = data
	default:
		return nil, fmt.Errorf("platformModels: unexpected %T", decoded)
	}
	out := make([]domain.PlatformModel, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, domain.PlatformModel{
			ID:   firstString(m, "id", "uuid", "modelId"),
			Name: firstString(m, "name", "title", "label"),
		})
	}
	return out, nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func (c *Client) buildPayload(req domain.GenerationRequest) (generationPayload, error) {
	p := generationPayload{
		Prompt:         strings.TrimSpace(req.Prompt),
		ModelID:        strings.TrimSpace(req.ModelID),
		Width:          req.Width,
		Height:         req.Height,
		NumImages:      req.NumImages,
		NegativePrompt: strings.TrimSpace(req.NegativePrompt),
		Alchemy:        req.Alchemy,
		Contrast:       req.Contrast,
		ImagePrompts:   req.ImagePrompts,
	}
	switch c.elementsField {
	case ElementsField:
		for _, el := range req.Elements {
			p.Elements = append(p.Elements, elementPayload{ID: el.ID, Weight: el.Weight})
		}
	case UserElementsField:
		for _, el := range req.Elements {
			id, err := strconv.Atoi(strings.TrimSpace(el.ID))
			if err != nil {
				return p, &domain.InvalidRequestError{Field: "userElements", Reason: fmt.Sprintf("element id %q is not a numeric userLoraId", el.ID)}
			}
			p.UserElements = append(p.UserElements, userElementPayload{UserLoraID: id, Weight: el.Weight})
		}
	}
	if c.sendDatasetID {
		p.DatasetID = strings.TrimSpace(req.DatasetID)
	}
	return p, nil
}

func (c *Client) apiKey() (string, error) {
	if c.credentials == nil {
		return "", &domain.AuthError{Reason: "no credential source configured"}
	}
	return c.credentials.APIKey()
}

type response struct {
	status      int
	contentType string
	body        []byte
}

func (r response) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (r response) isHTML() bool {
	return strings.Contains(strings.ToLower(r.contentType), "text/html")
}

func (r response) htmlError(op string) error {
	return &domain.ResponseFormatError{
		Op:            op,
		ContentType:   r.contentType,
		Body:          truncate(r.body),
		HTMLChallenge: true,
	}
}

func (r response) rejectedError(op string, hasModelID bool) error {
	var hints []string
	switch r.status {
	case http.StatusUnauthorized:
		hints = append(hints, "Check LEONARDO_API_KEY; the key may be missing or invalid.")
	case http.StatusBadRequest:
		hints = append(hints, "Verify modelId, width/height limits, and that the prompt is not empty.")
		if hasModelID {
			hints = append(hints, "Model IDs come from Leonardo > Models > (select model) > ID in the URL.")
		}
	}
	return &domain.ProviderRejectedError{Op: op, Status: r.status, Message: errorDetail(r.body), Hints: hints}
}

// errorDetail prefers the provider's error or message field over the raw body.
func errorDetail(raw []byte) string {
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err == nil {
		for _, k := range []string{"error", "message"} {
			switch v := decoded[k].(type) {
			case string:
				if v != "" {
					return v
				}
			case map[string]any, []any:
				if b, err := json.Marshal(v); err == nil {
					return string(b)
				}
			}
		}
	}
	return truncate(raw)
}

func (c *Client) do(ctx context.Context, key, method, endpoint string, body []byte) (response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return response{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+key)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug().Str("method", method).Str("url", endpoint).Int("status", resp.StatusCode).Msg("leonardo: response")
	return response{status: resp.StatusCode, contentType: resp.Header.Get("Content-Type"), body: raw}, nil
}

func truncate(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 500 {
		return s[:500] + "..."
	}
	return s
}
