package leonardo

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/caseras1/ai-childbook/internal/domain"
)

type staticKey string

func (k staticKey) APIKey() (string, error) {
	if k == "" {
		return "", &domain.AuthError{}
	}
	return string(k), nil
}

type captureTransport struct {
	responses map[string]responseStub
	requests  []*http.Request
	lastBody  []byte
	err       error
}

type responseStub struct {
	status      int
	contentType string
	body        string
}

func newCaptureTransport() *captureTransport {
	return &captureTransport{responses: map[string]responseStub{}}
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.requests = append(c.requests, req)
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		c.lastBody = body
	}
	if c.err != nil {
		return nil, c.err
	}
	stub, ok := c.responses[req.Method+" "+req.URL.Path]
	if !ok {
		stub = responseStub{status: http.StatusNotFound, contentType: "application/json", body: `{"error":"not found"}`}
	}
	return &http.Response{
		StatusCode: stub.status,
		Header:     http.Header{"Content-Type": []string{stub.contentType}},
		Body:       io.NopCloser(strings.NewReader(stub.body)),
		Request:    req,
	}, nil
}

func (c *captureTransport) set(method, path string, status int, contentType, body string) {
	c.responses[method+" "+path] = responseStub{status: status, contentType: contentType, body: body}
}

func newTestClient(t *testing.T, key KeySource, transport http.RoundTripper, opts ...func(*Options)) *Client {
	t.Helper()
	o := Options{
		Credentials: key,
		BaseURL:     "https://api.test/v1/",
		HTTPClient:  &http.Client{Transport: transport},
	}
	for _, fn := range opts {
		fn(&o)
	}
	client, err := NewClient(o)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func validRequest() domain.GenerationRequest {
	alchemy := true
	contrast := 3.5
	return domain.GenerationRequest{
		Prompt:         "3D storybook illustration of a child named Mia",
		ModelID:        "model-1",
		Width:          832,
		Height:         1216,
		NumImages:      1,
		NegativePrompt: "text, logo",
		Elements:       []domain.ElementRef{{ID: "1234", Weight: 0.8}},
		DatasetID:      "dataset-9",
		Alchemy:        &alchemy,
		Contrast:       &contrast,
	}
}

func TestStartGenerationSendsOnePostWithRequiredFields(t *testing.T) {
	transport := newCaptureTransport()
	transport.set(http.MethodPost, "/v1/generations", http.StatusOK, "application/json", `{"sdGenerationJob":{"generationId":"gen-1","apiCreditCost":5}}`)
	client := newTestClient(t, staticKey("secret"), transport)

	id, err := client.StartGeneration(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("StartGeneration: %v", err)
	}
	if id != "gen-1" {
		t.Fatalf("id = %q, want %q", id, "gen-1")
	}
	if len(transport.requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(transport.requests))
	}
	req := transport.requests[0]
	if req.Method != http.MethodPost {
		t.Fatalf("method = %s, want POST", req.Method)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer secret" {
		t.Fatalf("Authorization = %q, want %q", got, "Bearer secret")
	}

	var payload map[string]any
	if err := json.Unmarshal(transport.lastBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	for _, field := range []string{"prompt", "modelId", "width", "height", "num_images", "negative_prompt", "alchemy", "contrast", "elements"} {
		if _, ok := payload[field]; !ok {
			t.Fatalf("payload missing %q: %s", field, transport.lastBody)
		}
	}
	if _, ok := payload["datasetId"]; ok {
		t.Fatalf("datasetId sent although disabled")
	}
	if _, ok := payload["userElements"]; ok {
		t.Fatalf("userElements sent with elements field selected")
	}
	el := payload["elements"].([]any)[0].(map[string]any)
	if el["id"] != "1234" || el["weight"] != 0.8 {
		t.Fatalf("element = %v", el)
	}
}

func TestStartGenerationUserElementsAndDataset(t *testing.T) {
	transport := newCaptureTransport()
	transport.set(http.MethodPost, "/v1/generations", http.StatusOK, "application/json", `{"sdGenerationJob":{"generationId":"gen-2"}}`)
	client := newTestClient(t, staticKey("secret"), transport, func(o *Options) {
		o.ElementsField = UserElementsField
		o.SendDatasetID = true
	})

	if _, err := client.StartGeneration(context.Background(), validRequest()); err != nil {
		t.Fatalf("StartGeneration: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(transport.lastBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["datasetId"] != "dataset-9" {
		t.Fatalf("datasetId = %v, want dataset-9", payload["datasetId"])
	}
	el := payload["userElements"].([]any)[0].(map[string]any)
	if el["userLoraId"] != float64(1234) {
		t.Fatalf("userLoraId = %v, want 1234", el["userLoraId"])
	}
	if _, ok := payload["elements"]; ok {
		t.Fatalf("elements sent with userElements field selected")
	}
}

func TestStartGenerationRejectsNonNumericUserElement(t *testing.T) {
	transport := newCaptureTransport()
	client := newTestClient(t, staticKey("secret"), transport, func(o *Options) { o.ElementsField = UserElementsField })
	req := validRequest()
	req.Elements = []domain.ElementRef{{ID: "abc", Weight: 1}}

	_, err := client.StartGeneration(context.Background(), req)
	var invalid *domain.InvalidRequestError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want *domain.InvalidRequestError", err)
	}
	if len(transport.requests) != 0 {
		t.Fatalf("requests = %d, want 0", len(transport.requests))
	}
}

func TestMissingCredentialIssuesNoRequests(t *testing.T) {
	transport := newCaptureTransport()
	client := newTestClient(t, staticKey(""), transport)
	ctx := context.Background()

	_, err := client.StartGeneration(ctx, validRequest())
	if !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("StartGeneration err = %v, want ErrAuth", err)
	}
	if _, err := client.FetchJobStatus(ctx, "gen-1"); !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("FetchJobStatus err = %v, want ErrAuth", err)
	}
	if _, err := client.ListPlatformModels(ctx, 5); !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("ListPlatformModels err = %v, want ErrAuth", err)
	}
	if len(transport.requests) != 0 {
		t.Fatalf("requests = %d, want 0", len(transport.requests))
	}

	nilSource, err := NewClient(Options{HTTPClient: &http.Client{Transport: transport}})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := nilSource.StartGeneration(ctx, validRequest()); !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("nil source err = %v, want ErrAuth", err)
	}
}

func TestStartGenerationHTMLIsFormatErrorNotRejection(t *testing.T) {
	transport := newCaptureTransport()
	transport.set(http.MethodPost, "/v1/generations", http.StatusForbidden, "text/html; charset=UTF-8", "<html>Just a moment...</html>")
	client := newTestClient(t, staticKey("secret"), transport)

	_, err := client.StartGeneration(context.Background(), validRequest())
	var formatErr *domain.ResponseFormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("err = %v, want *domain.ResponseFormatError", err)
	}
	if !formatErr.HTMLChallenge {
		t.Fatalf("HTMLChallenge = false, want true")
	}
	var rejected *domain.ProviderRejectedError
	if errors.As(err, &rejected) {
		t.Fatalf("HTML response reported as ProviderRejectedError")
	}
}

func TestStartGenerationRejectedCarriesStatusAndHints(t *testing.T) {
	transport := newCaptureTransport()
	transport.set(http.MethodPost, "/v1/generations", http.StatusBadRequest, "application/json", `{"error":"invalid modelId"}`)
	client := newTestClient(t, staticKey("secret"), transport)

	_, err := client.StartGeneration(context.Background(), validRequest())
	var rejected *domain.ProviderRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("err = %v, want *domain.ProviderRejectedError", err)
	}
	if rejected.Status != http.StatusBadRequest || rejected.Message != "invalid modelId" {
		t.Fatalf("rejected = %d %q", rejected.Status, rejected.Message)
	}
	if len(rejected.Hints) != 2 {
		t.Fatalf("hints = %v, want 2", rejected.Hints)
	}
	if errors.Is(err, domain.ErrAuth) {
		t.Fatalf("400 must not match ErrAuth")
	}
}

func TestStartGenerationUnauthorizedMatchesErrAuth(t *testing.T) {
	transport := newCaptureTransport()
	transport.set(http.MethodPost, "/v1/generations", http.StatusUnauthorized, "application/json", `{"message":"bad key"}`)
	client := newTestClient(t, staticKey("secret"), transport)

	_, err := client.StartGeneration(context.Background(), validRequest())
	if !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("err = %v, want ErrAuth", err)
	}
	if !strings.Contains(err.Error(), "LEONARDO_API_KEY") {
		t.Fatalf("err = %q, want key hint", err)
	}
}

func TestStartGenerationMissingJobIDIsFormatError(t *testing.T) {
	for _, body := range []string{`{"foo":1}`, `not json`, `{"sdGenerationJob":{}}`} {
		transport := newCaptureTransport()
		transport.set(http.MethodPost, "/v1/generations", http.StatusOK, "application/json", body)
		client := newTestClient(t, staticKey("secret"), transport)

		_, err := client.StartGeneration(context.Background(), validRequest())
		var formatErr *domain.ResponseFormatError
		if !errors.As(err, &formatErr) {
			t.Fatalf("body %s: err = %v, want *domain.ResponseFormatError", body, err)
		}
		if formatErr.HTMLChallenge {
			t.Fatalf("body %s: HTMLChallenge = true", body)
		}
	}
}

func TestStartGenerationTransportError(t *testing.T) {
	transport := newCaptureTransport()
	transport.err = errors.New("dial tcp: no such host")
	client := newTestClient(t, staticKey("secret"), transport)

	_, err := client.StartGeneration(context.Background(), validRequest())
	var transportErr *domain.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("err = %v, want *domain.TransportError", err)
	}
	if len(transport.requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(transport.requests))
	}
}

func TestFetchJobStatusShapes(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		status domain.GenerationStatus
		urls   int
	}{
		{name: "nested", body: `{"generations_by_pk":{"status":"COMPLETE","generated_images":[{"url":"https://cdn.test/a.png"}]}}`, status: domain.GenerationComplete, urls: 1},
		{name: "flat", body: `{"status":"PENDING","generated_images":[]}`, status: domain.GenerationPending},
		{name: "nested null falls back to flat", body: `{"generations_by_pk":null,"status":"FAILED"}`, status: domain.GenerationFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			transport := newCaptureTransport()
			transport.set(http.MethodGet, "/v1/generations/gen-1", http.StatusOK, "application/json", tc.body)
			client := newTestClient(t, staticKey("secret"), transport)

			st, err := client.FetchJobStatus(context.Background(), "gen-1")
			if err != nil {
				t.Fatalf("FetchJobStatus: %v", err)
			}
			if st.Status != tc.status {
				t.Fatalf("status = %q, want %q", st.Status, tc.status)
			}
			if len(st.ImageURLs) != tc.urls {
				t.Fatalf("urls = %v, want %d", st.ImageURLs, tc.urls)
			}
		})
	}
}

func TestFetchJobStatusNeitherShapeIsFormatError(t *testing.T) {
	transport := newCaptureTransport()
	transport.set(http.MethodGet, "/v1/generations/gen-1", http.StatusOK, "application/json", `{"generations_by_pk":{"id":"x"}}`)
	client := newTestClient(t, staticKey("secret"), transport)

	_, err := client.FetchJobStatus(context.Background(), "gen-1")
	var formatErr *domain.ResponseFormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("err = %v, want *domain.ResponseFormatError", err)
	}
}

func TestFetchJobStatusNonSuccessIsTransient(t *testing.T) {
	transport := newCaptureTransport()
	transport.set(http.MethodGet, "/v1/generations/gen-1", http.StatusServiceUnavailable, "application/json", `{"error":"busy"}`)
	client := newTestClient(t, staticKey("secret"), transport)

	st, err := client.FetchJobStatus(context.Background(), "gen-1")
	if err != nil {
		t.Fatalf("FetchJobStatus: %v", err)
	}
	if !st.Transient || st.HTTPStatus != http.StatusServiceUnavailable {
		t.Fatalf("status = %+v, want transient 503", st)
	}
}

func TestListPlatformModelsShapes(t *testing.T) {
	cases := map[string]string{
		"wrapped": `{"data":[{"id":"m1","name":"Phoenix"},{"uuid":"m2","title":"Kino"},{"modelId":"m3","label":"Lightning"}]}`,
		"bare":    `[{"id":"m1","name":"Phoenix"},{"uuid":"m2","title":"Kino"},{"modelId":"m3","label":"Lightning"}]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			transport := newCaptureTransport()
			transport.set(http.MethodGet, "/v1/platformModels", http.StatusOK, "application/json", body)
			client := newTestClient(t, staticKey("secret"), transport)

			models, err := client.ListPlatformModels(context.Background(), 2)
			if err != nil {
				t.Fatalf("ListPlatformModels: %v", err)
			}
			if len(models) != 2 {
				t.Fatalf("models = %v, want 2 entries", models)
			}
			if models[1].ID != "m2" || models[1].Name != "Kino" {
				t.Fatalf("models[1] = %+v", models[1])
			}
			q := transport.requests[0].URL.Query()
			if q.Get("page") != "1" || q.Get("perPage") != "2" {
				t.Fatalf("query = %s", transport.requests[0].URL.RawQuery)
			}
		})
	}
}

func TestCheckCredentialReportsRejection(t *testing.T) {
	transport := newCaptureTransport()
	transport.set(http.MethodGet, "/v1/platformModels", http.StatusUnauthorized, "application/json", `{"error":"Invalid API key"}`)
	client := newTestClient(t, staticKey("secret"), transport)

	err := client.CheckCredential(context.Background())
	if !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("err = %v, want ErrAuth", err)
	}
}

func TestNewClientRejectsUnknownElementsField(t *testing.T) {
	if _, err := NewClient(Options{ElementsField: "loras"}); err == nil {
		t.Fatalf("expected error")
	}
}
