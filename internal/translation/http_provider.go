package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultProviderTimeout = 30 * time.Second

// HTTPStatusError captures non-2xx responses from the model server.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("translation: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

type loadRequest struct {
	Model string `json:"model"`
}

type translateRequest struct {
	Text    string `json:"text"`
	SrcLang string `json:"src_lang"`
	TgtLang string `json:"tgt_lang"`
	Model   string `json:"model"`
}

type translationText struct {
	TranslationText string `json:"translation_text"`
}

// HTTPProvider talks to a model server that hosts the translation models.
type HTTPProvider struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*HTTPProvider)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(p *HTTPProvider) {
		p.httpClient = httpClient
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(p *HTTPProvider) {
		if timeout > 0 {
			p.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

func NewHTTPProvider(baseURL string, opts ...Option) (*HTTPProvider, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("translation: base url must not be empty")
	}
	p := &HTTPProvider{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultProviderTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Load asks the model server to load the model for size.
func (p *HTTPProvider) Load(ctx context.Context, size ModelSize) (Translator, error) {
	name := size.ModelName()
	if _, err := p.postJSON(ctx, "/models/load", loadRequest{Model: name}); err != nil {
		return nil, err
	}
	return &httpTranslator{provider: p, model: name}, nil
}

type httpTranslator struct {
	provider *HTTPProvider
	model    string
}

func (t *httpTranslator) Translate(ctx context.Context, text, sourceTag, targetTag string) (string, error) {
	raw, err := t.provider.postJSON(ctx, "/translate", translateRequest{
		Text:    text,
		SrcLang: sourceTag,
		TgtLang: targetTag,
		Model:   t.model,
	})
	if err != nil {
		return "", err
	}
	return parseTranslation(raw)
}

func (p *HTTPProvider) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("translation: marshal request: %w", err)
	}

	url := p.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("translation: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("translation: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{StatusCode: res.StatusCode, URL: url, Body: string(buf)}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("translation: read response body: %w", err)
	}
	return buf, nil
}

// parseTranslation accepts {translation_text} or [{translation_text}],
// optionally nested under "data".
func parseTranslation(raw []byte) (string, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Data) > 0 {
		raw = envelope.Data
	}

	var single translationText
	if err := json.Unmarshal(raw, &single); err == nil {
		return single.TranslationText, nil
	}

	var batch []translationText
	if err := json.Unmarshal(raw, &batch); err == nil {
		if len(batch) == 0 {
			return "", nil
		}
		return batch[0].TranslationText, nil
	}
	return "", fmt.Errorf("translation: unexpected response shape: %.200s", string(raw))
}
