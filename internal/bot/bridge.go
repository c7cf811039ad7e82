package bot

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

	"go.uber.org/zap"
)

const DefaultTimeout = 15 * time.Second

type queryRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversationId"`
}

// Reply is the bot's answer. Reply is nil when the bot could not answer.
type Reply struct {
	Reply *string
}

// Text returns the reply, or fallback when there is none or it is blank.
func (r Reply) Text(fallback string) string {
	if r.Reply == nil || strings.TrimSpace(*r.Reply) == "" {
		return fallback
	}
	return *r.Reply
}

// Bridge forwards questions to the external chatbot service.
type Bridge struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

type Option func(*Bridge)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(b *Bridge) {
		b.httpClient = httpClient
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(b *Bridge) {
		if timeout > 0 {
			b.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewBridge returns a bridge posting to url. An empty url disables the bot:
// every query then yields a nil reply.
func NewBridge(url string, logger *zap.Logger, opts ...Option) *Bridge {
	b := &Bridge{
		url:        strings.TrimSpace(url),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bridge) Enabled() bool {
	return b.url != ""
}

// Query asks the bot about text. Failures are logged and produce a nil reply.
func (b *Bridge) Query(ctx context.Context, text, conversationID string) Reply {
	if !b.Enabled() {
		b.logger.Debug("chatbot disabled, no reply", zap.String("conversation_id", conversationID))
		return Reply{}
	}

	raw, err := b.post(ctx, queryRequest{Question: text, ConversationID: conversationID})
	if err != nil {
		b.logger.Error("chatbot request failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		return Reply{}
	}

	reply, ok := extractReply(raw)
	if !ok {
		b.logger.Warn("chatbot response has no reply", zap.String("conversation_id", conversationID))
		return Reply{}
	}
	return Reply{Reply: &reply}
}

func (b *Bridge) post(ctx context.Context, payload queryRequest) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("bot: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("bot: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, fmt.Errorf("bot: unexpected status %d: %s", res.StatusCode, string(buf))
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("bot: read response body: %w", err)
	}
	return buf, nil
}

var errNoReply = errors.New("no reply field")

// extractReply reads data.reply, reply, data (string) or the body itself
// (string), in that order.
func extractReply(raw []byte) (string, bool) {
	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", false
	}

	switch v := body.(type) {
	case string:
		return v, true
	case map[string]any:
		reply, err := replyFromObject(v)
		if err != nil {
			return "", false
		}
		return reply, true
	}
	return "", false
}

func replyFromObject(obj map[string]any) (string, error) {
	if data, ok := obj["data"].(map[string]any); ok {
		if s, ok := data["reply"].(string); ok {
			return s, nil
		}
	}
	if s, ok := obj["reply"].(string); ok {
		return s, nil
	}
	if s, ok := obj["data"].(string); ok {
		return s, nil
	}
	return "", errNoReply
}
