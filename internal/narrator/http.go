package narrator

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

// Error is a narration service failure. Retryable means the user may
// simply re-send the action; the engine itself never retries because a
// response that completed after a client-side timeout would double-apply
// its side effects.
type Error struct {
	Status    int
	Retryable bool
	Detail    string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("narration service status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("narration service: %s", e.Detail)
}

// retryableStatus classifies upstream statuses a re-sent action may get
// past: rate limits and transient server errors.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// HTTPClient calls a chat-completions endpoint.
type HTTPClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewHTTPClient(baseURL, apiKey, model string) *HTTPClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *HTTPClient) Complete(ctx context.Context, req Request) (Response, error) {
	payload, err := json.Marshal(chatCompletionRequest{
		Model:       c.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.client.Do(httpReq)
	if err != nil {
		// Context deadline and transport errors are retryable from the
		// user's point of view: nothing was committed.
		return Response{}, &Error{Retryable: true, Detail: err.Error()}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return Response{}, &Error{
			Status:    res.StatusCode,
			Retryable: retryableStatus(res.StatusCode),
			Detail:    strings.TrimSpace(string(body)),
		}
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return Response{}, &Error{Retryable: true, Detail: fmt.Sprintf("read response: %v", err)}
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Response{}, &Error{Detail: fmt.Sprintf("decode response: %v", err)}
	}
	if len(parsed.Choices) == 0 {
		return Response{}, &Error{Detail: "response contained no choices"}
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return Response{}, &Error{Detail: "response contained empty narration"}
	}
	return Response{Text: text}, nil
}

// IsRetryable reports whether the user may re-send the action after err.
func IsRetryable(err error) bool {
	var ne *Error
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return false
}
