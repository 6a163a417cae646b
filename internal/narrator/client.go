// Package narrator talks to the narration service: an OpenAI-style chat
// completion API that turns the session context plus a player action
// into the next story beat.
package narrator

import (
	"context"
	"fmt"
	"strings"
)

// Message roles, mirroring the chat completion wire format.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged turn in the narration request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request carries the full ordered context plus generation bounds.
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Response is the plain narration text. Control markers ([Skill ...],
// [EXTRA TURN]) stay embedded; ExtractDirectives reads them out.
type Response struct {
	Text string
}

// Client produces a narration for one action. Implementations may be
// slow and must honor ctx cancellation; callers bound every call with a
// deadline and never retry on their own.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Config selects and configures the client implementation.
type Config struct {
	Mode    string
	APIKey  string
	BaseURL string
	Model   string
}

// NewClient builds a client for the configured mode. "auto" picks the
// HTTP client when an API key is present and the deterministic mock
// otherwise, so a checkout runs without credentials.
func NewClient(cfg Config) (Client, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}
	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.APIKey) != "" {
			return NewHTTPClient(cfg.BaseURL, cfg.APIKey, cfg.Model), nil
		}
		return NewMockClient(), nil
	case "http":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, fmt.Errorf("narrator api key is required for http mode")
		}
		return NewHTTPClient(cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unsupported narrator mode %q", cfg.Mode)
	}
}
