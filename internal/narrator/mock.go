package narrator

import (
	"context"
	"fmt"
	"strings"
)

// MockClient produces deterministic local narration when no narration
// service is configured. Useful for development and the test suite.
type MockClient struct {
	// Suffix is appended verbatim to every reply, letting tests inject
	// control markers like "[Skill Stealth +2]" or "[EXTRA TURN]".
	Suffix string
}

func NewMockClient() *MockClient { return &MockClient{} }

func (c *MockClient) Complete(ctx context.Context, req Request) (Response, error) {
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	default:
	}

	action := lastUserMessage(req.Messages)
	if action == "" {
		action = "the party waits"
	}
	text := fmt.Sprintf("The story unfolds: %s. The world holds its breath.", action)
	if c.Suffix != "" {
		text += " " + c.Suffix
	}
	return Response{Text: text}, nil
}

func lastUserMessage(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return strings.TrimSpace(messages[i].Content)
		}
	}
	return ""
}
