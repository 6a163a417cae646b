package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants on the game channel.
type MessageType string

const (
	TypePlayerAction MessageType = "player_action"
	TypeNarration    MessageType = "narration"
	TypePlayerJoined MessageType = "player_joined"
	TypeTurnAdvanced MessageType = "turn_advanced"
	TypeTurnSkipped  MessageType = "turn_skipped"
	TypeSceneChanged MessageType = "scene_changed"
	TypeErrorEvent   MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// PlayerAction is the single inbound message: one participant's action
// text for their turn.
type PlayerAction struct {
	Type   MessageType `json:"type"`
	Actor  string      `json:"actor"`
	Action string      `json:"action"`
}

// Narration carries one story beat back to the game channel. Control
// markers embedded by the narrator are left in the text.
type Narration struct {
	Type    MessageType `json:"type"`
	EventID string      `json:"event_id"`
	Actor   string      `json:"actor"`
	Action  string      `json:"action"`
	Text    string      `json:"text"`
}

type PlayerJoined struct {
	Type  MessageType `json:"type"`
	Actor string      `json:"actor"`
}

type TurnAdvanced struct {
	Type  MessageType `json:"type"`
	Next  string      `json:"next"`
	Round int         `json:"round"`
}

type TurnSkipped struct {
	Type    MessageType `json:"type"`
	Skipped string      `json:"skipped"`
	Next    string      `json:"next"`
	Round   int         `json:"round"`
}

type SceneChanged struct {
	Type  MessageType `json:"type"`
	Scene string      `json:"scene"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	Code      string      `json:"code"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

// ParseClientMessage decodes and validates one inbound payload.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypePlayerAction:
		var msg PlayerAction
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.Actor == "" || msg.Action == "" {
			return nil, errors.New("invalid player_action")
		}
		return msg, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, env.Type)
	}
}
