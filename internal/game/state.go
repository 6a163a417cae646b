package game

import (
	"strings"
	"time"
)

// DefaultScene opens a fresh session before any admin has set one.
const DefaultScene = "The adventure begins..."

// DefaultHistoryWindow bounds how many action/response pairs are kept
// and fed back to the narrator for continuity.
const DefaultHistoryWindow = 20

const (
	actionDigestMaxRunes   = 100
	responseDigestMaxRunes = 200
)

// HistoryEntry records one resolved action: who acted, what they wrote,
// and the narration it produced.
type HistoryEntry struct {
	Actor    string `json:"actor"`
	Action   string `json:"action"`
	Response string `json:"response"`
}

// CharacterSheet holds the dynamic per-participant record. Everything is
// created as needed during play; nothing is pre-rolled.
type CharacterSheet struct {
	Attributes map[string]int `json:"attributes"`
	Skills     map[string]int `json:"skills"`
	Inventory  []string       `json:"inventory"`
	Notes      string         `json:"notes"`
}

// NewCharacterSheet returns a blank sheet for a first-seen participant.
func NewCharacterSheet() *CharacterSheet {
	return &CharacterSheet{
		Attributes: map[string]int{},
		Skills:     map[string]int{},
		Inventory:  []string{},
	}
}

// SessionState is the single authoritative record of one running game.
// It is loaded, mutated and persisted as a whole by exactly one unit of
// work at a time; nothing else holds a reference while it is owned.
type SessionState struct {
	Participants      []string                   `json:"participants"`
	TurnIndex         int                        `json:"turn_index"`
	Round             int                        `json:"round"`
	TurnStartedAt     time.Time                  `json:"turn_started_at"`
	ExtraTurnRound    int                        `json:"extra_turn_round,omitempty"`
	Scene             string                     `json:"scene"`
	LastActionSummary string                     `json:"last_action_summary,omitempty"`
	History           []HistoryEntry             `json:"history"`
	Characters        map[string]*CharacterSheet `json:"characters"`
}

// NewSessionState returns the defaults for a session that has never been
// played: empty roster, round one, the opening scene.
func NewSessionState(now time.Time) *SessionState {
	return &SessionState{
		Participants:  []string{},
		TurnIndex:     0,
		Round:         1,
		TurnStartedAt: now.UTC(),
		Scene:         DefaultScene,
		History:       []HistoryEntry{},
		Characters:    map[string]*CharacterSheet{},
	}
}

// Normalize repairs a loaded state so the rest of the engine can rely on
// its invariants: non-nil maps/slices, round >= 1, and a turn pointer
// inside the roster. An out-of-range pointer is clamped to 0; this is
// invariant repair at the store boundary, not normal control flow.
func (s *SessionState) Normalize(now time.Time) {
	if s.Participants == nil {
		s.Participants = []string{}
	}
	if s.History == nil {
		s.History = []HistoryEntry{}
	}
	if s.Characters == nil {
		s.Characters = map[string]*CharacterSheet{}
	}
	for _, sheet := range s.Characters {
		if sheet.Attributes == nil {
			sheet.Attributes = map[string]int{}
		}
		if sheet.Skills == nil {
			sheet.Skills = map[string]int{}
		}
		if sheet.Inventory == nil {
			sheet.Inventory = []string{}
		}
	}
	if s.Round < 1 {
		s.Round = 1
	}
	if s.TurnIndex < 0 || s.TurnIndex >= len(s.Participants) {
		s.TurnIndex = 0
	}
	if s.Scene == "" {
		s.Scene = DefaultScene
	}
	if s.TurnStartedAt.IsZero() {
		s.TurnStartedAt = now.UTC()
	}
}

// HasParticipant reports whether id is already on the roster.
func (s *SessionState) HasParticipant(id string) bool {
	for _, p := range s.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// AppendHistory adds one resolved action and evicts the oldest entries
// once the window is exceeded. window <= 0 falls back to the default.
func (s *SessionState) AppendHistory(entry HistoryEntry, window int) {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	s.History = append(s.History, entry)
	if excess := len(s.History) - window; excess > 0 {
		s.History = append([]HistoryEntry{}, s.History[excess:]...)
	}
}

// ApplySkill raises actor's named skill to value if that is higher than
// what the sheet already records. Skills never decrease; a stale or
// duplicate narration marker cannot undo an earlier improvement.
func (s *SessionState) ApplySkill(actor, skill string, value int) {
	sheet, ok := s.Characters[actor]
	if !ok {
		return
	}
	if sheet.Skills == nil {
		sheet.Skills = map[string]int{}
	}
	if current, ok := sheet.Skills[skill]; !ok || value > current {
		sheet.Skills[skill] = value
	}
}

// SetLastAction overwrites the status digest with a bounded
// actor+action+response summary.
func (s *SessionState) SetLastAction(actor, action, response string) {
	s.LastActionSummary = actor + ": " + TruncateRunes(strings.TrimSpace(action), actionDigestMaxRunes) +
		"\n" + TruncateRunes(strings.TrimSpace(response), responseDigestMaxRunes)
}

// TruncateRunes bounds v to max runes. It never splits a multi-byte
// rune, which is why this is not a plain byte slice.
func TruncateRunes(v string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(v)
	if len(runes) <= max {
		return v
	}
	return string(runes[:max])
}
