package game

import (
	"fmt"
	"testing"
	"time"
)

func TestNormalizeRepairsOutOfRangeTurnPointer(t *testing.T) {
	s := newTestState("Ava", "Bo")
	s.TurnIndex = 7
	s.Normalize(t0)
	if s.TurnIndex != 0 {
		t.Fatalf("TurnIndex = %d, want 0 after repair", s.TurnIndex)
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	s := &SessionState{}
	s.Normalize(t0)
	if s.Round != 1 {
		t.Fatalf("Round = %d, want 1", s.Round)
	}
	if s.Scene != DefaultScene {
		t.Fatalf("Scene = %q, want default", s.Scene)
	}
	if s.Participants == nil || s.History == nil || s.Characters == nil {
		t.Fatalf("Normalize left nil collections: %+v", s)
	}
	if s.TurnStartedAt.IsZero() {
		t.Fatalf("TurnStartedAt should be set")
	}
}

func TestNormalizeRepairsLoadedSheets(t *testing.T) {
	s := newTestState("Ava")
	s.Characters["Ava"] = &CharacterSheet{}
	s.Normalize(t0)
	sheet := s.Characters["Ava"]
	if sheet.Attributes == nil || sheet.Skills == nil || sheet.Inventory == nil {
		t.Fatalf("sheet collections should be non-nil: %+v", sheet)
	}
}

func TestAppendHistoryEvictsOldestFirst(t *testing.T) {
	s := newTestState("Ava")
	for i := 1; i <= 25; i++ {
		s.AppendHistory(HistoryEntry{
			Actor:    "Ava",
			Action:   fmt.Sprintf("action %d", i),
			Response: fmt.Sprintf("response %d", i),
		}, 20)
	}
	if len(s.History) != 20 {
		t.Fatalf("history length = %d, want 20", len(s.History))
	}
	if s.History[0].Action != "action 6" {
		t.Fatalf("oldest entry = %q, want action 6", s.History[0].Action)
	}
	if s.History[19].Action != "action 25" {
		t.Fatalf("newest entry = %q, want action 25", s.History[19].Action)
	}
}

func TestApplySkillIsMonotonic(t *testing.T) {
	s := newTestState("Ava")
	s.ApplySkill("Ava", "Stealth", 2)
	s.ApplySkill("Ava", "Stealth", 1)
	if got := s.Characters["Ava"].Skills["Stealth"]; got != 2 {
		t.Fatalf("Stealth = %d, want 2", got)
	}
	s.ApplySkill("Ava", "Stealth", 3)
	if got := s.Characters["Ava"].Skills["Stealth"]; got != 3 {
		t.Fatalf("Stealth = %d, want 3", got)
	}
	// Unknown actor is ignored rather than creating a sheet.
	s.ApplySkill("Bo", "Stealth", 5)
	if _, ok := s.Characters["Bo"]; ok {
		t.Fatalf("ApplySkill should not create sheets")
	}
}

func TestSetLastActionTruncates(t *testing.T) {
	s := newTestState("Ava")
	long := make([]rune, 500)
	for i := range long {
		long[i] = 'x'
	}
	s.SetLastAction("Ava", string(long), string(long))
	if len([]rune(s.LastActionSummary)) > len("Ava: ")+100+1+200 {
		t.Fatalf("summary too long: %d runes", len([]rune(s.LastActionSummary)))
	}
}

func TestTruncateRunesKeepsWholeRunes(t *testing.T) {
	if got := TruncateRunes("héllo", 2); got != "hé" {
		t.Fatalf("TruncateRunes = %q, want %q", got, "hé")
	}
	if got := TruncateRunes("hi", 10); got != "hi" {
		t.Fatalf("TruncateRunes = %q, want %q", got, "hi")
	}
}

func TestSessionStateClockIsUTC(t *testing.T) {
	local := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	s := NewSessionState(local)
	if s.TurnStartedAt.Location() != time.UTC {
		t.Fatalf("TurnStartedAt should be UTC")
	}
}
