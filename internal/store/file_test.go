package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/antoniostano/fable/internal/game"
)

func TestFileStoreMissingFileIsNotFound(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	_, found, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if found {
		t.Fatalf("Load() on a fresh path should report not found")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := game.NewSessionState(now)
	state.Join("Ava")
	state.Join("Bo")
	state.Scene = "A ruined tower"
	state.ApplySkill("Ava", "Stealth", 2)
	state.AppendHistory(game.HistoryEntry{Actor: "Ava", Action: "sneaks", Response: "quietly"}, 20)

	if err := s.Save(ctx, state); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, found, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !found {
		t.Fatalf("Load() should find the saved blob")
	}
	if len(got.Participants) != 2 || got.Participants[0] != "Ava" {
		t.Fatalf("participants = %v", got.Participants)
	}
	if got.Scene != "A ruined tower" {
		t.Fatalf("scene = %q", got.Scene)
	}
	if got.Characters["Ava"].Skills["Stealth"] != 2 {
		t.Fatalf("skill not persisted: %+v", got.Characters["Ava"])
	}
	if !got.TurnStartedAt.Equal(now) {
		t.Fatalf("TurnStartedAt = %v, want %v", got.TurnStartedAt, now)
	}
}

func TestFileStoreSaveOverwritesWhole(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	ctx := context.Background()
	now := time.Now().UTC()

	first := game.NewSessionState(now)
	first.Join("Ava")
	if err := s.Save(ctx, first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	fresh := game.NewSessionState(now)
	if err := s.Save(ctx, fresh); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, _, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got.Participants) != 0 {
		t.Fatalf("reset blob should have an empty roster, got %v", got.Participants)
	}
}
