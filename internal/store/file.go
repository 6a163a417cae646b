package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/antoniostano/fable/internal/game"
)

// FileStore keeps the session as a single JSON document on disk. Writes
// go through a temp file and rename so a crash mid-write never leaves a
// truncated blob behind.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	if path == "" {
		path = "game_state.json"
	}
	return &FileStore{path: path}
}

func (s *FileStore) Load(ctx context.Context) (*game.SessionState, bool, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read state file %q: %w", s.path, err)
	}
	var state game.SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, false, fmt.Errorf("decode state file %q: %w", s.path, err)
	}
	return &state, true, nil
}

func (s *FileStore) Save(ctx context.Context, state *game.SessionState) error {
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".fable-state-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file %q: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) Ping(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("state directory %q: %w", dir, err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
