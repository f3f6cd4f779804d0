package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ProlificLabs/captrivia-cli/internal/api"
)

// document is the on-disk shape of the client state file. The games and
// currentGame keys mirror the web client's storage layout.
type document struct {
	Games    []api.GameSession `json:"games"`
	Current  *api.GameSession  `json:"currentGame,omitempty"`
	ClientID string            `json:"clientId,omitempty"`
}

// Store persists session state to a JSON file. Reads fail soft: corrupt or
// missing data yields an empty document, never an error.
type Store struct {
	path string
}

// NewStore builds a Store writing to the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// read loads the state file. Any failure (missing file, corrupt JSON)
// returns an empty document.
func (s *Store) read() document {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return document{}
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{}
	}
	return doc
}

// write persists the document atomically via a temp file and rename, so a
// crash mid-write never leaves a torn state file behind.
func (s *Store) write(doc document) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".state-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close state file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
