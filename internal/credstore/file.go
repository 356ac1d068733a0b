package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps the entry in a single JSON document readable only by its owner.
type FileStore struct {
	path string
}

type fileDoc struct {
	Token string `json:"token"`
	User  string `json:"user"`
}

// NewFileStore returns a store backed by path. The file is created on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the stored entry. A missing file is an empty entry. A document that
// is not valid JSON comes back as user bytes without a token.
func (s *FileStore) Load(_ context.Context) (Entry, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Entry{}, nil
	}
	if err != nil {
		return Entry{}, fmt.Errorf("read credential file: %w", err)
	}

	var doc fileDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Entry{User: raw}, nil
	}
	entry := Entry{Token: doc.Token}
	if doc.User != "" {
		entry.User = []byte(doc.User)
	}
	return entry, nil
}

// Save writes the entry atomically with mode 0600.
func (s *FileStore) Save(_ context.Context, entry Entry) error {
	raw, err := json.Marshal(fileDoc{Token: entry.Token, User: string(entry.User)})
	if err != nil {
		return fmt.Errorf("encode credential file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp credential file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod credential file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write credential file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close credential file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}

// Clear removes the file. Clearing an absent file succeeds.
func (s *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credential file: %w", err)
	}
	return nil
}
