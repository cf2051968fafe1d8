package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// FileRecorder implements Recorder with one JSON file per session.
type FileRecorder struct {
	dir string
}

// NewFileRecorder creates a recorder writing into dir, creating it if needed.
func NewFileRecorder(dir string) (*FileRecorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return &FileRecorder{dir: dir}, nil
}

// Save writes the record of an ended session
func (fr *FileRecorder) Save(info Info) error {
	if _, err := uuid.Parse(info.ID); err != nil {
		return fmt.Errorf("invalid session id %q: %w", info.ID, err)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}

	// Write through a temp file so readers never see a partial record.
	tmp, err := os.CreateTemp(fr.dir, ".record-*")
	if err != nil {
		return fmt.Errorf("failed to write session record: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write session record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write session record: %w", err)
	}
	if err := os.Rename(tmp.Name(), fr.path(info.ID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write session record: %w", err)
	}
	return nil
}

// Load retrieves a record from its JSON file
func (fr *FileRecorder) Load(id string) (Info, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Info{}, ErrSessionNotFound
	}

	data, err := os.ReadFile(fr.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return Info{}, ErrSessionNotFound
		}
		return Info{}, fmt.Errorf("failed to read session record: %w", err)
	}

	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return Info{}, fmt.Errorf("failed to unmarshal session record: %w", err)
	}
	return info, nil
}

// Delete removes a record file
func (fr *FileRecorder) Delete(id string) error {
	if !fr.Exists(id) {
		return ErrSessionNotFound
	}
	if err := os.Remove(fr.path(id)); err != nil {
		return fmt.Errorf("failed to remove session record: %w", err)
	}
	return nil
}

// ListAll returns all recorded session IDs, sorted
func (fr *FileRecorder) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fr.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Exists checks if a record file exists
func (fr *FileRecorder) Exists(id string) bool {
	if _, err := uuid.Parse(id); err != nil {
		return false
	}
	_, err := os.Stat(fr.path(id))
	return err == nil
}

func (fr *FileRecorder) path(id string) string {
	return filepath.Join(fr.dir, id+".json")
}
