// services/metadata_store.go
package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/gewnthar/ulsync/logging"
	"github.com/gewnthar/ulsync/models"
)

// MetadataStore persists the UpdateMetadata of the last completed run as a
// small JSON file next to the store.
type MetadataStore struct {
	Path string
}

func NewMetadataStore(path string) *MetadataStore {
	return &MetadataStore{Path: path}
}

// Load returns the stored metadata, or nil when no run has completed yet. A
// file that cannot be decoded is treated as absent so that the next check
// reports an update instead of guessing.
func (m *MetadataStore) Load(ctx context.Context) (*models.UpdateMetadata, error) {
	data, err := os.ReadFile(m.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata %s: %w", m.Path, err)
	}
	var md models.UpdateMetadata
	if err := json.Unmarshal(data, &md); err != nil {
		logging.FromContext(ctx).Warn("ignoring unreadable metadata file", "path", m.Path, "error", err)
		return nil, nil
	}
	return &md, nil
}

// Save writes md atomically: a crash mid-write leaves the previous file.
func (m *MetadataStore) Save(md *models.UpdateMetadata) error {
	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	dir := filepath.Dir(m.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".metadata-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp metadata file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.Path); err != nil {
		return fmt.Errorf("failed to replace metadata %s: %w", m.Path, err)
	}
	return nil
}
