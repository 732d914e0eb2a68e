package draft

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/khoakhoakhoa23/TMDT-sub000/internal/models"
)

// FileStore keeps all drafts in a single YAML document
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a FileStore at path. The file is created on first Set.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Get(ctx context.Context, key string) (models.RentalWindow, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	drafts, err := s.load()
	if err != nil {
		return models.RentalWindow{}, false, err
	}
	w, ok := drafts[key]
	return w, ok, nil
}

func (s *FileStore) Set(ctx context.Context, key string, w models.RentalWindow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	drafts, err := s.load()
	if err != nil {
		return err
	}
	drafts[key] = w
	return s.save(drafts)
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	drafts, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := drafts[key]; !ok {
		return nil
	}
	delete(drafts, key)
	return s.save(drafts)
}

func (s *FileStore) load() (map[string]models.RentalWindow, error) {
	drafts := make(map[string]models.RentalWindow)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return drafts, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read drafts: %w", err)
	}
	if err := yaml.Unmarshal(data, &drafts); err != nil {
		return nil, fmt.Errorf("failed to parse drafts %s: %w", s.path, err)
	}
	if drafts == nil {
		drafts = make(map[string]models.RentalWindow)
	}
	return drafts, nil
}

// save replaces the file atomically via a temp file and rename.
func (s *FileStore) save(drafts map[string]models.RentalWindow) error {
	data, err := yaml.Marshal(drafts)
	if err != nil {
		return fmt.Errorf("failed to encode drafts: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create draft dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".drafts-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write drafts: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write drafts: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write drafts: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace drafts: %w", err)
	}
	return nil
}
