package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/voyagen/lulutv/internal/models"
)

// FileStore keeps one JSON file per kind in dir (languages.json, countries.json).
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(kind string) string {
	return filepath.Join(s.dir, kind+".json")
}

func (s *FileStore) Load(_ context.Context, kind string) (*models.Document, error) {
	if !validKind(kind) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	data, err := os.ReadFile(s.path(kind))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", kind, err)
	}
	return decode(kind, data)
}

// Save replaces the kind's file atomically; readers never see a partial file.
func (s *FileStore) Save(_ context.Context, kind string, doc *models.Document) error {
	data, err := encode(kind, doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	pf, err := renameio.NewPendingFile(s.path(kind), renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer func() { _ = pf.Cleanup() }()

	if _, err := pf.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", kind, err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", kind, err)
	}
	return nil
}

func validKind(kind string) bool {
	return kind == models.KindLanguages || kind == models.KindCountries
}
