package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/xerrors"
)

type fileStorage struct {
	directory string
}

type FileConfig struct {
	Directory string
}

// NewFileStorage stores artifacts under a local directory. Keys may contain
// slashes; intermediate directories are created as needed.
func NewFileStorage(ctx context.Context, f FileConfig) (Storage, error) {
	if f.Directory == "" {
		f.Directory = "."
	}

	return &fileStorage{
		directory: f.Directory,
	}, nil
}

func (a *fileStorage) Put(ctx context.Context, key string, data []byte) (string, error) {
	path := filepath.Join(a.directory, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", xerrors.Errorf("failed to create artifact directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", xerrors.Errorf("failed to write artifact: %w", err)
	}

	return path, nil
}

func (a *fileStorage) Get(ctx context.Context, url string) ([]byte, error) {
	// URLs reach this backend from clients; only paths under the storage
	// directory are served.
	rel, err := filepath.Rel(a.directory, url)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, xerrors.Errorf("artifact %s is outside the storage directory", url)
	}

	data, err := os.ReadFile(filepath.Join(a.directory, rel))
	if err != nil {
		return nil, xerrors.Errorf("failed to read artifact: %w", err)
	}

	return data, nil
}
