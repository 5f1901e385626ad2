package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStorage(t *testing.T) {
	ctx := context.Background()

	s, err := NewFileStorage(ctx, FileConfig{Directory: t.TempDir()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("PutThenGet", func(t *testing.T) {
		want := []byte("artifact bytes")

		url, err := s.Put(ctx, "Comparison/abc123/20250601120000.diff.png", want)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, err := s.Get(ctx, url)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !bytes.Equal(want, got) {
			t.Error("stored and retrieved bytes differ")
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		if _, err := s.Get(ctx, "does/not/exist"); err == nil {
			t.Error("expected an error for a missing artifact")
		}
	})

	t.Run("GetRefusesPathOutsideDirectory", func(t *testing.T) {
		secret := filepath.Join(t.TempDir(), "secret.txt")
		if err := os.WriteFile(secret, []byte("not an artifact"), 0644); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := s.Get(ctx, secret); err == nil {
			t.Error("expected an error for a path outside the storage directory")
		}
	})

	t.Run("GetRefusesTraversal", func(t *testing.T) {
		directory := t.TempDir()
		outside := filepath.Join(directory, "secret.txt")
		if err := os.WriteFile(outside, []byte("not an artifact"), 0644); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		nested, err := NewFileStorage(ctx, FileConfig{Directory: filepath.Join(directory, "store")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := nested.Get(ctx, filepath.Join(directory, "store", "..", "secret.txt")); err == nil {
			t.Error("expected an error for a traversal outside the storage directory")
		}
	})
}
