package acquire

import (
	"context"
	"os"
	"strings"

	"golang.org/x/xerrors"
)

type fileAcquirer struct{}

// NewFileAcquirer reads reference images from the local filesystem.
func NewFileAcquirer() Acquirer {
	return &fileAcquirer{}
}

func (a *fileAcquirer) Acquire(ctx context.Context, source string) ([]byte, error) {
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, xerrors.Errorf("failed to read %s: %w", source, err)
	}
	return data, nil
}

// ForSource picks the acquirer matching a CLI-style source string: URLs go
// through HTTP, everything else is a path.
func ForSource(source string, config HTTPConfig) Acquirer {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return NewHTTPAcquirer(config)
	}
	return NewFileAcquirer()
}
