// Package storage persists comparison artifacts (reference, candidate and
// diff images) so the boundary layer can serve them later.
package storage

import (
	"context"
)

type Storage interface {
	// Put stores data under key and returns the storage URL.
	Put(ctx context.Context, key string, data []byte) (string, error)
	// Get retrieves data from a storage URL returned by Put.
	Get(ctx context.Context, url string) ([]byte, error)
}
