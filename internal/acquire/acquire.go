// Package acquire produces reference image bytes from a source (URL or local
// path) and decodes raster images for the comparison pipeline.
package acquire

import (
	"bytes"
	"context"
	"fmt"
	"image"

	// Registered raster formats for image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

type Acquirer interface {
	// Acquire fetches the raw image bytes for the given source.
	Acquire(ctx context.Context, source string) ([]byte, error)
}

// DecodeError marks input bytes that are not a valid raster image. It is a
// user-correctable condition, as opposed to an internal comparator fault.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("not a valid raster image: %s", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode decodes PNG, JPEG or GIF bytes into an image.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return img, nil
}
