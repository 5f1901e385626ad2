package compare

import (
	"image"

	"github.com/disintegration/imaging"
)

// normalizePair produces two NRGBA images with matching dimensions so the
// per-pixel comparison is well defined. Equal inputs are cloned as-is. Unequal
// inputs are resampled UP to the per-axis maximum of the two (never down) with
// bilinear interpolation, so no pixel data from the larger input is discarded.
// Without scaleToSameSize, unequal inputs fail with DimensionMismatchError.
func normalizePair(reference image.Image, candidate image.Image, scaleToSameSize bool) (*image.NRGBA, *image.NRGBA, error) {
	referenceSize := reference.Bounds().Size()
	candidateSize := candidate.Bounds().Size()

	if referenceSize.Eq(candidateSize) {
		return imaging.Clone(reference), imaging.Clone(candidate), nil
	}

	if !scaleToSameSize {
		return nil, nil, &DimensionMismatchError{
			Reference: referenceSize,
			Candidate: candidateSize,
		}
	}

	width := referenceSize.X
	if candidateSize.X > width {
		width = candidateSize.X
	}
	height := referenceSize.Y
	if candidateSize.Y > height {
		height = candidateSize.Y
	}

	return resizeTo(reference, width, height), resizeTo(candidate, width, height), nil
}

func resizeTo(img image.Image, width int, height int) *image.NRGBA {
	size := img.Bounds().Size()
	if size.X == width && size.Y == height {
		return imaging.Clone(img)
	}
	return imaging.Resize(img, width, height, imaging.Linear)
}

// dimensionDelta reflects the original input mismatch regardless of
// resampling.
func dimensionDelta(reference image.Image, candidate image.Image) *Delta {
	referenceSize := reference.Bounds().Size()
	candidateSize := candidate.Bounds().Size()

	if referenceSize.Eq(candidateSize) {
		return nil
	}

	return &Delta{
		Width:  abs(referenceSize.X - candidateSize.X),
		Height: abs(referenceSize.Y - candidateSize.Y),
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
