package compare

import (
	"fmt"
	"image"
	"time"
)

// Delta is the absolute difference between the original input dimensions.
type Delta struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Result holds the outcome of one comparison. Percentages are raw floating
// point values; rounding to the two decimals reported to clients happens at
// the report boundary.
type Result struct {
	// MismatchPercentage is the fraction of compared pixels classified
	// divergent, in [0, 100]. It equals RawMismatchPercentage; no region
	// weighting is applied.
	MismatchPercentage    float64
	RawMismatchPercentage float64

	// IsSameDimensions reflects the original inputs, not the post-resample
	// state.
	IsSameDimensions bool
	// DimensionDelta is nil when the original dimensions were equal.
	DimensionDelta *Delta

	// Diff has the normalized comparison dimensions.
	Diff image.Image

	// ComputedAt is recorded when the comparison finishes and is carried
	// unchanged into reports built from this result.
	ComputedAt time.Time
}

// DimensionMismatchError is returned when the inputs have unequal dimensions
// and the policy forbids resampling. No diff image is produced in that case.
type DimensionMismatchError struct {
	Reference image.Point
	Candidate image.Point
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("image dimensions differ: reference %dx%d, candidate %dx%d",
		e.Reference.X, e.Reference.Y, e.Candidate.X, e.Candidate.Y)
}
