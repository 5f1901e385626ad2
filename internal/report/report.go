// Package report turns a comparison result into the client-facing report.
package report

import (
	"math"
	"time"

	"pagematch/internal/compare"
)

// ImageRefs addresses the stored artifacts of one comparison.
type ImageRefs struct {
	Reference string `json:"reference"`
	Candidate string `json:"candidate"`
	Diff      string `json:"diff"`
}

type Report struct {
	// MatchScore is 100 minus the mismatch percentage, clamped to [0, 100].
	MatchScore         float64        `json:"matchScore"`
	MismatchPercentage float64        `json:"mismatchPercentage"`
	IsSameDimensions   bool           `json:"isSameDimensions"`
	DimensionDelta     *compare.Delta `json:"dimensionDelta,omitempty"`
	ComputedAt         time.Time      `json:"computedAt"`
	Images             ImageRefs      `json:"images"`
}

// Build is a pure transformation of a Result. Percentages are rounded to two
// decimals here, at the boundary. The timestamp is the one recorded when the
// comparison ran, so building a report twice from a cached result yields the
// same report.
func Build(result *compare.Result, images ImageRefs) Report {
	mismatch := round2(result.MismatchPercentage)

	return Report{
		MatchScore:         clamp(round2(100-mismatch), 0, 100),
		MismatchPercentage: mismatch,
		IsSameDimensions:   result.IsSameDimensions,
		DimensionDelta:     result.DimensionDelta,
		ComputedAt:         result.ComputedAt,
		Images:             images,
	}
}

// round2 rounds (not truncates) to two decimal digits.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v float64, lo float64, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
