// Package compare implements the pixel comparison pipeline: size
// normalization, policy-driven pixel matching and diff image rendering.
package compare

import (
	"context"
	"image"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/xerrors"
)

type Comparator struct {
	policy Policy
}

func NewComparator(policy Policy) *Comparator {
	return &Comparator{
		policy: policy,
	}
}

// Compare is a convenience wrapper for a one-shot comparison.
func Compare(ctx context.Context, reference image.Image, candidate image.Image, policy Policy) (*Result, error) {
	return NewComparator(policy).Compare(ctx, reference, candidate)
}

// Compare classifies every pixel position of the normalized pair as matching
// or divergent and renders the diff image. The work is CPU-bound and split
// across row ranges; cancelling ctx aborts between rows. Each call operates on
// its own buffers, so comparators are safe for concurrent use.
func (c *Comparator) Compare(ctx context.Context, reference image.Image, candidate image.Image) (*Result, error) {
	computedAt := time.Now()

	delta := dimensionDelta(reference, candidate)

	if reference == candidate {
		return &Result{
			IsSameDimensions: true,
			Diff:             imaging.Clone(candidate),
			ComputedAt:       computedAt,
		}, nil
	}

	ref, cand, err := normalizePair(reference, candidate, c.policy.ScaleToSameSize)
	if err != nil {
		return nil, err
	}

	// Base layer of the diff image is the candidate.
	diff := cloneNRGBA(cand)

	bounds := ref.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	// Use GOMAXPROCS instead of runtime.NumCPU() to consider cgroup.
	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > height {
		numWorkers = height
	}
	if numWorkers < 1 {
		numWorkers = 1
	}
	rowsPerWorker := height / numWorkers

	var divergentPixelCount int64

	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for i := 0; i < numWorkers; i++ {
		startY := bounds.Min.Y + i*rowsPerWorker
		endY := startY + rowsPerWorker
		if i == numWorkers-1 {
			endY = bounds.Max.Y
		}

		go func(startY int, endY int) {
			defer wg.Done()
			c.processRows(ctx, ref, cand, diff, bounds.Min.X, bounds.Max.X, startY, endY, &divergentPixelCount)
		}(startY, endY)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, xerrors.Errorf("comparison aborted: %w", err)
	}

	rawMismatch := 0.0
	if totalPixelCount := width * height; totalPixelCount > 0 {
		rawMismatch = float64(divergentPixelCount) / float64(totalPixelCount) * 100
	}

	return &Result{
		// No region weighting exists, so the adjusted value equals the raw one.
		MismatchPercentage:    rawMismatch,
		RawMismatchPercentage: rawMismatch,
		IsSameDimensions:      delta == nil,
		DimensionDelta:        delta,
		Diff:                  diff,
		ComputedAt:            computedAt,
	}, nil
}

func (c *Comparator) processRows(ctx context.Context, reference *image.NRGBA, candidate *image.NRGBA, diff *image.NRGBA, minX int, maxX int, startY int, endY int, divergentCount *int64) {
	var localDivergent int64

	for y := startY; y < endY; y++ {
		if ctx.Err() != nil {
			return
		}

		referenceRowStart := reference.PixOffset(minX, y)
		candidateRowStart := candidate.PixOffset(minX, y)
		diffRowStart := diff.PixOffset(minX, y)

		for x := 0; x < (maxX - minX); x++ {
			referenceOffset := referenceRowStart + x*4
			candidateOffset := candidateRowStart + x*4
			diffOffset := diffRowStart + x*4

			rr := reference.Pix[referenceOffset]
			rg := reference.Pix[referenceOffset+1]
			rb := reference.Pix[referenceOffset+2]
			ra := reference.Pix[referenceOffset+3]

			cr := candidate.Pix[candidateOffset]
			cg := candidate.Pix[candidateOffset+1]
			cb := candidate.Pix[candidateOffset+2]
			ca := candidate.Pix[candidateOffset+3]

			if c.pixelsMatch(rr, rg, rb, ra, cr, cg, cb, ca) {
				continue
			}

			if c.policy.IgnoreAntialiasing && looksAntialiased(reference, candidate, minX+x, y) {
				continue
			}

			localDivergent++
			c.paintDivergent(reference, diff, minX+x, y, diffOffset)
		}
	}

	atomic.AddInt64(divergentCount, localDivergent)
}

// pixelsMatch applies the per-channel tolerance, or the luma-only tolerance
// when colors are ignored. Alpha always participates.
func (c *Comparator) pixelsMatch(rr, rg, rb, ra, cr, cg, cb, ca uint8) bool {
	tolerance := c.policy.Threshold * 255

	if float64(absDiffU8(ra, ca)) > tolerance {
		return false
	}

	if c.policy.IgnoreColors {
		return float64(absDiffU8(luma(rr, rg, rb), luma(cr, cg, cb))) <= tolerance
	}

	return float64(absDiffU8(rr, cr)) <= tolerance &&
		float64(absDiffU8(rg, cg)) <= tolerance &&
		float64(absDiffU8(rb, cb)) <= tolerance
}

// luma is the BT.601 weighted brightness, in integer arithmetic.
func luma(r uint8, g uint8, b uint8) uint8 {
	return uint8((299*int(r) + 587*int(g) + 114*int(b)) / 1000)
}

func absDiffU8(l uint8, r uint8) uint8 {
	if l > r {
		return l - r
	}
	return r - l
}

func cloneNRGBA(img *image.NRGBA) *image.NRGBA {
	clone := image.NewNRGBA(img.Bounds())
	copy(clone.Pix, img.Pix)
	return clone
}
