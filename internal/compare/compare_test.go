package compare

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func TestComparator_Compare(t *testing.T) {
	ctx := context.Background()

	t.Run("IdenticalImages", func(t *testing.T) {
		img1 := createTestImage(100, 100, color.White)
		img2 := createTestImage(100, 100, color.White)

		result, err := Compare(ctx, img1, img2, DefaultPolicy())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.MismatchPercentage != 0.0 {
			t.Errorf("expected MismatchPercentage to be 0.0, got %f", result.MismatchPercentage)
		}
		if !result.IsSameDimensions {
			t.Error("expected IsSameDimensions to be true")
		}
		if result.DimensionDelta != nil {
			t.Errorf("expected nil DimensionDelta, got %+v", result.DimensionDelta)
		}
	})

	t.Run("IdenticalImagesUnderEveryMode", func(t *testing.T) {
		for _, mode := range []DiffMode{DiffModeOverlay, DiffModeMovement, DiffModeFlat} {
			policy := DefaultPolicy()
			policy.DiffMode = mode
			policy.IgnoreAntialiasing = true
			policy.IgnoreColors = true

			img1 := createTestImage(50, 50, color.RGBA{R: 12, G: 34, B: 56, A: 255})
			img2 := createTestImage(50, 50, color.RGBA{R: 12, G: 34, B: 56, A: 255})

			result, err := Compare(ctx, img1, img2, policy)
			if err != nil {
				t.Fatalf("mode %s: unexpected error: %v", mode, err)
			}
			if result.MismatchPercentage != 0.0 {
				t.Errorf("mode %s: expected MismatchPercentage to be 0.0, got %f", mode, result.MismatchPercentage)
			}
		}
	})

	t.Run("SameImageInstance", func(t *testing.T) {
		img := createTestImage(100, 100, color.White)

		result, err := Compare(ctx, img, img, DefaultPolicy())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.MismatchPercentage != 0.0 {
			t.Errorf("expected MismatchPercentage to be 0.0 for same instance, got %f", result.MismatchPercentage)
		}
		if !result.Diff.Bounds().Size().Eq(image.Pt(100, 100)) {
			t.Errorf("expected 100x100 diff image, got %v", result.Diff.Bounds().Size())
		}
	})

	t.Run("CompleteDivergence", func(t *testing.T) {
		img1 := createTestImage(100, 100, color.Black)
		img2 := createTestImage(100, 100, color.White)

		result, err := Compare(ctx, img1, img2, DefaultPolicy())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.MismatchPercentage != 100.0 {
			t.Errorf("expected MismatchPercentage to be 100.0, got %f", result.MismatchPercentage)
		}
		if result.RawMismatchPercentage != result.MismatchPercentage {
			t.Errorf("expected raw and adjusted mismatch to be equal, got %f and %f",
				result.RawMismatchPercentage, result.MismatchPercentage)
		}
	})

	t.Run("CornerSquareDivergence", func(t *testing.T) {
		img1 := createTestImage(100, 100, color.RGBA{R: 255, A: 255})
		img2 := createTestImage(100, 100, color.RGBA{R: 255, A: 255})
		draw.Draw(img2, image.Rect(0, 0, 10, 10), &image.Uniform{C: color.RGBA{B: 255, A: 255}}, image.Point{}, draw.Src)

		result, err := Compare(ctx, img1, img2, DefaultPolicy())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// 100 of 10000 pixels.
		if result.MismatchPercentage != 1.0 {
			t.Errorf("expected MismatchPercentage to be 1.0, got %f", result.MismatchPercentage)
		}
	})

	t.Run("DimensionMismatchWithoutScaling", func(t *testing.T) {
		img1 := createTestImage(50, 50, color.White)
		img2 := createTestImage(100, 100, color.White)

		policy := DefaultPolicy()
		policy.ScaleToSameSize = false

		result, err := Compare(ctx, img1, img2, policy)
		if result != nil {
			t.Errorf("expected no result on dimension mismatch, got %+v", result)
		}

		var mismatchErr *DimensionMismatchError
		if !errors.As(err, &mismatchErr) {
			t.Fatalf("expected DimensionMismatchError, got %v", err)
		}
		if !mismatchErr.Reference.Eq(image.Pt(50, 50)) || !mismatchErr.Candidate.Eq(image.Pt(100, 100)) {
			t.Errorf("unexpected sizes in error: %v", mismatchErr)
		}
	})

	t.Run("ScaleToSameSize", func(t *testing.T) {
		img1 := createTestImage(50, 50, color.White)
		img2 := createTestImage(100, 100, color.White)

		policy := DefaultPolicy()
		policy.ScaleToSameSize = true

		result, err := Compare(ctx, img1, img2, policy)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.IsSameDimensions {
			t.Error("expected IsSameDimensions to be false")
		}
		if diff := cmp.Diff(&Delta{Width: 50, Height: 50}, result.DimensionDelta); diff != "" {
			t.Errorf("unexpected DimensionDelta (-want +got):\n%s", diff)
		}
		// Normalization always goes up to the larger dimensions.
		if !result.Diff.Bounds().Size().Eq(image.Pt(100, 100)) {
			t.Errorf("expected 100x100 diff image, got %v", result.Diff.Bounds().Size())
		}
		if result.MismatchPercentage != 0.0 {
			t.Errorf("expected uniform images to match after resampling, got %f", result.MismatchPercentage)
		}
	})

	t.Run("IgnoreColors", func(t *testing.T) {
		// (255, 0, 0) and (0, 130, 0) have near-identical BT.601 luma.
		img1 := createTestImage(20, 20, color.RGBA{R: 255, A: 255})
		img2 := createTestImage(20, 20, color.RGBA{G: 130, A: 255})

		strict, err := Compare(ctx, img1, img2, DefaultPolicy())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strict.MismatchPercentage != 100.0 {
			t.Errorf("expected hue change to diverge under color comparison, got %f", strict.MismatchPercentage)
		}

		policy := DefaultPolicy()
		policy.IgnoreColors = true
		lumaOnly, err := Compare(ctx, img1, img2, policy)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if lumaOnly.MismatchPercentage != 0.0 {
			t.Errorf("expected equal-luma hue change to match, got %f", lumaOnly.MismatchPercentage)
		}
	})

	t.Run("IgnoreAntialiasing", func(t *testing.T) {
		// A sharp black/white vertical edge against the same edge with a
		// blended transition column.
		sharp := createTestImage(20, 20, color.Black)
		draw.Draw(sharp, image.Rect(10, 0, 20, 20), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

		blended := createTestImage(20, 20, color.Black)
		draw.Draw(blended, image.Rect(10, 0, 20, 20), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
		for y := 0; y < 20; y++ {
			blended.Set(10, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
		}

		strictPolicy := DefaultPolicy()
		strict, err := Compare(ctx, sharp, blended, strictPolicy)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strict.MismatchPercentage == 0.0 {
			t.Fatal("expected the blended edge to diverge without antialiasing tolerance")
		}

		tolerantPolicy := DefaultPolicy()
		tolerantPolicy.IgnoreAntialiasing = true
		tolerant, err := Compare(ctx, sharp, blended, tolerantPolicy)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tolerant.MismatchPercentage >= strict.MismatchPercentage {
			t.Errorf("expected mismatch with antialiasing tolerance (%f) to be strictly less than without (%f)",
				tolerant.MismatchPercentage, strict.MismatchPercentage)
		}
	})

	t.Run("StructuralChangeNotExcusedAsAntialiasing", func(t *testing.T) {
		img1 := createTestImage(20, 20, color.Black)
		img2 := createTestImage(20, 20, color.White)

		policy := DefaultPolicy()
		policy.IgnoreAntialiasing = true

		result, err := Compare(ctx, img1, img2, policy)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.MismatchPercentage != 100.0 {
			t.Errorf("expected full divergence to survive antialiasing tolerance, got %f", result.MismatchPercentage)
		}
	})

	t.Run("Cancellation", func(t *testing.T) {
		img1 := createTestImage(500, 500, color.Black)
		img2 := createTestImage(500, 500, color.White)

		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := Compare(cancelled, img1, img2, DefaultPolicy())
		if result != nil {
			t.Errorf("expected no result after cancellation, got %+v", result)
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("ComputedAtIsSet", func(t *testing.T) {
		img1 := createTestImage(10, 10, color.White)
		img2 := createTestImage(10, 10, color.White)

		result, err := Compare(ctx, img1, img2, DefaultPolicy())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.ComputedAt.IsZero() {
			t.Error("expected ComputedAt to be recorded at comparison time")
		}
	})
}

func TestComparator_DiffRendering(t *testing.T) {
	ctx := context.Background()

	t.Run("MatchingPixelsKeepCandidateBase", func(t *testing.T) {
		img1 := createTestImage(10, 10, color.RGBA{R: 10, G: 20, B: 30, A: 255})
		img2 := createTestImage(10, 10, color.RGBA{R: 10, G: 20, B: 30, A: 255})

		result, err := Compare(ctx, img1, img2, DefaultPolicy())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got := color.NRGBAModel.Convert(result.Diff.At(5, 5)).(color.NRGBA)
		want := color.NRGBA{R: 10, G: 20, B: 30, A: 255}
		if got != want {
			t.Errorf("expected candidate pixel %v in diff, got %v", want, got)
		}
	})

	t.Run("FlatModePaintsOpaqueHighlight", func(t *testing.T) {
		img1 := createTestImage(10, 10, color.Black)
		img2 := createTestImage(10, 10, color.White)

		policy := DefaultPolicy()
		policy.DiffMode = DiffModeFlat
		policy.HighlightColor = color.RGBA{R: 255, B: 255, A: 255}

		result, err := Compare(ctx, img1, img2, policy)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got := color.NRGBAModel.Convert(result.Diff.At(3, 3)).(color.NRGBA)
		want := color.NRGBA{R: 255, B: 255, A: 255}
		if got != want {
			t.Errorf("expected flat highlight %v, got %v", want, got)
		}
	})

	t.Run("OverlayModeBlendsHighlight", func(t *testing.T) {
		img1 := createTestImage(10, 10, color.White)
		img2 := createTestImage(10, 10, color.Black)

		policy := DefaultPolicy()
		policy.DiffMode = DiffModeOverlay
		policy.HighlightColor = color.RGBA{R: 255, A: 255}
		policy.HighlightTransparency = 0.5

		result, err := Compare(ctx, img1, img2, policy)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Half red over the black candidate base.
		got := color.NRGBAModel.Convert(result.Diff.At(3, 3)).(color.NRGBA)
		want := color.NRGBA{R: 128, A: 255}
		if got != want {
			t.Errorf("expected blended highlight %v, got %v", want, got)
		}
	})

	t.Run("MovementModeTintsShiftDirection", func(t *testing.T) {
		reference := createTestImage(10, 10, color.White)
		reference.Set(5, 5, color.Black)

		candidate := createTestImage(10, 10, color.White)
		candidate.Set(6, 5, color.Black)

		policy := DefaultPolicy()
		policy.DiffMode = DiffModeMovement
		policy.HighlightTransparency = 1.0

		result, err := Compare(ctx, reference, candidate, policy)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// The black pixel moved one column, so the divergent position is
		// tinted with the horizontal shift color.
		got := color.NRGBAModel.Convert(result.Diff.At(6, 5)).(color.NRGBA)
		want := color.NRGBA{G: 255, A: 255}
		if got != want {
			t.Errorf("expected horizontal shift tint %v, got %v", want, got)
		}
	})
}

func BenchmarkComparator_Compare_FullHD(b *testing.B) {
	comparator := NewComparator(DefaultPolicy())
	img1 := createTestImage(1920, 1080, color.White)
	img2 := createTestImage(1920, 1080, color.White)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := comparator.Compare(context.Background(), img1, img2); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkComparator_Compare_IgnoreAntialiasing(b *testing.B) {
	policy := DefaultPolicy()
	policy.IgnoreAntialiasing = true
	comparator := NewComparator(policy)
	img1 := createTestImage(1920, 1080, color.White)
	img2 := createTestImage(1920, 1080, color.Black)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := comparator.Compare(context.Background(), img1, img2); err != nil {
			b.Fatal(err)
		}
	}
}
