package compare

import (
	"fmt"
	"image/color"

	"golang.org/x/xerrors"
)

// DiffMode selects how divergent pixels are marked in the diff image.
type DiffMode int

const (
	// DiffModeOverlay blends the highlight color over the candidate pixel.
	DiffModeOverlay DiffMode = iota
	// DiffModeMovement additionally tints divergent pixels by the direction of
	// the nearest matching reference region, when one exists within
	// MovementRadius.
	DiffModeMovement
	// DiffModeFlat paints every divergent pixel with the opaque highlight
	// color, regardless of cause.
	DiffModeFlat
)

func (m DiffMode) String() string {
	switch m {
	case DiffModeOverlay:
		return "overlay"
	case DiffModeMovement:
		return "movement"
	case DiffModeFlat:
		return "flat"
	default:
		return fmt.Sprintf("DiffMode(%d)", int(m))
	}
}

func ParseDiffMode(s string) (DiffMode, error) {
	switch s {
	case "overlay":
		return DiffModeOverlay, nil
	case "movement":
		return DiffModeMovement, nil
	case "flat":
		return DiffModeFlat, nil
	default:
		return 0, xerrors.Errorf("unknown diff mode: %s", s)
	}
}

// Policy is an immutable comparison configuration. A zero Policy is valid but
// strict; DefaultPolicy returns the values most callers want.
type Policy struct {
	// IgnoreAntialiasing discounts divergent pixels whose counterpart lies
	// within the color envelope of the surrounding 3x3 neighborhood, i.e.
	// differences consistent with anti-aliased edge smoothing.
	IgnoreAntialiasing bool

	// IgnoreColors compares BT.601 luma only, so hue and saturation changes at
	// equal brightness do not count as divergence.
	IgnoreColors bool

	// ScaleToSameSize resamples unequal inputs up to the per-axis maximum of
	// the two before comparing. When false, unequal dimensions fail with
	// DimensionMismatchError.
	ScaleToSameSize bool

	// HighlightColor is painted over divergent pixels in the diff image.
	HighlightColor color.RGBA

	// HighlightTransparency is the blend factor in [0, 1] applied when the
	// highlight is drawn over the candidate pixel. 1 paints the highlight
	// opaquely, 0 leaves the candidate pixel untouched.
	HighlightTransparency float64

	DiffMode DiffMode

	// Threshold is the normalized per-channel tolerance in [0, 1]. Two pixels
	// match when no channel differs by more than Threshold*255.
	Threshold float64

	// MovementRadius bounds the local search for a shifted match in
	// DiffModeMovement.
	MovementRadius int
}

func DefaultPolicy() Policy {
	return Policy{
		HighlightColor:        color.RGBA{R: 255, A: 255},
		HighlightTransparency: 0.7,
		DiffMode:              DiffModeOverlay,
		Threshold:             0.1,
		MovementRadius:        4,
	}
}

// ParseHexColor parses "#rrggbb" or "rrggbb" into an opaque RGBA color.
func ParseHexColor(s string) (color.RGBA, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 {
		return color.RGBA{}, xerrors.Errorf("invalid hex color: %q", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, xerrors.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}
