package compare

import (
	"image"
	"image/color"
)

// paintDivergent marks one divergent pixel in the diff image. The diff image
// starts as a clone of the candidate, so the candidate pixel is the base layer
// every mode draws over.
func (c *Comparator) paintDivergent(reference *image.NRGBA, diff *image.NRGBA, x int, y int, offset int) {
	switch c.policy.DiffMode {
	case DiffModeFlat:
		diff.Pix[offset] = c.policy.HighlightColor.R
		diff.Pix[offset+1] = c.policy.HighlightColor.G
		diff.Pix[offset+2] = c.policy.HighlightColor.B
		diff.Pix[offset+3] = 255

	case DiffModeMovement:
		highlight := c.policy.HighlightColor
		if direction, found := c.findShiftDirection(reference, diff, x, y, offset); found {
			highlight = direction
		}
		blendOver(diff, offset, highlight, c.policy.HighlightTransparency)

	default: // DiffModeOverlay
		blendOver(diff, offset, c.policy.HighlightColor, c.policy.HighlightTransparency)
	}
}

// movement tints encode the dominant axis of the detected shift.
var (
	horizontalShiftTint = color.RGBA{G: 255, A: 255}
	verticalShiftTint   = color.RGBA{B: 255, A: 255}
)

// findShiftDirection searches the reference within MovementRadius for a pixel
// matching the candidate pixel at (x, y). A hit means the divergent content
// appears shifted rather than changed, and the returned tint encodes the
// dominant shift axis. The nearest match wins.
func (c *Comparator) findShiftDirection(reference *image.NRGBA, diff *image.NRGBA, x int, y int, offset int) (color.RGBA, bool) {
	radius := c.policy.MovementRadius
	if radius <= 0 {
		return color.RGBA{}, false
	}

	cr := diff.Pix[offset]
	cg := diff.Pix[offset+1]
	cb := diff.Pix[offset+2]
	ca := diff.Pix[offset+3]

	bounds := reference.Bounds()

	bestDistance := -1
	var bestDX, bestDY int

	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx := x + dx
			ny := y + dy
			if nx < bounds.Min.X || nx >= bounds.Max.X || ny < bounds.Min.Y || ny >= bounds.Max.Y {
				continue
			}

			o := reference.PixOffset(nx, ny)
			if !c.pixelsMatch(reference.Pix[o], reference.Pix[o+1], reference.Pix[o+2], reference.Pix[o+3], cr, cg, cb, ca) {
				continue
			}

			distance := dx*dx + dy*dy
			if bestDistance < 0 || distance < bestDistance {
				bestDistance = distance
				bestDX = dx
				bestDY = dy
			}
		}
	}

	if bestDistance < 0 {
		return color.RGBA{}, false
	}
	if abs(bestDX) >= abs(bestDY) {
		return horizontalShiftTint, true
	}
	return verticalShiftTint, true
}

func blendOver(diff *image.NRGBA, offset int, highlight color.RGBA, transparency float64) {
	if transparency < 0 {
		transparency = 0
	} else if transparency > 1 {
		transparency = 1
	}

	diff.Pix[offset] = blendChannel(diff.Pix[offset], highlight.R, transparency)
	diff.Pix[offset+1] = blendChannel(diff.Pix[offset+1], highlight.G, transparency)
	diff.Pix[offset+2] = blendChannel(diff.Pix[offset+2], highlight.B, transparency)
	diff.Pix[offset+3] = 255
}

func blendChannel(base uint8, highlight uint8, transparency float64) uint8 {
	return uint8(float64(highlight)*transparency + float64(base)*(1-transparency) + 0.5)
}
