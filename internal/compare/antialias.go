package compare

import "image"

// looksAntialiased reports whether the divergence at (x, y) is consistent with
// anti-aliased edge smoothing rather than a structural change: one image's
// pixel falls inside the per-channel color envelope spanned by the 3x3
// neighborhood around the same position in the other image. The check runs in
// both directions because either renderer may be the one smoothing the edge.
func looksAntialiased(a *image.NRGBA, b *image.NRGBA, x int, y int) bool {
	return withinNeighborhoodEnvelope(b, a, x, y) || withinNeighborhoodEnvelope(a, b, x, y)
}

func withinNeighborhoodEnvelope(src *image.NRGBA, neighborhood *image.NRGBA, x int, y int) bool {
	offset := src.PixOffset(x, y)
	r := src.Pix[offset]
	g := src.Pix[offset+1]
	b := src.Pix[offset+2]

	bounds := neighborhood.Bounds()

	var minR, minG, minB uint8 = 255, 255, 255
	var maxR, maxG, maxB uint8 = 0, 0, 0

	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			nx := x + dx
			ny := y + dy
			if nx < bounds.Min.X || nx >= bounds.Max.X || ny < bounds.Min.Y || ny >= bounds.Max.Y {
				continue
			}

			o := neighborhood.PixOffset(nx, ny)
			minR = minU8(minR, neighborhood.Pix[o])
			maxR = maxU8(maxR, neighborhood.Pix[o])
			minG = minU8(minG, neighborhood.Pix[o+1])
			maxG = maxU8(maxG, neighborhood.Pix[o+1])
			minB = minU8(minB, neighborhood.Pix[o+2])
			maxB = maxU8(maxB, neighborhood.Pix[o+2])
		}
	}

	return r >= minR && r <= maxR &&
		g >= minG && g <= maxG &&
		b >= minB && b <= maxB
}

func minU8(l uint8, r uint8) uint8 {
	if l < r {
		return l
	}
	return r
}

func maxU8(l uint8, r uint8) uint8 {
	if l > r {
		return l
	}
	return r
}
