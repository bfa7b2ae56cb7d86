package preprocess

import (
	"image"
)

// Edge lines at or above these fractions are treated as border.
const (
	blackBorderRatio = 0.98
	whiteBorderRatio = 0.995
)

// removeBorders trims scanner borders and blank margins from each edge.
// Rows are measured across the surviving columns and vice versa, so trimming
// repeats until no edge changes. It never crops to an empty image: when
// everything looks like border the input is kept.
func removeBorders(in *image.Gray) (*image.Gray, image.Rectangle, error) {
	b := in.Bounds()
	r := b

	isBorder := func(dark, total int) bool {
		ratio := float64(dark) / float64(total)
		return ratio >= blackBorderRatio || 1-ratio >= whiteBorderRatio
	}
	rowBorder := func(y int) bool {
		dark := 0
		for x := r.Min.X; x < r.Max.X; x++ {
			if in.Pix[y*in.Stride+x] < darkThreshold {
				dark++
			}
		}
		return isBorder(dark, r.Dx())
	}
	colBorder := func(x int) bool {
		dark := 0
		for y := r.Min.Y; y < r.Max.Y; y++ {
			if in.Pix[y*in.Stride+x] < darkThreshold {
				dark++
			}
		}
		return isBorder(dark, r.Dy())
	}

	for changed := true; changed; {
		changed = false
		for !r.Empty() && rowBorder(r.Min.Y) {
			r.Min.Y++
			changed = true
		}
		for !r.Empty() && rowBorder(r.Max.Y-1) {
			r.Max.Y--
			changed = true
		}
		for !r.Empty() && colBorder(r.Min.X) {
			r.Min.X++
			changed = true
		}
		for !r.Empty() && colBorder(r.Max.X-1) {
			r.Max.X--
			changed = true
		}
	}

	if r.Empty() || r == b {
		return nil, b, errNoChange
	}

	out := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		start := (r.Min.Y+y)*in.Stride + r.Min.X
		copy(out.Pix[y*out.Stride:], in.Pix[start:start+r.Dx()])
	}
	return out, r, nil
}
