package preprocess

import "image"

// medianFilter replaces each pixel with the median of its (2r+1)² window.
// Windows are clamped at the edges. It removes salt-and-pepper speckle while
// keeping stroke edges.
func medianFilter(in *image.Gray, radius int) (*image.Gray, error) {
	if radius <= 0 || isUniform(in) {
		return nil, errNoChange
	}
	b := in.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(b)

	var hist [256]int
	for y := 0; y < h; y++ {
		y0, y1 := clampInt(y-radius, 0, h-1), clampInt(y+radius, 0, h-1)

		// Sliding histogram along the row.
		hist = [256]int{}
		count := 0
		x1 := clampInt(radius, 0, w-1)
		for yy := y0; yy <= y1; yy++ {
			for xx := 0; xx <= x1; xx++ {
				hist[in.Pix[yy*in.Stride+xx]]++
				count++
			}
		}

		for x := 0; x < w; x++ {
			out.Pix[y*out.Stride+x] = medianOf(&hist, count)

			// Slide right: drop column x-radius, add column x+radius+1.
			drop := x - radius
			add := x + radius + 1
			if drop >= 0 {
				for yy := y0; yy <= y1; yy++ {
					hist[in.Pix[yy*in.Stride+drop]]--
					count--
				}
			}
			if add < w {
				for yy := y0; yy <= y1; yy++ {
					hist[in.Pix[yy*in.Stride+add]]++
					count++
				}
			}
		}
	}
	return out, nil
}

func medianOf(hist *[256]int, count int) uint8 {
	half := count / 2
	seen := 0
	for v := 0; v < 256; v++ {
		seen += hist[v]
		if seen > half {
			return uint8(v)
		}
	}
	return 255
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
