package preprocess

import (
	"image"
	"math"
)

// sauvolaRange is the dynamic range of the standard deviation for 8-bit input.
const sauvolaRange = 128.0

// binarize maps every pixel to 0 or 255. It uses a Sauvola local threshold
// T = m * (1 + k*(s/R - 1)) over a window, computed from integral images, and
// falls back to a global Otsu threshold when the window does not fit.
func binarize(in *image.Gray, window int, k float64) (*image.Gray, string, error) {
	if isUniform(in) {
		return nil, "", errNoChange
	}
	b := in.Bounds()
	w, h := b.Dx(), b.Dy()
	if window%2 == 0 {
		window++
	}
	if window > w || window > h {
		t := otsuThreshold(histogram(in), w*h)
		return thresholdGlobal(in, t), "otsu", nil
	}

	sum, sq := integralImages(in)
	stride := w + 1
	r := window / 2
	out := image.NewGray(b)
	for y := 0; y < h; y++ {
		y0, y1 := clampInt(y-r, 0, h-1), clampInt(y+r, 0, h-1)
		for x := 0; x < w; x++ {
			x0, x1 := clampInt(x-r, 0, w-1), clampInt(x+r, 0, w-1)
			n := float64((x1 - x0 + 1) * (y1 - y0 + 1))

			a, bb, c, d := y0*stride+x0, y0*stride+x1+1, (y1+1)*stride+x0, (y1+1)*stride+x1+1
			s := sum[d] - sum[bb] - sum[c] + sum[a]
			s2 := sq[d] - sq[bb] - sq[c] + sq[a]

			mean := s / n
			variance := s2/n - mean*mean
			if variance < 0 {
				variance = 0
			}
			t := mean * (1 + k*(math.Sqrt(variance)/sauvolaRange-1))

			if float64(in.Pix[y*in.Stride+x]) <= t {
				out.Pix[y*out.Stride+x] = 0
			} else {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out, "sauvola", nil
}

// integralImages returns summed-area tables of values and squared values,
// each (w+1)*(h+1) with a zero first row and column.
func integralImages(in *image.Gray) ([]float64, []float64) {
	b := in.Bounds()
	w, h := b.Dx(), b.Dy()
	stride := w + 1
	sum := make([]float64, stride*(h+1))
	sq := make([]float64, stride*(h+1))
	for y := 0; y < h; y++ {
		var rowSum, rowSq float64
		for x := 0; x < w; x++ {
			v := float64(in.Pix[y*in.Stride+x])
			rowSum += v
			rowSq += v * v
			sum[(y+1)*stride+x+1] = sum[y*stride+x+1] + rowSum
			sq[(y+1)*stride+x+1] = sq[y*stride+x+1] + rowSq
		}
	}
	return sum, sq
}

// otsuThreshold returns the intensity that maximizes between-class variance.
func otsuThreshold(hist [256]int, totalPixels int) uint8 {
	if totalPixels == 0 {
		return darkThreshold
	}

	var totalMean float64
	for i := range 256 {
		totalMean += float64(i) * float64(hist[i])
	}

	var maxVariance, sumB float64
	best := 0
	wB := 0
	for t := range 256 {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := totalPixels - wB
		if wF == 0 {
			break
		}

		sumB += float64(t) * float64(hist[t])
		meanB := sumB / float64(wB)
		meanF := (totalMean - sumB) / float64(wF)

		variance := float64(wB) * float64(wF) * (meanB - meanF) * (meanB - meanF)
		if variance > maxVariance {
			maxVariance = variance
			best = t
		}
	}
	return uint8(best)
}

func thresholdGlobal(in *image.Gray, t uint8) *image.Gray {
	out := image.NewGray(in.Bounds())
	for i, v := range in.Pix {
		if v <= t {
			out.Pix[i] = 0
		} else {
			out.Pix[i] = 255
		}
	}
	return out
}
