package preprocess

import (
	"image"
	"math"
)

// equalize spreads intensities over the full range with the cumulative
// histogram.
func equalize(in *image.Gray) (*image.Gray, error) {
	hist := histogram(in)
	total := len(in.Pix)

	var cdf [256]int
	running, cdfMin := 0, 0
	for v := 0; v < 256; v++ {
		running += hist[v]
		cdf[v] = running
		if cdfMin == 0 && running > 0 {
			cdfMin = running
		}
	}
	if total == 0 || total == cdfMin {
		return nil, errNoChange
	}

	var lut [256]uint8
	changed := false
	for v := 0; v < 256; v++ {
		if hist[v] == 0 {
			continue
		}
		mapped := math.Round(float64(cdf[v]-cdfMin) / float64(total-cdfMin) * 255)
		lut[v] = uint8(mapped)
		changed = changed || lut[v] != uint8(v)
	}
	if !changed {
		return nil, errNoChange
	}

	out := image.NewGray(in.Bounds())
	for i, v := range in.Pix {
		out.Pix[i] = lut[v]
	}
	return out, nil
}
