package preprocess

import (
	"image"

	"github.com/disintegration/imaging"
)

// toGray converts img to an 8-bit gray image anchored at the origin.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return cloneGray(g)
	}
	nrgba := imaging.Grayscale(img)
	b := nrgba.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+b.Dx()*4]
		dst := gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()]
		for x := range dst {
			// Grayscale leaves R, G and B equal; alpha is composited on white.
			v, a := uint32(src[x*4]), uint32(src[x*4+3])
			dst[x] = uint8((v*a + 255*(255-a)) / 255)
		}
	}
	return gray
}

func cloneGray(g *image.Gray) *image.Gray {
	b := g.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		start := g.PixOffset(b.Min.X, b.Min.Y+y)
		copy(out.Pix[y*out.Stride:], g.Pix[start:start+b.Dx()])
	}
	return out
}

// histogram counts pixel intensities.
func histogram(g *image.Gray) [256]int {
	var h [256]int
	b := g.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := g.Pix[g.PixOffset(b.Min.X, y) : g.PixOffset(b.Min.X, y)+b.Dx()]
		for _, v := range row {
			h[v]++
		}
	}
	return h
}

// isUniform reports whether every pixel has the same value.
func isUniform(g *image.Gray) bool {
	h := histogram(g)
	levels := 0
	for _, n := range h {
		if n > 0 {
			levels++
		}
	}
	return levels <= 1
}

// darkThreshold splits ink from paper on binarized or clean pages.
const darkThreshold = 128
