package overlaypal

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/ericpauley/go-quantize/quantize"
)

// MaxColors is the largest palette an indexed image may carry.
const MaxColors = 256

// Returns the distinct colours of m in order of first appearance, or false
// if there are more than max
func exactPalette(m image.Image, max int) (color.Palette, bool) {
	b := m.Bounds()
	seen := make(map[color.RGBA]struct{})
	var p color.Palette
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(m.At(x, y)).(color.RGBA)
			if _, ok := seen[c]; ok {
				continue
			}
			if len(p) == max {
				return nil, false
			}
			seen[c] = struct{}{}
			p = append(p, c)
		}
	}
	return p, true
}

// Indexed returns m as a paletted image with at most maxColors colours and
// its top-left corner at (0, 0). Images with too many colours are reduced
// with a median cut quantizer.
func Indexed(m image.Image, maxColors int) *image.Paletted {
	if maxColors <= 0 || maxColors > MaxColors {
		maxColors = MaxColors
	}
	b := m.Bounds()

	pm, _ := m.(*image.Paletted)
	if pm == nil {
		if cp, ok := m.ColorModel().(color.Palette); ok {
			pm = image.NewPaletted(b, cp)
			for y := b.Min.Y; y < b.Max.Y; y++ {
				for x := b.Min.X; x < b.Max.X; x++ {
					pm.Set(x, y, cp.Convert(m.At(x, y)))
				}
			}
		}
	}

	if pm == nil || len(pm.Palette) > maxColors {
		if p, ok := exactPalette(m, maxColors); ok {
			pm = image.NewPaletted(b, p)
		} else {
			q := quantize.MedianCutQuantizer{}
			pm = image.NewPaletted(b, q.Quantize(make(color.Palette, 0, maxColors), m))
		}
		draw.Draw(pm, b, m, b.Min, draw.Src)
	}

	// Adjust image so that top-left corner is at (0, 0)
	if pm.Rect.Min != (image.Point{}) {
		dup := *pm
		dup.Rect = dup.Rect.Sub(dup.Rect.Min)
		pm = &dup
	}

	return pm
}
