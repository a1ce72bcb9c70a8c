package overlaypal

import (
	"image"
	"image/color"

	"github.com/bodgit/overlaypal/chr"
	"github.com/bodgit/overlaypal/grid"
	"github.com/bodgit/overlaypal/palette"
)

// RemapColors replaces every pixel of m with its slot in the palette
// assigned to its cell. Cells marked grid.EmptyIndex and colours a palette
// cannot represent map to slot 0.
func RemapColors(m *image.Paletted, layer *grid.Layer, pool palette.Palettes, indices *grid.Indices, bg uint8) *image.Paletted {
	b := m.Bounds()
	out := image.NewPaletted(b, chr.Palette)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			col, row := layer.CellAt(x, y)
			i := indices.At(col, row)
			if i == grid.EmptyIndex || int(i) >= len(pool) {
				continue
			}
			slot, _ := palette.IndexInPalette(pool[i], m.ColorIndexAt(x, y), bg)
			out.SetColorIndex(x, y, slot)
		}
	}
	return out
}

// RemapSprite returns the pixels of s as slots of its sprite palette.
func RemapSprite(s Sprite, pool palette.Palettes, bg uint8) *image.Paletted {
	out := image.NewPaletted(image.Rect(0, 0, s.Width, s.Height), chr.Palette)
	if s.Palette == grid.EmptyIndex || int(s.Palette) >= len(pool) {
		return out
	}
	for i, c := range s.Pix {
		out.Pix[i], _ = palette.IndexInPalette(pool[s.Palette], c, bg)
	}
	return out
}

func fill(m *image.Paletted, c uint8) {
	for i := range m.Pix {
		m.Pix[i] = c
	}
}

// Draws the non-blank pixels of each sprite, later sprites on top
func drawSprites(dst *image.Paletted, sprites []Sprite, bg uint8) {
	for _, s := range sprites {
		for y := 0; y < s.Height; y++ {
			for x := 0; x < s.Width; x++ {
				if c := s.ColorIndexAt(x, y); c != bg {
					dst.SetColorIndex(s.X+x, s.Y+y, c)
				}
			}
		}
	}
}

// RenderSprites returns an image showing only the sprites over the
// background colour.
func RenderSprites(bounds image.Rectangle, p color.Palette, sprites []Sprite, bg uint8) *image.Paletted {
	out := image.NewPaletted(bounds, p)
	fill(out, bg)
	drawSprites(out, sprites, bg)
	return out
}

// Combine returns a copy of background with the sprites drawn on top.
func Combine(background *image.Paletted, sprites []Sprite, bg uint8) *image.Paletted {
	out := clone(background)
	drawSprites(out, sprites, bg)
	return out
}
