package overlaypal

import (
	"image"

	"github.com/bodgit/overlaypal/grid"
	"github.com/bodgit/overlaypal/palette"
)

// Sprite is a block of overlay pixels drawn with one sprite palette.
type Sprite struct {
	X      int
	Y      int
	Width  int
	Height int

	// Palette is the index into the sprite palette pool, or
	// grid.EmptyIndex for a sprite without content.
	Palette uint8

	// Pix holds the original colour indices row by row, blank pixels hold
	// the background colour.
	Pix []uint8
}

// Bounds returns the pixel rectangle covered by the sprite.
func (s Sprite) Bounds() image.Rectangle {
	return image.Rect(s.X, s.Y, s.X+s.Width, s.Y+s.Height)
}

// ColorIndexAt returns the colour at (x, y) relative to the sprite origin.
func (s Sprite) ColorIndexAt(x, y int) uint8 {
	return s.Pix[y*s.Width+x]
}

func (s Sprite) blankColumn(x int, bg uint8) bool {
	for y := 0; y < s.Height; y++ {
		if s.ColorIndexAt(x, y) != bg {
			return false
		}
	}
	return true
}

// BlankLeft returns the number of blank columns on the left edge.
func (s Sprite) BlankLeft(bg uint8) int {
	n := 0
	for n < s.Width && s.blankColumn(n, bg) {
		n++
	}
	return n
}

// BlankRight returns the number of blank columns on the right edge.
func (s Sprite) BlankRight(bg uint8) int {
	n := 0
	for n < s.Width && s.blankColumn(s.Width-1-n, bg) {
		n++
	}
	return n
}

// Trim removes blank columns from both edges, moving the origin to match. A
// blank sprite trims to zero width.
func (s Sprite) Trim(bg uint8) Sprite {
	left := s.BlankLeft(bg)
	if left == s.Width {
		s.Width, s.Pix = 0, nil
		return s
	}
	right := s.BlankRight(bg)
	if left == 0 && right == 0 {
		return s
	}

	w := s.Width - left - right
	pix := make([]uint8, 0, w*s.Height)
	for y := 0; y < s.Height; y++ {
		row := s.Pix[y*s.Width : (y+1)*s.Width]
		pix = append(pix, row[left:left+w]...)
	}

	s.X += left
	s.Width = w
	s.Pix = pix
	return s
}

// Picks the palette for a block of pixels. Palettes holding every colour
// win, then the most pixels covered, then the fewest unused slots, then the
// lowest index.
func bestPalette(pool palette.Palettes, colors palette.Set, counts map[uint8]int) int {
	best := -1
	var bestFull bool
	var bestCovered, bestWasted int
	for i, p := range pool {
		used := p.Intersect(colors)
		if used.Empty() {
			continue
		}
		full := colors.SubsetOf(p)
		covered := 0
		for _, c := range used.Colors() {
			covered += counts[c]
		}
		wasted := p.Len() - used.Len()

		switch {
		case best < 0:
		case full != bestFull:
			if !full {
				continue
			}
		case covered != bestCovered:
			if covered < bestCovered {
				continue
			}
		case wasted >= bestWasted:
			continue
		}
		best, bestFull, bestCovered, bestWasted = i, full, covered, wasted
	}
	return best
}

// ExtractSprite cuts a sprite of up to w by h pixels at (x, y) out of the
// overlay image using the best fitting palette of pool. Only pixels the
// palette can represent are taken. With removePixels those pixels are
// cleared from overlay and the sprite is trimmed. A sprite with no content
// has zero width.
func ExtractSprite(overlay *image.Paletted, x, y, w, h int, pool palette.Palettes, bg uint8, removePixels bool) Sprite {
	r := image.Rect(x, y, x+w, y+h).Intersect(overlay.Bounds())
	s := Sprite{
		X:       r.Min.X,
		Y:       r.Min.Y,
		Palette: grid.EmptyIndex,
	}
	if r.Empty() {
		return s
	}

	var colors palette.Set
	counts := make(map[uint8]int)
	for py := r.Min.Y; py < r.Max.Y; py++ {
		for px := r.Min.X; px < r.Max.X; px++ {
			if c := overlay.ColorIndexAt(px, py); c != bg {
				colors.Add(c)
				counts[c]++
			}
		}
	}

	best := bestPalette(pool, colors, counts)
	if best < 0 {
		return s
	}

	s.Width, s.Height = r.Dx(), r.Dy()
	s.Palette = uint8(best)
	s.Pix = make([]uint8, 0, s.Width*s.Height)
	for py := r.Min.Y; py < r.Max.Y; py++ {
		for px := r.Min.X; px < r.Max.X; px++ {
			c := overlay.ColorIndexAt(px, py)
			if c == bg || !pool[best].Has(c) {
				s.Pix = append(s.Pix, bg)
				continue
			}
			s.Pix = append(s.Pix, c)
			if removePixels {
				overlay.SetColorIndex(px, py, bg)
			}
		}
	}

	if removePixels {
		s = s.Trim(bg)
	}
	return s
}

func clone(m *image.Paletted) *image.Paletted {
	dup := *m
	dup.Pix = append([]uint8(nil), m.Pix...)
	return &dup
}

// SpritesGrid covers the overlay with sprites aligned to the cells of
// layer, stacking sprites on a position until every pixel that any palette
// can represent is taken.
func SpritesGrid(overlay *image.Paletted, layer *grid.Layer, pool palette.Palettes, spriteHeight int, bg uint8) []Sprite {
	work := clone(overlay)
	var sprites []Sprite
	for row := 0; row < layer.Rows; row++ {
		for col := 0; col < layer.Cols; col++ {
			if !layer.Active(col, row) {
				continue
			}
			r := layer.Cell(col, row)
			for y := r.Min.Y; y < r.Max.Y; y += spriteHeight {
				for x := r.Min.X; x < r.Max.X; x += SpriteWidth {
					w, h := SpriteWidth, spriteHeight
					if x+w > r.Max.X {
						w = r.Max.X - x
					}
					if y+h > r.Max.Y {
						h = r.Max.Y - y
					}
					for {
						s := ExtractSprite(work, x, y, w, h, pool, bg, true)
						if s.Width == 0 {
							break
						}
						sprites = append(sprites, s)
					}
				}
			}
		}
	}
	return sprites
}

// SpritesFree covers the overlay with freely placed sprites. Scanning top
// to bottom and left to right, each sprite is anchored at the first pixel
// not yet taken. Pixels no palette can represent are skipped.
func SpritesFree(overlay *image.Paletted, pool palette.Palettes, spriteHeight int, bg uint8) []Sprite {
	work := clone(overlay)
	b := work.Bounds()
	var sprites []Sprite
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			for work.ColorIndexAt(x, y) != bg {
				s := ExtractSprite(work, x, y, SpriteWidth, spriteHeight, pool, bg, true)
				if s.Width == 0 {
					work.SetColorIndex(x, y, bg)
					break
				}
				sprites = append(sprites, s)
			}
		}
	}
	return sprites
}

// MaxSpritesPerScanline returns the largest number of sprites sharing a
// scanline.
func MaxSpritesPerScanline(sprites []Sprite) int {
	counts := make(map[int]int)
	max := 0
	for _, s := range sprites {
		if s.Width == 0 {
			continue
		}
		for y := s.Y; y < s.Y+s.Height; y++ {
			counts[y]++
			if counts[y] > max {
				max = counts[y]
			}
		}
	}
	return max
}
