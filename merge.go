package overlaypal

import "sort"

// AdjacentSlices groups sprites into maximal runs sharing rows and a palette
// whose x ranges touch without a gap. Slices are ordered by row then palette,
// the sprites within them left to right. Sprites without content are
// dropped.
func AdjacentSlices(sprites []Sprite) [][]Sprite {
	sorted := make([]Sprite, 0, len(sprites))
	for _, s := range sprites {
		if s.Width > 0 {
			sorted = append(sorted, s)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		switch {
		case a.Y != b.Y:
			return a.Y < b.Y
		case a.Height != b.Height:
			return a.Height < b.Height
		case a.Palette != b.Palette:
			return a.Palette < b.Palette
		default:
			return a.X < b.X
		}
	})

	var slices [][]Sprite
	for _, s := range sorted {
		if n := len(slices); n > 0 {
			last := slices[n-1][len(slices[n-1])-1]
			if last.Y == s.Y && last.Height == s.Height && last.Palette == s.Palette && last.X+last.Width == s.X {
				slices[n-1] = append(slices[n-1], s)
				continue
			}
		}
		slices = append(slices, []Sprite{s})
	}
	return slices
}

// Joins b onto the right edge of a
func join(a, b Sprite) Sprite {
	pix := make([]uint8, 0, (a.Width+b.Width)*a.Height)
	for y := 0; y < a.Height; y++ {
		pix = append(pix, a.Pix[y*a.Width:(y+1)*a.Width]...)
		pix = append(pix, b.Pix[y*b.Width:(y+1)*b.Width]...)
	}
	return Sprite{
		X:       a.X,
		Y:       a.Y,
		Width:   a.Width + b.Width,
		Height:  a.Height,
		Palette: a.Palette,
		Pix:     pix,
	}
}

// OptimizeHorizontallyAdjacentSprites merges runs of adjacent sprites that
// share a palette into wider sprites, left to right, as long as the merged
// sprite is no wider than SpriteWidth. A sprite that would make the group too
// wide starts a new group. The number of sprites
// on any scanline never increases.
func OptimizeHorizontallyAdjacentSprites(sprites []Sprite) []Sprite {
	var out []Sprite
	for _, slice := range AdjacentSlices(sprites) {
		group := slice[0]
		for _, s := range slice[1:] {
			if s.Palette == group.Palette && group.Width+s.Width <= SpriteWidth {
				group = join(group, s)
				continue
			}
			out = append(out, group)
			group = s
		}
		out = append(out, group)
	}
	return out
}
