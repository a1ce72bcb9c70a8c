package solver

import (
	"context"
	"sort"

	"github.com/bodgit/overlaypal/grid"
	"github.com/bodgit/overlaypal/palette"
	"github.com/pkg/errors"
)

// FirstFit is an in-process heuristic Solver. It packs cell colour sets into
// palettes using first fit decreasing; colours a background palette cannot
// take are moved to the overlay which is then packed into sprite palettes.
// It never proves infeasibility, it only fails to find a packing.
type FirstFit struct{}

type cellColors struct {
	col, row int
	colors   palette.Set
}

type byColorCount []cellColors

func (c byColorCount) Len() int {
	return len(c)
}

func (c byColorCount) Swap(i, j int) {
	c[i], c[j] = c[j], c[i]
}

func (c byColorCount) Less(i, j int) bool {
	return c[i].colors.Len() < c[j].colors.Len()
}

// Cells with the most colours first, ties in row-major order
func sortedCells(l *grid.Layer) []cellColors {
	var cells []cellColors
	for row := 0; row < l.Rows; row++ {
		for col := 0; col < l.Cols; col++ {
			if l.Active(col, row) {
				cells = append(cells, cellColors{col, row, l.Colors(col, row)})
			}
		}
	}
	sort.Stable(sort.Reverse(byColorCount(cells)))
	return cells
}

// Either a palette already holds every colour, or the first palette the
// colours fit into is extended
func firstFit(pool palette.Palettes, s palette.Set, capacity int) int {
	for i, p := range pool {
		if s.SubsetOf(p) {
			return i
		}
	}
	for i, p := range pool {
		if p.Union(s).Len() <= capacity {
			return i
		}
	}
	return -1
}

// Palette sharing the most colours with s, ties to the lowest index
func bestPartial(pool palette.Palettes, s palette.Set) int {
	best, n := 0, -1
	for i, p := range pool {
		if m := p.Intersect(s).Len(); m > n {
			best, n = i, m
		}
	}
	return best
}

func (FirstFit) packBackground(p *Problem, s *Solution) palette.Palettes {
	pool := p.FixedBackground.Clone().Fill(p.MaxBackgroundPalettes)[:p.MaxBackgroundPalettes]

	for _, c := range sortedCells(p.Cells) {
		if len(pool) == 0 {
			s.Overlay.SetColors(c.col, c.row, c.colors)
			continue
		}

		i := firstFit(pool, c.colors, p.ColorLimit)
		if i < 0 {
			i = bestPartial(pool, c.colors)
			for _, color := range c.colors.Difference(pool[i]).Colors() {
				if pool[i].Len() >= p.ColorLimit {
					break
				}
				pool[i].Add(color)
			}
		} else {
			pool[i] = pool[i].Union(c.colors)
		}

		s.Overlay.SetColors(c.col, c.row, c.colors.Difference(pool[i]))
		if !c.colors.Intersect(pool[i]).Empty() {
			s.BackgroundIndices.Set(c.col, c.row, uint8(i))
		}
	}

	return pool
}

func (FirstFit) packSprites(p *Problem, s *Solution) (palette.Palettes, error) {
	pool := make(palette.Palettes, p.MaxSpritePalettes)

	for _, c := range sortedCells(s.Overlay) {
		i := firstFit(pool, c.colors, palette.Capacity)
		if i < 0 {
			return nil, errors.Wrapf(ErrInfeasible, "overlay colors %v of cell [%d,%d] fit no sprite palette", c.colors, c.row, c.col)
		}
		pool[i] = pool[i].Union(c.colors)
		s.SpriteIndices.Set(c.col, c.row, uint8(i))
	}

	for row := 0; row < s.Overlay.Rows; row++ {
		if n := s.Overlay.ActiveInRow(row) * p.SpritesPerCell; n > p.MaxRowSize {
			return nil, errors.Wrapf(ErrInfeasible, "row %d needs %d sprites per scanline, limit %d", row, n, p.MaxRowSize)
		}
	}

	return pool, nil
}

// Solve implements the Solver interface.
func (f FirstFit) Solve(ctx context.Context, p *Problem) (*Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := newSolution(p)
	s.BackgroundPalettes = f.packBackground(p, s)

	sprites, err := f.packSprites(p, s)
	if err != nil {
		return nil, err
	}
	s.SpritePalettes = sprites

	return s, nil
}
