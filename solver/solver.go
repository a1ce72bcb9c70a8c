/*
Package solver formulates palette assignment as a constraint problem and
hands it to a solver.

A Problem is derived from a grid.Layer plus the hardware limits and is
serialized as a CMPL data file. Any Solver speaking the same Problem and
Solution contract can be substituted; CMPL drives the external cmpl binary,
Cache memoizes solutions in a sqlite database and FirstFit is an in-process
heuristic.
*/
package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bodgit/overlaypal/grid"
	"github.com/bodgit/overlaypal/palette"
)

var (
	// ErrInfeasible is returned when no assignment satisfies every
	// constraint within the time budget.
	ErrInfeasible = errors.New("solver: infeasible")

	// ErrConfig is returned when the solver executable, its programs or the
	// work directory cannot be used.
	ErrConfig = errors.New("solver: configuration error")
)

// Pass identifies which of the two conversion passes a problem belongs to.
type Pass int

// The two passes of a conversion.
const (
	FirstPass Pass = iota + 1
	SecondPass
)

func (p Pass) String() string {
	switch p {
	case FirstPass:
		return "first pass"
	case SecondPass:
		return "second pass"
	default:
		return fmt.Sprintf("pass %d", int(p))
	}
}

// Problem is one palette assignment problem instance.
type Problem struct {
	Pass Pass

	// Cells holds the colours needed by every cell of the image.
	Cells *grid.Layer

	// ColorLimit is the number of colours a background palette may hold.
	ColorLimit int

	MaxBackgroundPalettes int
	MaxSpritePalettes     int

	// MaxRowSize bounds the number of sprites on any scanline and
	// SpritesPerCell is how many sprites one overlay cell needs per
	// scanline.
	MaxRowSize     int
	SpritesPerCell int

	// FixedBackground lists colours each background palette must keep.
	FixedBackground palette.Palettes

	// Timeout of zero or less waits for the solver indefinitely.
	Timeout time.Duration
}

// Solver solves a Problem. It returns an error wrapping ErrInfeasible if the
// problem has no acceptable solution.
type Solver interface {
	Solve(ctx context.Context, p *Problem) (*Solution, error)
}

// Solution is a decoded palette assignment.
type Solution struct {
	BackgroundPalettes palette.Palettes
	SpritePalettes     palette.Palettes

	// BackgroundIndices and SpriteIndices hold the palette chosen per cell,
	// or grid.EmptyIndex.
	BackgroundIndices *grid.Indices
	SpriteIndices     *grid.Indices

	// Overlay holds the colours of each cell that the background does not
	// cover.
	Overlay *grid.Layer
}

func newSolution(p *Problem) *Solution {
	return &Solution{
		BackgroundPalettes: make(palette.Palettes, 0, p.MaxBackgroundPalettes),
		SpritePalettes:     make(palette.Palettes, 0, p.MaxSpritePalettes),
		BackgroundIndices:  grid.NewIndices(p.Cells.Cols, p.Cells.Rows),
		SpriteIndices:      grid.NewIndices(p.Cells.Cols, p.Cells.Rows),
		Overlay:            p.Cells.Empty(),
	}
}

// Background returns the colours of each cell covered by the background.
func (s *Solution) Background(p *Problem) *grid.Layer {
	return p.Cells.Subtract(s.Overlay)
}
