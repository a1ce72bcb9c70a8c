/*
Package overlaypal converts indexed images into the background tiles and
sprites of an old console display.

Each cell of the background grid may use one of a small number of
background palettes. Colours the background cannot represent are moved to
an overlay built from sprites, which have their own palettes and are limited
in number per scanline. Palette assignment is delegated to a solver.Solver in
two passes: the first assigns background palettes, the second solves
background and sprite palettes jointly.
*/
package overlaypal

import (
	"errors"
	"fmt"
	"io/ioutil"
	"log"
	"time"

	"github.com/bodgit/overlaypal/palette"
	"github.com/bodgit/overlaypal/solver"
)

// Hardware limits.
const (
	SpriteWidth           = 8
	PaletteGroupSize      = palette.GroupSize
	NumBackgroundPalettes = 4
	NumSpritePalettes     = 4
)

var (
	// ErrParams is returned for conversion parameters outside the hardware
	// limits.
	ErrParams = errors.New("overlaypal: invalid parameters")

	// ErrInconsistent is returned when a solution does not represent every
	// pixel of the image. It indicates a solver or parser bug rather than a
	// property of the image.
	ErrInconsistent = errors.New("overlaypal: inconsistent layers")
)

// Params are the parameters of a conversion.
type Params struct {
	BackgroundColor uint8

	CellWidth  int
	CellHeight int

	SpriteHeight int

	// CellColorLimit is the number of colours, besides the background
	// colour, a background palette may hold.
	CellColorLimit int

	MaxBackgroundPalettes int
	MaxSpritePalettes     int
	MaxSpritesPerScanline int

	// Timeout is passed to the solver for each pass, zero or less waits
	// indefinitely.
	Timeout time.Duration
}

// DefaultParams returns parameters matching a typical 8-bit console.
func DefaultParams() Params {
	return Params{
		CellWidth:             16,
		CellHeight:            16,
		SpriteHeight:          8,
		CellColorLimit:        palette.Capacity,
		MaxBackgroundPalettes: NumBackgroundPalettes,
		MaxSpritePalettes:     NumSpritePalettes,
		MaxSpritesPerScanline: 8,
	}
}

func checkRange(name string, v, min, max int) error {
	if v < min || v > max {
		return fmt.Errorf("%w: %s %d not in [%d,%d]", ErrParams, name, v, min, max)
	}
	return nil
}

// Validate checks the parameters against the hardware limits.
func (p Params) Validate() error {
	checks := []struct {
		name     string
		v        int
		min, max int
	}{
		{"cell width", p.CellWidth, 1, 256},
		{"cell height", p.CellHeight, 1, 256},
		{"sprite height", p.SpriteHeight, 1, 256},
		{"cell color limit", p.CellColorLimit, 1, palette.Capacity},
		{"background palettes", p.MaxBackgroundPalettes, 0, NumBackgroundPalettes},
		{"sprite palettes", p.MaxSpritePalettes, 1, NumSpritePalettes},
		{"sprites per scanline", p.MaxSpritesPerScanline, 1, 256},
	}
	for _, c := range checks {
		if err := checkRange(c.name, c.v, c.min, c.max); err != nil {
			return err
		}
	}
	return nil
}

// Number of sprites an overlay cell needs on each of its scanlines
func (p Params) spritesPerCell() int {
	return (p.CellWidth + SpriteWidth - 1) / SpriteWidth
}

// Converter runs conversions against a solver.
type Converter struct {
	solver solver.Solver
	logger *log.Logger
}

// New returns a Converter using s to assign palettes. A nil logger
// discards all messages.
func New(s solver.Solver, logger *log.Logger) *Converter {
	if logger == nil {
		logger = log.New(ioutil.Discard, "", 0)
	}
	return &Converter{
		solver: s,
		logger: logger,
	}
}
