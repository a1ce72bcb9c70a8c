package overlaypal

import (
	"bytes"
	"context"
	"errors"
	"image"

	"github.com/bodgit/overlaypal/grid"
	"github.com/bodgit/overlaypal/palette"
	"github.com/bodgit/overlaypal/solver"
	pkgerrors "github.com/pkg/errors"
)

// Result is the outcome of a conversion. When ConversionSuccessful reports
// false the images, palettes and sprites are kept for diagnosis only.
type Result struct {
	Params Params

	// States lists every state the conversion passed through.
	States []State

	// Background holds the pixels drawn by background cells, Overlay the
	// pixels left for sprites.
	Background *image.Paletted
	Overlay    *image.Paletted

	// OverlayGrid and OverlayFree render the grid aligned and freely placed
	// sprites, Output the background with the final sprites on top.
	OverlayGrid *image.Paletted
	OverlayFree *image.Paletted
	Output      *image.Paletted

	BackgroundPalettes palette.Palettes
	SpritePalettes     palette.Palettes

	LayerBackground *grid.Layer
	LayerOverlay    *grid.Layer

	BackgroundIndices *grid.Indices
	OverlayIndices    *grid.Indices

	SpritesGrid []Sprite
	SpritesFree []Sprite
	Sprites     []Sprite
}

// ConversionSuccessful reports whether every layer is usable.
func (r *Result) ConversionSuccessful() bool {
	return len(r.States) > 0 && r.States[len(r.States)-1] == StateConsistent
}

// Palettes returns the background palettes followed by the sprite palettes,
// each pool padded to its hardware size.
func (r *Result) Palettes() palette.Palettes {
	p := r.BackgroundPalettes.Clone().Fill(NumBackgroundPalettes)
	return append(p, r.SpritePalettes.Clone().Fill(NumSpritePalettes)...)
}

// MaxSpritesPerScanline returns the largest number of final sprites sharing
// a scanline.
func (r *Result) MaxSpritesPerScanline() int {
	return MaxSpritesPerScanline(r.Sprites)
}

// RemappedBackground returns the background as palette slots.
func (r *Result) RemappedBackground() *image.Paletted {
	return RemapColors(r.Background, r.LayerBackground, r.BackgroundPalettes, r.BackgroundIndices, r.Params.BackgroundColor)
}

// RemappedSprites returns each final sprite as palette slots.
func (r *Result) RemappedSprites() []*image.Paletted {
	out := make([]*image.Paletted, len(r.Sprites))
	for i, s := range r.Sprites {
		out[i] = RemapSprite(s, r.SpritePalettes, r.Params.BackgroundColor)
	}
	return out
}

type conversion struct {
	*Converter

	image  *image.Paletted
	params Params
	layer  *grid.Layer

	background        *grid.Layer
	overlay           *grid.Layer
	bgPalettes        palette.Palettes
	spritePalettes    palette.Palettes
	backgroundIndices *grid.Indices
	overlayIndices    *grid.Indices

	// Set by the retry, the second pass may then use no background palettes
	noBackground bool

	spritesGrid []Sprite
	spritesFree []Sprite
	sprites     []Sprite
}

func (c *conversion) problem(pass solver.Pass) *solver.Problem {
	p := &solver.Problem{
		Pass:                  pass,
		Cells:                 c.layer,
		ColorLimit:            c.params.CellColorLimit,
		MaxBackgroundPalettes: c.params.MaxBackgroundPalettes,
		MaxSpritePalettes:     c.params.MaxSpritePalettes,
		MaxRowSize:            c.params.MaxSpritesPerScanline,
		SpritesPerCell:        c.params.spritesPerCell(),
		Timeout:               c.params.Timeout,
	}
	switch {
	case c.noBackground:
		p.MaxBackgroundPalettes = 0
	case pass == solver.SecondPass:
		p.FixedBackground = c.bgPalettes.Clone()
	}
	return p
}

// consistentLayers checks that every colour of every active cell of layer is
// held by the palette assigned to that cell.
func consistentLayers(m *image.Paletted, layer *grid.Layer, pool palette.Palettes, indices *grid.Indices, bg uint8) bool {
	b := m.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			col, row := layer.CellAt(x, y)
			c := m.ColorIndexAt(x, y)
			if c == bg || !layer.Colors(col, row).Has(c) {
				continue
			}
			i := indices.At(col, row)
			if i == grid.EmptyIndex || int(i) >= len(pool) {
				return false
			}
			if _, ok := palette.IndexInPalette(pool[i], c, bg); !ok {
				return false
			}
		}
	}
	return true
}

// Every colour of the image must be in one of the two layers
func (c *conversion) covered() bool {
	for row := 0; row < c.layer.Rows; row++ {
		for col := 0; col < c.layer.Cols; col++ {
			both := c.background.Colors(col, row).Union(c.overlay.Colors(col, row))
			if !c.layer.Colors(col, row).SubsetOf(both) {
				return false
			}
		}
	}
	return true
}

// A cell needing more colours than a background and a sprite palette hold
// together can never be converted
func (c *conversion) overCapacity() bool {
	limit := c.params.CellColorLimit
	if c.params.MaxBackgroundPalettes == 0 {
		limit = 0
	}
	var ce *grid.CapacityError
	if err := c.layer.CheckCapacity(limit); !errors.As(err, &ce) {
		return false
	}
	c.logger.Printf("%d cell(s) exceed %d colors and need the overlay\n", len(ce.Cells), limit)
	for _, p := range ce.Cells {
		if n := c.layer.Colors(p.X, p.Y).Len(); n > limit+palette.Capacity {
			c.logger.Printf("Cell %v needs %d colors\n", p, n)
			return true
		}
	}
	return false
}

func (c *conversion) backgroundSolve(ctx context.Context) (State, error) {
	if c.overCapacity() {
		return StateFailed, nil
	}

	p := c.problem(solver.FirstPass)
	s, err := c.solver.Solve(ctx, p)
	switch {
	case errors.Is(err, solver.ErrInfeasible):
		c.logger.Printf("First pass: %v\n", err)
		return StateNoBackgroundRetry, nil
	case err != nil:
		return StateFailed, err
	}

	c.background = s.Background(p)
	c.overlay = s.Overlay
	c.bgPalettes = s.BackgroundPalettes
	c.backgroundIndices = s.BackgroundIndices
	c.backgroundIndices.SetEmpty(c.background, grid.EmptyIndex)

	if !c.covered() || !consistentLayers(c.image, c.background, c.bgPalettes, c.backgroundIndices, c.params.BackgroundColor) {
		return StateFailed, pkgerrors.Wrap(ErrInconsistent, solver.FirstPass.String())
	}

	return StateOverlaySolve, nil
}

// Puts every cell in the overlay, leaving a background of only the
// background colour. It fails if some cell or row could never
// be covered by sprites.
func (c *conversion) noBackgroundRetry(ctx context.Context) (State, error) {
	c.background = c.layer.Empty()
	c.overlay = c.layer.Clone()
	c.bgPalettes = nil
	c.backgroundIndices = grid.NewIndices(c.layer.Cols, c.layer.Rows)
	c.noBackground = true

	if err := c.overlay.CheckCapacity(palette.Capacity); err != nil {
		c.logger.Printf("No background: %v\n", err)
		return StateFailed, nil
	}
	for row := 0; row < c.overlay.Rows; row++ {
		if n := c.overlay.ActiveInRow(row) * c.params.spritesPerCell(); n > c.params.MaxSpritesPerScanline {
			c.logger.Printf("No background: row %d needs %d sprites per scanline\n", row, n)
			return StateFailed, nil
		}
	}

	return StateOverlaySolve, nil
}

func (c *conversion) overlaySolve(ctx context.Context) (State, error) {
	p := c.problem(solver.SecondPass)
	s, err := c.solver.Solve(ctx, p)
	switch {
	case errors.Is(err, solver.ErrInfeasible):
		c.logger.Printf("Second pass: %v\n", err)
		return StateFailed, nil
	case err != nil:
		return StateFailed, err
	}

	c.background = s.Background(p)
	c.overlay = s.Overlay
	c.bgPalettes = s.BackgroundPalettes
	c.spritePalettes = s.SpritePalettes
	c.backgroundIndices = s.BackgroundIndices
	c.backgroundIndices.SetEmpty(c.background, grid.EmptyIndex)
	c.overlayIndices = s.SpriteIndices
	c.overlayIndices.SetEmpty(c.overlay, grid.EmptyIndex)

	bg := c.params.BackgroundColor
	if c.noBackground && c.background.ActiveCells() > 0 {
		return StateFailed, pkgerrors.Wrap(ErrInconsistent, "background after no background retry")
	}
	if !c.covered() ||
		!consistentLayers(c.image, c.background, c.bgPalettes, c.backgroundIndices, bg) ||
		!consistentLayers(c.image, c.overlay, c.spritePalettes, c.overlayIndices, bg) {
		return StateFailed, pkgerrors.Wrap(ErrInconsistent, solver.SecondPass.String())
	}

	overlay := c.overlay.Mask(c.image, bg)
	c.spritesGrid = SpritesGrid(overlay, c.overlay, c.spritePalettes, c.params.SpriteHeight, bg)
	c.spritesFree = SpritesFree(overlay, c.spritePalettes, c.params.SpriteHeight, bg)

	merged, free := OptimizeHorizontallyAdjacentSprites(c.spritesGrid), OptimizeHorizontallyAdjacentSprites(c.spritesFree)
	c.sprites = merged
	if n, m := MaxSpritesPerScanline(free), MaxSpritesPerScanline(merged); n < m || n == m && len(free) < len(merged) {
		c.sprites = free
	}

	if !bytes.Equal(RenderSprites(overlay.Bounds(), overlay.Palette, c.sprites, bg).Pix, overlay.Pix) {
		c.logger.Printf("Sprites do not cover the overlay\n")
		return StateFailed, nil
	}

	if n := MaxSpritesPerScanline(c.sprites); n > c.params.MaxSpritesPerScanline {
		c.logger.Printf("%d sprites on a scanline, limit %d\n", n, c.params.MaxSpritesPerScanline)
		return StateFailed, nil
	}

	return StateConsistent, nil
}

func (c *conversion) step(ctx context.Context, s State) (State, error) {
	switch s {
	case StateBackgroundSolve:
		return c.backgroundSolve(ctx)
	case StateNoBackgroundRetry:
		return c.noBackgroundRetry(ctx)
	case StateOverlaySolve:
		return c.overlaySolve(ctx)
	default:
		return StateFailed, nil
	}
}

func (c *conversion) result(states []State) *Result {
	bg := c.params.BackgroundColor
	r := &Result{
		Params:             c.params,
		States:             states,
		Background:         c.background.Mask(c.image, bg),
		Overlay:            c.overlay.Mask(c.image, bg),
		BackgroundPalettes: c.bgPalettes,
		SpritePalettes:     c.spritePalettes,
		LayerBackground:    c.background,
		LayerOverlay:       c.overlay,
		BackgroundIndices:  c.backgroundIndices,
		OverlayIndices:     c.overlayIndices,
		SpritesGrid:        c.spritesGrid,
		SpritesFree:        c.spritesFree,
		Sprites:            c.sprites,
	}
	r.OverlayGrid = RenderSprites(r.Overlay.Bounds(), r.Overlay.Palette, c.spritesGrid, bg)
	r.OverlayFree = RenderSprites(r.Overlay.Bounds(), r.Overlay.Palette, c.spritesFree, bg)
	r.Output = Combine(r.Background, c.sprites, bg)
	return r
}

// Convert converts m. Infeasible images are reported through
// Result.ConversionSuccessful, an error is only returned for configuration,
// parse or consistency failures which no image can cause.
func (c *Converter) Convert(ctx context.Context, m *image.Paletted, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	layer := grid.New(m, p.CellWidth, p.CellHeight, p.BackgroundColor)
	conv := &conversion{
		Converter:         c,
		image:             m,
		params:            p,
		layer:             layer,
		background:        layer.Empty(),
		overlay:           layer.Clone(),
		bgPalettes:        make(palette.Palettes, 0, p.MaxBackgroundPalettes).Fill(p.MaxBackgroundPalettes),
		spritePalettes:    make(palette.Palettes, 0, p.MaxSpritePalettes).Fill(p.MaxSpritePalettes),
		backgroundIndices: grid.NewIndices(layer.Cols, layer.Rows),
		overlayIndices:    grid.NewIndices(layer.Cols, layer.Rows),
	}

	state := StateBackgroundSolve
	states := []State{state}
	for !state.Terminal() {
		next, err := conv.step(ctx, state)
		if err != nil {
			return nil, err
		}
		c.logger.Printf("%s -> %s\n", state, next)
		state = next
		states = append(states, state)
	}

	return conv.result(states), nil
}
