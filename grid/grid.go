/*
Package grid partitions an indexed image into fixed-size cells.

A Layer records the set of non-background colours found in each cell. Cells
along the right and bottom edges are clipped to the image so every pixel
belongs to exactly one cell. An Indices table maps each cell to the palette
chosen for it.
*/
package grid

import (
	"fmt"
	"image"

	"github.com/bodgit/overlaypal/palette"
)

// EmptyIndex marks a cell or sprite that has no palette because it has no
// content.
const EmptyIndex uint8 = 0xff

// Layer maps each cell of an image to the colours it needs.
type Layer struct {
	CellWidth  int
	CellHeight int
	Cols       int
	Rows       int

	bounds image.Rectangle
	cells  []palette.Set
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// NewEmpty returns a layer with no colours covering bounds.
func NewEmpty(bounds image.Rectangle, cellWidth, cellHeight int) *Layer {
	if cellWidth <= 0 || cellHeight <= 0 {
		panic(fmt.Sprintf("grid: invalid cell size %dx%d", cellWidth, cellHeight))
	}
	cols, rows := ceilDiv(bounds.Dx(), cellWidth), ceilDiv(bounds.Dy(), cellHeight)
	return &Layer{
		CellWidth:  cellWidth,
		CellHeight: cellHeight,
		Cols:       cols,
		Rows:       rows,
		bounds:     bounds,
		cells:      make([]palette.Set, cols*rows),
	}
}

// New builds a layer from m. The background colour is never recorded as it
// occupies a fixed palette slot.
func New(m *image.Paletted, cellWidth, cellHeight int, bg uint8) *Layer {
	l := NewEmpty(m.Bounds(), cellWidth, cellHeight)
	for row := 0; row < l.Rows; row++ {
		for col := 0; col < l.Cols; col++ {
			r := l.Cell(col, row)
			s := &l.cells[row*l.Cols+col]
			for y := r.Min.Y; y < r.Max.Y; y++ {
				for x := r.Min.X; x < r.Max.X; x++ {
					if c := m.ColorIndexAt(x, y); c != bg {
						s.Add(c)
					}
				}
			}
		}
	}
	return l
}

// Bounds returns the image bounds covered by the layer.
func (l *Layer) Bounds() image.Rectangle {
	return l.bounds
}

// Cell returns the pixel rectangle of a cell, clipped to the image.
func (l *Layer) Cell(col, row int) image.Rectangle {
	p := l.bounds.Min.Add(image.Pt(col*l.CellWidth, row*l.CellHeight))
	return image.Rectangle{Min: p, Max: p.Add(image.Pt(l.CellWidth, l.CellHeight))}.Intersect(l.bounds)
}

// CellAt returns the cell containing the pixel at (x, y).
func (l *Layer) CellAt(x, y int) (int, int) {
	return (x - l.bounds.Min.X) / l.CellWidth, (y - l.bounds.Min.Y) / l.CellHeight
}

// Colors returns the colours of a cell.
func (l *Layer) Colors(col, row int) palette.Set {
	return l.cells[row*l.Cols+col]
}

// SetColors replaces the colours of a cell.
func (l *Layer) SetColors(col, row int, s palette.Set) {
	l.cells[row*l.Cols+col] = s
}

// Active reports whether a cell has any colours.
func (l *Layer) Active(col, row int) bool {
	return !l.Colors(col, row).Empty()
}

// ActiveInRow returns the number of active cells in a row.
func (l *Layer) ActiveInRow(row int) int {
	n := 0
	for col := 0; col < l.Cols; col++ {
		if l.Active(col, row) {
			n++
		}
	}
	return n
}

// ActiveCells returns the number of cells holding any colour.
func (l *Layer) ActiveCells() int {
	n := 0
	for row := 0; row < l.Rows; row++ {
		n += l.ActiveInRow(row)
	}
	return n
}

// Clone returns a deep copy of the layer.
func (l *Layer) Clone() *Layer {
	dup := *l
	dup.cells = append([]palette.Set(nil), l.cells...)
	return &dup
}

// Empty returns a layer of the same geometry with no colours.
func (l *Layer) Empty() *Layer {
	return NewEmpty(l.bounds, l.CellWidth, l.CellHeight)
}

// Subtract returns a copy of l with the colours of o removed cell by cell.
// Both layers must share the same geometry.
func (l *Layer) Subtract(o *Layer) *Layer {
	dup := l.Clone()
	for i := range dup.cells {
		dup.cells[i] = dup.cells[i].Difference(o.cells[i])
	}
	return dup
}

// Mask returns a new image holding only the pixels of m whose colour is in
// their cell's colour set; every other pixel is set to bg.
func (l *Layer) Mask(m *image.Paletted, bg uint8) *image.Paletted {
	b := m.Bounds()
	out := image.NewPaletted(b, m.Palette)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			col, row := l.CellAt(x, y)
			c := m.ColorIndexAt(x, y)
			if c == bg || !l.Colors(col, row).Has(c) {
				c = bg
			}
			out.SetColorIndex(x, y, c)
		}
	}
	return out
}

// CapacityError lists the cells needing more colours than a palette allows.
type CapacityError struct {
	Limit int
	Cells []image.Point
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("grid: %d cell(s) need more than %d colors, first at %v", len(e.Cells), e.Limit, e.Cells[0])
}

// CheckCapacity returns a *CapacityError if any cell has more than limit
// colours.
func (l *Layer) CheckCapacity(limit int) error {
	var cells []image.Point
	for row := 0; row < l.Rows; row++ {
		for col := 0; col < l.Cols; col++ {
			if l.Colors(col, row).Len() > limit {
				cells = append(cells, image.Pt(col, row))
			}
		}
	}
	if len(cells) > 0 {
		return &CapacityError{Limit: limit, Cells: cells}
	}
	return nil
}

// Indices is a palette index table holding one palette number per cell.
type Indices struct {
	Cols int
	Rows int
	Pix  []uint8
}

// NewIndices returns a table with every entry set to EmptyIndex.
func NewIndices(cols, rows int) *Indices {
	t := &Indices{
		Cols: cols,
		Rows: rows,
		Pix:  make([]uint8, cols*rows),
	}
	t.Fill(EmptyIndex)
	return t
}

// At returns the palette number of a cell.
func (t *Indices) At(col, row int) uint8 {
	return t.Pix[row*t.Cols+col]
}

// Set stores the palette number of a cell.
func (t *Indices) Set(col, row int, v uint8) {
	t.Pix[row*t.Cols+col] = v
}

// Fill sets every entry to v.
func (t *Indices) Fill(v uint8) {
	for i := range t.Pix {
		t.Pix[i] = v
	}
}

// Clone returns a copy of the table.
func (t *Indices) Clone() *Indices {
	return &Indices{
		Cols: t.Cols,
		Rows: t.Rows,
		Pix:  append([]uint8(nil), t.Pix...),
	}
}

// SetEmpty marks every inactive cell of l with emptyIndex.
func (t *Indices) SetEmpty(l *Layer, emptyIndex uint8) {
	for row := 0; row < t.Rows; row++ {
		for col := 0; col < t.Cols; col++ {
			if !l.Active(col, row) {
				t.Set(col, row, emptyIndex)
			}
		}
	}
}
