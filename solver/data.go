package solver

import (
	"bytes"
	"fmt"
	"io"

	"github.com/bodgit/overlaypal/palette"
)

func writeParameter(b *bytes.Buffer, name string, v int) {
	fmt.Fprintf(b, "%%%s < %d >\n", name, v)
}

// WriteTo writes the problem as a CMPL data file. Cells are enumerated in
// row-major order so identical problems always produce identical files.
func (p *Problem) WriteTo(w io.Writer) (int64, error) {
	b := new(bytes.Buffer)

	writeParameter(b, "pass", int(p.Pass))
	writeParameter(b, "rows", p.Cells.Rows)
	writeParameter(b, "cols", p.Cells.Cols)
	writeParameter(b, "colorLimit", p.ColorLimit)
	writeParameter(b, "spriteColorLimit", palette.Capacity)
	writeParameter(b, "numBgPalettes", p.MaxBackgroundPalettes)
	writeParameter(b, "numSpritePalettes", p.MaxSpritePalettes)
	writeParameter(b, "maxRowSize", p.MaxRowSize)
	writeParameter(b, "spritesPerCell", p.SpritesPerCell)

	b.WriteString("%cellColors set[3] <\n")
	for row := 0; row < p.Cells.Rows; row++ {
		for col := 0; col < p.Cells.Cols; col++ {
			for _, c := range p.Cells.Colors(col, row).Colors() {
				fmt.Fprintf(b, "[%d,%d,%d]\n", row, col, c)
			}
		}
	}
	b.WriteString(">\n")

	b.WriteString("%fixedBgColors set[2] <\n")
	for i, s := range p.FixedBackground {
		for _, c := range s.Colors() {
			fmt.Fprintf(b, "[%d,%d]\n", i, c)
		}
	}
	b.WriteString(">\n")

	return b.WriteTo(w)
}
