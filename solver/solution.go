package solver

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bodgit/overlaypal/grid"
	"github.com/bodgit/overlaypal/palette"
	"github.com/pkg/errors"
)

// Decision variables emitted by the solver programs.
const (
	varBackgroundPalette = "bgPal" // [row,col,palette]
	varBackgroundColor   = "bgCol" // [palette,color]
	varSpritePalette     = "spPal" // [row,col,palette]
	varSpriteColor       = "spCol" // [palette,color]
	varOverlay           = "ovl"   // [row,col,color]
)

var arity = map[string]int{
	varBackgroundPalette: 3,
	varBackgroundColor:   2,
	varSpritePalette:     3,
	varSpriteColor:       2,
	varOverlay:           3,
}

const (
	statusField    = "Objective status"
	activityField  = 2
	statusOptimal  = "optimal"
	statusFeasible = "feasible"
)

// ParseError is returned for a solution line that names a known decision
// variable but cannot be decoded.
type ParseError struct {
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("solver: line %d: %s: %q", e.Line, e.Reason, e.Text)
}

func parseVariable(field string) (string, []int, bool, error) {
	open := strings.IndexByte(field, '[')
	if open < 0 {
		return "", nil, false, nil
	}
	name := strings.TrimSpace(field[:open])
	n, ok := arity[name]
	if !ok {
		return "", nil, false, nil
	}
	if !strings.HasSuffix(field, "]") {
		return name, nil, true, errors.New("unterminated index list")
	}
	parts := strings.Split(field[open+1:len(field)-1], ",")
	if len(parts) != n {
		return name, nil, true, fmt.Errorf("%s expects %d indices, got %d", name, n, len(parts))
	}
	indices := make([]int, n)
	for i, s := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || v < 0 {
			return name, nil, true, fmt.Errorf("bad index %q", s)
		}
		indices[i] = v
	}
	return name, indices, true, nil
}

type decoder struct {
	p   *Problem
	s   *Solution
	bg  palette.Palettes
	spr palette.Palettes
}

func (d *decoder) cell(indices []int) (int, int, error) {
	row, col := indices[0], indices[1]
	if row >= d.p.Cells.Rows || col >= d.p.Cells.Cols {
		return 0, 0, fmt.Errorf("cell [%d,%d] outside %dx%d grid", row, col, d.p.Cells.Rows, d.p.Cells.Cols)
	}
	return row, col, nil
}

func checkRange(what string, v, n int) error {
	if v >= n {
		return fmt.Errorf("%s %d out of range [0,%d)", what, v, n)
	}
	return nil
}

func (d *decoder) set(name string, indices []int) error {
	switch name {
	case varBackgroundPalette, varSpritePalette:
		row, col, err := d.cell(indices)
		if err != nil {
			return err
		}
		if name == varBackgroundPalette {
			if err := checkRange("background palette", indices[2], d.p.MaxBackgroundPalettes); err != nil {
				return err
			}
			d.s.BackgroundIndices.Set(col, row, uint8(indices[2]))
		} else {
			if err := checkRange("sprite palette", indices[2], d.p.MaxSpritePalettes); err != nil {
				return err
			}
			d.s.SpriteIndices.Set(col, row, uint8(indices[2]))
		}
	case varBackgroundColor, varSpriteColor:
		if err := checkRange("color", indices[1], 256); err != nil {
			return err
		}
		pool, n := &d.bg, d.p.MaxBackgroundPalettes
		if name == varSpriteColor {
			pool, n = &d.spr, d.p.MaxSpritePalettes
		}
		if err := checkRange("palette", indices[0], n); err != nil {
			return err
		}
		(*pool)[indices[0]].Add(uint8(indices[1]))
	case varOverlay:
		row, col, err := d.cell(indices)
		if err != nil {
			return err
		}
		if err := checkRange("color", indices[2], 256); err != nil {
			return err
		}
		s := d.s.Overlay.Colors(col, row)
		s.Add(uint8(indices[2]))
		d.s.Overlay.SetColors(col, row, s)
	}
	return nil
}

// ParseSolution decodes a CMPL solution CSV for problem p. Lines that do not
// name a known decision variable are ignored, a malformed line that does is
// returned as a *ParseError. A missing or non-accepting status, or a file
// without any variables, is reported as ErrInfeasible.
func ParseSolution(r io.Reader, p *Problem) (*Solution, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	d := decoder{
		p:   p,
		s:   newSolution(p),
		bg:  make(palette.Palettes, p.MaxBackgroundPalettes),
		spr: make(palette.Palettes, p.MaxSpritePalettes),
	}

	status := ""
	variables := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "solver: reading solution")
		}
		line, _ := cr.FieldPos(0)

		if strings.TrimSpace(record[0]) == statusField {
			if len(record) > 1 {
				status = strings.ToLower(strings.TrimSpace(record[1]))
			}
			continue
		}

		name, indices, relevant, err := parseVariable(strings.TrimSpace(record[0]))
		if !relevant {
			continue
		}
		text := strings.Join(record, ";")
		if err != nil {
			return nil, &ParseError{Line: line, Text: text, Reason: err.Error()}
		}
		if len(record) <= activityField {
			return nil, &ParseError{Line: line, Text: text, Reason: "missing activity"}
		}
		activity, err := strconv.ParseFloat(strings.TrimSpace(record[activityField]), 64)
		if err != nil {
			return nil, &ParseError{Line: line, Text: text, Reason: "bad activity"}
		}
		variables++
		if activity < 0.5 {
			continue
		}
		if err := d.set(name, indices); err != nil {
			return nil, &ParseError{Line: line, Text: text, Reason: err.Error()}
		}
	}

	switch status {
	case statusOptimal, statusFeasible:
	case "":
		if variables == 0 {
			return nil, errors.Wrap(ErrInfeasible, "empty solution")
		}
	default:
		return nil, errors.Wrapf(ErrInfeasible, "status %q", status)
	}

	d.s.BackgroundPalettes = append(d.s.BackgroundPalettes, d.bg...).Fill(p.MaxBackgroundPalettes)
	d.s.SpritePalettes = append(d.s.SpritePalettes, d.spr...).Fill(p.MaxSpritePalettes)

	return d.s, nil
}

func writeVariable(b *bytes.Buffer, name string, indices ...int) {
	b.WriteString(name)
	b.WriteByte('[')
	for i, v := range indices {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
	b.WriteString("];B;1;0;1\n")
}

func writeIndices(b *bytes.Buffer, name string, t *grid.Indices) {
	for row := 0; row < t.Rows; row++ {
		for col := 0; col < t.Cols; col++ {
			if v := t.At(col, row); v != grid.EmptyIndex {
				writeVariable(b, name, row, col, int(v))
			}
		}
	}
}

func writePalettes(b *bytes.Buffer, name string, p palette.Palettes) {
	for i, s := range p {
		for _, c := range s.Colors() {
			writeVariable(b, name, i, int(c))
		}
	}
}

// WriteTo writes the solution in the same CSV format ParseSolution reads.
// Only selected variables are written.
func (s *Solution) WriteTo(w io.Writer) (int64, error) {
	b := new(bytes.Buffer)

	b.WriteString("CMPL csv export\n")
	fmt.Fprintf(b, "%s;%s\n", statusField, statusOptimal)
	b.WriteString("Variables\n")
	b.WriteString("Name;Type;Activity;LowerBound;UpperBound\n")

	writeIndices(b, varBackgroundPalette, s.BackgroundIndices)
	writePalettes(b, varBackgroundColor, s.BackgroundPalettes)
	writeIndices(b, varSpritePalette, s.SpriteIndices)
	writePalettes(b, varSpriteColor, s.SpritePalettes)

	for row := 0; row < s.Overlay.Rows; row++ {
		for col := 0; col < s.Overlay.Cols; col++ {
			for _, c := range s.Overlay.Colors(col, row).Colors() {
				writeVariable(b, varOverlay, row, col, int(c))
			}
		}
	}

	return b.WriteTo(w)
}
