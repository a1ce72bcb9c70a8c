package solver

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/bodgit/overlaypal/grid"
	"github.com/bodgit/overlaypal/palette"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two 8x8 cells: the left one uses colours 1-3, the right one 1, 4, 5 and 6
func testLayer() *grid.Layer {
	p := make(color.Palette, 8)
	for i := range p {
		p[i] = color.Gray{Y: uint8(i * 32)}
	}
	m := image.NewPaletted(image.Rect(0, 0, 16, 8), p)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			m.SetColorIndex(x, y, uint8(x%4))
			m.SetColorIndex(x+8, y, []uint8{1, 4, 5, 6}[x%4])
		}
	}
	return grid.New(m, 8, 8, 0)
}

func testProblem(pass Pass) *Problem {
	return &Problem{
		Pass:                  pass,
		Cells:                 testLayer(),
		ColorLimit:            3,
		MaxBackgroundPalettes: 2,
		MaxSpritePalettes:     2,
		MaxRowSize:            8,
		SpritesPerCell:        1,
	}
}

func TestProblemWriteTo(t *testing.T) {
	p := testProblem(SecondPass)
	p.FixedBackground = palette.Palettes{palette.New(1, 2), {}}

	want := `%pass < 2 >
%rows < 1 >
%cols < 2 >
%colorLimit < 3 >
%spriteColorLimit < 3 >
%numBgPalettes < 2 >
%numSpritePalettes < 2 >
%maxRowSize < 8 >
%spritesPerCell < 1 >
%cellColors set[3] <
[0,0,1]
[0,0,2]
[0,0,3]
[0,1,1]
[0,1,4]
[0,1,5]
[0,1,6]
>
%fixedBgColors set[2] <
[0,1]
[0,2]
>
`

	b := new(bytes.Buffer)
	n, err := p.WriteTo(b)
	require.NoError(t, err)
	assert.Equal(t, int64(len(want)), n)
	assert.Equal(t, want, b.String())

	// Deterministic
	b2 := new(bytes.Buffer)
	_, err = p.WriteTo(b2)
	require.NoError(t, err)
	assert.Equal(t, b.Bytes(), b2.Bytes())
}

const testSolution = `CMPL csv export

Problem;FirstPass_withTimeOut.cmpl
Objective status;optimal
Variables
Name;Type;Activity;LowerBound;UpperBound;Marginal
bgPal[0,0,1];B;1;0;1;-
bgPal[0,1,0];B;0;0;1;-
bgPal[0,1,1];B;1;0;1;-
bgCol[1,1];B;1;0;1;-
bgCol[1,2];B;1;0;1;-
bgCol[1,3];B;0.9999;0;1;-
bgCol[0,7];B;0;0;1;-
ovl[0,1,4];B;1;0;1;-
ovl[0,1,5];B;1;0;1;-
ovl[0,1,6];B;1;0;1;-
spPal[0,1,0];B;1;0;1;-
spCol[0,4];B;1;0;1;-
spCol[0,5];B;1;0;1;-
spCol[0,6];B;1;0;1;-
aux[3];C;12;0;100;-
Constraints
row[0];L;1;-inf;8;-
`

func TestParseSolution(t *testing.T) {
	p := testProblem(FirstPass)

	s, err := ParseSolution(strings.NewReader(testSolution), p)
	require.NoError(t, err)

	assert.Equal(t, palette.Palettes{{}, palette.New(1, 2, 3)}, s.BackgroundPalettes)
	assert.Equal(t, palette.Palettes{palette.New(4, 5, 6), {}}, s.SpritePalettes)
	assert.Equal(t, []uint8{1, 1}, s.BackgroundIndices.Pix)
	assert.Equal(t, []uint8{grid.EmptyIndex, 0}, s.SpriteIndices.Pix)
	assert.True(t, s.Overlay.Colors(0, 0).Empty())
	assert.Equal(t, palette.New(4, 5, 6), s.Overlay.Colors(1, 0))
	assert.Equal(t, palette.New(1), s.Background(p).Colors(1, 0))
}

func TestParseSolutionErrors(t *testing.T) {
	p := testProblem(FirstPass)

	tests := []struct {
		name string
		line string
	}{
		{"arity", "bgPal[0,0];B;1;0;1"},
		{"index", "bgCol[a,1];B;1;0;1"},
		{"negative", "ovl[0,-1,2];B;1;0;1"},
		{"unterminated", "spCol[0,1;B;1;0;1"},
		{"activity", "bgCol[0,1];B;yes;0;1"},
		{"missing activity", "bgCol[0,1];B"},
		{"row range", "bgPal[1,0,0];B;1;0;1"},
		{"palette range", "bgPal[0,0,2];B;1;0;1"},
		{"color range", "spCol[0,256];B;1;0;1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := "Objective status;optimal\n" + tt.line + "\n"
			_, err := ParseSolution(strings.NewReader(in), p)
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.Equal(t, 2, pe.Line)
		})
	}
}

func TestParseSolutionInfeasible(t *testing.T) {
	p := testProblem(FirstPass)

	for _, in := range []string{
		"",
		"CMPL csv export\n",
		"Objective status;infeasible\nbgPal[0,0,0];B;1;0;1\n",
		"Objective status;timelimit\n",
	} {
		_, err := ParseSolution(strings.NewReader(in), p)
		assert.True(t, errors.Is(err, ErrInfeasible), "input %q: %v", in, err)
	}
}

func TestSolutionRoundTrip(t *testing.T) {
	p := testProblem(FirstPass)

	s, err := ParseSolution(strings.NewReader(testSolution), p)
	require.NoError(t, err)

	b := new(bytes.Buffer)
	_, err = s.WriteTo(b)
	require.NoError(t, err)

	s2, err := ParseSolution(b, p)
	require.NoError(t, err)
	assert.Equal(t, s, s2)
}

func checkSolution(t *testing.T, p *Problem, s *Solution) {
	t.Helper()

	require.Len(t, s.BackgroundPalettes, p.MaxBackgroundPalettes)
	require.Len(t, s.SpritePalettes, p.MaxSpritePalettes)
	for _, q := range s.BackgroundPalettes {
		assert.LessOrEqual(t, q.Len(), p.ColorLimit)
	}
	for _, q := range s.SpritePalettes {
		assert.LessOrEqual(t, q.Len(), palette.Capacity)
	}

	bg := s.Background(p)
	for row := 0; row < p.Cells.Rows; row++ {
		for col := 0; col < p.Cells.Cols; col++ {
			if kept := bg.Colors(col, row); !kept.Empty() {
				i := s.BackgroundIndices.At(col, row)
				require.NotEqual(t, uint8(grid.EmptyIndex), i)
				assert.True(t, kept.SubsetOf(s.BackgroundPalettes[i]))
			}
			if moved := s.Overlay.Colors(col, row); !moved.Empty() {
				i := s.SpriteIndices.At(col, row)
				require.NotEqual(t, uint8(grid.EmptyIndex), i)
				assert.True(t, moved.SubsetOf(s.SpritePalettes[i]))
			}
			assert.True(t, s.Overlay.Colors(col, row).SubsetOf(p.Cells.Colors(col, row)))
		}
	}
}

func TestFirstFit(t *testing.T) {
	p := testProblem(FirstPass)

	s, err := FirstFit{}.Solve(context.Background(), p)
	require.NoError(t, err)
	checkSolution(t, p, s)

	// The four colour cell is packed first and keeps three colours
	assert.Equal(t, 1, s.Overlay.Colors(1, 0).Len())
}

func TestFirstFitFixedBackground(t *testing.T) {
	p := testProblem(SecondPass)
	p.FixedBackground = palette.Palettes{palette.New(7), {}}

	s, err := FirstFit{}.Solve(context.Background(), p)
	require.NoError(t, err)
	checkSolution(t, p, s)
	assert.True(t, s.BackgroundPalettes[0].Has(7))
}

func TestFirstFitNoBackground(t *testing.T) {
	p := testProblem(FirstPass)
	p.MaxBackgroundPalettes = 0

	// Four overlay colours cannot fit a sprite palette
	_, err := FirstFit{}.Solve(context.Background(), p)
	assert.True(t, errors.Is(err, ErrInfeasible))
}

func TestFirstFitRowSize(t *testing.T) {
	p := testProblem(FirstPass)
	p.MaxBackgroundPalettes = 0
	p.ColorLimit = 0
	p.Cells = grid.NewEmpty(image.Rect(0, 0, 16, 8), 8, 8)
	p.Cells.SetColors(0, 0, palette.New(1))
	p.Cells.SetColors(1, 0, palette.New(2))
	p.SpritesPerCell = 2
	p.MaxRowSize = 3

	_, err := FirstFit{}.Solve(context.Background(), p)
	assert.True(t, errors.Is(err, ErrInfeasible))

	p.MaxRowSize = 4
	s, err := FirstFit{}.Solve(context.Background(), p)
	require.NoError(t, err)
	checkSolution(t, p, s)
}

func TestFirstFitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FirstFit{}.Solve(ctx, testProblem(FirstPass))
	assert.Equal(t, context.Canceled, err)
}

func TestPassString(t *testing.T) {
	assert.Equal(t, "first pass", FirstPass.String())
	assert.Equal(t, "second pass", SecondPass.String())
	assert.Equal(t, "pass 3", Pass(3).String())
}
