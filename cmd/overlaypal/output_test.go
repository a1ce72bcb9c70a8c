package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/bodgit/overlaypal"
	"github.com/bodgit/overlaypal/chr"
	"github.com/bodgit/overlaypal/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPadTiles(t *testing.T) {
	m := image.NewPaletted(image.Rect(0, 0, 10, 3), chr.Palette)
	m.SetColorIndex(9, 2, 3)

	p := padTiles(m)
	assert.Equal(t, image.Rect(0, 0, 16, 8), p.Bounds())
	assert.Equal(t, uint8(3), p.ColorIndexAt(9, 2))
	assert.Equal(t, uint8(0), p.ColorIndexAt(15, 7))

	m = image.NewPaletted(image.Rect(0, 0, 8, 8), chr.Palette)
	assert.True(t, padTiles(m) == m)
}

func TestWriteResult(t *testing.T) {
	p := color.Palette{
		color.RGBA{A: 0xff},
		color.RGBA{R: 0xff, A: 0xff},
		color.RGBA{G: 0xff, A: 0xff},
		color.RGBA{B: 0xff, A: 0xff},
		color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	}
	m := image.NewPaletted(image.Rect(0, 0, 12, 8), p)
	for y := 0; y < 8; y++ {
		for x := 0; x < 12; x++ {
			m.SetColorIndex(x, y, uint8(x%5))
		}
	}

	params := overlaypal.DefaultParams()
	params.CellWidth, params.CellHeight = 8, 8

	r, err := overlaypal.New(solver.FirstFit{}, log.New(ioutil.Discard, "", 0)).Convert(context.Background(), m, params)
	require.NoError(t, err)
	require.True(t, r.ConversionSuccessful())

	dir := t.TempDir()
	require.NoError(t, writeResult(dir, r, 2))

	for _, name := range []string{"background.png", "overlay-grid.png", "overlay-free.png", "output.png", "background.chr", "sprites.chr", "palettes.txt", "sprites.txt"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	f, err := os.Open(filepath.Join(dir, "output.png"))
	require.NoError(t, err)
	defer f.Close()
	out, _, err := image.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 24, 16), out.Bounds())

	// Padded to two 8x8 tiles of 16 bytes
	b, err := ioutil.ReadFile(filepath.Join(dir, "background.chr"))
	require.NoError(t, err)
	assert.Len(t, b, 2*16)

	b, err = ioutil.ReadFile(filepath.Join(dir, "palettes.txt"))
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(b), []byte("\n"))
	require.Len(t, lines, overlaypal.NumBackgroundPalettes+overlaypal.NumSpritePalettes)
	assert.True(t, bytes.HasPrefix(lines[0], []byte("bg0: 0(#000000)")))
	assert.True(t, bytes.HasPrefix(lines[4], []byte("sp0:")))
}
