package main

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/bodgit/overlaypal"
	"github.com/bodgit/overlaypal/chr"
	"github.com/bodgit/overlaypal/palette"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/nfnt/resize"
)

func create(dir, name string, fn func(io.Writer) error) error {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := fn(w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}

	return f.Close()
}

func writePNG(dir, name string, m image.Image, scale int) error {
	return create(dir, name, func(w io.Writer) error {
		if scale > 1 {
			b := m.Bounds()
			m = resize.Resize(uint(b.Dx()*scale), uint(b.Dy()*scale), m, resize.NearestNeighbor)
		}
		return png.Encode(w, m)
	})
}

// Grows m to whole tiles, the new pixels hold slot 0
func padTiles(m *image.Paletted) *image.Paletted {
	b := m.Bounds()
	r := image.Rect(0, 0, (b.Dx()+7)&^7, (b.Dy()+7)&^7)
	if r.Eq(b) {
		return m
	}
	out := image.NewPaletted(r, m.Palette)
	for y := 0; y < b.Dy(); y++ {
		copy(out.Pix[y*out.Stride:], m.Pix[m.PixOffset(b.Min.X, b.Min.Y+y):m.PixOffset(b.Max.X, b.Min.Y+y)])
	}
	return out
}

func hex(p color.Palette, c uint8) string {
	if int(c) >= len(p) {
		return "-"
	}
	cf, ok := colorful.MakeColor(p[c])
	if !ok {
		return "-"
	}
	return cf.Hex()
}

// One line per palette, the background colour first then each slot
func writePalettes(w io.Writer, r *overlaypal.Result, p color.Palette) error {
	bg := r.Params.BackgroundColor
	for i, set := range r.Palettes() {
		kind, n := "bg", i
		if i >= overlaypal.NumBackgroundPalettes {
			kind, n = "sp", i-overlaypal.NumBackgroundPalettes
		}
		if _, err := fmt.Fprintf(w, "%s%d:", kind, n); err != nil {
			return err
		}
		for slot := uint8(0); slot < palette.GroupSize; slot++ {
			s := "-"
			if c, ok := palette.ColorAt(set, slot, bg); ok {
				s = fmt.Sprintf("%d(%s)", c, hex(p, c))
			}
			if _, err := fmt.Fprintf(w, " %s", s); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

func writeSprites(w io.Writer, sprites []overlaypal.Sprite) error {
	for i, s := range sprites {
		if _, err := fmt.Fprintf(w, "%d: x=%d y=%d w=%d h=%d palette=%d\n", i, s.X, s.Y, s.Width, s.Height, s.Palette); err != nil {
			return err
		}
	}
	return nil
}

func writeResult(dir string, r *overlaypal.Result, scale int) error {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}

	images := []struct {
		name string
		m    *image.Paletted
	}{
		{"background.png", r.Background},
		{"overlay-grid.png", r.OverlayGrid},
		{"overlay-free.png", r.OverlayFree},
		{"output.png", r.Output},
	}
	for _, i := range images {
		if err := writePNG(dir, i.name, i.m, scale); err != nil {
			return err
		}
	}

	if err := create(dir, "background.chr", func(w io.Writer) error {
		return chr.Encode(w, padTiles(r.RemappedBackground()))
	}); err != nil {
		return err
	}

	if err := create(dir, "sprites.chr", func(w io.Writer) error {
		return chr.EncodeSprites(w, r.RemappedSprites())
	}); err != nil {
		return err
	}

	if err := create(dir, "palettes.txt", func(w io.Writer) error {
		return writePalettes(w, r, r.Background.Palette)
	}); err != nil {
		return err
	}

	return create(dir, "sprites.txt", func(w io.Writer) error {
		return writeSprites(w, r.Sprites)
	})
}
