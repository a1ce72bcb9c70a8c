package chr

import (
	"errors"
	"image"
	"io"
)

var (
	// ErrSize is returned for images whose dimensions are not a multiple of
	// the tile size.
	ErrSize = errors.New("chr: image size is not a multiple of 8")

	errBadSlot = errors.New("chr: pixel value is not a palette slot")
)

type encoder struct {
	w   io.Writer
	tmp [tileBytes]byte
}

func (e *encoder) encodeTile(m *image.Paletted, x0, y0 int) error {
	for y := 0; y < tileHeight; y++ {
		var lo, hi byte
		for x := 0; x < tileWidth; x++ {
			p := m.ColorIndexAt(x0+x, y0+y)
			if p > maxSlot {
				return errBadSlot
			}
			shift := uint(tileWidth - 1 - x)
			lo |= p & 1 << shift
			hi |= p >> 1 & 1 << shift
		}
		e.tmp[y], e.tmp[y+tileHeight] = lo, hi
	}

	_, err := e.w.Write(e.tmp[:])
	return err
}

func (e *encoder) encode(m *image.Paletted) error {
	b := m.Bounds()
	for ty := b.Min.Y; ty < b.Max.Y; ty += tileHeight {
		for tx := b.Min.X; tx < b.Max.X; tx += tileWidth {
			if err := e.encodeTile(m, tx, ty); err != nil {
				return err
			}
		}
	}
	return nil
}

// Encode writes m to w as tile data. Every pixel of m must be a palette slot
// between 0 and 3.
func Encode(w io.Writer, m *image.Paletted) error {
	b := m.Bounds()
	if b.Dx()%tileWidth != 0 || b.Dy()%tileHeight != 0 {
		return ErrSize
	}

	e := encoder{w: w}

	return e.encode(m)
}

// EncodeSprites writes each sprite as a column of tiles. Sprites are placed
// in the top-left corner of a tile aligned block, padding with slot 0.
func EncodeSprites(w io.Writer, sprites []*image.Paletted) error {
	e := encoder{w: w}

	for _, s := range sprites {
		b := s.Bounds()
		r := image.Rect(0, 0, (b.Dx()+tileWidth-1)/tileWidth*tileWidth, (b.Dy()+tileHeight-1)/tileHeight*tileHeight)

		padded := image.NewPaletted(r, Palette)
		for y := 0; y < b.Dy(); y++ {
			copy(padded.Pix[y*padded.Stride:], s.Pix[s.PixOffset(b.Min.X, b.Min.Y+y):s.PixOffset(b.Max.X, b.Min.Y+y)])
		}
		for tx := 0; tx < r.Dx(); tx += tileWidth {
			for ty := 0; ty < r.Dy(); ty += tileHeight {
				if err := e.encodeTile(padded, tx, ty); err != nil {
					return err
				}
			}
		}
	}

	return nil
}
