package chr

import (
	"errors"
	"image"
	"io"
)

var (
	errNotEnough = errors.New("chr: not enough tile data")
	errTooMuch   = errors.New("chr: too much tile data")
)

func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

type decoder struct {
	r     io.Reader
	image *image.Paletted
	tmp   [tileBytes]byte
}

func (d *decoder) decodeTile(tx, ty int) error {
	if err := readFull(d.r, d.tmp[:]); err != nil {
		return err
	}

	for y := 0; y < tileHeight; y++ {
		lo, hi := d.tmp[y], d.tmp[y+tileHeight]
		for x := 0; x < tileWidth; x++ {
			shift := uint(tileWidth - 1 - x)
			d.image.SetColorIndex(tx*tileWidth+x, ty*tileHeight+y, (lo>>shift)&1|((hi>>shift)&1)<<1)
		}
	}

	return nil
}

func (d *decoder) decode(r io.Reader, width, height int) error {
	if width%tileWidth != 0 || height%tileHeight != 0 {
		return ErrSize
	}

	d.r = r
	d.image = image.NewPaletted(image.Rect(0, 0, width, height), Palette)

	for ty := 0; ty < height/tileHeight; ty++ {
		for tx := 0; tx < width/tileWidth; tx++ {
			if err := d.decodeTile(tx, ty); err != nil {
				if err != io.ErrUnexpectedEOF {
					return err
				}
				return errNotEnough
			}
		}
	}

	switch _, err := io.ReadFull(r, d.tmp[:1]); err {
	case io.EOF:
	case nil:
		return errTooMuch
	default:
		return err
	}

	return nil
}

// Decode reads width by height pixels of tile data from r.
func Decode(r io.Reader, width, height int) (*image.Paletted, error) {
	var d decoder
	if err := d.decode(r, width, height); err != nil {
		return nil, err
	}
	return d.image, nil
}
