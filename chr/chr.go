/*
Package chr implements an encoder and decoder for 2 bits per pixel planar
tile data as used by the pattern tables of 8-bit consoles.

An image is written as a sequence of 8 by 8 tiles in row-major tile order.
Each tile is 16 bytes; eight bytes holding the low bit of each pixel, one
byte per row with the leftmost pixel in the most significant bit, followed
by eight bytes holding the high bit. Pixel values are therefore palette
slots 0 to 3 rather than colours.
*/
package chr

import "image/color"

const (
	tileWidth  = 8
	tileHeight = tileWidth
	tileBytes  = tileHeight * 2
	maxSlot    = 3
)

// Palette is a greyscale stand-in for the four slots of a hardware palette.
var Palette = color.Palette{
	color.Gray{Y: 0x00},
	color.Gray{Y: 0x55},
	color.Gray{Y: 0xaa},
	color.Gray{Y: 0xff},
}
