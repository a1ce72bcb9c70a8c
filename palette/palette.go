/*
Package palette implements the small fixed-capacity colour sets that are
assigned as a unit to a background cell or a sprite.

Every palette shares slot 0 with the background colour so a palette of
GroupSize entries can hold at most Capacity further colours. Colours are
palette indices of the source image and are kept in ascending order.
*/
package palette

import (
	"math/bits"
	"strconv"
	"strings"
)

const (
	// GroupSize is the number of slots in a hardware palette
	GroupSize = 4

	// Capacity is the number of non-background colours a palette can hold
	Capacity = GroupSize - 1
)

// Set is an ordered set of colour indices.
type Set [4]uint64

// New returns a Set containing the given colours.
func New(colors ...uint8) Set {
	var s Set
	for _, c := range colors {
		s.Add(c)
	}
	return s
}

// Add inserts c into the set.
func (s *Set) Add(c uint8) {
	s[c>>6] |= 1 << (c & 63)
}

// Remove deletes c from the set.
func (s *Set) Remove(c uint8) {
	s[c>>6] &^= 1 << (c & 63)
}

// Has reports whether c is in the set.
func (s Set) Has(c uint8) bool {
	return s[c>>6]&(1<<(c&63)) != 0
}

// Len returns the number of colours in the set.
func (s Set) Len() int {
	n := 0
	for _, w := range s {
		n += bits.OnesCount64(w)
	}
	return n
}

// Empty reports whether the set has no colours.
func (s Set) Empty() bool {
	return s == Set{}
}

// Union returns the colours in either s or o.
func (s Set) Union(o Set) Set {
	for i := range s {
		s[i] |= o[i]
	}
	return s
}

// Intersect returns the colours in both s and o.
func (s Set) Intersect(o Set) Set {
	for i := range s {
		s[i] &= o[i]
	}
	return s
}

// Difference returns the colours in s but not in o.
func (s Set) Difference(o Set) Set {
	for i := range s {
		s[i] &^= o[i]
	}
	return s
}

// SubsetOf reports whether every colour of s is also in o.
func (s Set) SubsetOf(o Set) bool {
	return s.Difference(o).Empty()
}

// Colors returns the colours in ascending order.
func (s Set) Colors() []uint8 {
	colors := make([]uint8, 0, s.Len())
	for i, w := range s {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			colors = append(colors, uint8(i<<6+b))
			w &^= 1 << uint(b)
		}
	}
	return colors
}

// Rank returns the position of c in ascending order and whether c is present.
func (s Set) Rank(c uint8) (int, bool) {
	if !s.Has(c) {
		return 0, false
	}
	n := 0
	for i := 0; i < int(c>>6); i++ {
		n += bits.OnesCount64(s[i])
	}
	n += bits.OnesCount64(s[c>>6] & (1<<(c&63) - 1))
	return n, true
}

func (s Set) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, c := range s.Colors() {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(int(c)))
	}
	b.WriteByte('}')
	return b.String()
}

// IndexInPalette returns the hardware slot used for colour c in palette p.
// The background colour is always slot 0. The second return value is false
// if c cannot be represented by p.
func IndexInPalette(p Set, c, bg uint8) (uint8, bool) {
	if c == bg {
		return 0, true
	}
	i, ok := p.Rank(c)
	if !ok {
		return 0, false
	}
	return uint8(i + 1), true
}

// ColorAt is the reverse of IndexInPalette.
func ColorAt(p Set, slot, bg uint8) (uint8, bool) {
	if slot == 0 {
		return bg, true
	}
	colors := p.Colors()
	if int(slot) > len(colors) {
		return 0, false
	}
	return colors[slot-1], true
}

// Palettes is an ordered pool of palettes, indexed by palette number.
type Palettes []Set

// Fill pads the pool with empty palettes until it holds exactly n entries.
// Pools already holding n or more entries are returned unchanged.
func (p Palettes) Fill(n int) Palettes {
	for len(p) < n {
		p = append(p, Set{})
	}
	return p
}

// Clone returns a copy of the pool.
func (p Palettes) Clone() Palettes {
	return append(Palettes(nil), p...)
}

// Union returns every colour used by any palette of the pool.
func (p Palettes) Union() Set {
	var s Set
	for _, q := range p {
		s = s.Union(q)
	}
	return s
}
