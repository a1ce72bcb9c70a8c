package palette

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	s := New(200, 3, 64, 3)

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []uint8{3, 64, 200}, s.Colors())
	assert.True(t, s.Has(64))
	assert.False(t, s.Has(63))
	assert.Equal(t, "{3 64 200}", s.String())

	s.Remove(64)
	assert.Equal(t, []uint8{3, 200}, s.Colors())
	assert.False(t, s.Empty())
	assert.True(t, Set{}.Empty())
}

func TestSetOperations(t *testing.T) {
	a := New(1, 2, 3)
	b := New(2, 3, 4)

	assert.Equal(t, New(1, 2, 3, 4), a.Union(b))
	assert.Equal(t, New(2, 3), a.Intersect(b))
	assert.Equal(t, New(1), a.Difference(b))
	assert.True(t, New(2, 3).SubsetOf(a))
	assert.False(t, b.SubsetOf(a))
	assert.True(t, Set{}.SubsetOf(a))
}

func TestRank(t *testing.T) {
	s := New(5, 70, 130, 255)

	for i, c := range s.Colors() {
		r, ok := s.Rank(c)
		assert.True(t, ok)
		assert.Equal(t, i, r)
	}

	_, ok := s.Rank(6)
	assert.False(t, ok)
}

func TestIndexInPalette(t *testing.T) {
	const bg = 0x0f
	p := New(0x16, 0x27, 0x30)

	tests := []struct {
		color uint8
		slot  uint8
		ok    bool
	}{
		{bg, 0, true},
		{0x16, 1, true},
		{0x27, 2, true},
		{0x30, 3, true},
		{0x01, 0, false},
	}

	for _, tt := range tests {
		slot, ok := IndexInPalette(p, tt.color, bg)
		assert.Equal(t, tt.ok, ok, "color %#x", tt.color)
		assert.Equal(t, tt.slot, slot, "color %#x", tt.color)
		if ok {
			c, ok := ColorAt(p, slot, bg)
			assert.True(t, ok)
			assert.Equal(t, tt.color, c)
		}
	}

	_, ok := ColorAt(p, 4, bg)
	assert.False(t, ok)
}

func TestFill(t *testing.T) {
	p := Palettes{New(1), New(2)}.Fill(4)

	assert.Len(t, p, 4)
	assert.Equal(t, New(1), p[0])
	assert.True(t, p[3].Empty())

	assert.Len(t, p.Fill(2), 4)
	assert.Equal(t, New(1, 2), p.Union())
}
