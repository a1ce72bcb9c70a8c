package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobNames(t *testing.T) {
	in := []string{
		filepath.Join("a", "title.png"),
		filepath.Join("b", "title.png"),
		filepath.Join("c", "title.gif"),
		filepath.Join("a", "title.png"),
		"title-2.png",
		"other.png",
	}

	files, names := jobNames(in)
	assert.Equal(t, []string{in[0], in[1], in[2], in[4], in[5]}, files)
	assert.Equal(t, map[string]string{
		in[0]: "title",
		in[1]: "title-2",
		in[2]: "title-3",
		in[4]: "title-2-2",
		in[5]: "other",
	}, names)
}
