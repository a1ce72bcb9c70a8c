package overlaypal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatch(t *testing.T) {
	var files []string
	for i := 0; i < 20; i++ {
		files = append(files, fmt.Sprintf("image%02d.png", i))
	}

	var mu sync.Mutex
	var seen []string

	err := Batch(context.Background(), files, 3, func(ctx context.Context, file string) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, file)
		return nil
	})
	assert.NoError(t, err)

	sort.Strings(seen)
	assert.Equal(t, files, seen)
}

func TestBatchError(t *testing.T) {
	errBad := errors.New("bad image")

	err := Batch(context.Background(), []string{"a", "b", "c", "d"}, 0, func(ctx context.Context, file string) error {
		if file == "c" {
			return errBad
		}
		return nil
	})
	assert.Equal(t, errBad, err)
}

func TestBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Batch(ctx, []string{"a", "b"}, 1, func(ctx context.Context, file string) error {
		return ctx.Err()
	})
	assert.True(t, errors.Is(err, context.Canceled))
}
