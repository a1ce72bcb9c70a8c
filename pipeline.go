package overlaypal

import (
	"context"
	"sync"
)

// DefaultWorkers is the number of conversions Batch runs at once when asked
// for fewer than one.
const DefaultWorkers = 4

func findFiles(ctx context.Context, files []string) (<-chan string, <-chan error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for _, file := range files {
			select {
			case out <- file:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()
	return out, errc
}

func fileWorker(ctx context.Context, in <-chan string, fn func(context.Context, string) error) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for file := range in {
			if err := fn(ctx, file); err != nil {
				errc <- err
				return
			}
		}
	}()
	return errc
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Batch calls fn for every file using a pool of workers. The first error
// cancels the remaining files and is returned.
func Batch(ctx context.Context, files []string, workers int, fn func(ctx context.Context, file string) error) error {
	if workers < 1 {
		workers = DefaultWorkers
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	var errcList []<-chan error

	in, errc := findFiles(ctx, files)
	errcList = append(errcList, errc)

	for i := 0; i < workers; i++ {
		errcList = append(errcList, fileWorker(ctx, in, fn))
	}

	return waitForPipeline(errcList...)
}
