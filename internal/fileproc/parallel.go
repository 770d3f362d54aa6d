// Package fileproc provides concurrent file processing utilities.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/depscope/depscope/pkg/parser"
	"github.com/sourcegraph/conc/pool"
)

// FileError records a failure while processing a single file. Per-file
// failures never abort a batch; the affected file is simply absent from the
// results.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// FileErrors collects failures from a parallel batch (thread-safe).
type FileErrors struct {
	mu     sync.Mutex
	errors []FileError
}

// Add appends a failure to the collection.
func (e *FileErrors) Add(path string, err error) {
	e.mu.Lock()
	e.errors = append(e.errors, FileError{Path: path, Err: err})
	e.mu.Unlock()
}

// All returns the collected failures.
func (e *FileErrors) All() []FileError {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errors
}

// HasErrors returns true if any failures were collected.
func (e *FileErrors) HasErrors() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.errors) > 0
}

// Error implements the error interface.
func (e *FileErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch len(e.errors) {
	case 0:
		return "no errors"
	case 1:
		return e.errors[0].Error()
	default:
		return fmt.Sprintf("%d files failed to process (first: %v)", len(e.errors), e.errors[0])
	}
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker
// count. 2x suits the mixed I/O and CGO parsing workload.
const DefaultWorkerMultiplier = 2

// ProgressFunc is called after each file is processed.
type ProgressFunc func()

// MapFiles parses files in parallel, calling fn for each file with a
// worker-local parser. Results arrive in arbitrary order. Failures are
// collected, not fatal: the returned FileErrors is nil when every file
// succeeded. Cancelling ctx stops scheduling; files not processed are
// recorded with the context error.
func MapFiles[T any](ctx context.Context, files []string, fn func(*parser.Parser, string) (T, error)) ([]T, *FileErrors) {
	return MapFilesWithProgress(ctx, files, fn, nil)
}

// MapFilesWithProgress is MapFiles with a per-file progress callback.
func MapFilesWithProgress[T any](ctx context.Context, files []string, fn func(*parser.Parser, string) (T, error), onProgress ProgressFunc) ([]T, *FileErrors) {
	if len(files) == 0 {
		return nil, nil
	}

	maxWorkers := runtime.NumCPU() * DefaultWorkerMultiplier
	results := make([]T, 0, len(files))
	errs := &FileErrors{}
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(maxWorkers)
	for _, path := range files {
		p.Go(func() {
			if onProgress != nil {
				defer onProgress()
			}

			select {
			case <-ctx.Done():
				errs.Add(path, ctx.Err())
				return
			default:
			}

			psr := parser.New()
			defer psr.Close()

			result, err := fn(psr, path)
			if err != nil {
				errs.Add(path, err)
				return
			}

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		})
	}
	p.Wait()

	if !errs.HasErrors() {
		return results, nil
	}
	return results, errs
}

// ForEach runs fn in parallel over items with bounded workers and no parser.
// Used for coarse-grained fan-out such as one task per language tree.
func ForEach[T any](items []T, maxWorkers int, fn func(T)) {
	if len(items) == 0 {
		return
	}
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU() * DefaultWorkerMultiplier
	}

	p := pool.New().WithMaxGoroutines(maxWorkers)
	for _, item := range items {
		p.Go(func() {
			fn(item)
		})
	}
	p.Wait()
}
