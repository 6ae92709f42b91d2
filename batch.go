package voyager

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// AddItemsResult reports a batch insert: Labels[i] and Errors[i] describe
// the i-th input vector. A failed element leaves its Labels entry zero.
type AddItemsResult struct {
	Labels []uint64
	Errors []error
}

// Ok reports whether every element was inserted.
func (r *AddItemsResult) Ok() bool {
	for _, err := range r.Errors {
		if err != nil {
			return false
		}
	}
	return true
}

// threads resolves a numThreads parameter; values below 1 mean "all
// available".
func threads(numThreads int) int {
	if numThreads < 1 {
		return runtime.GOMAXPROCS(0)
	}
	return numThreads
}

// AddItems inserts a batch of vectors across numThreads workers
// (numThreads=-1 uses all CPUs). labels may be nil for auto-assignment or
// must match vectors in length. Errors are reported per element; the
// returned error covers only malformed batch arguments or a canceled
// context.
func (idx *Index) AddItems(ctx context.Context, vectors [][]float32, labels []uint64, numThreads int) (*AddItemsResult, error) {
	if labels != nil && len(labels) != len(vectors) {
		return nil, &ErrInvalidParameter{Name: "labels", Reason: "length must match vectors"}
	}

	n := len(vectors)
	result := &AddItemsResult{
		Labels: make([]uint64, n),
		Errors: make([]error, n),
	}
	if n == 0 {
		return result, nil
	}

	// Auto labels are reserved up front so they stay sequential in input
	// order regardless of worker scheduling.
	if labels == nil {
		labels = make([]uint64, n)
		idx.labelMu.Lock()
		base := idx.nextLabel
		idx.nextLabel += uint64(n)
		idx.labelMu.Unlock()
		for i := range labels {
			labels[i] = base + uint64(i)
		}
	}

	// Workers never return errors, so the derived context only trips when
	// the caller's does; the caller's context decides the batch outcome.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads(numThreads))
	for i := range vectors {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				result.Errors[i] = err
				return nil
			}
			label, err := idx.addOne(vectors[i], labels[i], true)
			result.Labels[i] = label
			result.Errors[i] = err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, ctx.Err()
}

// QueryBatch runs one query per input row across numThreads workers and
// returns a rectangular result: every row holds exactly k entries, padded
// with label math.MaxUint64 and +Inf distance when fewer live matches
// exist.
func (idx *Index) QueryBatch(ctx context.Context, queries [][]float32, k, numThreads, ef int) ([][]Result, error) {
	idx.resizeMu.RLock()
	defer idx.resizeMu.RUnlock()

	if k < 1 {
		return nil, &ErrInvalidParameter{Name: "k", Reason: "must be at least 1"}
	}
	for _, q := range queries {
		if len(q) != idx.dims {
			return nil, &ErrDimensionMismatch{Expected: idx.dims, Actual: len(q)}
		}
	}
	if idx.graph.Count() == 0 {
		return nil, ErrEmptyIndex
	}

	results := make([][]Result, len(queries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(threads(numThreads))
	for i := range queries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			row, err := idx.queryLocked(queries[i], k, ef)
			if err != nil {
				return err
			}
			for len(row) < k {
				row = append(row, Result{Label: math.MaxUint64, Distance: float32(math.Inf(1))})
			}
			results[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
