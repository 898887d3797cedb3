// Package taskgroup runs keyed work with bounded concurrency and collects a
// result per key. A failing task never cancels its siblings.
package taskgroup

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one task.
type Result[V any] struct {
	Value V
	Err   error
}

// Run calls fn for every key with at most limit calls in flight and returns
// the result for each key. Duplicate keys run once. A panic in fn is
// recovered and reported as that key's error.
func Run[K comparable, V any](ctx context.Context, keys []K, limit int, fn func(context.Context, K) (V, error)) map[K]Result[V] {
	if limit < 1 {
		limit = 1
	}

	results := make(map[K]Result[V], len(keys))
	var mu sync.Mutex

	// errgroup only bounds concurrency here; task errors are kept per key,
	// so the group's context is never cancelled by a failure.
	var g errgroup.Group
	g.SetLimit(limit)

	for _, key := range keys {
		mu.Lock()
		_, dup := results[key]
		if !dup {
			results[key] = Result[V]{}
		}
		mu.Unlock()
		if dup {
			continue
		}

		g.Go(func() error {
			v, err := call(ctx, key, fn)
			mu.Lock()
			results[key] = Result[V]{Value: v, Err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func call[K comparable, V any](ctx context.Context, key K, fn func(context.Context, K) (V, error)) (v V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %v panicked: %v", key, r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return v, err
	}
	return fn(ctx, key)
}
