package batch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Outcome is the result of one asset. Exactly one of Value or Err is
// meaningful.
type Outcome[T any] struct {
	Asset string
	Value T
	Err   error
}

// Failed reports whether the asset failed.
func (o Outcome[T]) Failed() bool { return o.Err != nil }

// Run calls fn for every asset with at most limit calls in flight and
// returns the outcomes in input order. A failing asset does not stop the
// others; once ctx is done the remaining assets fail with its error.
func Run[T any](ctx context.Context, assets []string, limit int, fn func(context.Context, string) (T, error)) []Outcome[T] {
	out := make([]Outcome[T], len(assets))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, asset := range assets {
		i, asset := i, asset
		out[i].Asset = asset
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[i].Err = err
				return nil
			}
			v, err := call(ctx, asset, fn)
			if err != nil {
				out[i].Err = err
				return nil
			}
			out[i].Value = v
			return nil
		})
	}
	g.Wait()
	return out
}

// call turns a panic in fn into that asset's error.
func call[T any](ctx context.Context, asset string, fn func(context.Context, string) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("asset %s: panic: %v", asset, r)
		}
	}()
	return fn(ctx, asset)
}

// Errors returns the failed outcomes.
func Errors[T any](outcomes []Outcome[T]) []Outcome[T] {
	var failed []Outcome[T]
	for _, o := range outcomes {
		if o.Failed() {
			failed = append(failed, o)
		}
	}
	return failed
}
