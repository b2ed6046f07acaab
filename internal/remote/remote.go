// Package remote tracks data loaded from the API for one view: whether it is
// still loading, ready or failed, and the value or error.
package remote

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

type State int

const (
	Loading State = iota
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Resource is one remote value. The zero value is Loading.
type Resource[T any] struct {
	State State
	Data  T
	Err   error
}

func (r *Resource[T]) Ready() bool  { return r.State == Ready }
func (r *Resource[T]) Failed() bool { return r.State == Failed }

// Step is one fetch run by Load.
type Step func(ctx context.Context) error

// Fetch returns a Step that fills r from fetch.
func (r *Resource[T]) Fetch(fetch func(context.Context) (T, error)) Step {
	return func(ctx context.Context) error {
		v, err := fetch(ctx)
		if err != nil {
			r.State, r.Err = Failed, err
			return err
		}
		r.State, r.Data, r.Err = Ready, v, nil
		return nil
	}
}

// Load runs steps concurrently under ctx. The first failure cancels the rest
// and is returned once every step has stopped.
func Load(ctx context.Context, steps ...Step) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, step := range steps {
		g.Go(func() error { return step(ctx) })
	}
	return g.Wait()
}

// Collection is a remote list.
type Collection[T any] struct {
	Resource[[]T]
}

func (c *Collection[T]) Items() []T { return c.Data }

// Empty reports a loaded list with no items.
func (c *Collection[T]) Empty() bool { return c.State == Ready && len(c.Data) == 0 }
