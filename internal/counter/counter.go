// Package counter provides atomic increment-and-get over the supported key-value stores.
package counter

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrMalformedResponse is returned when the store answered without a usable integer value.
var ErrMalformedResponse = errors.New("malformed store response")

// Counter increments the single visit counter by one and returns the value
// right after this call's increment was applied.
type Counter interface {
	Up(ctx context.Context) (int64, error)
}

var _ Counter = (*LocalCounter)(nil)

// LocalCounter keeps the count in process memory. It starts at zero.
type LocalCounter struct {
	count int64
}

func (c *LocalCounter) Up(ctx context.Context) (int64, error) {
	return atomic.AddInt64(&c.count, 1), nil
}

func (c *LocalCounter) Get(ctx context.Context) (int64, error) {
	return atomic.LoadInt64(&c.count), nil
}

// Func adapts a plain function to Counter.
type Func func(ctx context.Context) (int64, error)

func (f Func) Up(ctx context.Context) (int64, error) {
	return f(ctx)
}
