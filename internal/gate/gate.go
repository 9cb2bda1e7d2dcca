// Package gate bounds how many blocking external operations (media
// downloads, local model inference) run at once. It is the process-wide
// concurrency ceiling that keeps a batch of N items from exhausting host
// CPU, disk, or network.
package gate

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Gate is a bounded admission semaphore shared by all stages.
type Gate struct {
	sem *semaphore.Weighted
}

// New creates a gate admitting at most width concurrent operations.
// Width is clamped to at least 1.
func New(width int) *Gate {
	if width < 1 {
		width = 1
	}
	return &Gate{sem: semaphore.NewWeighted(int64(width))}
}

// Do runs fn once a slot is available. It returns the context error if ctx
// is done before a slot frees up; otherwise it returns fn's error.
func (g *Gate) Do(ctx context.Context, fn func() error) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer g.sem.Release(1)
	return fn()
}
