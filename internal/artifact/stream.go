package artifact

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Stage consumes artifacts from in and forwards results to out.
// A stage must not close out; Chain owns the channels.
type Stage func(ctx context.Context, in <-chan *Artifact, out chan<- *Artifact) error

// Send forwards a to out unless ctx is cancelled first.
func Send(ctx context.Context, out chan<- *Artifact, a *Artifact) error {
	select {
	case out <- a:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PassThrough forwards every artifact unchanged after calling observe on it.
func PassThrough(observe func(*Artifact) error) Stage {
	return func(ctx context.Context, in <-chan *Artifact, out chan<- *Artifact) error {
		for a := range in {
			if observe != nil {
				if err := observe(a); err != nil {
					return err
				}
			}
			if err := Send(ctx, out, a); err != nil {
				return err
			}
		}
		return nil
	}
}

// Chain feeds src through stages in order and collects what comes out of the
// last one. All stages run concurrently; Chain returns after every stage has
// finished, which makes its return the end-of-stream barrier.
func Chain(ctx context.Context, src []*Artifact, stages ...Stage) ([]*Artifact, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	g, gctx := errgroup.WithContext(ctx)

	head := make(chan *Artifact)
	g.Go(func() error {
		defer close(head)
		for _, a := range src {
			if err := Send(gctx, head, a); err != nil {
				return err
			}
		}
		return nil
	})

	var in <-chan *Artifact = head
	for _, stage := range stages {
		out := make(chan *Artifact)
		g.Go(func(stage Stage, in <-chan *Artifact, out chan *Artifact) func() error {
			return func() error {
				defer close(out)
				err := stage(gctx, in, out)
				// unblock the upstream sender if the stage bailed early
				for range in {
				}
				return err
			}
		}(stage, in, out))
		in = out
	}

	var collected []*Artifact
	for a := range in {
		collected = append(collected, a)
	}
	if err := g.Wait(); err != nil {
		return collected, err
	}
	return collected, nil
}
