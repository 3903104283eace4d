// Package lifecycle exposes vault note events as a lifecycle.Source.
package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"

	"github.com/boydwold/spellar-vault/pkg/adapters/fs"
)

type noteSource struct {
	events <-chan fs.NoteEvent
	out    chan lifecycle.Event
}

// NewSource bridges a vault watch channel to lifecycle events.
// The output closes when events closes or the Start context ends.
func NewSource(events <-chan fs.NoteEvent) lifecycle.Source {
	return &noteSource{
		events: events,
		out:    make(chan lifecycle.Event),
	}
}

func (s *noteSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *noteSource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-s.events:
				if !ok {
					return nil
				}
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
