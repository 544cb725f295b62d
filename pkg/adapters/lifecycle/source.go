// Package lifecycle bridges card document events into the lifecycle event model.
package lifecycle

import (
	"context"
	"sync/atomic"

	"github.com/aretw0/lifecycle"

	"github.com/Kazi-Aidah/sidecards/pkg/core"
)

// Source re-emits the engine's applied document changes as lifecycle events.
type Source struct {
	events <-chan core.Event
	out    chan lifecycle.Event
	only   map[core.EventType]bool

	forwarded atomic.Int64
	dropped   atomic.Int64
}

var _ lifecycle.Source = (*Source)(nil)

// Option configures a Source.
type Option func(*Source)

// Only forwards events of the given types; others are counted as dropped.
func Only(types ...core.EventType) Option {
	return func(s *Source) {
		if len(types) == 0 {
			return
		}
		s.only = make(map[core.EventType]bool, len(types))
		for _, t := range types {
			s.only[t] = true
		}
	}
}

// NewSource creates a Source over an engine watch channel.
// The output channel closes when the input closes or ctx ends.
func NewSource(events <-chan core.Event, opts ...Option) *Source {
	s := &Source{
		events: events,
		out:    make(chan lifecycle.Event),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) Events() <-chan lifecycle.Event {
	return s.out
}

// Forwarded returns how many events were emitted.
func (s *Source) Forwarded() int64 { return s.forwarded.Load() }

// Dropped returns how many events the type filter discarded.
func (s *Source) Dropped() int64 { return s.dropped.Load() }

func (s *Source) Start(ctx context.Context) error {
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
				if s.only != nil && !s.only[e.Type] {
					s.dropped.Add(1)
					continue
				}
				select {
				case s.out <- e:
					s.forwarded.Add(1)
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
