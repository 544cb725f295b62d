package engine

import (
	"context"
	"time"

	"github.com/Kazi-Aidah/sidecards/pkg/core"
)

// SweepExpired archives or deletes, per the configured expiry action, every
// card in memory whose expiry has passed. Loads keep cards of the other view
// that carry an expiry in memory, so both views are covered. It returns the
// affected cards.
func (e *Engine) SweepExpired(ctx context.Context) ([]core.Card, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(ctx); err != nil {
		return nil, err
	}
	swept := e.sweepLocked(ctx)
	e.scheduleSweep()
	return swept, nil
}

func (e *Engine) sweepLocked(ctx context.Context) []core.Card {
	now := e.clock.Now()
	action := e.record.ExpiryAction

	var swept []core.Card
	for _, c := range e.allCards() {
		if !c.Expired(now) {
			continue
		}
		switch action {
		case core.ExpireDelete:
			card := e.card(c.ID)
			if card == nil {
				continue
			}
			swept = append(swept, card.Clone())
			if err := e.deleteLocked(ctx, card); err != nil {
				e.logger.Warn("expired card removed without its document", "card", c.ID, "error", err)
			}
		default:
			if c.Archived {
				continue
			}
			card := e.card(c.ID)
			if card == nil {
				continue
			}
			next := card.Clone()
			next.Archived = true
			e.setArchivedLocked(card, next)
			swept = append(swept, next)
		}
	}
	if len(swept) > 0 {
		e.logger.Info("expired cards swept", "count", len(swept), "action", string(action))
	}
	return swept
}

// sweepable reports whether the sweep acts on c once its expiry passes.
func (e *Engine) sweepable(c core.Card) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !c.Archived || e.record.ExpiryAction == core.ExpireDelete
}

// scheduleSweep arms a timer for the earliest pending expiry.
func (e *Engine) scheduleSweep() {
	if e.closed {
		return
	}
	now := e.clock.Now()
	var next time.Time
	for _, c := range e.allCards() {
		if !e.sweepable(*c) {
			continue
		}
		if next.IsZero() || c.ExpiresAt.Before(next) {
			next = c.ExpiresAt
		}
	}
	if next.IsZero() {
		e.sched.Cancel(expiryKey)
		return
	}

	delay := max(next.Sub(now), 0)
	e.sched.Debounce(expiryKey, delay, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed {
			return
		}
		e.sweepLocked(context.Background())
		e.scheduleSweep()
	})
}
