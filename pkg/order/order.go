// Package order maintains the universal order: one manual ordering of every
// known card key that all filtered views are reconciled against.
package order

import "slices"

// Resolver owns the universal order. Each key appears at most once.
// Resolver is not safe for concurrent use.
type Resolver struct {
	keys []string
	pos  map[string]int
}

// New builds a resolver from a persisted order. Duplicate and empty keys are dropped.
func New(keys []string) *Resolver {
	r := &Resolver{}
	r.set(keys)
	return r
}

func (r *Resolver) set(keys []string) {
	r.keys = make([]string, 0, len(keys))
	r.pos = make(map[string]int, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, dup := r.pos[k]; dup {
			continue
		}
		r.pos[k] = len(r.keys)
		r.keys = append(r.keys, k)
	}
}

// Keys returns a copy of the universal order.
func (r *Resolver) Keys() []string {
	return slices.Clone(r.keys)
}

// Len returns the number of keys.
func (r *Resolver) Len() int {
	return len(r.keys)
}

// Position returns the index of key in the universal order.
func (r *Resolver) Position(key string) (int, bool) {
	i, ok := r.pos[key]
	return i, ok
}

// Reconcile applies a reorder of the visible keys. The new order is the
// visible keys as given, then the previously ordered keys that are not
// visible in their original relative order, then any known key not yet
// present. Hidden cards keep their relative positions.
func (r *Resolver) Reconcile(visible, known []string) []string {
	inVisible := make(map[string]struct{}, len(visible))
	next := make([]string, 0, len(r.keys)+len(known))
	for _, k := range visible {
		if k == "" {
			continue
		}
		if _, dup := inVisible[k]; dup {
			continue
		}
		inVisible[k] = struct{}{}
		next = append(next, k)
	}
	for _, k := range r.keys {
		if _, ok := inVisible[k]; !ok {
			next = append(next, k)
		}
	}
	next = append(next, known...)
	r.set(next)
	return r.Keys()
}

// Ensure appends keys that are not yet ordered. It never reorders and
// reports whether anything was added.
func (r *Resolver) Ensure(keys []string) bool {
	added := false
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := r.pos[k]; ok {
			continue
		}
		r.pos[k] = len(r.keys)
		r.keys = append(r.keys, k)
		added = true
	}
	return added
}

// Insert places a new key at the head or the tail. Known keys are moved.
func (r *Resolver) Insert(key string, atHead bool) {
	if key == "" {
		return
	}
	r.Remove(key)
	if atHead {
		r.set(append([]string{key}, r.keys...))
		return
	}
	r.pos[key] = len(r.keys)
	r.keys = append(r.keys, key)
}

// Rename replaces a key in place, e.g. when a card gains a document and
// its key changes from id to path. If next is already ordered the old key
// is simply removed.
func (r *Resolver) Rename(prev, next string) {
	if prev == next || next == "" {
		return
	}
	i, ok := r.pos[prev]
	if !ok {
		r.Ensure([]string{next})
		return
	}
	if _, taken := r.pos[next]; taken {
		r.Remove(prev)
		return
	}
	r.keys[i] = next
	delete(r.pos, prev)
	r.pos[next] = i
}

// Remove drops a key and reports whether it was present.
func (r *Resolver) Remove(key string) bool {
	i, ok := r.pos[key]
	if !ok {
		return false
	}
	r.keys = slices.Delete(r.keys, i, i+1)
	delete(r.pos, key)
	for j := i; j < len(r.keys); j++ {
		r.pos[r.keys[j]] = j
	}
	return true
}

// InOrder reports whether keys already follow the universal order. Keys
// that are not ordered yet count as out of order.
func (r *Resolver) InOrder(keys []string) bool {
	last := -1
	for _, k := range keys {
		i, ok := r.pos[k]
		if !ok || i < last {
			return false
		}
		last = i
	}
	return true
}

// Snapshot records keys as the manual order unless they already follow it.
// It reports whether the universal order changed.
func (r *Resolver) Snapshot(keys []string) bool {
	if r.InOrder(keys) {
		return false
	}
	before := r.Keys()
	after := r.Reconcile(keys, nil)
	return !slices.Equal(before, after)
}
