// Package memory provides in-process implementations of the storage ports.
// They back ephemeral engines and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Kazi-Aidah/sidecards/pkg/core"
)

// Documents is an in-memory core.DocumentStore with a change stream.
type Documents struct {
	mu       sync.RWMutex
	docs     map[string]doc
	now      func() time.Time
	watchers []chan core.Event

	// FailReads and FailWrites inject I/O errors for the given paths.
	FailReads  map[string]error
	FailWrites map[string]error

	writes int
}

type doc struct {
	text    string
	modTime time.Time
}

// NewDocuments creates an empty document store.
func NewDocuments() *Documents {
	return &Documents{
		docs:       make(map[string]doc),
		now:        time.Now,
		FailReads:  make(map[string]error),
		FailWrites: make(map[string]error),
	}
}

// SetClock overrides the time source for modification times.
func (d *Documents) SetClock(now func() time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = now
}

func (d *Documents) Read(ctx context.Context, path string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	path = core.NormalizePath(path)
	if err := d.FailReads[path]; err != nil {
		return "", err
	}
	v, ok := d.docs[path]
	if !ok {
		return "", fmt.Errorf("%w: %s", core.ErrDocNotFound, path)
	}
	return v.text, nil
}

func (d *Documents) Modify(ctx context.Context, path, text string) error {
	return d.write(path, text, false)
}

func (d *Documents) Create(ctx context.Context, path, text string) error {
	return d.write(path, text, true)
}

func (d *Documents) write(path, text string, create bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	path = core.NormalizePath(path)
	if path == "" {
		return core.ErrInvalidPath
	}
	if err := d.FailWrites[path]; err != nil {
		return err
	}
	_, exists := d.docs[path]
	if create && exists {
		return fmt.Errorf("%w: %s", core.ErrExists, path)
	}
	if !create && !exists {
		return fmt.Errorf("%w: %s", core.ErrDocNotFound, path)
	}
	d.docs[path] = doc{text: text, modTime: d.now()}
	d.writes++
	return nil
}

func (d *Documents) Delete(ctx context.Context, path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.docs, core.NormalizePath(path))
	return nil
}

func (d *Documents) Exists(ctx context.Context, path string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.docs[core.NormalizePath(path)]
	return ok, nil
}

func (d *Documents) Stat(ctx context.Context, path string) (core.DocumentInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	path = core.NormalizePath(path)
	v, ok := d.docs[path]
	if !ok {
		return core.DocumentInfo{}, fmt.Errorf("%w: %s", core.ErrDocNotFound, path)
	}
	return core.DocumentInfo{Path: path, ModTime: v.modTime}, nil
}

func (d *Documents) List(ctx context.Context) ([]core.DocumentInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]core.DocumentInfo, 0, len(d.docs))
	for p, v := range d.docs {
		out = append(out, core.DocumentInfo{Path: p, ModTime: v.modTime})
	}
	slices.SortFunc(out, func(a, b core.DocumentInfo) int {
		if a.Path < b.Path {
			return -1
		}
		if a.Path > b.Path {
			return 1
		}
		return 0
	})
	return out, nil
}

// Writes returns the number of successful Create and Modify calls.
func (d *Documents) Writes() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.writes
}

// Put stores a document as an outside editor would and publishes the change.
func (d *Documents) Put(path, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	path = core.NormalizePath(path)
	_, existed := d.docs[path]
	d.docs[path] = doc{text: text, modTime: d.now()}

	eType := core.EventCreate
	if existed {
		eType = core.EventModify
	}
	publish(d.watchers, core.Event{Type: eType, Path: path, Timestamp: time.Now().Unix()})
}

// Remove deletes a document as an outside editor would and publishes the change.
func (d *Documents) Remove(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	path = core.NormalizePath(path)
	delete(d.docs, path)

	publish(d.watchers, core.Event{Type: core.EventDelete, Path: path, Timestamp: time.Now().Unix()})
}

// publish must be called with d.mu held so that no channel is closed mid-send.
func publish(watchers []chan core.Event, e core.Event) {
	for _, ch := range watchers {
		select {
		case ch <- e:
		default:
		}
	}
}

// Watch implements core.Watchable for changes made through Put and Remove.
func (d *Documents) Watch(ctx context.Context) (<-chan core.Event, error) {
	ch := make(chan core.Event, 64)
	d.mu.Lock()
	d.watchers = append(d.watchers, ch)
	d.mu.Unlock()

	go func() {
		<-ctx.Done()
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, w := range d.watchers {
			if w == ch {
				d.watchers = slices.Delete(d.watchers, i, i+1)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}

var _ core.DocumentStore = (*Documents)(nil)
var _ core.Watchable = (*Documents)(nil)

// Settings is an in-memory core.SettingsStore. Records are stored encoded
// so callers never share slices with the store.
type Settings struct {
	mu    sync.Mutex
	data  []byte
	saves int

	// FailLoad and FailSave inject errors.
	FailLoad error
	FailSave error
}

// NewSettings creates an empty settings store.
func NewSettings() *Settings {
	return &Settings{}
}

func (s *Settings) Load(ctx context.Context) (core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailLoad != nil {
		return core.Record{}, s.FailLoad
	}
	if s.data == nil {
		return core.DefaultRecord(), nil
	}
	var r core.Record
	if err := json.Unmarshal(s.data, &r); err != nil {
		return core.Record{}, err
	}
	r.Normalize()
	return r, nil
}

func (s *Settings) Save(ctx context.Context, r core.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSave != nil {
		return s.FailSave
	}
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	s.data = data
	s.saves++
	return nil
}

// Saves returns the number of successful saves.
func (s *Settings) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

var _ core.SettingsStore = (*Settings)(nil)
