package platform

import (
	"context"
	"errors"
	"time"

	"github.com/Kazi-Aidah/sidecards/pkg/adapters/markdown"
	"github.com/Kazi-Aidah/sidecards/pkg/core"
	"github.com/Kazi-Aidah/sidecards/pkg/engine"
)

// Vault is an engine wired to its document and settings stores.
type Vault struct {
	*engine.Engine

	// Path is the resolved vault directory. It differs from the requested
	// one when the dev sandbox is active.
	Path      string
	Documents core.DocumentStore
	Settings  core.SettingsStore

	closers []func() error
}

// New builds a vault. The URI argument is adapter-specific (a directory for
// "fs"). The returned vault is opened: the settings record has been read.
//
//	v, err := platform.New("./notes", platform.WithVersioning(false))
func New(uri string, opts ...Option) (*Vault, error) {
	o := parseOptions(opts)
	ctx := context.Background()

	docs, l, err := initDocuments(uri, o)
	if err != nil {
		return nil, err
	}

	settings, closer, err := openSettings(ctx, l, o)
	if err != nil {
		return nil, err
	}

	renderer := o.renderer
	if renderer == nil {
		renderer = markdown.New()
	}

	engineOpts := []engine.Option{
		engine.WithDocuments(docs),
		engine.WithRenderer(renderer),
		engine.WithNotesFolder(l.folder),
	}
	if o.logger != nil {
		engineOpts = append(engineOpts, engine.WithLogger(o.logger))
	}
	if o.clock != nil {
		engineOpts = append(engineOpts, engine.WithClock(o.clock))
	}
	delay, _ := o.config["save_delay"].(time.Duration)
	bulk, _ := o.config["bulk_delay"].(time.Duration)
	if delay > 0 || bulk > 0 {
		engineOpts = append(engineOpts, engine.WithDelays(delay, bulk))
	}
	if gitless, ok := o.config["gitless"].(bool); ok {
		engineOpts = append(engineOpts, engine.WithVersioning(!gitless))
	}

	v := &Vault{
		Engine:    engine.New(settings, engineOpts...),
		Path:      l.path,
		Documents: docs,
		Settings:  settings,
	}
	if closer != nil {
		v.closers = append(v.closers, closer)
	}

	if err := v.Open(ctx); err != nil && o.logger != nil {
		// The engine keeps defaults and retries on the first Load.
		o.logger.Warn("settings unreadable, using defaults", "error", err)
	}
	return v, nil
}

// Close flushes pending work and releases the backend connections.
func (v *Vault) Close(ctx context.Context) error {
	errs := []error{v.Engine.Close(ctx)}
	for _, c := range v.closers {
		errs = append(errs, c())
	}
	v.closers = nil
	return errors.Join(errs...)
}
