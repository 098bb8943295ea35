// Package core assembles a client session from configuration.
package core

import (
	"errors"

	"github.com/chatflow-dev/chatflow/client"
	"github.com/chatflow-dev/chatflow/config"
	"github.com/chatflow-dev/chatflow/endpoint"
	"github.com/chatflow-dev/chatflow/event"
	"github.com/chatflow-dev/chatflow/store"
	"github.com/chatflow-dev/chatflow/utils"
)

// App is one client session: the store, the registry the client resolves addresses
// through, the bus store changes are published on, and the client itself. Nothing
// here is global; every piece is reachable only through the App.
type App struct {
	Config   *config.Config
	Store    *store.Store
	Registry *endpoint.Registry
	Bus      event.EventBus
	Client   *client.Client

	stopPublish func()
	closed      bool
}

// Option customises NewApp.
type Option func(*appOptions)

type appOptions struct {
	clientOpts []client.Option
	bus        event.EventBus
}

// WithClientOptions passes options to the client.
func WithClientOptions(opts ...client.Option) Option {
	return func(o *appOptions) { o.clientOpts = append(o.clientOpts, opts...) }
}

// WithEventBus uses bus instead of building one from config. The App closes it.
func WithEventBus(bus event.EventBus) Option {
	return func(o *appOptions) { o.bus = bus }
}

// NewApp builds a session from cfg. A nil cfg means config.Default().
func NewApp(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}

	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}

	bus := o.bus
	if bus == nil {
		bus, err = event.NewEventBusFromConfig(&cfg.Event)
		if err != nil {
			utils.Warn("Failed to create event bus: %v, using in-memory fallback", err)
			bus = event.NewInProcEventBus()
		}
	}

	st := store.New(store.Options{Strict: cfg.Store.Strict, WorkspaceID: cfg.Store.WorkspaceID})
	app := &App{
		Config:   cfg,
		Store:    st,
		Registry: reg,
		Bus:      bus,
		Client:   client.New(reg, st, o.clientOpts...),
	}
	app.stopPublish = store.PublishChanges(st, bus)
	utils.Debug("session ready: workspace=%s strict=%t", cfg.Store.WorkspaceID, cfg.Store.Strict)
	return app, nil
}

// Close stops publishing store changes and closes the bus. Later calls do nothing.
func (a *App) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	var errs []error
	if a.stopPublish != nil {
		a.stopPublish()
		a.stopPublish = nil
	}
	if a.Bus != nil {
		if err := a.Bus.Close(); err != nil {
			utils.Error("Failed to close event bus: %v", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
