package store

import (
	"context"
	"fmt"
	"time"

	"evalgo.org/rdfendpoint/internal/client"
	"evalgo.org/rdfendpoint/internal/domain"
	"evalgo.org/rdfendpoint/internal/logging"
	"evalgo.org/rdfendpoint/internal/sparql"
	"evalgo.org/rdfendpoint/internal/store/badgerstore"
	"evalgo.org/rdfendpoint/internal/store/cottas"
	"evalgo.org/rdfendpoint/internal/store/memory"
	"evalgo.org/rdfendpoint/internal/store/oxigraph"
)

// Factory opens a store for a configuration.
type Factory func(ctx context.Context, cfg domain.StoreConfig) (Store, error)

// RemoteTimeout bounds every request to a remote store.
const RemoteTimeout = 5 * time.Minute

// Registry maps backends to their factories.
type Registry struct {
	factories map[domain.Backend]Factory
	clients   *client.Manager
}

// NewRegistry creates a registry with every selectable backend.
func NewRegistry() *Registry {
	reg := &Registry{
		factories: make(map[domain.Backend]Factory),
		clients:   client.NewManager(RemoteTimeout, false),
	}

	reg.Register(domain.BackendDefault, openMemory)
	reg.Register(domain.BackendBadger, openBadger)
	reg.Register(domain.BackendOxigraph, reg.openOxigraph)

	return reg
}

// Register registers a factory for a backend
func (r *Registry) Register(b domain.Backend, f Factory) {
	r.factories[b] = f
}

// Open creates the store selected by cfg.Backend.
func (r *Registry) Open(ctx context.Context, cfg domain.StoreConfig) (Store, error) {
	f, exists := r.factories[cfg.Backend]
	if !exists {
		return nil, domain.NewNotFoundError("backend", cfg.Backend.String())
	}
	return f(ctx, cfg)
}

func openMemory(_ context.Context, _ domain.StoreConfig) (Store, error) {
	return NewLocal(domain.BackendDefault, memory.New(), sparql.NewEngine(), nil), nil
}

func openBadger(_ context.Context, cfg domain.StoreConfig) (Store, error) {
	db, err := badgerstore.Open(badgerstore.Config{
		Dir:         cfg.Path,
		Compression: cfg.Path != "",
		Logger:      logging.NewBadgerLogger(logging.Logger.WithField("path", cfg.Path)),
	})
	if err != nil {
		return nil, err
	}
	return NewLocal(domain.BackendBadger, db, sparql.NewEngine(), db), nil
}

func (r *Registry) openOxigraph(_ context.Context, cfg domain.StoreConfig) (Store, error) {
	c, err := oxigraph.New(oxigraph.Config{URL: cfg.URL, Client: r.clients.GetClient(cfg.URL)})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// OpenCottas serves a COTTAS file directly. The store is read-only.
func OpenCottas(path string) (Store, error) {
	src, err := cottas.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open COTTAS store: %w", err)
	}
	return NewLocal(domain.BackendCottas, src, sparql.NewEngine(), src), nil
}
