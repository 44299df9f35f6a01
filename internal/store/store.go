// Package store binds the dataset backends to the SPARQL engine behind one
// Store interface used by the commands and the HTTP endpoint.
package store

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/geoknoesis/rdf-go/rdf"
	"github.com/sirupsen/logrus"

	"evalgo.org/rdfendpoint/internal/domain"
	"evalgo.org/rdfendpoint/internal/graph"
	"evalgo.org/rdfendpoint/internal/helpers"
	"evalgo.org/rdfendpoint/internal/logging"
	"evalgo.org/rdfendpoint/internal/rdfio"
	"evalgo.org/rdfendpoint/internal/sparql"
	"evalgo.org/rdfendpoint/internal/store/cottas"
)

// Store is a queryable RDF dataset.
type Store interface {
	// Load parses an RDF or COTTAS file into the dataset.
	Load(ctx context.Context, path string) error
	// Len returns the number of distinct quads.
	Len(ctx context.Context) (int, error)
	// Query evaluates a SPARQL query.
	Query(ctx context.Context, query string) (*sparql.Result, error)
	// Update applies a SPARQL update request.
	Update(ctx context.Context, update string) error
	// Dump serializes the whole dataset.
	Dump(ctx context.Context, w io.Writer, format rdf.Format) error
	// Backend names the storage behind the dataset.
	Backend() domain.Backend
	// Close releases the backend.
	Close() error
}

const loadBatch = 4096

// Local runs the embedded SPARQL engine over a dataset held in this process.
// Queries share the lock; loads and updates take it exclusively.
type Local struct {
	mu      sync.RWMutex
	ds      graph.Dataset
	engine  *sparql.Engine
	backend domain.Backend
	closer  io.Closer
	loads   int
	ns      rdfio.Namespaces
	log     *logrus.Entry
}

var _ Store = (*Local)(nil)

// NewLocal wraps ds. closer, when set, is closed by Close.
func NewLocal(backend domain.Backend, ds graph.Dataset, engine *sparql.Engine, closer io.Closer) *Local {
	if engine == nil {
		engine = sparql.NewEngine()
	}
	return &Local{
		ds:      ds,
		engine:  engine,
		backend: backend,
		closer:  closer,
		ns:      rdfio.Namespaces{},
		log:     logging.Logger.WithField("backend", backend.String()),
	}
}

// Dataset exposes the underlying quads.
func (l *Local) Dataset() graph.Dataset { return l.ds }

// Backend implements Store.
func (l *Local) Backend() domain.Backend { return l.backend }

func (l *Local) mutable() (graph.Mutable, error) {
	m, ok := l.ds.(graph.Mutable)
	if !ok || l.backend == domain.BackendCottas {
		return nil, &domain.ReadOnlyError{Backend: l.backend}
	}
	return m, nil
}

// Load implements Store. Blank node labels are scoped to the file by a
// per-load prefix.
func (l *Local) Load(ctx context.Context, path string) error {
	m, err := l.mutable()
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.loads++
	prefix := fmt.Sprintf("f%d_", l.loads)
	batch := make([]graph.Quad, 0, loadBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := m.Add(ctx, batch...)
		batch = batch[:0]
		return err
	}
	add := func(q graph.Quad) error {
		batch = append(batch, q)
		if len(batch) == loadBatch {
			return flush()
		}
		return nil
	}

	var n int
	if rdfio.IsCottas(path) {
		n, err = loadCottas(ctx, path, prefix, add)
	} else {
		n, err = rdfio.ReadFile(ctx, path, rdfio.ReadOptions{BlankPrefix: prefix, Namespaces: l.ns}, add)
	}
	if err != nil {
		return err
	}
	if err := flush(); err != nil {
		return fmt.Errorf("failed to store quads of %s: %w", path, err)
	}
	l.log.WithFields(logrus.Fields{"file": path, "statements": n}).Debug("File loaded")
	return nil
}

func loadCottas(ctx context.Context, path, prefix string, add func(graph.Quad) error) (int, error) {
	src, err := cottas.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = src.Close() }()

	n := 0
	var addErr error
	for _, kind := range []graph.GraphKind{graph.InDefault, graph.InNamed} {
		err := src.Match(ctx, graph.Pattern{Kind: kind}, func(q graph.Quad) bool {
			n++
			addErr = add(relabel(q, prefix))
			return addErr == nil
		})
		if err != nil {
			return n, err
		}
		if addErr != nil {
			return n, addErr
		}
	}
	return n, nil
}

func relabel(q graph.Quad, prefix string) graph.Quad {
	return graph.Quad{
		S: rdfio.Relabel(q.S, prefix),
		P: q.P,
		O: rdfio.Relabel(q.O, prefix),
		G: rdfio.Relabel(q.G, prefix),
	}
}

// Len implements Store.
func (l *Local) Len(ctx context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ds.Len(ctx)
}

// Query implements Store.
func (l *Local) Query(ctx context.Context, query string) (*sparql.Result, error) {
	q, err := l.engine.ParseQuery(query)
	if err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.engine.Eval(ctx, l.ds, q)
}

// Update implements Store.
func (l *Local) Update(ctx context.Context, update string) error {
	u, err := l.engine.ParseUpdate(update)
	if err != nil {
		return err
	}
	m, err := l.mutable()
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.Exec(ctx, m, u)
}

// Dump implements Store. The default graph is written first; Turtle and
// TriG output use the prefixes declared by the loaded files.
func (l *Local) Dump(ctx context.Context, w io.Writer, format rdf.Format) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	qw, err := rdfio.NewQuadWriter(w, format, l.ns)
	if err != nil {
		return err
	}
	var writeErr error
	write := func(q graph.Quad) bool {
		writeErr = qw.Write(q)
		return writeErr == nil
	}
	for _, kind := range []graph.GraphKind{graph.InDefault, graph.InNamed} {
		if err := l.ds.Match(ctx, graph.Pattern{Kind: kind}, write); err != nil {
			_ = qw.Close()
			return err
		}
		if writeErr != nil {
			_ = qw.Close()
			return fmt.Errorf("failed to serialize dataset: %w", writeErr)
		}
	}
	return qw.Close()
}

// Close implements Store.
func (l *Local) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// WriteFile serializes s to path in the format picked by its suffix. The file
// is replaced atomically.
func WriteFile(ctx context.Context, s Store, path string) error {
	format := rdfio.OutputFormat(path)
	return helpers.AtomicWrite(path, func(w io.Writer) error {
		return s.Dump(ctx, w, format)
	})
}
