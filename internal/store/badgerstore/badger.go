// Package badgerstore keeps quads in BadgerDB under four index orders.
package badgerstore

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/geoknoesis/rdf-go/rdf"

	"evalgo.org/rdfendpoint/internal/graph"
)

// Index prefixes. Each quad is written once per index.
const (
	idxSPOG byte = 's'
	idxPOSG byte = 'p'
	idxOSPG byte = 'o'
	idxGSPO byte = 'g'
)

// Config holds the configuration for the Badger store.
type Config struct {
	// Dir is the data directory. Empty selects in-memory mode.
	Dir string

	// Compression enables ZSTD block compression.
	Compression bool

	// SyncWrites makes every write durable before returning.
	SyncWrites bool

	// Logger receives Badger's internal messages; nil silences them.
	Logger badger.Logger
}

// Store is a graph.Mutable backed by BadgerDB.
type Store struct {
	db *badger.DB
}

func buildOptions(cfg Config) badger.Options {
	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.Dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = cfg.Logger
	opts.SyncWrites = cfg.SyncWrites
	opts.DetectConflicts = false
	if cfg.Compression {
		opts.Compression = options.ZSTD
	} else {
		opts.Compression = options.None
	}
	return opts
}

// Open opens or creates the database described by cfg.
func Open(cfg Config) (*Store, error) {
	db, err := badger.Open(buildOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func appendTerm(buf []byte, term string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(term)))
	return append(buf, term...)
}

// encodeKey writes the four NT-encoded terms in index order, each length-prefixed.
func encodeKey(idx byte, k [4]string) []byte {
	order := permutation(idx)
	buf := make([]byte, 0, 1+len(k[0])+len(k[1])+len(k[2])+len(k[3])+8)
	buf = append(buf, idx)
	for _, i := range order {
		buf = appendTerm(buf, k[i])
	}
	return buf
}

func prefixKey(idx byte, parts ...string) []byte {
	buf := []byte{idx}
	for _, p := range parts {
		buf = appendTerm(buf, p)
	}
	return buf
}

func permutation(idx byte) [4]int {
	switch idx {
	case idxPOSG:
		return [4]int{1, 2, 0, 3}
	case idxOSPG:
		return [4]int{2, 0, 1, 3}
	case idxGSPO:
		return [4]int{3, 0, 1, 2}
	default:
		return [4]int{0, 1, 2, 3}
	}
}

func decodeKey(key []byte) ([4]string, error) {
	var k [4]string
	if len(key) == 0 {
		return k, fmt.Errorf("empty key")
	}
	order := permutation(key[0])
	rest := key[1:]
	for _, i := range order {
		n, w := binary.Uvarint(rest)
		if w <= 0 || uint64(len(rest)-w) < n {
			return k, fmt.Errorf("corrupt key %q", key)
		}
		k[i] = string(rest[w : w+int(n)])
		rest = rest[w+int(n):]
	}
	return k, nil
}

func decodeQuad(k [4]string) (graph.Quad, error) {
	var q graph.Quad
	var err error
	if q.S, err = graph.ParseTerm(k[0]); err != nil {
		return q, err
	}
	if q.P, err = graph.ParseTerm(k[1]); err != nil {
		return q, err
	}
	if q.O, err = graph.ParseTerm(k[2]); err != nil {
		return q, err
	}
	if k[3] != "" {
		if q.G, err = graph.ParseTerm(k[3]); err != nil {
			return q, err
		}
	}
	return q, nil
}

func (s *Store) write(ctx context.Context, quads []graph.Quad, del bool) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for i, q := range quads {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		k := graph.Quad{S: graph.Canonical(q.S), P: q.P, O: graph.Canonical(q.O), G: q.G}.Key()
		for _, idx := range []byte{idxSPOG, idxPOSG, idxOSPG, idxGSPO} {
			var err error
			if del {
				err = wb.Delete(encodeKey(idx, k))
			} else {
				err = wb.Set(encodeKey(idx, k), nil)
			}
			if err != nil {
				return fmt.Errorf("failed to write quad %d: %w", i, err)
			}
		}
	}
	return wb.Flush()
}

// Add inserts quads.
func (s *Store) Add(ctx context.Context, quads ...graph.Quad) error {
	return s.write(ctx, quads, false)
}

// Remove deletes quads.
func (s *Store) Remove(ctx context.Context, quads ...graph.Quad) error {
	return s.write(ctx, quads, true)
}

// DropGraph deletes every quad of g; nil is the default graph.
func (s *Store) DropGraph(ctx context.Context, g rdf.Term) error {
	var quads []graph.Quad
	err := s.scan(ctx, prefixKey(idxGSPO, graph.FormatTerm(g)), func(k [4]string) (bool, error) {
		q, err := decodeQuad(k)
		if err != nil {
			return false, err
		}
		quads = append(quads, q)
		return true, nil
	})
	if err != nil {
		return err
	}
	return s.Remove(ctx, quads...)
}

// scan iterates keys under prefix and decodes them.
func (s *Store) scan(ctx context.Context, prefix []byte, fn func([4]string) (bool, error)) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		n := 0
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
			if n%4096 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			k, err := decodeKey(it.Item().Key())
			if err != nil {
				return err
			}
			more, err := fn(k)
			if err != nil || !more {
				return err
			}
		}
		return nil
	})
}

// plan picks the index and key prefix for a pattern.
func plan(p graph.Pattern) []byte {
	s, pr, o := graph.FormatTerm(p.S), graph.FormatTerm(p.P), graph.FormatTerm(p.O)
	graphKnown := p.Kind == graph.InDefault || p.Kind == graph.InGraph
	switch {
	case p.S != nil && p.P != nil && p.O != nil:
		return prefixKey(idxSPOG, s, pr, o)
	case p.S != nil && p.P != nil:
		return prefixKey(idxSPOG, s, pr)
	case p.S != nil && p.O != nil:
		return prefixKey(idxOSPG, o, s)
	case p.S != nil:
		return prefixKey(idxSPOG, s)
	case p.P != nil && p.O != nil:
		return prefixKey(idxPOSG, pr, o)
	case p.P != nil:
		return prefixKey(idxPOSG, pr)
	case p.O != nil:
		return prefixKey(idxOSPG, o)
	case graphKnown:
		return prefixKey(idxGSPO, graph.FormatTerm(p.Name))
	}
	return []byte{idxSPOG}
}

// Match calls fn for every quad matching p.
func (s *Store) Match(ctx context.Context, p graph.Pattern, fn func(graph.Quad) bool) error {
	if p.Kind == graph.InDefault {
		p.Name = nil
	}
	deliver := fn
	if p.Kind == graph.InUnion {
		deliver = graph.UnionFilter(fn)
	}
	return s.scan(ctx, plan(p), func(k [4]string) (bool, error) {
		q, err := decodeQuad(k)
		if err != nil {
			return false, err
		}
		if !p.InScope(q) || !p.Matches(q) {
			return true, nil
		}
		return deliver(q), nil
	})
}

// Graphs returns the distinct named graphs.
func (s *Store) Graphs(ctx context.Context) ([]rdf.Term, error) {
	var out []rdf.Term
	var last string
	err := s.scan(ctx, []byte{idxGSPO}, func(k [4]string) (bool, error) {
		if k[3] == "" || k[3] == last {
			return true, nil
		}
		last = k[3]
		g, err := graph.ParseTerm(k[3])
		if err != nil {
			return false, err
		}
		out = append(out, g)
		return true, nil
	})
	return out, err
}

// Len counts the stored quads.
func (s *Store) Len(ctx context.Context) (int, error) {
	n := 0
	err := s.scan(ctx, []byte{idxSPOG}, func([4]string) (bool, error) {
		n++
		return true, nil
	})
	return n, err
}

var _ graph.Mutable = (*Store)(nil)
