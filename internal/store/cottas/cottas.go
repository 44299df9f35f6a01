// Package cottas reads and writes COTTAS files: RDF quads stored as a Parquet
// table with string columns s, p, o and an optional g, each holding one term
// in N-Triples syntax. The writer sorts rows by an index order recorded in the
// "index" key/value metadata entry.
package cottas

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/geoknoesis/rdf-go/rdf"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"

	"evalgo.org/rdfendpoint/internal/domain"
	"evalgo.org/rdfendpoint/internal/graph"
)

// IndexKey is the metadata key holding the sort order of a file.
const IndexKey = "index"

const readBatch = 1024

// row is one COTTAS record. An empty G is the default graph and is stored as null.
type row struct {
	S string `parquet:"s"`
	P string `parquet:"p"`
	O string `parquet:"o"`
	G string `parquet:"g,optional"`
}

// Store is a read-only dataset over one COTTAS file.
type Store struct {
	path   string
	file   *os.File
	pq     *parquet.File
	index  string
	column map[string]bool
}

var _ graph.Dataset = (*Store)(nil)

// Open maps the Parquet footer of path. Row data is read lazily by Match.
func Open(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to read COTTAS file %s: %w", path, err)
	}

	s := &Store{path: path, file: f, pq: pf, column: map[string]bool{}}
	for _, col := range pf.Schema().Columns() {
		if len(col) == 1 {
			s.column[col[0]] = true
		}
	}
	for _, name := range []string{"s", "p", "o"} {
		if !s.column[name] {
			_ = f.Close()
			return nil, fmt.Errorf("%s is not a COTTAS file: missing column %q", path, name)
		}
	}
	if idx, ok := pf.Lookup(IndexKey); ok {
		s.index = idx
	}
	return s, nil
}

// Path returns the file the store reads.
func (s *Store) Path() string { return s.path }

// Index returns the sort order recorded in the file, or "" when absent.
func (s *Store) Index() string { return s.index }

// Close releases the file handle.
func (s *Store) Close() error {
	return s.file.Close()
}

// Len returns the number of rows. Files written by Write hold distinct quads.
func (s *Store) Len(ctx context.Context) (int, error) {
	return int(s.pq.NumRows()), nil
}

// Match scans the row groups whose column statistics admit p and calls fn for
// each matching quad.
func (s *Store) Match(ctx context.Context, p graph.Pattern, fn func(graph.Quad) bool) error {
	if p.Kind == graph.InUnion {
		fn = graph.UnionFilter(fn)
	}
	bounds := s.bounds(p)
	meta := s.pq.Metadata()

	for i, rg := range s.pq.RowGroups() {
		if i < len(meta.RowGroups) && !admits(meta.RowGroups[i].Columns, bounds) {
			continue
		}
		more, err := s.scanGroup(ctx, rg, func(q graph.Quad) bool {
			if !p.InScope(q) || !p.Matches(q) {
				return true
			}
			return fn(q)
		})
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}

// Graphs returns the distinct named graphs in file order.
func (s *Store) Graphs(ctx context.Context) ([]rdf.Term, error) {
	if !s.column["g"] {
		return nil, nil
	}
	seen := map[string]struct{}{}
	var out []rdf.Term
	for _, rg := range s.pq.RowGroups() {
		_, err := s.scanGroup(ctx, rg, func(q graph.Quad) bool {
			if q.G == nil {
				return true
			}
			k := graph.FormatTerm(q.G)
			if _, dup := seen[k]; !dup {
				seen[k] = struct{}{}
				out = append(out, q.G)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Add rejects writes.
func (s *Store) Add(context.Context, ...graph.Quad) error {
	return &domain.ReadOnlyError{Backend: domain.BackendCottas}
}

// Remove rejects writes.
func (s *Store) Remove(context.Context, ...graph.Quad) error {
	return &domain.ReadOnlyError{Backend: domain.BackendCottas}
}

// DropGraph rejects writes.
func (s *Store) DropGraph(context.Context, rdf.Term) error {
	return &domain.ReadOnlyError{Backend: domain.BackendCottas}
}

// bounds returns the N-Triples text of each bound position, keyed by column.
func (s *Store) bounds(p graph.Pattern) map[string][]byte {
	b := map[string][]byte{}
	if p.S != nil {
		b["s"] = []byte(graph.FormatTerm(p.S))
	}
	if p.P != nil {
		b["p"] = []byte(graph.FormatTerm(p.P))
	}
	if p.O != nil {
		b["o"] = []byte(graph.FormatTerm(p.O))
	}
	if p.Kind == graph.InGraph && p.Name != nil {
		b["g"] = []byte(graph.FormatTerm(p.Name))
	}
	return b
}

// admits reports whether a row group can hold the bound values. Statistics may
// be truncated by other writers, so a maximum that is a prefix of the value
// still admits it.
func admits(chunks []format.ColumnChunk, bounds map[string][]byte) bool {
	for _, chunk := range chunks {
		path := chunk.MetaData.PathInSchema
		if len(path) != 1 {
			continue
		}
		v, ok := bounds[path[0]]
		if !ok {
			continue
		}
		st := chunk.MetaData.Statistics
		lo, hi := st.MinValue, st.MaxValue
		if lo == nil && hi == nil {
			lo, hi = st.Min, st.Max
		}
		if lo != nil && bytes.Compare(v, lo) < 0 {
			return false
		}
		if hi != nil && bytes.Compare(v, hi) > 0 && !bytes.HasPrefix(v, hi) {
			return false
		}
	}
	return true
}

// scanGroup decodes every row of rg. It returns false when fn stopped the scan.
func (s *Store) scanGroup(ctx context.Context, rg parquet.RowGroup, fn func(graph.Quad) bool) (bool, error) {
	r := parquet.NewGenericRowGroupReader[row](rg)
	defer func() { _ = r.Close() }()

	buf := make([]row, readBatch)
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		n, err := r.Read(buf)
		for _, rec := range buf[:n] {
			q, qerr := decodeRow(rec)
			if qerr != nil {
				return false, fmt.Errorf("corrupt row in %s: %w", s.path, qerr)
			}
			if !fn(q) {
				return false, nil
			}
		}
		if errors.Is(err, io.EOF) {
			return true, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to read %s: %w", s.path, err)
		}
	}
}

func decodeRow(rec row) (graph.Quad, error) {
	var q graph.Quad
	var err error
	if q.S, err = graph.ParseTerm(rec.S); err != nil {
		return q, err
	}
	if q.P, err = graph.ParseTerm(rec.P); err != nil {
		return q, err
	}
	if q.O, err = graph.ParseTerm(rec.O); err != nil {
		return q, err
	}
	if q.G, err = graph.ParseTerm(rec.G); err != nil {
		return q, err
	}
	if q.S == nil || q.P == nil || q.O == nil {
		return q, fmt.Errorf("empty term in row %v", rec)
	}
	return q, nil
}
