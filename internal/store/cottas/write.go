package cottas

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/parquet-go/parquet-go"

	"evalgo.org/rdfendpoint/internal/graph"
	"evalgo.org/rdfendpoint/internal/helpers"
)

// DefaultRowGroupSize bounds the rows per row group, which is the unit the
// reader skips by statistics.
const DefaultRowGroupSize = 64 * 1024

// WriteOptions tunes Write.
type WriteOptions struct {
	// Index is the sort order, a permutation of "spo" optionally with "g". Defaults to "spo".
	Index string
	// RowGroupSize defaults to DefaultRowGroupSize.
	RowGroupSize int64
}

// Write stores the distinct quads as a COTTAS file on w. It returns the number of rows written.
func Write(ctx context.Context, w io.Writer, quads []graph.Quad, opts WriteOptions) (int, error) {
	index := strings.ToLower(opts.Index)
	if index == "" {
		index = helpers.DefaultCottasIndex
	}
	if err := helpers.ValidateIndex(index); err != nil {
		return 0, err
	}
	size := opts.RowGroupSize
	if size <= 0 {
		size = DefaultRowGroupSize
	}

	rows := encodeRows(quads)
	sortRows(rows, index)

	pw := parquet.NewGenericWriter[row](w,
		parquet.Compression(&parquet.Zstd),
		parquet.MaxRowsPerRowGroup(size),
		parquet.KeyValueMetadata(IndexKey, index),
	)
	written := 0
	for start := 0; start < len(rows); start += int(size) {
		if err := ctx.Err(); err != nil {
			_ = pw.Close()
			return written, err
		}
		end := start + int(size)
		if end > len(rows) {
			end = len(rows)
		}
		n, err := pw.Write(rows[start:end])
		written += n
		if err != nil {
			_ = pw.Close()
			return written, fmt.Errorf("failed to write COTTAS rows: %w", err)
		}
		if err := pw.Flush(); err != nil {
			_ = pw.Close()
			return written, fmt.Errorf("failed to flush COTTAS row group: %w", err)
		}
	}
	if err := pw.Close(); err != nil {
		return written, fmt.Errorf("failed to finish COTTAS file: %w", err)
	}
	return written, nil
}

// WriteFile writes quads to path atomically.
func WriteFile(ctx context.Context, path string, quads []graph.Quad, opts WriteOptions) (int, error) {
	var n int
	err := helpers.AtomicWrite(path, func(w io.Writer) error {
		var err error
		n, err = Write(ctx, w, quads, opts)
		return err
	})
	return n, err
}

func encodeRows(quads []graph.Quad) []row {
	seen := make(map[row]struct{}, len(quads))
	rows := make([]row, 0, len(quads))
	for _, q := range quads {
		r := row{
			S: graph.FormatTerm(q.S),
			P: graph.FormatTerm(q.P),
			O: graph.FormatTerm(q.O),
			G: graph.FormatTerm(q.G),
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		rows = append(rows, r)
	}
	return rows
}

// sortRows orders rows by the columns named in index, then by the remaining
// columns in s, p, o, g order so the output is deterministic.
func sortRows(rows []row, index string) {
	order := []byte(index)
	for _, c := range []byte("spog") {
		if !strings.ContainsRune(index, rune(c)) {
			order = append(order, c)
		}
	}
	field := func(r *row, c byte) string {
		switch c {
		case 's':
			return r.S
		case 'p':
			return r.P
		case 'o':
			return r.O
		default:
			return r.G
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		for _, c := range order {
			a, b := field(&rows[i], c), field(&rows[j], c)
			if a != b {
				return a < b
			}
		}
		return false
	})
}
