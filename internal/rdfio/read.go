package rdfio

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/geoknoesis/rdf-go/rdf"

	"evalgo.org/rdfendpoint/internal/graph"
)

// ReadOptions tunes how parsed statements become quads.
type ReadOptions struct {
	// Format overrides the extension-based guess.
	Format rdf.Format
	// BlankPrefix is prepended to every blank node label, keeping labels of
	// different documents apart when they are merged.
	BlankPrefix string
	// Graph receives the triples of triple-only documents; nil is the default graph.
	Graph rdf.Term
	// Namespaces, when set, receives the prefix directives of the document.
	Namespaces Namespaces
}

// ReadFile parses path and calls fn for each quad. It returns the number of statements read.
func ReadFile(ctx context.Context, path string, opts ReadOptions, fn func(graph.Quad) error) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if opts.Format == rdf.FormatAuto {
		opts.Format = InputFormat(path)
	}
	n, err := Read(ctx, f, opts, fn)
	if err != nil {
		return n, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return n, nil
}

// Read parses r in opts.Format (sniffed when FormatAuto) and calls fn for each quad.
func Read(ctx context.Context, r io.Reader, opts ReadOptions, fn func(graph.Quad) error) (int, error) {
	count := 0
	if opts.Namespaces != nil {
		scanner := &namespaceScanner{ns: opts.Namespaces}
		defer scanner.flush()
		r = io.TeeReader(r, scanner)
	}
	err := rdf.Parse(ctx, r, opts.Format, func(s rdf.Statement) error {
		q := graph.FromStatement(s)
		if opts.BlankPrefix != "" {
			q.S = Relabel(q.S, opts.BlankPrefix)
			q.O = Relabel(q.O, opts.BlankPrefix)
			q.G = Relabel(q.G, opts.BlankPrefix)
		}
		if q.G == nil && opts.Graph != nil {
			q.G = opts.Graph
		}
		count++
		return fn(q)
	}, rdf.OptContext(ctx))
	return count, err
}

// Relabel prepends prefix to blank node labels in t, including inside triple terms.
func Relabel(t rdf.Term, prefix string) rdf.Term {
	switch v := t.(type) {
	case rdf.BlankNode:
		return rdf.BlankNode{ID: prefix + v.ID}
	case rdf.TripleTerm:
		v.S = Relabel(v.S, prefix)
		v.O = Relabel(v.O, prefix)
		return v
	default:
		return t
	}
}
