package rdfio

import (
	"bufio"
	"fmt"
	"io"

	"github.com/geoknoesis/rdf-go/rdf"

	"evalgo.org/rdfendpoint/internal/graph"
)

// QuadWriter streams quads to an rdf-go writer. Triple-only formats drop the
// graph name and write each distinct triple once.
//
// Turtle and TriG output with namespaces is written line by line with
// prefixed names, since the rdf-go writers take no prefix bindings.
type QuadWriter struct {
	w      rdf.Writer
	text   *bufio.Writer
	ns     Namespaces
	quads  bool
	seen   map[[4]string]struct{}
	count  int
	closed bool
}

// NewQuadWriter opens a writer for format on w. ns may be nil.
func NewQuadWriter(w io.Writer, format rdf.Format, ns Namespaces) (*QuadWriter, error) {
	qw := &QuadWriter{quads: format.IsQuadFormat()}
	if !qw.quads {
		qw.seen = make(map[[4]string]struct{})
	}
	if len(ns) > 0 && (format == rdf.FormatTurtle || format == rdf.FormatTriG) {
		qw.text, qw.ns = bufio.NewWriter(w), ns
		for _, label := range ns.Labels() {
			if _, err := fmt.Fprintf(qw.text, "@prefix %s: <%s> .\n", label, ns[label]); err != nil {
				return nil, err
			}
		}
		if _, err := qw.text.WriteString("\n"); err != nil {
			return nil, err
		}
		return qw, nil
	}
	rw, err := rdf.NewWriter(w, format)
	if err != nil {
		return nil, fmt.Errorf("no writer for format %s: %w", format, err)
	}
	qw.w = rw
	return qw, nil
}

// Write emits one quad. Quads whose predicate is not an IRI are skipped.
func (qw *QuadWriter) Write(q graph.Quad) error {
	if !qw.quads {
		q = q.Triple()
		k := q.Key()
		if _, dup := qw.seen[k]; dup {
			return nil
		}
		qw.seen[k] = struct{}{}
	}
	if qw.text != nil {
		return qw.writeLine(q)
	}
	stmt, ok := q.Statement()
	if !ok {
		return nil
	}
	if err := qw.w.Write(stmt); err != nil {
		return err
	}
	qw.count++
	return nil
}

func (qw *QuadWriter) writeLine(q graph.Quad) error {
	p, ok := q.P.(rdf.IRI)
	if !ok {
		return nil
	}
	pred := qw.ns.term(p)
	if p.Value == graph.RDFType {
		pred = "a"
	}
	line := qw.ns.term(q.S) + " " + pred + " " + qw.ns.term(q.O) + " ."
	if q.G != nil {
		line = qw.ns.term(q.G) + " { " + line + " }"
	}
	if _, err := qw.text.WriteString(line + "\n"); err != nil {
		return err
	}
	qw.count++
	return nil
}

// Count returns the number of statements written so far.
func (qw *QuadWriter) Count() int {
	return qw.count
}

// Close flushes and closes the underlying writer.
func (qw *QuadWriter) Close() error {
	if qw.closed {
		return nil
	}
	qw.closed = true
	if qw.text != nil {
		return qw.text.Flush()
	}
	if err := qw.w.Flush(); err != nil {
		_ = qw.w.Close()
		return err
	}
	return qw.w.Close()
}

// WriteQuads serializes quads to w in format.
func WriteQuads(w io.Writer, format rdf.Format, quads []graph.Quad) error {
	qw, err := NewQuadWriter(w, format, nil)
	if err != nil {
		return err
	}
	for _, q := range quads {
		if err := qw.Write(q); err != nil {
			_ = qw.Close()
			return err
		}
	}
	return qw.Close()
}
