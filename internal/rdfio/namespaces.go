package rdfio

import (
	"bytes"
	"regexp"
	"sort"
	"strings"

	"github.com/geoknoesis/rdf-go/rdf"

	"evalgo.org/rdfendpoint/internal/graph"
)

// Namespaces maps prefix labels to namespace IRIs.
type Namespaces map[string]string

// Bind adds a prefix unless the label is already bound.
func (ns Namespaces) Bind(prefix, iri string) {
	if _, ok := ns[prefix]; !ok {
		ns[prefix] = iri
	}
}

// Labels returns the bound labels in sorted order.
func (ns Namespaces) Labels() []string {
	labels := make([]string, 0, len(ns))
	for l := range ns {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

var prefixDirective = regexp.MustCompile(`(?i)^\s*@?prefix\s+([A-Za-z][\w.-]*)?:\s*<([^>]*)>`)

// namespaceScanner collects prefix directives from the lines written to it.
type namespaceScanner struct {
	ns      Namespaces
	pending []byte
}

func (s *namespaceScanner) Write(p []byte) (int, error) {
	s.pending = append(s.pending, p...)
	for {
		i := bytes.IndexByte(s.pending, '\n')
		if i < 0 {
			break
		}
		s.scan(s.pending[:i])
		s.pending = s.pending[i+1:]
	}
	return len(p), nil
}

func (s *namespaceScanner) flush() {
	if len(s.pending) > 0 {
		s.scan(s.pending)
		s.pending = nil
	}
}

func (s *namespaceScanner) scan(line []byte) {
	m := prefixDirective.FindSubmatch(line)
	// relative namespaces depend on the document base
	if m == nil || !bytes.Contains(m[2], []byte(":")) {
		return
	}
	s.ns.Bind(string(m[1]), string(m[2]))
}

var localName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// abbreviate renders an IRI as a prefixed name when a namespace covers it.
// The longest matching namespace wins.
func (ns Namespaces) abbreviate(iri string) (string, bool) {
	best, label := "", ""
	for l, base := range ns {
		if len(base) > len(best) && strings.HasPrefix(iri, base) && localName.MatchString(iri[len(base):]) {
			best, label = base, l
		}
	}
	if best == "" {
		return "", false
	}
	return label + ":" + iri[len(best):], true
}

// term renders t in Turtle syntax using the bound prefixes.
func (ns Namespaces) term(t rdf.Term) string {
	switch v := t.(type) {
	case rdf.IRI:
		if name, ok := ns.abbreviate(v.Value); ok {
			return name
		}
	case rdf.Literal:
		v = graph.Canonical(v).(rdf.Literal)
		if v.Lang == "" && v.Datatype.Value != "" {
			if name, ok := ns.abbreviate(v.Datatype.Value); ok {
				lex := graph.FormatTerm(rdf.Literal{Lexical: v.Lexical})
				return lex + "^^" + name
			}
		}
	}
	return graph.FormatTerm(t)
}
