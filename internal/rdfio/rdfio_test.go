package rdfio

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/geoknoesis/rdf-go/rdf"

	"evalgo.org/rdfendpoint/internal/graph"
)

const doc = `@prefix ex: <http://example.org/> .
PREFIX foaf: <http://xmlns.com/foaf/0.1/>
@prefix rel: <relative/> .
ex:alice a foaf:Person ; foaf:name "Alice" ; foaf:age 30 ; foaf:knows <http://other.org/x.y> .`

func readAll(t *testing.T, src string, ns Namespaces) []graph.Quad {
	t.Helper()
	var quads []graph.Quad
	_, err := Read(context.Background(), strings.NewReader(src), ReadOptions{Format: rdf.FormatTurtle, Namespaces: ns}, func(q graph.Quad) error {
		quads = append(quads, q)
		return nil
	})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	return quads
}

func TestReadCollectsNamespaces(t *testing.T) {
	ns := Namespaces{"ex": "http://example.org/kept/"}
	readAll(t, doc, ns)

	tests := []struct {
		label string
		want  string
	}{
		{"ex", "http://example.org/kept/"},
		{"foaf", "http://xmlns.com/foaf/0.1/"},
		{"rel", ""},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if got := ns[tt.label]; got != tt.want {
				t.Errorf("ns[%q] = %q, want %q", tt.label, got, tt.want)
			}
		})
	}
}

func TestWriteTurtleWithPrefixes(t *testing.T) {
	ns := Namespaces{}
	quads := readAll(t, doc, ns)

	var buf bytes.Buffer
	qw, err := NewQuadWriter(&buf, rdf.FormatTurtle, ns)
	if err != nil {
		t.Fatal(err)
	}
	for _, q := range append(quads, quads...) {
		if err := qw.Write(q); err != nil {
			t.Fatal(err)
		}
	}
	if err := qw.Close(); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"@prefix ex: <http://example.org/> .",
		"@prefix foaf: <http://xmlns.com/foaf/0.1/> .",
		"ex:alice a foaf:Person .",
		`ex:alice foaf:name "Alice" .`,
		"<http://other.org/x.y>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
	if qw.Count() != 4 {
		t.Errorf("Count() = %d, want 4", qw.Count())
	}

	again := readAll(t, out, nil)
	if len(again) != len(quads) {
		t.Errorf("re-read %d triples, want %d", len(again), len(quads))
	}
}

func TestWriteTriGKeepsGraphs(t *testing.T) {
	ns := Namespaces{"ex": "http://example.org/"}
	var buf bytes.Buffer
	qw, err := NewQuadWriter(&buf, rdf.FormatTriG, ns)
	if err != nil {
		t.Fatal(err)
	}
	q := graph.Quad{S: graph.IRI("http://example.org/a"), P: graph.IRI("http://example.org/p"), O: graph.Literal("v"), G: graph.IRI("http://example.org/g")}
	if err := qw.Write(q); err != nil {
		t.Fatal(err)
	}
	if err := qw.Close(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `ex:g { ex:a ex:p "v" . }`) {
		t.Errorf("unexpected TriG:\n%s", buf.String())
	}
}

func TestWriteWithoutNamespacesUsesLibraryWriter(t *testing.T) {
	var buf bytes.Buffer
	q := graph.Quad{S: graph.IRI("http://example.org/a"), P: graph.IRI("http://example.org/p"), O: graph.Literal("v")}
	if err := WriteQuads(&buf, rdf.FormatNTriples, []graph.Quad{q}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "@prefix") || !strings.Contains(out, "<http://example.org/a>") {
		t.Errorf("unexpected N-Triples %q", out)
	}
}
