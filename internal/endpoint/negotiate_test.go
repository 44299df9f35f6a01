package endpoint

import (
	"testing"

	"github.com/geoknoesis/rdf-go/rdf"

	"evalgo.org/rdfendpoint/internal/sparql"
)

func TestResultFormat(t *testing.T) {
	tests := []struct {
		param, accept string
		want          sparql.ResultFormat
	}{
		{"", "", sparql.ResultJSON},
		{"", "*/*", sparql.ResultJSON},
		{"", "text/csv", sparql.ResultCSV},
		{"", "text/html, text/tab-separated-values;q=0.9", sparql.ResultTSV},
		{"", "text/csv;q=0.5, application/sparql-results+xml", sparql.ResultXML},
		{"xml", "text/csv", sparql.ResultXML},
		{"bogus", "text/csv", sparql.ResultCSV},
	}
	for _, tt := range tests {
		if got := resultFormat(tt.param, tt.accept); got != tt.want {
			t.Errorf("resultFormat(%q, %q) = %v, want %v", tt.param, tt.accept, got, tt.want)
		}
	}
}

func TestGraphFormat(t *testing.T) {
	tests := []struct {
		param, accept string
		want          rdf.Format
	}{
		{"", "", rdf.FormatTurtle},
		{"", "application/sparql-results+json", rdf.FormatTurtle},
		{"", "application/ld+json", rdf.FormatJSONLD},
		{"", "application/rdf+xml;q=0.2, application/n-quads", rdf.FormatNQuads},
		{"application/trig", "text/turtle", rdf.FormatTriG},
	}
	for _, tt := range tests {
		if got := graphFormat(tt.param, tt.accept); got != tt.want {
			t.Errorf("graphFormat(%q, %q) = %v, want %v", tt.param, tt.accept, got, tt.want)
		}
	}
}

func TestAcceptsHTML(t *testing.T) {
	if !acceptsHTML("text/html,application/xhtml+xml,*/*;q=0.8") {
		t.Error("browser Accept should select HTML")
	}
	if acceptsHTML("text/turtle") || acceptsHTML("text/html;q=0") {
		t.Error("non-HTML Accept should not select HTML")
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":  "abc",
		"bearer  abc": "abc",
		"Basic abc":   "",
		"":            "",
	}
	for header, want := range tests {
		if got := bearerToken(header); got != want {
			t.Errorf("bearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}
