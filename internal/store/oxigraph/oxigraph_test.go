package oxigraph

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/geoknoesis/rdf-go/rdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/rdfendpoint/internal/domain"
	"evalgo.org/rdfendpoint/internal/graph"
	"evalgo.org/rdfendpoint/internal/sparql"
)

// fakeServer records uploads and answers queries with canned documents.
type fakeServer struct {
	mu      sync.Mutex
	uploads map[string]string // target to content type
	updates []string
}

func (f *fakeServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		q := r.PostForm.Get("query")
		_, union := r.PostForm["union-default-graph"]
		if strings.Contains(q, "COUNT") {
			assert.False(t, union, "counting must not merge named graphs into the default graph")
		} else {
			assert.True(t, union, "queries must ask for the union default graph")
		}
		switch {
		case q == "SELECT WHERE {":
			http.Error(w, "parse error", http.StatusBadRequest)
		case strings.HasPrefix(q, "EXTENDED ASK"):
			w.Header().Set("Content-Type", "application/sparql-results+json")
			_, _ = io.WriteString(w, `{"head":{},"boolean":false}`)
		case strings.HasPrefix(q, "EXTENDED CONSTRUCT"):
			w.Header().Set("Content-Type", "application/n-triples")
			_, _ = io.WriteString(w, "<http://ex/a> <http://ex/p> <http://ex/b> .\n")
		case strings.HasPrefix(q, "EXTENDED SELECT"):
			w.Header().Set("Content-Type", "application/sparql-results+json")
			_, _ = io.WriteString(w, `{"head":{"vars":["s"]},"results":{"bindings":[{"s":{"type":"uri","value":"http://ex/a"}}]}}`)
		case strings.Contains(q, "COUNT"):
			w.Header().Set("Content-Type", "application/sparql-results+json")
			_, _ = io.WriteString(w, `{"head":{"vars":["n"]},"results":{"bindings":[{"n":{"type":"literal","value":"3","datatype":"http://www.w3.org/2001/XMLSchema#integer"}}]}}`)
		case strings.HasPrefix(strings.TrimSpace(q), "ASK"):
			_, _ = io.WriteString(w, `{"head":{},"boolean":true}`)
		case strings.HasPrefix(strings.TrimSpace(q), "CONSTRUCT"):
			assert.Equal(t, "application/n-triples", r.Header.Get("Accept"))
			_, _ = io.WriteString(w, "<http://ex/a> <http://ex/p> \"x\"@en .\n")
		default:
			_, _ = io.WriteString(w, `{"head":{"vars":["s","o"]},"results":{"bindings":[
				{"s":{"type":"uri","value":"http://ex/a"},"o":{"type":"literal","value":"x","xml:lang":"en"}},
				{"s":{"type":"bnode","value":"b0"},"o":{"type":"literal","value":"1","datatype":"http://www.w3.org/2001/XMLSchema#integer"}}]}}`)
		}
	})
	mux.HandleFunc("/update", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("update") == "INSERT DATA {" {
			http.Error(w, "parse error", http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.updates = append(f.updates, r.PostForm.Get("update"))
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/store", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/n-quads")
			_, _ = io.WriteString(w, "<http://ex/a> <http://ex/p> <http://ex/b> .\n<http://ex/a> <http://ex/p> <http://ex/c> <http://ex/g> .\n")
			return
		}
		_, _ = io.Copy(io.Discard, r.Body)
		f.mu.Lock()
		f.uploads[r.URL.String()] = r.Header.Get("Content-Type")
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func newTestClient(t *testing.T) (*Client, *fakeServer) {
	t.Helper()
	fake := &fakeServer{uploads: map[string]string{}}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	c, err := New(Config{URL: srv.URL + "/"})
	require.NoError(t, err)
	return c, fake
}

func TestQueryForms(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)

	res, err := c.Query(ctx, "SELECT ?s ?o WHERE { ?s ?p ?o }")
	require.NoError(t, err)
	assert.Equal(t, []string{"s", "o"}, res.Vars)
	require.Len(t, res.Bindings, 2)
	assert.Equal(t, graph.LangLiteral("x", "en"), res.Bindings[0]["o"])
	assert.Equal(t, graph.Blank("b0"), res.Bindings[1]["s"])
	assert.Equal(t, graph.TypedLiteral("1", graph.XSDInteger), res.Bindings[1]["o"])

	res, err = c.Query(ctx, "ASK { ?s ?p ?o }")
	require.NoError(t, err)
	assert.True(t, res.Boolean)

	res, err = c.Query(ctx, "CONSTRUCT WHERE { ?s ?p ?o }")
	require.NoError(t, err)
	assert.True(t, res.IsGraph())
	require.Len(t, res.Quads, 1)

	_, err = c.Query(ctx, "SELECT WHERE {")
	var syntax *sparql.SyntaxError
	assert.ErrorAs(t, err, &syntax)
}

func TestQueriesUnknownLocallyAreForwarded(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)

	tests := []struct {
		name  string
		query string
		check func(t *testing.T, res *sparql.Result)
	}{
		{"select", "EXTENDED SELECT ?s", func(t *testing.T, res *sparql.Result) {
			assert.Equal(t, sparql.FormSelect, res.Form)
			require.Len(t, res.Bindings, 1)
			assert.Equal(t, graph.IRI("http://ex/a"), res.Bindings[0]["s"])
		}},
		{"ask", "EXTENDED ASK", func(t *testing.T, res *sparql.Result) {
			assert.Equal(t, sparql.FormAsk, res.Form)
			assert.False(t, res.Boolean)
		}},
		{"construct", "EXTENDED CONSTRUCT", func(t *testing.T, res *sparql.Result) {
			assert.True(t, res.IsGraph())
			assert.Len(t, res.Quads, 1)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Query(ctx, tt.query)
			require.NoError(t, err)
			tt.check(t, res)
		})
	}
}

func TestLenUpdateAndLoad(t *testing.T) {
	ctx := context.Background()
	c, fake := newTestClient(t)

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, c.Update(ctx, "INSERT DATA { <http://ex/a> <http://ex/p> 1 }"))
	assert.Len(t, fake.updates, 1)
	// the server accepts what the local parser does not know
	require.NoError(t, c.Update(ctx, "EXTENDED UPDATE"))
	assert.Len(t, fake.updates, 2)
	var syntax *sparql.SyntaxError
	assert.ErrorAs(t, c.Update(ctx, "INSERT DATA {"), &syntax)

	dir := t.TempDir()
	ttl := filepath.Join(dir, "a.ttl")
	require.NoError(t, os.WriteFile(ttl, []byte("<http://ex/a> <http://ex/p> <http://ex/b> .\n"), 0o644))
	trig := filepath.Join(dir, "b.trig")
	require.NoError(t, os.WriteFile(trig, []byte("<http://ex/g> { <http://ex/a> <http://ex/p> <http://ex/b> . }\n"), 0o644))
	require.NoError(t, c.Load(ctx, ttl))
	require.NoError(t, c.Load(ctx, trig))
	assert.Equal(t, "text/turtle", fake.uploads["/store?default"])
	assert.Equal(t, "application/trig", fake.uploads["/store"])
}

func TestDump(t *testing.T) {
	c, _ := newTestClient(t)
	var buf bytes.Buffer
	require.NoError(t, c.Dump(context.Background(), &buf, rdf.FormatNTriples))
	assert.Equal(t, 2, strings.Count(buf.String(), " .\n"))
	assert.Equal(t, domain.BackendOxigraph, c.Backend())
}

func TestServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "parse failure", http.StatusBadRequest)
	}))
	defer srv.Close()
	c, err := New(Config{URL: srv.URL})
	require.NoError(t, err)
	err = c.Update(context.Background(), "CLEAR ALL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse failure")

	_, err = New(Config{URL: "::not a url"})
	assert.True(t, domain.IsUsage(err))
}
