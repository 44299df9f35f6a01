package endpoint

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"evalgo.org/rdfendpoint/auth"
	"evalgo.org/rdfendpoint/internal/domain"
	"evalgo.org/rdfendpoint/internal/store"
	"evalgo.org/rdfendpoint/internal/store/memory"
)

const sampleTTL = `@prefix ex: <http://example.org/> .
ex:alice ex:knows ex:bob ;
    ex:name "Alice" .
ex:bob ex:name "Bob" .
`

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "a.ttl")
	if err := os.WriteFile(path, []byte(sampleTTL), 0o644); err != nil {
		t.Fatal(err)
	}
	s := store.NewLocal(domain.BackendDefault, memory.New(), nil, nil)
	if err := s.Load(context.Background(), path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return s
}

func do(t *testing.T, h http.Handler, method, target, contentType, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestQueryForms(t *testing.T) {
	srv := New(newTestStore(t), Config{})
	h := srv.Handler()
	selectAll := url.QueryEscape("SELECT * WHERE { ?s ?p ?o }")

	tests := []struct {
		name        string
		method      string
		target      string
		contentType string
		body        string
		accept      string
		wantStatus  int
		wantType    string
		wantBody    string
	}{
		{
			name:       "GET on /sparql returns JSON results",
			method:     http.MethodGet,
			target:     "/sparql?query=" + selectAll,
			wantStatus: http.StatusOK,
			wantType:   "application/sparql-results+json",
			wantBody:   `"bindings"`,
		},
		{
			name:       "GET on root is an alias",
			method:     http.MethodGet,
			target:     "/?query=" + selectAll,
			wantStatus: http.StatusOK,
			wantType:   "application/sparql-results+json",
		},
		{
			name:        "form POST",
			method:      http.MethodPost,
			target:      "/sparql",
			contentType: "application/x-www-form-urlencoded",
			body:        "query=" + selectAll,
			accept:      "text/csv",
			wantStatus:  http.StatusOK,
			wantType:    "text/csv",
			wantBody:    "s,p,o",
		},
		{
			name:        "raw query POST",
			method:      http.MethodPost,
			target:      "/sparql",
			contentType: "application/sparql-query",
			body:        "ASK { ?s <http://example.org/knows> ?o }",
			accept:      "application/sparql-results+xml",
			wantStatus:  http.StatusOK,
			wantType:    "application/sparql-results+xml",
			wantBody:    "<boolean>true</boolean>",
		},
		{
			name:       "format parameter wins over Accept",
			method:     http.MethodGet,
			target:     "/sparql?format=tsv&query=" + selectAll,
			accept:     "application/sparql-results+json",
			wantStatus: http.StatusOK,
			wantType:   "text/tab-separated-values",
		},
		{
			name:       "CONSTRUCT defaults to Turtle",
			method:     http.MethodGet,
			target:     "/sparql?query=" + url.QueryEscape("CONSTRUCT WHERE { ?s <http://example.org/name> ?o }"),
			wantStatus: http.StatusOK,
			wantType:   "text/turtle",
			wantBody:   "Alice",
		},
		{
			name:       "CONSTRUCT as N-Triples",
			method:     http.MethodGet,
			target:     "/sparql?query=" + url.QueryEscape("CONSTRUCT WHERE { ?s <http://example.org/name> ?o }"),
			accept:     "application/n-triples",
			wantStatus: http.StatusOK,
			wantType:   "application/n-triples",
			wantBody:   `<http://example.org/bob> <http://example.org/name> "Bob" .`,
		},
		{
			name:       "syntax error is a bad request",
			method:     http.MethodGet,
			target:     "/sparql?query=" + url.QueryEscape("SELECT WHERE {"),
			wantStatus: http.StatusBadRequest,
			wantBody:   "syntax error",
		},
		{
			name:        "unknown content type",
			method:      http.MethodPost,
			target:      "/sparql",
			contentType: "application/octet-stream",
			body:        "x",
			wantStatus:  http.StatusUnsupportedMediaType,
		},
		{
			name:       "update over GET is refused",
			method:     http.MethodGet,
			target:     "/sparql?update=" + url.QueryEscape("CLEAR ALL"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "HTML editor without a query",
			method:     http.MethodGet,
			target:     "/",
			accept:     "text/html,application/xhtml+xml",
			wantStatus: http.StatusOK,
			wantType:   "text/html",
			wantBody:   "SELECT * WHERE {",
		},
		{
			name:       "service description without a query",
			method:     http.MethodGet,
			target:     "/sparql",
			wantStatus: http.StatusOK,
			wantType:   "text/turtle",
			wantBody:   "sparql-service-description#",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.accept != "" {
				headers["Accept"] = tt.accept
			}
			rec := do(t, h, tt.method, tt.target, tt.contentType, tt.body, headers)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantType != "" && !strings.HasPrefix(rec.Header().Get("Content-Type"), tt.wantType) {
				t.Errorf("Content-Type = %q, want %q", rec.Header().Get("Content-Type"), tt.wantType)
			}
			if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body does not contain %q:\n%s", tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestSelectReturnsLoadedTriples(t *testing.T) {
	h := New(newTestStore(t), Config{}).Handler()
	rec := do(t, h, http.MethodGet, "/sparql?query="+url.QueryEscape("SELECT * WHERE { ?s ?p ?o }"), "", "", nil)

	var body struct {
		Head struct {
			Vars []string `json:"vars"`
		} `json:"head"`
		Results struct {
			Bindings []map[string]map[string]string `json:"bindings"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(body.Results.Bindings) != 3 {
		t.Errorf("got %d bindings, want 3", len(body.Results.Bindings))
	}
	if strings.Join(body.Head.Vars, ",") != "s,p,o" {
		t.Errorf("vars = %v", body.Head.Vars)
	}
}

func TestUpdateSecurity(t *testing.T) {
	const key = "update-key-0123456789"
	const secret = "test-secret-key-12345"
	hash, err := auth.HashAPIKey(key)
	if err != nil {
		t.Fatal(err)
	}
	token, err := auth.GenerateToken("loader", secret, 1)
	if err != nil {
		t.Fatal(err)
	}
	insert := "update=" + url.QueryEscape(`INSERT DATA { <http://example.org/carol> <http://example.org/name> "Carol" }`)

	tests := []struct {
		name           string
		cfg            Config
		headers        map[string]string
		expectedStatus int
	}{
		{
			name:           "Updates disabled",
			cfg:            Config{},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "Open updates",
			cfg:            Config{EnableUpdate: true},
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "Missing API key",
			cfg:            Config{EnableUpdate: true, APIKeyHash: hash},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Wrong API key",
			cfg:            Config{EnableUpdate: true, APIKeyHash: hash},
			headers:        map[string]string{"x-api-key": "wrong-key-0123456789"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Valid API key",
			cfg:            Config{EnableUpdate: true, APIKeyHash: hash},
			headers:        map[string]string{"x-api-key": key},
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "Valid bearer token",
			cfg:            Config{EnableUpdate: true, TokenSecret: secret},
			headers:        map[string]string{"Authorization": "Bearer " + token},
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "Bad bearer token",
			cfg:            Config{EnableUpdate: true, TokenSecret: secret},
			headers:        map[string]string{"Authorization": "Bearer invalid.token.value"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Either credential, key given",
			cfg:            Config{EnableUpdate: true, APIKeyHash: hash, TokenSecret: secret},
			headers:        map[string]string{"x-api-key": key},
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "Either credential, none given",
			cfg:            Config{EnableUpdate: true, APIKeyHash: hash, TokenSecret: secret},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(newTestStore(t), tt.cfg).Handler()
			rec := do(t, h, http.MethodPost, "/sparql", "application/x-www-form-urlencoded", insert, tt.headers)
			if rec.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d, body: %s", rec.Code, tt.expectedStatus, rec.Body.String())
			}
		})
	}
}

func TestUpdateIsApplied(t *testing.T) {
	s := newTestStore(t)
	journal, err := auth.NewAuditLogger(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	h := New(s, Config{EnableUpdate: true, Journal: journal}).Handler()

	rec := do(t, h, http.MethodPost, "/sparql", "application/sparql-update",
		`DELETE WHERE { <http://example.org/bob> ?p ?o }`, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	n, err := s.Len(context.Background())
	if err != nil || n != 2 {
		t.Errorf("Len() = %d, %v, want 2", n, err)
	}

	rec = do(t, h, http.MethodPost, "/sparql", "application/sparql-update", `DELETE WHERE {`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed update status = %d, want 400", rec.Code)
	}

	entries, err := journal.GetEntriesForDate(time.Now().Format("2006-01-02"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("journal has %d entries, want 2", len(entries))
	}
	if !entries[0].Success || entries[1].Success {
		t.Errorf("journal success flags = %v, %v", entries[0].Success, entries[1].Success)
	}
	if entries[0].Subject != anonymousSubject || entries[0].Backend != "default" {
		t.Errorf("unexpected entry %+v", entries[0])
	}
}

func TestServeSettings(t *testing.T) {
	srv := New(newTestStore(t), Config{QueryTimeout: time.Nanosecond, Description: "People and who they know"})
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/sparql?query="+url.QueryEscape("SELECT * WHERE { ?s ?p ?o }"), "", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("timed out query status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	rec = do(t, h, http.MethodGet, "/sparql", "", "", map[string]string{"Accept": "text/turtle"})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "People and who they know") {
		t.Errorf("service description = %d %q, want the description", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/", "", "", map[string]string{"Accept": "text/html"})
	if !strings.Contains(rec.Body.String(), "People and who they know") {
		t.Error("query page does not show the description")
	}

	fast := New(newTestStore(t), Config{QueryTimeout: time.Minute}).Handler()
	rec = do(t, fast, http.MethodGet, "/sparql?query="+url.QueryEscape("ASK { ?s ?p ?o }"), "", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("query within the timeout status = %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h := New(newTestStore(t), Config{}).Handler()
	rec := do(t, h, http.MethodGet, "/health", "", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "healthy" || resp.Triples != 3 || resp.Backend != "default" {
		t.Errorf("unexpected health %+v", resp)
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	srv := New(newTestStore(t), Config{Host: "127.0.0.1", Port: freePort(t), ShutdownTimeout: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for srv.ListenerAddr() == nil && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if srv.ListenerAddr() == nil {
		t.Fatal("server did not start listening")
	}
	resp, err := http.Get("http://" + srv.ListenerAddr().String() + "/health")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port
}
