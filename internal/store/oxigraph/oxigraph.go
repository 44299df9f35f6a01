// Package oxigraph forwards dataset operations to a running Oxigraph server
// through the SPARQL 1.1 protocol and Graph Store endpoints.
package oxigraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/geoknoesis/rdf-go/rdf"
	krdf "github.com/knakk/rdf"
	ksparql "github.com/knakk/sparql"

	"evalgo.org/rdfendpoint/internal/domain"
	"evalgo.org/rdfendpoint/internal/graph"
	"evalgo.org/rdfendpoint/internal/helpers"
	"evalgo.org/rdfendpoint/internal/rdfio"
	"evalgo.org/rdfendpoint/internal/sparql"
	"evalgo.org/rdfendpoint/internal/store/cottas"
)

// countQuery runs without union-default-graph, so the first branch only sees
// the real default graph.
const countQuery = `SELECT (COUNT(*) AS ?n) WHERE { { ?s ?p ?o } UNION { GRAPH ?g { ?s ?p ?o } } }`

// forwardAccept asks for either result shape when the query form is unknown.
const forwardAccept = "application/sparql-results+json, application/n-triples;q=0.9"

// Config locates the server.
type Config struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
}

// Client talks to one Oxigraph server.
type Client struct {
	base  string
	http  *http.Client
	query *ksparql.Repo
}

// New prepares a client. No request is made until the first operation.
func New(cfg Config) (*Client, error) {
	base := helpers.NormalizeURL(cfg.URL)
	if base == "" {
		base = helpers.DefaultOxigraphURL
	}
	if u, err := url.Parse(base); err != nil || u.Host == "" {
		return nil, domain.NewValidationError("store-url", fmt.Sprintf("invalid Oxigraph URL %q", cfg.URL))
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
		if helpers.DebugMode {
			client = helpers.EnableHTTPDebugLogging(client)
		}
	}
	repo, err := ksparql.NewRepo(base + "/query")
	if err != nil {
		return nil, fmt.Errorf("failed to create SPARQL repo: %w", err)
	}
	return &Client{base: base, http: client, query: repo}, nil
}

// Backend reports BackendOxigraph.
func (c *Client) Backend() domain.Backend { return domain.BackendOxigraph }

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// queryCall builds a context-bound protocol request for the knakk repo.
// With union set the default graph is the union of all graphs.
type queryCall struct {
	ctx   context.Context
	query string
	union bool
}

func (q queryCall) GenRequest(endpoint string) (*http.Request, error) {
	body := queryForm(q.query, q.union).Encode()
	req, err := http.NewRequestWithContext(q.ctx, http.MethodPost, endpoint, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Content-Length", strconv.Itoa(len(body)))
	req.Header.Set("Accept", "application/sparql-results+json")
	return req, nil
}

func queryForm(query string, union bool) url.Values {
	form := url.Values{}
	form.Set("query", query)
	if union {
		form.Set("union-default-graph", "")
	}
	return form
}

// Query parses the query locally to learn its form, then forwards it.
// Queries the local parser rejects are still sent to the server, which
// decides whether they are valid.
func (c *Client) Query(ctx context.Context, query string) (*sparql.Result, error) {
	q, err := sparql.ParseQuery(query)
	if err != nil {
		return c.forward(ctx, query, err)
	}
	if q.Form == sparql.FormConstruct || q.Form == sparql.FormDescribe {
		quads, err := c.construct(ctx, query)
		if err != nil {
			return nil, err
		}
		return &sparql.Result{Form: q.Form, Quads: quads}, nil
	}

	res, err := c.query.Query(queryCall{ctx: ctx, query: query, union: true})
	if err != nil {
		return nil, fmt.Errorf("oxigraph query failed: %w", err)
	}
	return solutions(q.Form, res), nil
}

func solutions(form sparql.Form, res *ksparql.Results) *sparql.Result {
	if form == sparql.FormAsk {
		return &sparql.Result{Form: form, Boolean: res.Boolean}
	}
	out := &sparql.Result{Form: form, Vars: res.Head.Vars}
	for _, sol := range res.Solutions() {
		b := sparql.Binding{}
		for name, t := range sol {
			b[name] = fromKnakk(t)
		}
		out.Bindings = append(out.Bindings, b)
	}
	return out
}

// forward sends a query the local parser rejected and learns its form from
// the response. A 400 from the server reports parseErr.
func (c *Client) forward(ctx context.Context, query string, parseErr error) (*sparql.Result, error) {
	resp, err := c.do(ctx, http.MethodPost, c.base+"/query", "application/x-www-form-urlencoded",
		forwardAccept, strings.NewReader(queryForm(query, true).Encode()))
	if err != nil {
		var re *remoteError
		if errors.As(err, &re) && re.status == http.StatusBadRequest {
			return nil, parseErr
		}
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if format, ok := rdfio.FormatForMediaType(resp.Header.Get("Content-Type")); ok {
		quads, err := readQuads(ctx, resp.Body, format)
		if err != nil {
			return nil, err
		}
		return &sparql.Result{Form: sparql.FormConstruct, Quads: quads}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read oxigraph result: %w", err)
	}
	var shape struct {
		Boolean *bool `json:"boolean"`
	}
	if err := json.Unmarshal(body, &shape); err != nil {
		return nil, fmt.Errorf("failed to parse oxigraph result: %w", err)
	}
	res, err := ksparql.ParseJSON(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse oxigraph result: %w", err)
	}
	if shape.Boolean != nil {
		return solutions(sparql.FormAsk, res), nil
	}
	return solutions(sparql.FormSelect, res), nil
}

func (c *Client) construct(ctx context.Context, query string) ([]graph.Quad, error) {
	resp, err := c.do(ctx, http.MethodPost, c.base+"/query", "application/x-www-form-urlencoded",
		rdfio.MediaType(rdf.FormatNTriples), strings.NewReader(queryForm(query, true).Encode()))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	return readQuads(ctx, resp.Body, rdf.FormatNTriples)
}

func readQuads(ctx context.Context, r io.Reader, format rdf.Format) ([]graph.Quad, error) {
	var quads []graph.Quad
	_, err := rdfio.Read(ctx, r, rdfio.ReadOptions{Format: format}, func(q graph.Quad) error {
		quads = append(quads, q)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse oxigraph graph result: %w", err)
	}
	return quads, nil
}

// Update forwards an update request. When the local parser rejects it and
// the server answers 400, the local syntax error is returned.
func (c *Client) Update(ctx context.Context, update string) error {
	_, parseErr := sparql.ParseUpdate(update)
	form := url.Values{}
	form.Set("update", update)
	resp, err := c.do(ctx, http.MethodPost, c.base+"/update", "application/x-www-form-urlencoded", "", strings.NewReader(form.Encode()))
	if err != nil {
		var re *remoteError
		if parseErr != nil && errors.As(err, &re) && re.status == http.StatusBadRequest {
			return parseErr
		}
		return err
	}
	return resp.Body.Close()
}

// Len counts the quads of every graph.
func (c *Client) Len(ctx context.Context) (int, error) {
	res, err := c.query.Query(queryCall{ctx: ctx, query: countQuery})
	if err != nil {
		return 0, fmt.Errorf("oxigraph count failed: %w", err)
	}
	sols := res.Solutions()
	if len(sols) == 0 || sols[0]["n"] == nil {
		return 0, nil
	}
	n, err := strconv.Atoi(sols[0]["n"].String())
	if err != nil {
		return 0, fmt.Errorf("unexpected count %q: %w", sols[0]["n"].String(), err)
	}
	return n, nil
}

// Load posts a file to the Graph Store endpoint. Triple formats go to the
// default graph; COTTAS files are sent as N-Quads.
func (c *Client) Load(ctx context.Context, path string) error {
	var body io.Reader
	var format rdf.Format
	if rdfio.IsCottas(path) {
		buf, err := cottasNQuads(ctx, path)
		if err != nil {
			return err
		}
		body, format = buf, rdf.FormatNQuads
	} else {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer func() { _ = f.Close() }()
		body, format = f, rdfio.InputFormat(path)
		if format == rdf.FormatAuto {
			format = rdf.FormatTurtle
		}
	}

	target := c.base + "/store"
	if !format.IsQuadFormat() {
		target += "?default"
	}
	resp, err := c.do(ctx, http.MethodPost, target, rdfio.MediaType(format), "", body)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return resp.Body.Close()
}

func cottasNQuads(ctx context.Context, path string) (*bytes.Buffer, error) {
	src, err := cottas.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()
	quads, err := graph.All(ctx, src)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := rdfio.WriteQuads(&buf, rdf.FormatNQuads, quads); err != nil {
		return nil, err
	}
	return &buf, nil
}

// Dump downloads the dataset as N-Quads and re-serializes it in format.
func (c *Client) Dump(ctx context.Context, w io.Writer, format rdf.Format) error {
	resp, err := c.do(ctx, http.MethodGet, c.base+"/store", "", rdfio.MediaType(rdf.FormatNQuads), nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	qw, err := rdfio.NewQuadWriter(w, format, nil)
	if err != nil {
		return err
	}
	_, err = rdfio.Read(ctx, resp.Body, rdfio.ReadOptions{Format: rdf.FormatNQuads}, qw.Write)
	if err != nil {
		_ = qw.Close()
		return fmt.Errorf("failed to read oxigraph dump: %w", err)
	}
	return qw.Close()
}

// remoteError is a non-2xx answer of the server.
type remoteError struct {
	status int
	msg    string
}

func (e *remoteError) Error() string {
	return fmt.Sprintf("oxigraph returned %d %s: %s", e.status, http.StatusText(e.status), e.msg)
}

// do sends a request and turns non-2xx answers into errors carrying the body.
func (c *Client) do(ctx context.Context, method, target, contentType, accept string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oxigraph request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, &remoteError{status: resp.StatusCode, msg: strings.TrimSpace(string(msg))}
	}
	return resp, nil
}

// fromKnakk converts a result term of the protocol client.
func fromKnakk(t krdf.Term) rdf.Term {
	switch v := t.(type) {
	case krdf.IRI:
		return graph.IRI(v.String())
	case krdf.Blank:
		return graph.Blank(v.String())
	case krdf.Literal:
		if v.Lang() != "" {
			return graph.LangLiteral(v.String(), v.Lang())
		}
		return graph.TypedLiteral(v.String(), v.DataType.String())
	default:
		return graph.Literal(t.String())
	}
}
