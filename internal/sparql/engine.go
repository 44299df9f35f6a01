// Package sparql implements a SPARQL 1.1 query and update engine over
// graph.Dataset.
//
// Parsed requests are cached by their text, so repeated queries from the web
// form skip the parser.
package sparql

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/geoknoesis/rdf-go/rdf"
	lru "github.com/hashicorp/golang-lru/v2"

	"evalgo.org/rdfendpoint/internal/graph"
	"evalgo.org/rdfendpoint/internal/helpers"
	"evalgo.org/rdfendpoint/internal/rdfio"
)

const defaultCacheSize = 256

// Engine parses and evaluates SPARQL requests. It is safe for concurrent use.
type Engine struct {
	queries *lru.Cache[string, *Query]
	updates *lru.Cache[string, *Update]
	regexes *lru.Cache[string, *regexp.Regexp]
	client  *http.Client
}

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	cacheSize int
	client    *http.Client
}

// WithCacheSize sets how many parsed queries, updates and regexes are kept.
func WithCacheSize(n int) Option {
	return func(c *engineConfig) { c.cacheSize = n }
}

// WithHTTPClient sets the client used by LOAD for http(s) sources.
func WithHTTPClient(client *http.Client) Option {
	return func(c *engineConfig) { c.client = client }
}

// NewEngine creates an engine.
func NewEngine(opts ...Option) *Engine {
	cfg := engineConfig{cacheSize: defaultCacheSize}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.cacheSize <= 0 {
		cfg.cacheSize = defaultCacheSize
	}
	if cfg.client == nil {
		cfg.client = &http.Client{}
		if helpers.DebugMode {
			cfg.client = helpers.EnableHTTPDebugLogging(cfg.client)
		}
	}
	// lru.New only fails for a non-positive size
	queries, _ := lru.New[string, *Query](cfg.cacheSize)
	updates, _ := lru.New[string, *Update](cfg.cacheSize)
	regexes, _ := lru.New[string, *regexp.Regexp](cfg.cacheSize)
	return &Engine{queries: queries, updates: updates, regexes: regexes, client: cfg.client}
}

// ParseQuery parses src, reusing a cached parse when available.
func (e *Engine) ParseQuery(src string) (*Query, error) {
	if q, ok := e.queries.Get(src); ok {
		return q, nil
	}
	q, err := ParseQuery(src)
	if err != nil {
		return nil, err
	}
	e.queries.Add(src, q)
	return q, nil
}

// ParseUpdate parses src, reusing a cached parse when available.
func (e *Engine) ParseUpdate(src string) (*Update, error) {
	if u, ok := e.updates.Get(src); ok {
		return u, nil
	}
	u, err := ParseUpdate(src)
	if err != nil {
		return nil, err
	}
	e.updates.Add(src, u)
	return u, nil
}

// Query parses and evaluates a query against ds.
func (e *Engine) Query(ctx context.Context, ds graph.Dataset, src string) (*Result, error) {
	q, err := e.ParseQuery(src)
	if err != nil {
		return nil, err
	}
	return e.Eval(ctx, ds, q)
}

// Eval evaluates a parsed query. FROM and FROM NAMED restrict the dataset.
func (e *Engine) Eval(ctx context.Context, ds graph.Dataset, q *Query) (*Result, error) {
	ev := newEvaluator(ctx, e, ds)
	ev.from = q.From
	if len(q.FromNamed) > 0 {
		ev.named = q.FromNamed
	} else if len(q.From) > 0 {
		ev.named = []rdf.Term{}
	}
	switch q.Form {
	case FormAsk:
		return ev.evalAsk(q)
	case FormConstruct:
		return ev.evalConstruct(q)
	case FormDescribe:
		return ev.evalDescribe(q)
	default:
		return ev.evalSelect(scope{}, q)
	}
}

// Update parses and applies an update request to ds.
func (e *Engine) Update(ctx context.Context, ds graph.Mutable, src string) error {
	u, err := e.ParseUpdate(src)
	if err != nil {
		return err
	}
	return e.Exec(ctx, ds, u)
}

// Exec applies a parsed update. Operations run in order and stop at the first error.
func (e *Engine) Exec(ctx context.Context, ds graph.Mutable, u *Update) error {
	return newEvaluator(ctx, e, ds).execUpdate(ds, u)
}

// regexp compiles an XPath-style pattern with SPARQL flags (i, s, m, x, q).
func (e *Engine) regexp(pattern, flags string) (*regexp.Regexp, error) {
	key := flags + "\x00" + pattern
	if re, ok := e.regexes.Get(key); ok {
		return re, nil
	}
	var goFlags strings.Builder
	for _, f := range flags {
		switch f {
		case 'i', 's', 'm':
			goFlags.WriteRune(f)
		case 'q':
			pattern = regexp.QuoteMeta(pattern)
		case 'x':
			pattern = strings.Map(func(r rune) rune {
				if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
					return -1
				}
				return r
			}, pattern)
		default:
			return nil, fmt.Errorf("unknown regex flag %q", f)
		}
	}
	expr := pattern
	if goFlags.Len() > 0 {
		expr = "(?" + goFlags.String() + ")" + pattern
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	e.regexes.Add(key, re)
	return re, nil
}

// fetch reads the RDF document behind a LOAD source: an http(s) URL, a file:
// URL or a local path.
func (e *Engine) fetch(ctx context.Context, source, blankPrefix string, into rdf.Term) ([]graph.Quad, error) {
	u, err := url.Parse(source)
	local := source
	if err == nil && u.Scheme == "file" {
		local = u.Path
	}
	var format rdf.Format
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		cleanup := helpers.NewFileCleanup()
		defer func() { _ = cleanup.Cleanup() }()
		local, format, err = e.download(ctx, source, cleanup)
		if err != nil {
			return nil, err
		}
	}

	var quads []graph.Quad
	opts := rdfio.ReadOptions{Format: format, BlankPrefix: blankPrefix, Graph: into}
	_, err = rdfio.ReadFile(ctx, local, opts, func(q graph.Quad) error {
		if into != nil {
			q.G = into
		}
		quads = append(quads, q)
		return nil
	})
	return quads, err
}

func (e *Engine) download(ctx context.Context, source string, cleanup *helpers.FileCleanup) (string, rdf.Format, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return "", rdf.FormatAuto, err
	}
	req.Header.Set("Accept", "text/turtle, application/n-triples, application/n-quads, application/trig, application/rdf+xml;q=0.9, application/ld+json;q=0.8")
	resp, err := e.client.Do(req)
	if err != nil {
		return "", rdf.FormatAuto, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return "", rdf.FormatAuto, fmt.Errorf("GET %s: %s", source, resp.Status)
	}

	format, ok := rdfio.FormatForMediaType(resp.Header.Get("Content-Type"))
	ext := path.Ext(req.URL.Path)
	if ok {
		ext = rdfio.Extension(format)
	} else {
		format = rdf.FormatAuto
	}
	file, err := helpers.SaveStream(resp.Body, helpers.TempFileLoadPrefix, ext, cleanup)
	if err != nil {
		return "", rdf.FormatAuto, err
	}
	return file, format, nil
}
