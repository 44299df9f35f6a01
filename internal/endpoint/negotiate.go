package endpoint

import (
	"sort"
	"strconv"
	"strings"

	"github.com/geoknoesis/rdf-go/rdf"

	"evalgo.org/rdfendpoint/internal/rdfio"
	"evalgo.org/rdfendpoint/internal/sparql"
)

type acceptRange struct {
	mediaType string
	q         float64
}

// parseAccept returns the media ranges of an Accept header, best first.
// Ranges with equal quality keep their header order.
func parseAccept(header string) []acceptRange {
	var out []acceptRange
	for _, part := range strings.Split(header, ",") {
		fields := strings.Split(part, ";")
		mt := strings.ToLower(strings.TrimSpace(fields[0]))
		if mt == "" {
			continue
		}
		q := 1.0
		for _, param := range fields[1:] {
			k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
			if ok && strings.EqualFold(k, "q") {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					q = f
				}
			}
		}
		if q > 0 {
			out = append(out, acceptRange{mediaType: mt, q: q})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].q > out[j].q })
	return out
}

// resultFormat picks the SELECT and ASK serialization. An explicit format
// parameter wins over Accept; JSON is the fallback.
func resultFormat(param, accept string) sparql.ResultFormat {
	if param != "" {
		if f, ok := sparql.ResultFormatForMediaType(param); ok {
			return f
		}
	}
	for _, r := range parseAccept(accept) {
		if f, ok := sparql.ResultFormatForMediaType(r.mediaType); ok {
			return f
		}
	}
	return sparql.ResultJSON
}

// graphFormat picks the CONSTRUCT and DESCRIBE serialization. Turtle is the fallback.
func graphFormat(param, accept string) rdf.Format {
	if param != "" {
		if f, ok := rdfio.FormatForName(param); ok {
			return f
		}
	}
	for _, r := range parseAccept(accept) {
		if f, ok := rdfio.FormatForMediaType(r.mediaType); ok {
			return f
		}
	}
	return rdf.FormatTurtle
}

func acceptsHTML(accept string) bool {
	for _, r := range parseAccept(accept) {
		switch r.mediaType {
		case "text/html", "application/xhtml+xml":
			return true
		}
	}
	return false
}
