// Package rdfio reads and writes RDF files through github.com/geoknoesis/rdf-go.
package rdfio

import (
	"mime"
	"strings"

	"github.com/geoknoesis/rdf-go/rdf"

	"evalgo.org/rdfendpoint/internal/helpers"
)

// OutputFormat picks the serialization for an output path from its suffix:
// .nt is N-Triples, .xml and .rdf are RDF/XML, .json and .jsonld are JSON-LD,
// .trig is TriG and anything else is Turtle.
func OutputFormat(path string) rdf.Format {
	switch {
	case strings.HasSuffix(path, helpers.ExtNTrips):
		return rdf.FormatNTriples
	case strings.HasSuffix(path, helpers.ExtXML), strings.HasSuffix(path, helpers.ExtRDF):
		return rdf.FormatRDFXML
	case strings.HasSuffix(path, helpers.ExtJSON), strings.HasSuffix(path, helpers.ExtJSONLD):
		return rdf.FormatJSONLD
	case strings.HasSuffix(path, helpers.ExtTriG):
		return rdf.FormatTriG
	default:
		return rdf.FormatTurtle
	}
}

// InputFormat guesses the syntax of an input file from its extension.
// Unknown extensions return rdf.FormatAuto so the parser sniffs the content.
func InputFormat(path string) rdf.Format {
	switch helpers.GetFileType(path) {
	case helpers.FormatTurtle, helpers.FormatN3:
		return rdf.FormatTurtle
	case helpers.FormatNTriples:
		return rdf.FormatNTriples
	case helpers.FormatRDFXML:
		return rdf.FormatRDFXML
	case helpers.FormatJSONLD:
		return rdf.FormatJSONLD
	case helpers.FormatTriG:
		return rdf.FormatTriG
	case helpers.FormatNQuads:
		return rdf.FormatNQuads
	default:
		return rdf.FormatAuto
	}
}

// mediaTypes maps each format to its registered media type.
var mediaTypes = map[rdf.Format]string{
	rdf.FormatTurtle:   "text/turtle",
	rdf.FormatNTriples: "application/n-triples",
	rdf.FormatRDFXML:   "application/rdf+xml",
	rdf.FormatJSONLD:   "application/ld+json",
	rdf.FormatTriG:     "application/trig",
	rdf.FormatNQuads:   "application/n-quads",
}

// MediaType returns the content type for a format.
func MediaType(f rdf.Format) string {
	if mt, ok := mediaTypes[f]; ok {
		return mt
	}
	return "text/turtle"
}

// FormatForMediaType maps a content type, with or without parameters, to a format.
func FormatForMediaType(contentType string) (rdf.Format, bool) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch mt {
	case "text/plain":
		return rdf.FormatNTriples, true
	case "application/xml", "text/xml":
		return rdf.FormatRDFXML, true
	case "application/json":
		return rdf.FormatJSONLD, true
	case "application/x-turtle", "text/n3":
		return rdf.FormatTurtle, true
	}
	for f, known := range mediaTypes {
		if known == mt {
			return f, true
		}
	}
	return rdf.FormatAuto, false
}

// FormatForName accepts short names (ttl, nt, xml, json-ld, trig, nq) and media types.
func FormatForName(name string) (rdf.Format, bool) {
	if strings.Contains(name, "/") {
		return FormatForMediaType(name)
	}
	f, ok := rdf.ParseFormat(name)
	if !ok || f == rdf.FormatAuto {
		return rdf.FormatAuto, false
	}
	return f, true
}

// Extension returns the preferred file extension of a format.
func Extension(f rdf.Format) string {
	switch f {
	case rdf.FormatNTriples:
		return helpers.ExtNTrips
	case rdf.FormatRDFXML:
		return helpers.ExtRDF
	case rdf.FormatJSONLD:
		return helpers.ExtJSONLD
	case rdf.FormatTriG:
		return helpers.ExtTriG
	case rdf.FormatNQuads:
		return helpers.ExtNQuads
	default:
		return helpers.ExtTTL
	}
}

// IsCottas reports whether a path names a COTTAS container.
func IsCottas(path string) bool {
	return strings.HasSuffix(path, helpers.ExtCottas)
}
