// Package helpers provides utility functions and constants shared by the commands, stores and endpoint.
package helpers

// TempFileLoadPrefix names the temporary files of SPARQL LOAD downloads.
const TempFileLoadPrefix = "sparql_load_"

// File extensions
const (
	ExtRDF    = ".rdf"
	ExtXML    = ".xml"
	ExtOWL    = ".owl"
	ExtTTL    = ".ttl"
	ExtTurtle = ".turtle"
	ExtNTrips = ".nt"
	ExtN3     = ".n3"
	ExtJSONLD = ".jsonld"
	ExtJSON   = ".json"
	ExtTriG   = ".trig"
	ExtNQuads = ".nq"
	ExtCottas = ".cottas"
)

// RDF format types
const (
	FormatRDFXML   = "rdf-xml"
	FormatTurtle   = "turtle"
	FormatNTriples = "n-triples"
	FormatN3       = "n3"
	FormatJSONLD   = "json-ld"
	FormatTriG     = "trig"
	FormatNQuads   = "n-quads"
	FormatCottas   = "cottas"
	FormatUnknown  = "unknown"
)

// Defaults shared by the commands
const (
	DefaultHost         = "localhost"
	DefaultPort         = 8000
	DefaultConvertOut   = "output.ttl"
	DefaultCompressOut  = "output.cottas"
	DefaultCottasIndex  = "spo"
	DefaultOxigraphURL  = "http://localhost:7878"
	DefaultServiceTitle = "SPARQL endpoint for RDF files"
	EnvPrefix           = "RDFENDPOINT"
)

// ExampleQuery pre-fills the query editor of the endpoint.
const ExampleQuery = `PREFIX rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
SELECT * WHERE {
    ?s ?p ?o .
} LIMIT 100`

// Debug log messages
const (
	DebugPrefix     = "DEBUG: "
	DebugHTTPPrefix = "DEBUG HTTP: "
)
