// Package main provides the entry point for rdfendpoint.
//
// rdfendpoint loads RDF files into a dataset and serves it over the SPARQL 1.1
// protocol, or merges and re-serializes the files.
//
// The tool supports:
//   - SPARQL 1.1 query and update on / and /sparql
//   - in-memory, BadgerDB and remote Oxigraph stores
//   - read-only serving of COTTAS columnar files
//   - conversion between Turtle, N-Triples, RDF/XML, JSON-LD and TriG
//   - API key or bearer token protection of updates
//
// Usage:
//
//	rdfendpoint serve [FILES...] [flags]
//	rdfendpoint convert [FILES...] --output out.nt
//
// Environment Variables:
//   - RDFENDPOINT_SERVE_PORT: HTTP port (default: 8000)
//   - RDFENDPOINT_STORE_BACKEND: default, oxigraph or badger
//   - RDFENDPOINT_SERVE_TOKEN_SECRET: secret of update bearer tokens
//
// Example:
//
//	rdfendpoint serve --enable-update data/*.ttl
//
// @title rdfendpoint SPARQL API
// @version 1.0
// @description SPARQL 1.1 query and update endpoint over RDF files.
// @license.name MIT
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"os"

	"evalgo.org/rdfendpoint/cmd"
)

// main is the application entry point that delegates to the cobra command structure.
func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
