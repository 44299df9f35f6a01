package endpoint

import (
	"bytes"
	"net/http"

	"github.com/geoknoesis/rdf-go/rdf"
	"github.com/labstack/echo/v4"

	"evalgo.org/rdfendpoint/internal/graph"
	"evalgo.org/rdfendpoint/internal/rdfio"
)

const (
	sdNS      = "http://www.w3.org/ns/sparql-service-description#"
	formatsNS = "http://www.w3.org/ns/formats/"
	dcTitle   = "http://purl.org/dc/terms/title"
	dcDesc    = "http://purl.org/dc/terms/description"
)

var resultFormats = []string{
	"SPARQL_Results_JSON", "SPARQL_Results_XML", "SPARQL_Results_CSV", "SPARQL_Results_TSV",
	"Turtle", "N-Triples", "RDF_XML", "JSON-LD", "TriG", "N-Quads",
}

// serviceDescription lists what the endpoint at url supports.
func (s *Server) serviceDescription(url string) []graph.Quad {
	svc := graph.IRI(url)
	sd := func(local string) rdf.IRI { return graph.IRI(sdNS + local) }
	dataset := graph.Blank("dataset")
	defaultGraph := graph.Blank("defaultGraph")

	quads := []graph.Quad{
		{S: svc, P: graph.IRI(graph.RDFType), O: sd("Service")},
		{S: svc, P: sd("endpoint"), O: svc},
		{S: svc, P: sd("supportedLanguage"), O: sd("SPARQL11Query")},
		{S: svc, P: sd("feature"), O: sd("UnionDefaultGraph")},
		{S: svc, P: sd("feature"), O: sd("BasicFederatedQuery")},
		{S: svc, P: graph.IRI(dcTitle), O: graph.Literal(s.cfg.Title)},
		{S: svc, P: sd("defaultDataset"), O: dataset},
		{S: dataset, P: graph.IRI(graph.RDFType), O: sd("Dataset")},
		{S: dataset, P: sd("defaultGraph"), O: defaultGraph},
		{S: defaultGraph, P: graph.IRI(graph.RDFType), O: sd("Graph")},
	}
	if s.cfg.EnableUpdate {
		quads = append(quads, graph.Quad{S: svc, P: sd("supportedLanguage"), O: sd("SPARQL11Update")})
	}
	if s.cfg.Description != "" {
		quads = append(quads, graph.Quad{S: svc, P: graph.IRI(dcDesc), O: graph.Literal(s.cfg.Description)})
	}
	for _, f := range resultFormats {
		quads = append(quads, graph.Quad{S: svc, P: sd("resultFormat"), O: graph.IRI(formatsNS + f)})
	}
	return quads
}

func (s *Server) describe(c echo.Context) error {
	url := c.Scheme() + "://" + c.Request().Host + c.Request().URL.Path
	format := graphFormat(c.QueryParam("format"), c.Request().Header.Get(echo.HeaderAccept))

	var buf bytes.Buffer
	if err := rdfio.WriteQuads(&buf, format, s.serviceDescription(url)); err != nil {
		return err
	}
	return c.Blob(http.StatusOK, rdfio.MediaType(format)+"; charset=utf-8", buf.Bytes())
}
