package sparql

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/geoknoesis/rdf-go/rdf"

	"evalgo.org/rdfendpoint/internal/graph"
	"evalgo.org/rdfendpoint/internal/rdfio"
)

// Result is the outcome of a query. SELECT fills Vars and Bindings, ASK fills
// Boolean, CONSTRUCT and DESCRIBE fill Quads.
type Result struct {
	Form     Form
	Vars     []string
	Bindings []Binding
	Boolean  bool
	Quads    []graph.Quad
}

// IsGraph reports whether the result is an RDF graph.
func (r *Result) IsGraph() bool {
	return r.Form == FormConstruct || r.Form == FormDescribe
}

// ResultFormat is a serialization of solution sequences and booleans.
type ResultFormat int

const (
	ResultJSON ResultFormat = iota
	ResultXML
	ResultCSV
	ResultTSV
)

// MediaType returns the content type of the format.
func (f ResultFormat) MediaType() string {
	switch f {
	case ResultXML:
		return "application/sparql-results+xml"
	case ResultCSV:
		return "text/csv"
	case ResultTSV:
		return "text/tab-separated-values"
	default:
		return "application/sparql-results+json"
	}
}

// ResultFormatForMediaType maps a content type or short name to a result format.
func ResultFormatForMediaType(mt string) (ResultFormat, bool) {
	mt = strings.ToLower(strings.TrimSpace(strings.Split(mt, ";")[0]))
	switch mt {
	case "application/sparql-results+json", "application/json", "json":
		return ResultJSON, true
	case "application/sparql-results+xml", "application/xml", "text/xml", "xml":
		return ResultXML, true
	case "text/csv", "csv":
		return ResultCSV, true
	case "text/tab-separated-values", "tsv":
		return ResultTSV, true
	}
	return ResultJSON, false
}

// Write serializes a SELECT or ASK result.
func (r *Result) Write(w io.Writer, f ResultFormat) error {
	if r.IsGraph() {
		return fmt.Errorf("%s result is a graph", r.Form)
	}
	switch f {
	case ResultXML:
		return r.writeXML(w)
	case ResultCSV:
		return r.writeCSV(w)
	case ResultTSV:
		return r.writeTSV(w)
	default:
		return r.writeJSON(w)
	}
}

// WriteGraph serializes a CONSTRUCT or DESCRIBE result.
func (r *Result) WriteGraph(w io.Writer, format rdf.Format) error {
	return rdfio.WriteQuads(w, format, r.Quads)
}

type jsonTerm struct {
	Type     string      `json:"type"`
	Value    interface{} `json:"value"`
	Lang     string      `json:"xml:lang,omitempty"`
	Datatype string      `json:"datatype,omitempty"`
}

func toJSONTerm(t rdf.Term) jsonTerm {
	switch v := t.(type) {
	case rdf.IRI:
		return jsonTerm{Type: "uri", Value: v.Value}
	case rdf.BlankNode:
		return jsonTerm{Type: "bnode", Value: v.ID}
	case rdf.Literal:
		v = graph.Canonical(v).(rdf.Literal)
		return jsonTerm{Type: "literal", Value: v.Lexical, Lang: v.Lang, Datatype: v.Datatype.Value}
	case rdf.TripleTerm:
		return jsonTerm{Type: "triple", Value: map[string]jsonTerm{
			"subject":   toJSONTerm(v.S),
			"predicate": toJSONTerm(v.P),
			"object":    toJSONTerm(v.O),
		}}
	}
	return jsonTerm{Type: "literal", Value: t.String()}
}

func (r *Result) writeJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	if r.Form == FormAsk {
		return enc.Encode(struct {
			Head    struct{} `json:"head"`
			Boolean bool     `json:"boolean"`
		}{Boolean: r.Boolean})
	}
	bindings := make([]map[string]jsonTerm, len(r.Bindings))
	for i, b := range r.Bindings {
		m := make(map[string]jsonTerm, len(b))
		for k, v := range b {
			m[k] = toJSONTerm(v)
		}
		bindings[i] = m
	}
	vars := r.Vars
	if vars == nil {
		vars = []string{}
	}
	var doc struct {
		Head struct {
			Vars []string `json:"vars"`
		} `json:"head"`
		Results struct {
			Bindings []map[string]jsonTerm `json:"bindings"`
		} `json:"results"`
	}
	doc.Head.Vars = vars
	doc.Results.Bindings = bindings
	return enc.Encode(doc)
}

func xmlEscape(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}

func writeXMLTerm(bw *bufio.Writer, t rdf.Term) {
	switch v := t.(type) {
	case rdf.IRI:
		fmt.Fprintf(bw, "<uri>%s</uri>", xmlEscape(v.Value))
	case rdf.BlankNode:
		fmt.Fprintf(bw, "<bnode>%s</bnode>", xmlEscape(v.ID))
	case rdf.Literal:
		v = graph.Canonical(v).(rdf.Literal)
		switch {
		case v.Lang != "":
			fmt.Fprintf(bw, `<literal xml:lang="%s">%s</literal>`, xmlEscape(v.Lang), xmlEscape(v.Lexical))
		case v.Datatype.Value != "":
			fmt.Fprintf(bw, `<literal datatype="%s">%s</literal>`, xmlEscape(v.Datatype.Value), xmlEscape(v.Lexical))
		default:
			fmt.Fprintf(bw, "<literal>%s</literal>", xmlEscape(v.Lexical))
		}
	case rdf.TripleTerm:
		bw.WriteString("<triple><subject>")
		writeXMLTerm(bw, v.S)
		bw.WriteString("</subject><predicate>")
		writeXMLTerm(bw, v.P)
		bw.WriteString("</predicate><object>")
		writeXMLTerm(bw, v.O)
		bw.WriteString("</object></triple>")
	}
}

func (r *Result) writeXML(w io.Writer) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(xml.Header)
	bw.WriteString(`<sparql xmlns="http://www.w3.org/2005/sparql-results#">` + "\n<head>\n")
	if r.Form == FormAsk {
		fmt.Fprintf(bw, "</head>\n<boolean>%t</boolean>\n</sparql>\n", r.Boolean)
		return bw.Flush()
	}
	for _, v := range r.Vars {
		fmt.Fprintf(bw, "  <variable name=\"%s\"/>\n", xmlEscape(v))
	}
	bw.WriteString("</head>\n<results>\n")
	for _, b := range r.Bindings {
		bw.WriteString("  <result>\n")
		for _, v := range r.Vars {
			t, ok := b[v]
			if !ok {
				continue
			}
			fmt.Fprintf(bw, "    <binding name=\"%s\">", xmlEscape(v))
			writeXMLTerm(bw, t)
			bw.WriteString("</binding>\n")
		}
		bw.WriteString("  </result>\n")
	}
	bw.WriteString("</results>\n</sparql>\n")
	return bw.Flush()
}

func csvValue(t rdf.Term) string {
	switch v := t.(type) {
	case nil:
		return ""
	case rdf.IRI:
		return v.Value
	case rdf.BlankNode:
		return "_:" + v.ID
	case rdf.Literal:
		return v.Lexical
	}
	return graph.FormatTerm(t)
}

func (r *Result) writeCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if r.Form == FormAsk {
		_ = cw.Write([]string{"_askResult"})
		_ = cw.Write([]string{fmt.Sprint(r.Boolean)})
		cw.Flush()
		return cw.Error()
	}
	if err := cw.Write(r.Vars); err != nil {
		return err
	}
	rec := make([]string, len(r.Vars))
	for _, b := range r.Bindings {
		for i, v := range r.Vars {
			rec[i] = csvValue(b[v])
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (r *Result) writeTSV(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if r.Form == FormAsk {
		fmt.Fprintf(bw, "?_askResult\n%t\n", r.Boolean)
		return bw.Flush()
	}
	head := make([]string, len(r.Vars))
	for i, v := range r.Vars {
		head[i] = "?" + v
	}
	bw.WriteString(strings.Join(head, "\t") + "\n")
	cells := make([]string, len(r.Vars))
	for _, b := range r.Bindings {
		for i, v := range r.Vars {
			cells[i] = graph.FormatTerm(b[v])
		}
		bw.WriteString(strings.Join(cells, "\t") + "\n")
	}
	return bw.Flush()
}
