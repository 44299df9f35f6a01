package sparql

import (
	"errors"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/geoknoesis/rdf-go/rdf"

	"evalgo.org/rdfendpoint/internal/graph"
)

// errType is the SPARQL expression error. FILTER treats it as false; BIND and
// projections leave the variable unbound.
var errType = errors.New("expression type error")

var integerTypes = map[string]bool{
	graph.XSDInteger:                   true,
	graph.XSDNS + "int":                true,
	graph.XSDNS + "long":               true,
	graph.XSDNS + "short":              true,
	graph.XSDNS + "byte":               true,
	graph.XSDNS + "nonNegativeInteger": true,
	graph.XSDNS + "positiveInteger":    true,
	graph.XSDNS + "nonPositiveInteger": true,
	graph.XSDNS + "negativeInteger":    true,
	graph.XSDNS + "unsignedLong":       true,
	graph.XSDNS + "unsignedInt":        true,
	graph.XSDNS + "unsignedShort":      true,
	graph.XSDNS + "unsignedByte":       true,
}

func isNumericDatatype(dt string) bool {
	return integerTypes[dt] || dt == graph.XSDDecimal || dt == graph.XSDFloat || dt == graph.XSDDouble
}

type numKind int

const (
	numInteger numKind = iota
	numDecimal
	numFloat
	numDouble
)

// number holds integers and decimals exactly and floats as float64.
type number struct {
	kind numKind
	r    *big.Rat
	f    float64
}

func numericValue(t rdf.Term) (number, bool) {
	lit, ok := t.(rdf.Literal)
	if !ok || lit.Lang != "" {
		return number{}, false
	}
	lex := strings.TrimSpace(lit.Lexical)
	dt := lit.Datatype.Value
	switch {
	case integerTypes[dt]:
		n, ok := new(big.Int).SetString(strings.TrimPrefix(lex, "+"), 10)
		if !ok {
			return number{}, false
		}
		return number{kind: numInteger, r: new(big.Rat).SetInt(n)}, true
	case dt == graph.XSDDecimal:
		if strings.ContainsAny(lex, "eE") {
			return number{}, false
		}
		r, ok := new(big.Rat).SetString(strings.TrimPrefix(lex, "+"))
		if !ok {
			return number{}, false
		}
		return number{kind: numDecimal, r: r}, true
	case dt == graph.XSDDouble || dt == graph.XSDFloat:
		f, ok := parseDouble(lex)
		if !ok {
			return number{}, false
		}
		kind := numDouble
		if dt == graph.XSDFloat {
			kind = numFloat
		}
		return number{kind: kind, f: f}, true
	}
	return number{}, false
}

func parseDouble(lex string) (float64, bool) {
	switch lex {
	case "INF", "+INF":
		return math.Inf(1), true
	case "-INF":
		return math.Inf(-1), true
	case "NaN":
		return math.NaN(), true
	}
	f, err := strconv.ParseFloat(lex, 64)
	return f, err == nil
}

func intNumber(n int64) number {
	return number{kind: numInteger, r: new(big.Rat).SetInt64(n)}
}

func (n number) float() float64 {
	if n.kind >= numFloat {
		return n.f
	}
	f, _ := n.r.Float64()
	return f
}

func (n number) rat() *big.Rat {
	if n.kind < numFloat {
		return n.r
	}
	r := new(big.Rat)
	if math.IsInf(n.f, 0) || math.IsNaN(n.f) {
		return r
	}
	r.SetFloat64(n.f)
	return r
}

func (n number) literal() rdf.Literal {
	switch n.kind {
	case numInteger:
		return graph.TypedLiteral(n.r.Num().String(), graph.XSDInteger)
	case numDecimal:
		return graph.TypedLiteral(formatDecimal(n.r), graph.XSDDecimal)
	case numFloat:
		return graph.TypedLiteral(formatDouble(n.f), graph.XSDFloat)
	default:
		return graph.TypedLiteral(formatDouble(n.f), graph.XSDDouble)
	}
}

func formatDecimal(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String() + ".0"
	}
	s := strings.TrimRight(r.FloatString(20), "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}

// formatDouble renders the canonical xsd:double form, e.g. 1.5E2.
func formatDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	}
	s := strconv.FormatFloat(f, 'E', -1, 64)
	mant, exp, _ := strings.Cut(s, "E")
	if !strings.Contains(mant, ".") {
		mant += ".0"
	}
	e, _ := strconv.Atoi(exp)
	return mant + "E" + strconv.Itoa(e)
}

func arith(op string, a, b number) (number, error) {
	kind := a.kind
	if b.kind > kind {
		kind = b.kind
	}
	if kind >= numFloat {
		x, y := a.float(), b.float()
		var f float64
		switch op {
		case "+":
			f = x + y
		case "-":
			f = x - y
		case "*":
			f = x * y
		case "/":
			f = x / y
		}
		return number{kind: kind, f: f}, nil
	}
	r := new(big.Rat)
	switch op {
	case "+":
		r.Add(a.r, b.r)
	case "-":
		r.Sub(a.r, b.r)
	case "*":
		r.Mul(a.r, b.r)
	case "/":
		if b.r.Sign() == 0 {
			return number{}, errType
		}
		r.Quo(a.r, b.r)
		if kind == numInteger {
			kind = numDecimal
		}
	}
	return number{kind: kind, r: r}, nil
}

func compareNumbers(a, b number) (int, error) {
	if a.kind >= numFloat || b.kind >= numFloat {
		x, y := a.float(), b.float()
		switch {
		case math.IsNaN(x) || math.IsNaN(y):
			return 0, errType
		case x < y:
			return -1, nil
		case x > y:
			return 1, nil
		}
		return 0, nil
	}
	return a.r.Cmp(b.r), nil
}

func boolLiteral(b bool) rdf.Literal {
	return graph.TypedLiteral(strconv.FormatBool(b), graph.XSDBoolean)
}

func boolValue(t rdf.Term) (bool, bool) {
	lit, ok := t.(rdf.Literal)
	if !ok || lit.Datatype.Value != graph.XSDBoolean {
		return false, false
	}
	switch strings.TrimSpace(lit.Lexical) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	}
	return false, false
}

// isStringLiteral reports a simple literal or xsd:string.
func isStringLiteral(t rdf.Term) bool {
	lit, ok := t.(rdf.Literal)
	return ok && lit.Lang == "" && (lit.Datatype.Value == "" || lit.Datatype.Value == graph.XSDString)
}

var dateTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
}

func dateTimeValue(t rdf.Term) (time.Time, bool, bool) {
	lit, ok := t.(rdf.Literal)
	if !ok || (lit.Datatype.Value != graph.XSDDateTime && lit.Datatype.Value != graph.XSDNS+"date") {
		return time.Time{}, false, false
	}
	lex := strings.TrimSpace(lit.Lexical)
	if lit.Datatype.Value == graph.XSDNS+"date" {
		if tm, err := time.Parse("2006-01-02Z07:00", lex); err == nil {
			return tm, true, true
		}
		tm, err := time.Parse("2006-01-02", lex)
		return tm, false, err == nil
	}
	for i, layout := range dateTimeLayouts {
		if tm, err := time.Parse(layout, lex); err == nil {
			return tm, i == 0, true
		}
	}
	return time.Time{}, false, false
}

// ebv computes the effective boolean value.
func ebv(t rdf.Term) (bool, error) {
	lit, ok := t.(rdf.Literal)
	if !ok {
		return false, errType
	}
	if lit.Datatype.Value == graph.XSDBoolean {
		b, ok := boolValue(lit)
		return b && ok, nil
	}
	if isStringLiteral(lit) {
		return lit.Lexical != "", nil
	}
	if n, ok := numericValue(lit); ok {
		if n.kind >= numFloat {
			return n.f != 0 && !math.IsNaN(n.f), nil
		}
		return n.r.Sign() != 0, nil
	}
	if isNumericDatatype(lit.Datatype.Value) {
		return false, nil
	}
	return false, errType
}

// compareValues orders two terms by value for < > <= >=.
func compareValues(a, b rdf.Term) (int, error) {
	if x, ok := numericValue(a); ok {
		if y, ok := numericValue(b); ok {
			return compareNumbers(x, y)
		}
		return 0, errType
	}
	if isStringLiteral(a) && isStringLiteral(b) {
		return strings.Compare(a.(rdf.Literal).Lexical, b.(rdf.Literal).Lexical), nil
	}
	la, okA := a.(rdf.Literal)
	lb, okB := b.(rdf.Literal)
	if okA && okB && la.Lang != "" && la.Lang == lb.Lang {
		return strings.Compare(la.Lexical, lb.Lexical), nil
	}
	if x, ok := boolValue(a); ok {
		if y, ok := boolValue(b); ok {
			switch {
			case x == y:
				return 0, nil
			case !x:
				return -1, nil
			default:
				return 1, nil
			}
		}
		return 0, errType
	}
	if x, _, ok := dateTimeValue(a); ok {
		if y, _, ok := dateTimeValue(b); ok {
			return x.Compare(y), nil
		}
	}
	return 0, errType
}

// equalValues implements the = operator.
func equalValues(a, b rdf.Term) (bool, error) {
	if graph.Equal(a, b) {
		return true, nil
	}
	la, okA := a.(rdf.Literal)
	lb, okB := b.(rdf.Literal)
	if !okA || !okB {
		return false, nil
	}
	if la.Lang != "" || lb.Lang != "" {
		return false, nil
	}
	c, err := compareValues(a, b)
	if err != nil {
		if isKnownDatatype(la) && isKnownDatatype(lb) {
			return false, nil
		}
		return false, errType
	}
	return c == 0, nil
}

func isKnownDatatype(l rdf.Literal) bool {
	dt := graph.Datatype(l)
	return dt == graph.XSDString || dt == graph.XSDBoolean || dt == graph.XSDDateTime || isNumericDatatype(dt)
}

// orderCompare is the total order of ORDER BY: unbound, blank nodes, IRIs, literals.
func orderCompare(a, b rdf.Term) int {
	ra, rb := orderRank(a), orderRank(b)
	if ra != rb {
		return ra - rb
	}
	switch x := a.(type) {
	case nil:
		return 0
	case rdf.BlankNode:
		return strings.Compare(x.ID, b.(rdf.BlankNode).ID)
	case rdf.IRI:
		return strings.Compare(x.Value, b.(rdf.IRI).Value)
	case rdf.Literal:
		if c, err := compareValues(a, b); err == nil {
			return c
		}
		y := b.(rdf.Literal)
		if c := strings.Compare(x.Lexical, y.Lexical); c != 0 {
			return c
		}
		if c := strings.Compare(graph.Datatype(x), graph.Datatype(y)); c != 0 {
			return c
		}
		return strings.Compare(x.Lang, y.Lang)
	}
	return strings.Compare(graph.FormatTerm(a), graph.FormatTerm(b))
}

func orderRank(t rdf.Term) int {
	switch t.(type) {
	case nil:
		return 0
	case rdf.BlankNode:
		return 1
	case rdf.IRI:
		return 2
	case rdf.Literal:
		return 3
	default:
		return 4
	}
}
