package sparql

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"math"
	"math/big"
	"math/rand"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/geoknoesis/rdf-go/rdf"
	"github.com/google/uuid"

	"evalgo.org/rdfendpoint/internal/graph"
)

func (ev *evaluator) call(x ExprCall, r *row) (rdf.Term, error) {
	// forms with lazy or variable-level arguments
	switch x.Name {
	case "BOUND":
		v := x.Args[0].(ExprVar)
		_, ok := r.b[v.Name]
		return boolLiteral(ok), nil
	case "COALESCE":
		for _, a := range x.Args {
			if v, err := ev.eval(a, r); err == nil && v != nil {
				return v, nil
			}
		}
		return nil, errType
	case "IF":
		cond, err := ev.truth(x.Args[0], r)
		if err != nil {
			return nil, err
		}
		if cond {
			return ev.eval(x.Args[1], r)
		}
		return ev.eval(x.Args[2], r)
	}

	args := make([]rdf.Term, len(x.Args))
	for i, a := range x.Args {
		v, err := ev.eval(a, r)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	if strings.HasPrefix(x.Name, graph.XSDNS) {
		if len(args) != 1 {
			return nil, errType
		}
		return cast(x.Name, args[0])
	}

	switch x.Name {
	case "STR":
		s, ok := strValue(args[0])
		if !ok {
			return nil, errType
		}
		return graph.Literal(s), nil
	case "LANG":
		lit, ok := args[0].(rdf.Literal)
		if !ok {
			return nil, errType
		}
		return graph.Literal(lit.Lang), nil
	case "LANGMATCHES":
		tag, ok1 := stringArg(args[0])
		rng, ok2 := stringArg(args[1])
		if !ok1 || !ok2 {
			return nil, errType
		}
		return boolLiteral(langMatches(tag, rng)), nil
	case "DATATYPE":
		lit, ok := args[0].(rdf.Literal)
		if !ok {
			return nil, errType
		}
		return graph.IRI(graph.Datatype(lit)), nil
	case "IRI", "URI":
		switch v := args[0].(type) {
		case rdf.IRI:
			return v, nil
		case rdf.Literal:
			if isStringLiteral(v) {
				return graph.IRI(v.Lexical), nil
			}
		}
		return nil, errType
	case "BNODE":
		if len(args) == 0 {
			return ev.freshBlank(), nil
		}
		s, ok := stringArg(args[0])
		if !ok {
			return nil, errType
		}
		if r.bnodes == nil {
			r.bnodes = map[string]rdf.Term{}
		}
		if b, ok := r.bnodes[s]; ok {
			return b, nil
		}
		b := ev.freshBlank()
		r.bnodes[s] = b
		return b, nil
	case "RAND":
		return graph.TypedLiteral(formatDouble(rand.Float64()), graph.XSDDouble), nil
	case "ABS", "CEIL", "FLOOR", "ROUND":
		n, ok := numericValue(args[0])
		if !ok {
			return nil, errType
		}
		return roundNumber(x.Name, n).literal(), nil
	case "CONCAT":
		var sb strings.Builder
		lang, same := "", true
		for i, a := range args {
			lit, ok := a.(rdf.Literal)
			if !ok || !(isStringLiteral(lit) || lit.Lang != "") {
				return nil, errType
			}
			if i == 0 {
				lang = lit.Lang
			} else if lit.Lang != lang {
				same = false
			}
			sb.WriteString(lit.Lexical)
		}
		if same && lang != "" {
			return graph.LangLiteral(sb.String(), lang), nil
		}
		return graph.Literal(sb.String()), nil
	case "SUBSTR":
		lit, ok := stringLike(args[0])
		if !ok {
			return nil, errType
		}
		start, ok := numericValue(args[1])
		if !ok {
			return nil, errType
		}
		runes := []rune(lit.Lexical)
		from := int(math.Round(start.float()))
		to := len(runes) + 1
		if len(args) == 3 {
			n, ok := numericValue(args[2])
			if !ok {
				return nil, errType
			}
			to = from + int(math.Round(n.float()))
		}
		if from < 1 {
			from = 1
		}
		if to > len(runes)+1 {
			to = len(runes) + 1
		}
		sub := ""
		if from < to {
			sub = string(runes[from-1 : to-1])
		}
		return withLang(sub, lit), nil
	case "STRLEN":
		lit, ok := stringLike(args[0])
		if !ok {
			return nil, errType
		}
		return intNumber(int64(utf8.RuneCountInString(lit.Lexical))).literal(), nil
	case "REPLACE":
		lit, ok := stringLike(args[0])
		pattern, ok2 := stringArg(args[1])
		repl, ok3 := stringArg(args[2])
		if !ok || !ok2 || !ok3 {
			return nil, errType
		}
		flags := ""
		if len(args) == 4 {
			if flags, ok = stringArg(args[3]); !ok {
				return nil, errType
			}
		}
		re, err := ev.eng.regexp(pattern, flags)
		if err != nil {
			return nil, errType
		}
		return withLang(re.ReplaceAllString(lit.Lexical, convertReplacement(repl)), lit), nil
	case "UCASE", "LCASE":
		lit, ok := stringLike(args[0])
		if !ok {
			return nil, errType
		}
		if x.Name == "UCASE" {
			return withLang(strings.ToUpper(lit.Lexical), lit), nil
		}
		return withLang(strings.ToLower(lit.Lexical), lit), nil
	case "ENCODE_FOR_URI":
		lit, ok := stringLike(args[0])
		if !ok {
			return nil, errType
		}
		return graph.Literal(encodeForURI(lit.Lexical)), nil
	case "CONTAINS", "STRSTARTS", "STRENDS", "STRBEFORE", "STRAFTER":
		a, b, ok := compatibleArgs(args[0], args[1])
		if !ok {
			return nil, errType
		}
		switch x.Name {
		case "CONTAINS":
			return boolLiteral(strings.Contains(a.Lexical, b.Lexical)), nil
		case "STRSTARTS":
			return boolLiteral(strings.HasPrefix(a.Lexical, b.Lexical)), nil
		case "STRENDS":
			return boolLiteral(strings.HasSuffix(a.Lexical, b.Lexical)), nil
		case "STRBEFORE":
			i := strings.Index(a.Lexical, b.Lexical)
			if i < 0 {
				return graph.Literal(""), nil
			}
			return withLang(a.Lexical[:i], a), nil
		default:
			i := strings.Index(a.Lexical, b.Lexical)
			if i < 0 {
				return graph.Literal(""), nil
			}
			return withLang(a.Lexical[i+len(b.Lexical):], a), nil
		}
	case "YEAR", "MONTH", "DAY", "HOURS", "MINUTES", "SECONDS", "TIMEZONE", "TZ":
		return dateTimePart(x.Name, args[0])
	case "NOW":
		return graph.TypedLiteral(ev.now.Format(time.RFC3339Nano), graph.XSDDateTime), nil
	case "UUID":
		return graph.IRI("urn:uuid:" + uuid.NewString()), nil
	case "STRUUID":
		return graph.Literal(uuid.NewString()), nil
	case "MD5", "SHA1", "SHA256", "SHA384", "SHA512":
		s, ok := stringArg(args[0])
		if !ok {
			return nil, errType
		}
		return graph.Literal(digest(x.Name, s)), nil
	case "STRLANG":
		s, ok1 := stringArg(args[0])
		lang, ok2 := stringArg(args[1])
		if !ok1 || !ok2 || lang == "" || !isStringLiteral(args[0]) {
			return nil, errType
		}
		return graph.LangLiteral(s, lang), nil
	case "STRDT":
		dt, ok := args[1].(rdf.IRI)
		if !ok || !isStringLiteral(args[0]) {
			return nil, errType
		}
		return graph.TypedLiteral(args[0].(rdf.Literal).Lexical, dt.Value), nil
	case "SAMETERM":
		return boolLiteral(graph.Equal(args[0], args[1])), nil
	case "ISIRI", "ISURI":
		_, ok := args[0].(rdf.IRI)
		return boolLiteral(ok), nil
	case "ISBLANK":
		_, ok := args[0].(rdf.BlankNode)
		return boolLiteral(ok), nil
	case "ISLITERAL":
		_, ok := args[0].(rdf.Literal)
		return boolLiteral(ok), nil
	case "ISNUMERIC":
		_, ok := numericValue(args[0])
		return boolLiteral(ok), nil
	case "ISTRIPLE":
		_, ok := args[0].(rdf.TripleTerm)
		return boolLiteral(ok), nil
	case "TRIPLE":
		p, ok := args[1].(rdf.IRI)
		if !ok {
			return nil, errType
		}
		return rdf.TripleTerm{S: args[0], P: p, O: args[2]}, nil
	case "SUBJECT", "PREDICATE", "OBJECT":
		tt, ok := args[0].(rdf.TripleTerm)
		if !ok {
			return nil, errType
		}
		switch x.Name {
		case "SUBJECT":
			return tt.S, nil
		case "PREDICATE":
			return tt.P, nil
		}
		return tt.O, nil
	case "REGEX":
		lit, ok := stringLike(args[0])
		pattern, ok2 := stringArg(args[1])
		if !ok || !ok2 {
			return nil, errType
		}
		flags := ""
		if len(args) == 3 {
			if flags, ok = stringArg(args[2]); !ok {
				return nil, errType
			}
		}
		re, err := ev.eng.regexp(pattern, flags)
		if err != nil {
			return nil, errType
		}
		return boolLiteral(re.MatchString(lit.Lexical)), nil
	case "LANGDIR":
		return graph.Literal(""), nil
	}
	return nil, errType
}

// strValue is STR(): the lexical form of a literal or the text of an IRI.
func strValue(t rdf.Term) (string, bool) {
	switch v := t.(type) {
	case rdf.IRI:
		return v.Value, true
	case rdf.Literal:
		return v.Lexical, true
	}
	return "", false
}

// stringArg accepts simple literals and xsd:string.
func stringArg(t rdf.Term) (string, bool) {
	if !isStringLiteral(t) {
		return "", false
	}
	return t.(rdf.Literal).Lexical, true
}

// stringLike accepts string literals with or without a language tag.
func stringLike(t rdf.Term) (rdf.Literal, bool) {
	lit, ok := t.(rdf.Literal)
	if !ok || !(isStringLiteral(lit) || lit.Lang != "") {
		return rdf.Literal{}, false
	}
	return lit, true
}

func compatibleArgs(a, b rdf.Term) (rdf.Literal, rdf.Literal, bool) {
	x, ok1 := stringLike(a)
	y, ok2 := stringLike(b)
	if !ok1 || !ok2 {
		return x, y, false
	}
	return x, y, y.Lang == "" || x.Lang == y.Lang
}

func withLang(s string, like rdf.Literal) rdf.Literal {
	if like.Lang != "" {
		return graph.LangLiteral(s, like.Lang)
	}
	return graph.Literal(s)
}

func langMatches(tag, rng string) bool {
	if rng == "*" {
		return tag != ""
	}
	tag, rng = strings.ToLower(tag), strings.ToLower(rng)
	return tag == rng || strings.HasPrefix(tag, rng+"-")
}

func roundNumber(fn string, n number) number {
	if n.kind >= numFloat {
		f := n.f
		switch fn {
		case "ABS":
			f = math.Abs(f)
		case "CEIL":
			f = math.Ceil(f)
		case "FLOOR":
			f = math.Floor(f)
		default:
			f = math.Floor(f + 0.5)
		}
		return number{kind: n.kind, f: f}
	}
	r := new(big.Rat).Set(n.r)
	switch fn {
	case "ABS":
		r.Abs(r)
		return number{kind: n.kind, r: r}
	case "ROUND":
		r.Add(r, big.NewRat(1, 2))
		fallthrough
	case "FLOOR":
		q := new(big.Int).Div(r.Num(), r.Denom())
		return number{kind: n.kind, r: new(big.Rat).SetInt(q)}
	default:
		q := new(big.Int).Div(r.Num(), r.Denom())
		if !r.IsInt() {
			q.Add(q, big.NewInt(1))
		}
		return number{kind: n.kind, r: new(big.Rat).SetInt(q)}
	}
}

// convertReplacement maps XPath $1 group references to Go's ${1}.
func convertReplacement(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			i++
			if s[i] == '$' {
				sb.WriteString("$$")
			} else {
				sb.WriteByte(s[i])
			}
		case c == '$':
			j := i + 1
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			if j == i+1 {
				sb.WriteString("$$")
				continue
			}
			sb.WriteString("${" + s[i+1:j] + "}")
			i = j - 1
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func encodeForURI(s string) string {
	const hexDigits = "0123456789ABCDEF"
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || strings.IndexByte("-_.~", c) >= 0 {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(hexDigits[c>>4])
		sb.WriteByte(hexDigits[c&15])
	}
	return sb.String()
}

func digest(name, s string) string {
	var h hash.Hash
	switch name {
	case "MD5":
		h = md5.New()
	case "SHA1":
		h = sha1.New()
	case "SHA256":
		h = sha256.New()
	case "SHA384":
		h = sha512.New384()
	default:
		h = sha512.New()
	}
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}

func dateTimePart(fn string, t rdf.Term) (rdf.Term, error) {
	tm, hasTZ, ok := dateTimeValue(t)
	if !ok {
		return nil, errType
	}
	switch fn {
	case "YEAR":
		return intNumber(int64(tm.Year())).literal(), nil
	case "MONTH":
		return intNumber(int64(tm.Month())).literal(), nil
	case "DAY":
		return intNumber(int64(tm.Day())).literal(), nil
	case "HOURS":
		return intNumber(int64(tm.Hour())).literal(), nil
	case "MINUTES":
		return intNumber(int64(tm.Minute())).literal(), nil
	case "SECONDS":
		r := new(big.Rat).SetFrac64(int64(tm.Second())*1e9+int64(tm.Nanosecond()), 1e9)
		return number{kind: numDecimal, r: r}.literal(), nil
	}
	_, offset := tm.Zone()
	if fn == "TZ" {
		switch {
		case !hasTZ:
			return graph.Literal(""), nil
		case offset == 0:
			return graph.Literal("Z"), nil
		}
		return graph.Literal(tm.Format("-07:00")), nil
	}
	if !hasTZ {
		return nil, errType
	}
	return graph.TypedLiteral(dayTimeDuration(offset), graph.XSDNS+"dayTimeDuration"), nil
}

func dayTimeDuration(seconds int) string {
	if seconds == 0 {
		return "PT0S"
	}
	sign := ""
	if seconds < 0 {
		sign, seconds = "-", -seconds
	}
	s := sign + "PT"
	if h := seconds / 3600; h > 0 {
		s += strconv.Itoa(h) + "H"
	}
	if m := seconds % 3600 / 60; m > 0 {
		s += strconv.Itoa(m) + "M"
	}
	return s
}

// cast applies an XSD constructor function.
func cast(dt string, v rdf.Term) (rdf.Term, error) {
	if _, ok := v.(rdf.BlankNode); ok {
		return nil, errType
	}
	if iri, ok := v.(rdf.IRI); ok {
		if dt == graph.XSDString {
			return graph.Literal(iri.Value), nil
		}
		return nil, errType
	}
	lit, ok := v.(rdf.Literal)
	if !ok {
		return nil, errType
	}
	lex := strings.TrimSpace(lit.Lexical)
	n, isNum := numericValue(lit)
	b, isBool := boolValue(lit)
	switch dt {
	case graph.XSDString:
		return graph.Literal(lit.Lexical), nil
	case graph.XSDBoolean:
		switch {
		case isBool:
			return boolLiteral(b), nil
		case isNum:
			return boolLiteral(n.float() != 0 && !math.IsNaN(n.float())), nil
		case isStringLiteral(lit) && (lex == "true" || lex == "1"):
			return boolLiteral(true), nil
		case isStringLiteral(lit) && (lex == "false" || lex == "0"):
			return boolLiteral(false), nil
		}
	case graph.XSDInteger, graph.XSDNS + "int", graph.XSDNS + "long":
		switch {
		case isNum:
			if n.kind >= numFloat {
				if math.IsNaN(n.f) || math.IsInf(n.f, 0) {
					return nil, errType
				}
				n = number{kind: numDecimal, r: n.rat()}
			}
			q := new(big.Int).Quo(n.r.Num(), n.r.Denom())
			return graph.TypedLiteral(q.String(), dt), nil
		case isBool:
			if b {
				return graph.TypedLiteral("1", dt), nil
			}
			return graph.TypedLiteral("0", dt), nil
		case isStringLiteral(lit):
			if _, ok := new(big.Int).SetString(strings.TrimPrefix(lex, "+"), 10); ok {
				return graph.TypedLiteral(lex, dt), nil
			}
		}
	case graph.XSDDecimal:
		switch {
		case isNum:
			if n.kind >= numFloat && (math.IsNaN(n.f) || math.IsInf(n.f, 0)) {
				return nil, errType
			}
			return number{kind: numDecimal, r: n.rat()}.literal(), nil
		case isBool:
			if b {
				return graph.TypedLiteral("1.0", dt), nil
			}
			return graph.TypedLiteral("0.0", dt), nil
		case isStringLiteral(lit):
			if c, ok := numericValue(graph.TypedLiteral(lex, graph.XSDDecimal)); ok {
				return c.literal(), nil
			}
		}
	case graph.XSDDouble, graph.XSDFloat:
		kind := numDouble
		if dt == graph.XSDFloat {
			kind = numFloat
		}
		switch {
		case isNum:
			return number{kind: kind, f: n.float()}.literal(), nil
		case isBool:
			f := 0.0
			if b {
				f = 1
			}
			return number{kind: kind, f: f}.literal(), nil
		case isStringLiteral(lit):
			if f, ok := parseDouble(lex); ok {
				return number{kind: kind, f: f}.literal(), nil
			}
		}
	case graph.XSDDateTime:
		if _, _, ok := dateTimeValue(graph.TypedLiteral(lex, graph.XSDDateTime)); ok && (isStringLiteral(lit) || lit.Datatype.Value == graph.XSDDateTime) {
			return graph.TypedLiteral(lex, graph.XSDDateTime), nil
		}
	}
	return nil, errType
}
