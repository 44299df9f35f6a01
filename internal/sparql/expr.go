package sparql

import (
	"github.com/geoknoesis/rdf-go/rdf"
)

// row is the input of expression evaluation. group is set for grouped queries.
type row struct {
	b      Binding
	group  []Binding
	sc     scope
	bnodes map[string]rdf.Term
}

func (ev *evaluator) eval(e Expr, r *row) (rdf.Term, error) {
	switch x := e.(type) {
	case ExprVar:
		if t, ok := r.b[x.Name]; ok {
			return t, nil
		}
		return nil, errType
	case ExprTerm:
		return x.Term, nil
	case ExprBinary:
		return ev.evalBinary(x, r)
	case ExprUnary:
		v, err := ev.eval(x.X, r)
		if err != nil {
			return nil, err
		}
		switch x.Op {
		case "!":
			b, err := ebv(v)
			if err != nil {
				return nil, err
			}
			return boolLiteral(!b), nil
		case "-":
			n, ok := numericValue(v)
			if !ok {
				return nil, errType
			}
			neg, err := arith("-", intNumber(0), n)
			if err != nil {
				return nil, err
			}
			return neg.literal(), nil
		default:
			if _, ok := numericValue(v); !ok {
				return nil, errType
			}
			return v, nil
		}
	case ExprIn:
		return ev.evalIn(x, r)
	case ExprCall:
		return ev.call(x, r)
	case ExprExists:
		sols, err := ev.evalGroup(r.sc, x.Group, []Binding{r.b})
		if err != nil {
			return nil, err
		}
		return boolLiteral((len(sols) > 0) != x.Not), nil
	case *ExprAggregate:
		return ev.aggregate(x, r)
	}
	return nil, errType
}

func (ev *evaluator) evalBinary(x ExprBinary, r *row) (rdf.Term, error) {
	switch x.Op {
	case "||", "&&":
		l, lerr := ev.truth(x.L, r)
		if x.Op == "||" && lerr == nil && l {
			return boolLiteral(true), nil
		}
		if x.Op == "&&" && lerr == nil && !l {
			return boolLiteral(false), nil
		}
		rv, rerr := ev.truth(x.R, r)
		if rerr != nil {
			return nil, rerr
		}
		if x.Op == "||" {
			if rv {
				return boolLiteral(true), nil
			}
		} else if !rv {
			return boolLiteral(false), nil
		}
		if lerr != nil {
			return nil, lerr
		}
		return boolLiteral(rv), nil
	}

	l, err := ev.eval(x.L, r)
	if err != nil {
		return nil, err
	}
	rt, err := ev.eval(x.R, r)
	if err != nil {
		return nil, err
	}
	switch x.Op {
	case "=", "!=":
		eq, err := equalValues(l, rt)
		if err != nil {
			return nil, err
		}
		return boolLiteral(eq == (x.Op == "=")), nil
	case "<", ">", "<=", ">=":
		c, err := compareValues(l, rt)
		if err != nil {
			return nil, err
		}
		var ok bool
		switch x.Op {
		case "<":
			ok = c < 0
		case ">":
			ok = c > 0
		case "<=":
			ok = c <= 0
		default:
			ok = c >= 0
		}
		return boolLiteral(ok), nil
	}
	a, okA := numericValue(l)
	b, okB := numericValue(rt)
	if !okA || !okB {
		return nil, errType
	}
	n, err := arith(x.Op, a, b)
	if err != nil {
		return nil, err
	}
	return n.literal(), nil
}

func (ev *evaluator) truth(e Expr, r *row) (bool, error) {
	v, err := ev.eval(e, r)
	if err != nil {
		return false, err
	}
	return ebv(v)
}

func (ev *evaluator) evalIn(x ExprIn, r *row) (rdf.Term, error) {
	v, err := ev.eval(x.X, r)
	if err != nil {
		return nil, err
	}
	var firstErr error
	for _, item := range x.List {
		t, err := ev.eval(item, r)
		if err == nil {
			var eq bool
			eq, err = equalValues(v, t)
			if err == nil && eq {
				return boolLiteral(!x.Not), nil
			}
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return boolLiteral(x.Not), nil
}
