package sparql

import (
	"sort"
	"strings"

	"github.com/geoknoesis/rdf-go/rdf"

	"evalgo.org/rdfendpoint/internal/graph"
)

type solutionGroup struct {
	key     Binding
	members []Binding
}

// groupSolutions partitions solutions by the GROUP BY keys. Without keys the
// whole sequence is one group, even when empty.
func groupSolutions(ev *evaluator, sc scope, q *Query, sols []Binding) []*solutionGroup {
	if len(q.GroupBy) == 0 {
		return []*solutionGroup{{key: Binding{}, members: append([]Binding{}, sols...)}}
	}
	var order []*solutionGroup
	index := map[string]*solutionGroup{}
	for _, b := range sols {
		key := Binding{}
		var sb strings.Builder
		for _, k := range q.GroupBy {
			v, err := ev.eval(k.Expr, &row{b: b, sc: sc})
			if err != nil {
				v = nil
			}
			sb.WriteString(graph.FormatTerm(v))
			sb.WriteByte(0)
			name := k.Var
			if ref, ok := k.Expr.(ExprVar); ok && name == "" {
				name = ref.Name
			}
			if name != "" && v != nil {
				key[name] = v
			}
		}
		g, ok := index[sb.String()]
		if !ok {
			g = &solutionGroup{key: key}
			index[sb.String()] = g
			order = append(order, g)
		}
		g.members = append(g.members, b)
	}
	return order
}

func (ev *evaluator) aggregate(a *ExprAggregate, r *row) (rdf.Term, error) {
	if r.group == nil {
		return nil, errType
	}
	var values []rdf.Term
	seen := map[string]bool{}
	for _, b := range r.group {
		if a.Arg == nil {
			values = append(values, nil)
			continue
		}
		v, err := ev.eval(a.Arg, &row{b: b, sc: r.sc})
		if err != nil {
			continue
		}
		if a.Distinct {
			k := graph.FormatTerm(v)
			if seen[k] {
				continue
			}
			seen[k] = true
		}
		values = append(values, v)
	}
	if a.Arg == nil && a.Distinct {
		// COUNT(DISTINCT *) counts distinct solutions
		values = values[:0]
		for _, b := range r.group {
			vars := make([]string, 0, len(b))
			for k := range b {
				vars = append(vars, k)
			}
			sort.Strings(vars)
			k := bindingKey(b, vars) + strings.Join(vars, ",")
			if !seen[k] {
				seen[k] = true
				values = append(values, nil)
			}
		}
	}

	switch a.Name {
	case "COUNT":
		return intNumber(int64(len(values))).literal(), nil
	case "SUM", "AVG":
		sum := intNumber(0)
		for _, v := range values {
			n, ok := numericValue(v)
			if !ok {
				return nil, errType
			}
			var err error
			if sum, err = arith("+", sum, n); err != nil {
				return nil, err
			}
		}
		if a.Name == "SUM" {
			return sum.literal(), nil
		}
		if len(values) == 0 {
			return intNumber(0).literal(), nil
		}
		avg, err := arith("/", sum, intNumber(int64(len(values))))
		if err != nil {
			return nil, err
		}
		return avg.literal(), nil
	case "MIN", "MAX":
		if len(values) == 0 {
			return nil, errType
		}
		best := values[0]
		for _, v := range values[1:] {
			c := orderCompare(v, best)
			if (a.Name == "MIN" && c < 0) || (a.Name == "MAX" && c > 0) {
				best = v
			}
		}
		return best, nil
	case "SAMPLE":
		if len(values) == 0 {
			return nil, errType
		}
		return values[0], nil
	case "GROUP_CONCAT":
		parts := make([]string, 0, len(values))
		for _, v := range values {
			s, ok := strValue(v)
			if !ok {
				return nil, errType
			}
			parts = append(parts, s)
		}
		return graph.Literal(strings.Join(parts, a.Separator)), nil
	}
	return nil, errType
}
