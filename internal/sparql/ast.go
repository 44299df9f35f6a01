package sparql

import (
	"github.com/geoknoesis/rdf-go/rdf"
)

// Form is the kind of a query.
type Form int

const (
	FormSelect Form = iota
	FormAsk
	FormConstruct
	FormDescribe
)

func (f Form) String() string {
	switch f {
	case FormAsk:
		return "ASK"
	case FormConstruct:
		return "CONSTRUCT"
	case FormDescribe:
		return "DESCRIBE"
	default:
		return "SELECT"
	}
}

// Node is a variable or a constant term in a pattern.
type Node struct {
	Var  string
	Term rdf.Term
}

// IsVar reports whether the node is a variable.
func (n Node) IsVar() bool { return n.Var != "" }

func varNode(name string) Node { return Node{Var: name} }
func termNode(t rdf.Term) Node { return Node{Term: t} }
func (n Node) isZero() bool { return n.Var == "" && n.Term == nil }

// TriplePattern has either a simple predicate P or a property Path.
type TriplePattern struct {
	S    Node
	P    Node
	Path Path
	O    Node
}

// Query is a parsed SPARQL query.
type Query struct {
	Form       Form
	Distinct   bool
	Reduced    bool
	Star       bool
	Projection []Projection
	Template   []TriplePattern // CONSTRUCT
	Describe   []Node          // DESCRIBE; empty with Star for DESCRIBE *
	From       []rdf.Term
	FromNamed  []rdf.Term
	Where      *Group
	GroupBy    []GroupKey
	Having     []Expr
	OrderBy    []OrderKey
	Limit      int // -1 when absent
	Offset     int
	Values     *Values // trailing VALUES block
	aggregates bool
}

// Projection is one SELECT item; Expr is nil for a plain variable.
type Projection struct {
	Var  string
	Expr Expr
}

// GroupKey is one GROUP BY item, optionally bound with AS.
type GroupKey struct {
	Expr Expr
	Var  string
}

// OrderKey is one ORDER BY condition.
type OrderKey struct {
	Expr Expr
	Desc bool
}

// Pattern is an element of a group graph pattern.
type Pattern interface{ pattern() }

// Group is a group graph pattern. Filters apply to the whole group.
type Group struct {
	Elements []Pattern
	Filters  []Expr
}

// BGP is a block of triple patterns.
type BGP struct{ Triples []TriplePattern }

// Optional is OPTIONAL { ... }.
type Optional struct{ Group *Group }

// Union is { ... } UNION { ... } ...
type Union struct{ Alternatives []*Group }

// Minus is MINUS { ... }.
type Minus struct{ Group *Group }

// GraphPattern is GRAPH name { ... }.
type GraphPattern struct {
	Name  Node
	Group *Group
}

// Bind is BIND(expr AS ?var).
type Bind struct {
	Expr Expr
	Var  string
}

// Values is an inline data block; nil cells are UNDEF.
type Values struct {
	Vars []string
	Rows [][]rdf.Term
}

// SubSelect is a nested SELECT.
type SubSelect struct{ Query *Query }

// SubGroup is a nested { ... } that is neither UNION nor OPTIONAL.
type SubGroup struct{ Group *Group }

func (*BGP) pattern()          {}
func (*Optional) pattern()     {}
func (*Union) pattern()        {}
func (*Minus) pattern()        {}
func (*GraphPattern) pattern() {}
func (*Bind) pattern()         {}
func (*Values) pattern()       {}
func (*SubSelect) pattern()    {}
func (*SubGroup) pattern()     {}

// Path is a property path expression.
type Path interface{ path() }

// PathLink is a single predicate IRI.
type PathLink struct{ IRI rdf.IRI }

// PathInverse is ^path.
type PathInverse struct{ Path Path }

// PathSeq is path1 / path2 / ...
type PathSeq struct{ Parts []Path }

// PathAlt is path1 | path2 | ...
type PathAlt struct{ Parts []Path }

// PathRepeat is path?, path* or path+.
type PathRepeat struct {
	Path    Path
	Min     int // 0 or 1
	Unbound bool
}

// PathNegated is !(iri | ^iri ...).
type PathNegated struct {
	Forward []rdf.IRI
	Inverse []rdf.IRI
}

func (PathLink) path()    {}
func (PathInverse) path() {}
func (PathSeq) path()     {}
func (PathAlt) path()     {}
func (PathRepeat) path()  {}
func (PathNegated) path() {}

// Expr is a filter or projection expression.
type Expr interface{ expr() }

// ExprVar references a variable.
type ExprVar struct{ Name string }

// ExprTerm is a constant.
type ExprTerm struct{ Term rdf.Term }

// ExprBinary is a binary operator: || && = != < > <= >= + - * /
type ExprBinary struct {
	Op   string
	L, R Expr
}

// ExprUnary is ! - or +.
type ExprUnary struct {
	Op string
	X  Expr
}

// ExprIn is x IN (...) or x NOT IN (...).
type ExprIn struct {
	X    Expr
	List []Expr
	Not  bool
}

// ExprCall is a built-in call (upper-case Name) or an IRI function such as an xsd cast.
type ExprCall struct {
	Name string
	Args []Expr
}

// ExprExists is EXISTS { ... } or NOT EXISTS { ... }.
type ExprExists struct {
	Group *Group
	Not   bool
}

// ExprAggregate is an aggregate call. Arg is nil for COUNT(*).
type ExprAggregate struct {
	Name      string
	Distinct  bool
	Arg       Expr
	Separator string
}

func (ExprVar) expr()        {}
func (ExprTerm) expr()       {}
func (ExprBinary) expr()     {}
func (ExprUnary) expr()      {}
func (ExprIn) expr()         {}
func (ExprCall) expr()       {}
func (ExprExists) expr()     {}
func (*ExprAggregate) expr() {}

// Update is a parsed SPARQL update request: a sequence of operations.
type Update struct {
	Ops []UpdateOp
}

// UpdateOp is one update operation.
type UpdateOp interface{ updateOp() }

// QuadPattern is a template or data triple with an optional graph.
type QuadPattern struct {
	S, P, O Node
	G       Node // zero for the default graph
}

// InsertData is INSERT DATA { ... }.
type InsertData struct{ Quads []QuadPattern }

// DeleteData is DELETE DATA { ... }.
type DeleteData struct{ Quads []QuadPattern }

// DeleteWhere is DELETE WHERE { ... }.
type DeleteWhere struct{ Quads []QuadPattern }

// Modify is [WITH g] DELETE {...} INSERT {...} [USING ...] WHERE { ... }.
type Modify struct {
	With       rdf.Term
	Delete     []QuadPattern
	Insert     []QuadPattern
	Using      []rdf.Term
	UsingNamed []rdf.Term
	Where      *Group
}

// Load is LOAD <source> [INTO GRAPH g].
type Load struct {
	Silent bool
	Source string
	Into   rdf.Term
}

// TargetKind selects the graphs of CLEAR and DROP.
type TargetKind int

const (
	TargetGraph TargetKind = iota
	TargetDefault
	TargetNamed
	TargetAll
)

// Clear is CLEAR or DROP; both remove the triples of the target.
type Clear struct {
	Silent bool
	Drop   bool
	Kind   TargetKind
	Graph  rdf.Term
}

// Create is CREATE GRAPH g.
type Create struct {
	Silent bool
	Graph  rdf.Term
}

// TransferKind is ADD, MOVE or COPY.
type TransferKind int

const (
	TransferAdd TransferKind = iota
	TransferMove
	TransferCopy
)

// Transfer is ADD, MOVE or COPY between graphs; nil is DEFAULT.
type Transfer struct {
	Kind     TransferKind
	Silent   bool
	From, To rdf.Term
}

func (*InsertData) updateOp()  {}
func (*DeleteData) updateOp()  {}
func (*DeleteWhere) updateOp() {}
func (*Modify) updateOp()      {}
func (*Load) updateOp()        {}
func (*Clear) updateOp()       {}
func (*Create) updateOp()      {}
func (*Transfer) updateOp()    {}
