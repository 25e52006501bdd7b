package query

// Filter is a filter condition over documents in one collection.
//
// This is a sealed interface - only types in this package implement it.
// The marker method prevents external implementations and keeps the
// backend type switches exhaustive.
type Filter interface {
	filterNode()
}

// CompareOp names a scalar comparison operator.
type CompareOp string

const (
	OpEq  CompareOp = "eq"
	OpNe  CompareOp = "ne"
	OpLt  CompareOp = "lt"
	OpLte CompareOp = "lte"
	OpGt  CompareOp = "gt"
	OpGte CompareOp = "gte"
)

// Compare matches documents whose field compares against a literal.
// Field is a dotted path below the document root; Value must be a
// string, int, int64, or bool.
type Compare struct {
	Field string
	Op    CompareOp
	Value any
}

func (Compare) filterNode() {}

// And matches documents satisfying every member filter. An empty And
// matches everything.
type And struct {
	Filters []Filter
}

func (And) filterNode() {}

// Expr is one executable query: a collection plus an optional filter
// and result cap. A nil Filter matches the whole collection.
type Expr struct {
	Collection string
	Filter     Filter
	Limit      int
}
