// Package query is the generic statement layer: predicate trees, ordering,
// pagination and write statements, plus their compilation to SQL for a
// Dialect. It knows nothing about entities; the entity package layers
// logical-to-physical column translation on top of it.
package query

import (
	"strings"
)

// Comparison operators accepted in a Condition.
const (
	OpEq        = "="
	OpNeq       = "!="
	OpLtGt      = "<>"
	OpGt        = ">"
	OpGte       = ">="
	OpLt        = "<"
	OpLte       = "<="
	OpLike      = "LIKE"
	OpNotLike   = "NOT LIKE"
	OpIn        = "IN"
	OpNotIn     = "NOT IN"
	OpIsNull    = "IS NULL"
	OpIsNotNull = "IS NOT NULL"
)

var knownOperators = map[string]bool{
	OpEq: true, OpNeq: true, OpLtGt: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true,
	OpLike: true, OpNotLike: true, OpIn: true, OpNotIn: true, OpIsNull: true, OpIsNotNull: true,
}

// Logical connectives between sibling conditions.
const (
	LogicAnd = "AND"
	LogicOr  = "OR"
)

type conditionKind int

const (
	kindCompare conditionKind = iota
	kindRaw
	kindGroup
)

// Condition is one node of a predicate tree.
// It is a sealed value type constructed via the helper functions below.
type Condition struct {
	kind     conditionKind
	column   string
	operator string
	value    any
	logic    string
	expr     string
	args     []any
	children Where
}

func (c Condition) Column() string   { return c.column }
func (c Condition) Operator() string { return c.operator }
func (c Condition) Value() any       { return c.value }
func (c Condition) Logic() string    { return c.logic }
func (c Condition) IsRaw() bool      { return c.kind == kindRaw }
func (c Condition) IsGroup() bool    { return c.kind == kindGroup }
func (c Condition) Children() Where  { return c.children }

// WithColumn returns a copy of c comparing against column instead.
func (c Condition) WithColumn(column string) Condition {
	c.column = column
	return c
}

// WithValue returns a copy of c comparing against value instead.
func (c Condition) WithValue(value any) Condition {
	if c.kind != kindCompare {
		return c
	}
	out := Compare(c.column, c.operator, value)
	out.logic = c.logic
	return out
}

// Where is an ordered list of sibling conditions. The first condition's
// logic is ignored; every later one joins the running predicate with its own.
type Where []Condition

// Transform returns a copy of w with fn applied to every comparison leaf,
// descending into groups. Raw conditions are passed through untouched.
func (w Where) Transform(fn func(Condition) Condition) Where {
	if w == nil {
		return nil
	}
	out := make(Where, len(w))
	for i, c := range w {
		switch c.kind {
		case kindGroup:
			c.children = c.children.Transform(fn)
		case kindCompare:
			c = fn(c)
		}
		out[i] = c
	}
	return out
}

// Compare builds a comparison with an arbitrary operator. The operator is
// upper-cased; unknown operators are rejected at compile time.
func Compare(column, operator string, value any) Condition {
	op := strings.ToUpper(strings.TrimSpace(operator))
	if op == "==" {
		op = OpEq
	}
	if value == nil {
		switch op {
		case OpEq:
			op = OpIsNull
		case OpNeq, OpLtGt:
			op = OpIsNotNull
		}
	}
	return Condition{
		kind:     kindCompare,
		column:   column,
		operator: op,
		value:    value,
		logic:    LogicAnd,
	}
}

// Eq creates a condition for checking equality.
func Eq(column string, value any) Condition { return Compare(column, OpEq, value) }

// Neq creates a condition for checking inequality.
func Neq(column string, value any) Condition { return Compare(column, OpNeq, value) }

// Gt creates a condition for checking if a value is greater than another.
func Gt(column string, value any) Condition { return Compare(column, OpGt, value) }

// Gte creates a condition for checking if a value is greater than or equal to another.
func Gte(column string, value any) Condition { return Compare(column, OpGte, value) }

// Lt creates a condition for checking if a value is less than another.
func Lt(column string, value any) Condition { return Compare(column, OpLt, value) }

// Lte creates a condition for checking if a value is less than or equal to another.
func Lte(column string, value any) Condition { return Compare(column, OpLte, value) }

// Like creates a condition for checking if a value matches a pattern.
func Like(column string, pattern string) Condition { return Compare(column, OpLike, pattern) }

// In creates a membership condition. An empty list matches nothing.
func In(column string, values ...any) Condition { return Compare(column, OpIn, values) }

// NotIn creates a non-membership condition. An empty list matches everything.
func NotIn(column string, values ...any) Condition { return Compare(column, OpNotIn, values) }

// IsNull matches rows where column is NULL.
func IsNull(column string) Condition { return Compare(column, OpIsNull, nil) }

// IsNotNull matches rows where column is not NULL.
func IsNotNull(column string) Condition { return Compare(column, OpIsNotNull, nil) }

// Raw embeds a hand-written predicate. Use ? for each bound argument; the
// dialect renumbers them when it needs positional placeholders.
func Raw(expr string, args ...any) Condition {
	return Condition{kind: kindRaw, expr: expr, args: args, logic: LogicAnd}
}

// Group wraps conditions in parentheses.
func Group(conds ...Condition) Condition {
	return Condition{kind: kindGroup, children: Where(conds), logic: LogicAnd}
}

// Or creates a condition with OR logic.
func Or(c Condition) Condition {
	c.logic = LogicOr
	return c
}

// And creates a condition with AND logic (the default).
func And(c Condition) Condition {
	c.logic = LogicAnd
	return c
}
