// Package expr implements the expression tree evaluated by lazy
// filter and select nodes. Expressions are immutable; evaluation
// against a frame yields a new column.
package expr

import (
	"fmt"
	"strings"

	"github.com/quasar-data/quasar/pkg/dtype"
	"github.com/quasar-data/quasar/pkg/frame"
	"github.com/quasar-data/quasar/pkg/series"
)

// Expr is a deferred column computation.
type Expr interface {
	// Eval computes the expression against df, returning a column of
	// df.Height() elements.
	Eval(df *frame.DataFrame) (*series.Series, error)
	// Columns appends the input column names the expression reads.
	Columns(acc []string) []string
	// OutputName is the column name the result carries.
	OutputName() string
	fmt.Stringer
}

// Op is a binary operator.
type Op int

const (
	OpEq Op = iota
	OpNeq
	OpLt
	OpLtEq
	OpGt
	OpGtEq
	OpAnd
	OpOr
	OpAdd
	OpSub
	OpMul
	OpDiv
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLtEq:
		return "<="
	case OpGt:
		return ">"
	case OpGtEq:
		return ">="
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	default:
		return "?"
	}
}

// colExpr selects an input column by name.
type colExpr struct {
	name string
}

// Col references the named input column.
func Col(name string) Expr { return &colExpr{name: name} }

func (e *colExpr) Eval(df *frame.DataFrame) (*series.Series, error) {
	col, err := df.Column(e.name)
	if err != nil {
		return nil, err
	}
	return col.Share(), nil
}

func (e *colExpr) Columns(acc []string) []string { return append(acc, e.name) }
func (e *colExpr) OutputName() string            { return e.name }
func (e *colExpr) String() string                { return "col(" + e.name + ")" }

// litExpr is a scalar broadcast to the frame height.
type litExpr struct {
	value interface{}
}

// Lit wraps a scalar literal.
func Lit(value interface{}) Expr { return &litExpr{value: value} }

func (e *litExpr) Eval(df *frame.DataFrame) (*series.Series, error) {
	return series.Repeat("literal", e.value, df.Height())
}

func (e *litExpr) Columns(acc []string) []string { return acc }
func (e *litExpr) OutputName() string            { return "literal" }
func (e *litExpr) String() string                { return fmt.Sprintf("lit(%v)", e.value) }

// aliasExpr renames its input's output column.
type aliasExpr struct {
	inner Expr
	name  string
}

// Alias renames the expression's output column.
func Alias(inner Expr, name string) Expr { return &aliasExpr{inner: inner, name: name} }

func (e *aliasExpr) Eval(df *frame.DataFrame) (*series.Series, error) {
	out, err := e.inner.Eval(df)
	if err != nil {
		return nil, err
	}
	return out.Rename(e.name), nil
}

func (e *aliasExpr) Columns(acc []string) []string { return e.inner.Columns(acc) }
func (e *aliasExpr) OutputName() string            { return e.name }
func (e *aliasExpr) String() string {
	return e.inner.String() + ".alias(" + e.name + ")"
}

// binaryExpr applies op elementwise over two inputs.
type binaryExpr struct {
	op          Op
	left, right Expr
}

// Binary applies op elementwise to left and right.
func Binary(op Op, left, right Expr) Expr {
	return &binaryExpr{op: op, left: left, right: right}
}

// Convenience constructors for the common comparisons.

func Eq(l, r Expr) Expr   { return Binary(OpEq, l, r) }
func Neq(l, r Expr) Expr  { return Binary(OpNeq, l, r) }
func Lt(l, r Expr) Expr   { return Binary(OpLt, l, r) }
func LtEq(l, r Expr) Expr { return Binary(OpLtEq, l, r) }
func Gt(l, r Expr) Expr   { return Binary(OpGt, l, r) }
func GtEq(l, r Expr) Expr { return Binary(OpGtEq, l, r) }
func And(l, r Expr) Expr  { return Binary(OpAnd, l, r) }
func Or(l, r Expr) Expr   { return Binary(OpOr, l, r) }
func Add(l, r Expr) Expr  { return Binary(OpAdd, l, r) }
func Sub(l, r Expr) Expr  { return Binary(OpSub, l, r) }
func Mul(l, r Expr) Expr  { return Binary(OpMul, l, r) }
func Div(l, r Expr) Expr  { return Binary(OpDiv, l, r) }

func (e *binaryExpr) Columns(acc []string) []string {
	return e.right.Columns(e.left.Columns(acc))
}

func (e *binaryExpr) OutputName() string { return e.left.OutputName() }

func (e *binaryExpr) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteString(e.left.String())
	sb.WriteByte(' ')
	sb.WriteString(e.op.String())
	sb.WriteByte(' ')
	sb.WriteString(e.right.String())
	sb.WriteByte(')')
	return sb.String()
}

// RootName returns the column name when e is a bare column reference.
// Planners use it to decide whether a predicate can move past a
// projection unchanged.
func RootName(e Expr) (string, bool) {
	c, ok := e.(*colExpr)
	if !ok {
		return "", false
	}
	return c.name, true
}

// IsBool reports whether the expression yields a boolean column, which
// is what filter predicates require.
func IsBool(e Expr) bool {
	b, ok := e.(*binaryExpr)
	if !ok {
		if lit, ok := e.(*litExpr); ok {
			return dtype.Infer(lit.value) == dtype.Bool
		}
		if a, ok := e.(*aliasExpr); ok {
			return IsBool(a.inner)
		}
		return false
	}
	switch b.op {
	case OpEq, OpNeq, OpLt, OpLtEq, OpGt, OpGtEq, OpAnd, OpOr:
		return true
	default:
		return false
	}
}
