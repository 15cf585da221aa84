// Package lazy implements deferred query plans over frames. A
// LazyFrame records scan, filter, select, and concat operations as an
// immutable plan tree; Collect optimizes the tree (projection and
// predicate pushdown) and materializes it through an Engine that owns
// worker parallelism and a keyed scan cache.
package lazy

import (
	"fmt"
	"strings"

	"github.com/quasar-data/quasar/pkg/expr"
	"github.com/quasar-data/quasar/pkg/frame"
	"github.com/quasar-data/quasar/pkg/qio"
)

// node is one operator in a plan tree. Nodes are immutable once built;
// the optimizer rewrites by copying.
type node interface {
	children() []node
	describe() string
}

// scanFormat identifies the file format behind a scan node.
type scanFormat int

const (
	formatCSV scanFormat = iota
	formatParquet
	formatIPC
)

func (f scanFormat) String() string {
	switch f {
	case formatCSV:
		return "csv"
	case formatParquet:
		return "parquet"
	case formatIPC:
		return "ipc"
	default:
		return "unknown"
	}
}

// scanNode reads a source. projection and predicate start empty and
// are filled in by the optimizer; nRows carries the caller's row limit.
type scanNode struct {
	src    qio.Source
	format scanFormat
	csv    qio.CSVOptions
	pq     qio.ParquetOptions

	projection []string
	predicate  expr.Expr
	nRows      int
}

func (n *scanNode) children() []node { return nil }

func (n *scanNode) describe() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SCAN %s %s", n.format, n.src.Label())
	if len(n.projection) > 0 {
		fmt.Fprintf(&sb, " projection=[%s]", strings.Join(n.projection, ", "))
	}
	if n.predicate != nil {
		fmt.Fprintf(&sb, " predicate=%s", n.predicate)
	}
	if n.nRows > 0 {
		fmt.Fprintf(&sb, " n_rows=%d", n.nRows)
	}
	return sb.String()
}

// withPushdown returns a copy of the scan carrying the optimizer's
// projection and predicate.
func (n *scanNode) withPushdown(projection []string, predicate expr.Expr) *scanNode {
	c := *n
	c.projection = projection
	c.predicate = predicate
	return &c
}

// frameNode wraps an already materialized frame.
type frameNode struct {
	df *frame.DataFrame
}

func (n *frameNode) children() []node { return nil }

func (n *frameNode) describe() string {
	return fmt.Sprintf("IN-MEMORY %dx%d", n.df.Height(), n.df.Width())
}

// filterNode keeps the rows where predicate evaluates true.
type filterNode struct {
	input     node
	predicate expr.Expr
}

func (n *filterNode) children() []node { return []node{n.input} }
func (n *filterNode) describe() string { return "FILTER " + n.predicate.String() }

// selectNode projects and computes output columns.
type selectNode struct {
	input node
	exprs []expr.Expr
}

func (n *selectNode) children() []node { return []node{n.input} }

func (n *selectNode) describe() string {
	parts := make([]string, len(n.exprs))
	for i, e := range n.exprs {
		parts[i] = e.String()
	}
	return "SELECT [" + strings.Join(parts, ", ") + "]"
}

// concatNode stacks its inputs vertically.
type concatNode struct {
	inputs  []node
	rechunk bool
}

func (n *concatNode) children() []node { return n.inputs }

func (n *concatNode) describe() string {
	return fmt.Sprintf("CONCAT %d inputs rechunk=%v", len(n.inputs), n.rechunk)
}

// renderPlan writes the tree rooted at n, children indented under
// their parent.
func renderPlan(sb *strings.Builder, n node, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(n.describe())
	sb.WriteByte('\n')
	for _, c := range n.children() {
		renderPlan(sb, c, depth+1)
	}
}
