package lazy

import (
	"github.com/quasar-data/quasar/pkg/expr"
)

// optimize rewrites the plan tree without changing its result:
// projection pushdown narrows scans to the columns the plan reads, and
// predicate pushdown moves filters into the scans they guard. The
// input tree is never mutated.
func optimize(root node) node {
	return pushPredicates(pushProjection(root, nil), nil)
}

// pushProjection walks the tree carrying the set of columns the
// ancestors need. nil means every column. Scans record the set so the
// reader can skip the rest.
func pushProjection(n node, needed []string) node {
	switch t := n.(type) {
	case *selectNode:
		var childNeeded []string
		for _, e := range t.exprs {
			childNeeded = e.Columns(childNeeded)
		}
		return &selectNode{
			input: pushProjection(t.input, dedup(childNeeded)),
			exprs: t.exprs,
		}

	case *filterNode:
		if needed != nil {
			// Copy before extending: the slice may be shared with
			// sibling subtrees.
			merged := append([]string(nil), needed...)
			needed = dedup(t.predicate.Columns(merged))
		}
		return &filterNode{
			input:     pushProjection(t.input, needed),
			predicate: t.predicate,
		}

	case *concatNode:
		return &concatNode{
			inputs:  rewriteInputs(t.inputs, func(in node) node { return pushProjection(in, needed) }),
			rechunk: t.rechunk,
		}

	case *scanNode:
		if needed == nil {
			return t
		}
		return t.withPushdown(needed, t.predicate)

	default:
		// frameNode: already materialized, nothing to narrow.
		return n
	}
}

// pushPredicates walks the tree carrying the filters collected above
// the current node. Filters sink through selects that pass their
// columns through untouched, distribute over concat inputs, and land
// in scans AND-combined.
func pushPredicates(n node, preds []expr.Expr) node {
	switch t := n.(type) {
	case *filterNode:
		return pushPredicates(t.input, append(preds, t.predicate))

	case *selectNode:
		if predsPassThrough(t, preds) {
			return &selectNode{input: pushPredicates(t.input, preds), exprs: t.exprs}
		}
		// The select renames or computes a predicate column, so the
		// filters stay above it.
		sel := &selectNode{input: pushPredicates(t.input, nil), exprs: t.exprs}
		return wrapFilter(sel, preds)

	case *concatNode:
		return &concatNode{
			inputs:  rewriteInputs(t.inputs, func(in node) node { return pushPredicates(in, preds) }),
			rechunk: t.rechunk,
		}

	case *scanNode:
		if len(preds) == 0 {
			return t
		}
		return t.withPushdown(t.projection, combinePreds(t.predicate, preds))

	default:
		return wrapFilter(n, preds)
	}
}

// rewriteInputs applies fn to each input, rewriting shared nodes only
// once so a subtree referenced twice stays one node and memoizes.
func rewriteInputs(inputs []node, fn func(node) node) []node {
	rewritten := make(map[node]node, len(inputs))
	out := make([]node, len(inputs))
	for i, in := range inputs {
		r, ok := rewritten[in]
		if !ok {
			r = fn(in)
			rewritten[in] = r
		}
		out[i] = r
	}
	return out
}

// predsPassThrough reports whether every column the predicates read is
// emitted by the select as a bare, unrenamed column reference.
func predsPassThrough(sel *selectNode, preds []expr.Expr) bool {
	bare := make(map[string]struct{}, len(sel.exprs))
	for _, e := range sel.exprs {
		if name, ok := expr.RootName(e); ok {
			bare[name] = struct{}{}
		}
	}
	for _, p := range preds {
		for _, col := range p.Columns(nil) {
			if _, ok := bare[col]; !ok {
				return false
			}
		}
	}
	return true
}

// wrapFilter places the collected predicates back above n as a single
// AND-combined filter.
func wrapFilter(n node, preds []expr.Expr) node {
	if len(preds) == 0 {
		return n
	}
	return &filterNode{input: n, predicate: combinePreds(nil, preds)}
}

// combinePreds folds base and preds into one conjunction.
func combinePreds(base expr.Expr, preds []expr.Expr) expr.Expr {
	out := base
	for _, p := range preds {
		if out == nil {
			out = p
		} else {
			out = expr.And(out, p)
		}
	}
	return out
}

// dedup keeps the first occurrence of each name, preserving order.
func dedup(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := names[:0]
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
