package expr

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/quasar-data/quasar/pkg/dtype"
	qerrors "github.com/quasar-data/quasar/pkg/errors"
	"github.com/quasar-data/quasar/pkg/frame"
	"github.com/quasar-data/quasar/pkg/series"
)

func (e *binaryExpr) Eval(df *frame.DataFrame) (*series.Series, error) {
	left, err := e.left.Eval(df)
	if err != nil {
		return nil, err
	}
	right, err := e.right.Eval(df)
	if err != nil {
		return nil, err
	}
	if left.Len() != right.Len() {
		return nil, qerrors.Newf(qerrors.ErrorTypeSchemaMismatch,
			"operands of %s have lengths %d and %d", e.op, left.Len(), right.Len())
	}

	outType, err := e.outputType(left.DType(), right.DType())
	if err != nil {
		return nil, err
	}

	values := make([]interface{}, left.Len())
	for i := range values {
		lv, rv := left.Get(i), right.Get(i)
		if lv == nil || rv == nil {
			continue // null propagates
		}
		v, err := applyOp(e.op, lv, rv)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return series.NewFromValues(e.OutputName(), outType, values)
}

func (e *binaryExpr) outputType(l, r dtype.Type) (dtype.Type, error) {
	switch e.op {
	case OpEq, OpNeq, OpLt, OpLtEq, OpGt, OpGtEq:
		if l != r && !(l.IsNumeric() && r.IsNumeric()) {
			return 0, qerrors.Newf(qerrors.ErrorTypeSchemaMismatch,
				"cannot compare %s with %s", l, r)
		}
		return dtype.Bool, nil
	case OpAnd, OpOr:
		if l != dtype.Bool || r != dtype.Bool {
			return 0, qerrors.Newf(qerrors.ErrorTypeSchemaMismatch,
				"boolean operator over %s and %s", l, r)
		}
		return dtype.Bool, nil
	case OpAdd, OpSub, OpMul, OpDiv:
		if !l.IsNumeric() || !r.IsNumeric() {
			return 0, qerrors.Newf(qerrors.ErrorTypeSchemaMismatch,
				"arithmetic over %s and %s", l, r)
		}
		if l == dtype.Int64 && r == dtype.Int64 && e.op != OpDiv {
			return dtype.Int64, nil
		}
		return dtype.Float64, nil
	default:
		return 0, qerrors.Newf(qerrors.ErrorTypeInternal, "unknown operator %d", int(e.op))
	}
}

func applyOp(op Op, l, r interface{}) (interface{}, error) {
	switch op {
	case OpAnd:
		return l.(bool) && r.(bool), nil
	case OpOr:
		return l.(bool) || r.(bool), nil
	}

	// string and bool comparisons
	if ls, ok := l.(string); ok {
		rs, _ := r.(string)
		return compareOrdered(op, ls, rs)
	}
	if lb, ok := l.(bool); ok {
		rb, _ := r.(bool)
		switch op {
		case OpEq:
			return lb == rb, nil
		case OpNeq:
			return lb != rb, nil
		}
		return nil, qerrors.Newf(qerrors.ErrorTypeSchemaMismatch, "operator %s over bool", op)
	}

	// temporal values compare by their underlying ordinal
	if ld, ok := l.(arrow.Date32); ok {
		rd, _ := r.(arrow.Date32)
		return compareOrdered(op, int64(ld), int64(rd))
	}
	if lt, ok := l.(arrow.Timestamp); ok {
		rt, _ := r.(arrow.Timestamp)
		return compareOrdered(op, int64(lt), int64(rt))
	}

	// numeric: promote mixed int/float to float
	li, lInt := l.(int64)
	ri, rInt := r.(int64)
	if lInt && rInt {
		switch op {
		case OpAdd:
			return li + ri, nil
		case OpSub:
			return li - ri, nil
		case OpMul:
			return li * ri, nil
		case OpDiv:
			if ri == 0 {
				return nil, nil // null on division by zero
			}
			return float64(li) / float64(ri), nil
		default:
			return compareOrdered(op, li, ri)
		}
	}

	lf, err := toFloat(l)
	if err != nil {
		return nil, err
	}
	rf, err := toFloat(r)
	if err != nil {
		return nil, err
	}
	switch op {
	case OpAdd:
		return lf + rf, nil
	case OpSub:
		return lf - rf, nil
	case OpMul:
		return lf * rf, nil
	case OpDiv:
		if rf == 0 {
			return nil, nil
		}
		return lf / rf, nil
	default:
		return compareOrdered(op, lf, rf)
	}
}

func compareOrdered[T int64 | float64 | string](op Op, l, r T) (interface{}, error) {
	switch op {
	case OpEq:
		return l == r, nil
	case OpNeq:
		return l != r, nil
	case OpLt:
		return l < r, nil
	case OpLtEq:
		return l <= r, nil
	case OpGt:
		return l > r, nil
	case OpGtEq:
		return l >= r, nil
	default:
		return nil, qerrors.Newf(qerrors.ErrorTypeSchemaMismatch, "operator %s is not a comparison", op)
	}
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, qerrors.Newf(qerrors.ErrorTypeSchemaMismatch, "non-numeric value %T", v)
	}
}
