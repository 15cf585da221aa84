package series

import (
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/quasar-data/quasar/pkg/dtype"
	qerrors "github.com/quasar-data/quasar/pkg/errors"
)

// NewInt64 builds a single-chunk Int64 column. validity may be nil for
// all-valid data; otherwise validity[i]==false marks a null.
func NewInt64(name string, values []int64, validity []bool) *Series {
	b := array.NewInt64Builder(alloc)
	defer b.Release()
	b.AppendValues(values, validity)
	return fromBuilder(name, dtype.Int64, b)
}

// NewFloat64 builds a single-chunk Float64 column.
func NewFloat64(name string, values []float64, validity []bool) *Series {
	b := array.NewFloat64Builder(alloc)
	defer b.Release()
	b.AppendValues(values, validity)
	return fromBuilder(name, dtype.Float64, b)
}

// NewUtf8 builds a single-chunk string column.
func NewUtf8(name string, values []string, validity []bool) *Series {
	b := array.NewStringBuilder(alloc)
	defer b.Release()
	b.AppendValues(values, validity)
	return fromBuilder(name, dtype.Utf8, b)
}

// NewBool builds a single-chunk boolean column.
func NewBool(name string, values []bool, validity []bool) *Series {
	b := array.NewBooleanBuilder(alloc)
	defer b.Release()
	b.AppendValues(values, validity)
	return fromBuilder(name, dtype.Bool, b)
}

func fromBuilder(name string, t dtype.Type, b array.Builder) *Series {
	arr := b.NewArray()
	return &Series{name: name, dtype: t, store: newStore([]arrow.Array{arr})}
}

// NewFromValues builds a single-chunk column of the given type from
// boxed values. A nil value becomes a null element.
func NewFromValues(name string, t dtype.Type, values []interface{}) (*Series, error) {
	b := array.NewBuilder(alloc, t.ToArrow())
	defer b.Release()
	for _, v := range values {
		if err := appendValue(b, v); err != nil {
			return nil, qerrors.Wrap(err, qerrors.ErrorTypeSchemaMismatch, "column "+name)
		}
	}
	return fromBuilder(name, t, b), nil
}

// Repeat builds a column holding value n times.
func Repeat(name string, value interface{}, n int) (*Series, error) {
	t := dtype.Infer(value)
	b := array.NewBuilder(alloc, t.ToArrow())
	defer b.Release()
	for i := 0; i < n; i++ {
		if err := appendValue(b, value); err != nil {
			return nil, err
		}
	}
	return fromBuilder(name, t, b), nil
}

// appendValue appends one boxed value to a builder, coercing between
// the Go integer and float widths ingestion produces.
func appendValue(b array.Builder, value interface{}) error {
	if value == nil {
		b.AppendNull()
		return nil
	}

	switch bld := b.(type) {
	case *array.Int64Builder:
		switch v := value.(type) {
		case int:
			bld.Append(int64(v))
		case int32:
			bld.Append(int64(v))
		case int64:
			bld.Append(v)
		case float64:
			bld.Append(int64(v))
		default:
			return qerrors.Newf(qerrors.ErrorTypeSchemaMismatch, "expected int value, got %T", value)
		}

	case *array.Float64Builder:
		switch v := value.(type) {
		case float32:
			bld.Append(float64(v))
		case float64:
			bld.Append(v)
		case int:
			bld.Append(float64(v))
		case int64:
			bld.Append(float64(v))
		default:
			return qerrors.Newf(qerrors.ErrorTypeSchemaMismatch, "expected float value, got %T", value)
		}

	case *array.StringBuilder:
		if v, ok := value.(string); ok {
			bld.Append(v)
		} else {
			return qerrors.Newf(qerrors.ErrorTypeSchemaMismatch, "expected string value, got %T", value)
		}

	case *array.BooleanBuilder:
		if v, ok := value.(bool); ok {
			bld.Append(v)
		} else {
			return qerrors.Newf(qerrors.ErrorTypeSchemaMismatch, "expected bool value, got %T", value)
		}

	case *array.Date32Builder:
		switch v := value.(type) {
		case arrow.Date32:
			bld.Append(v)
		case int32:
			bld.Append(arrow.Date32(v))
		case time.Time:
			bld.Append(arrow.Date32FromTime(v))
		default:
			return qerrors.Newf(qerrors.ErrorTypeSchemaMismatch, "expected date value, got %T", value)
		}

	case *array.TimestampBuilder:
		switch v := value.(type) {
		case arrow.Timestamp:
			bld.Append(v)
		case int64:
			bld.Append(arrow.Timestamp(v))
		case time.Time:
			bld.Append(arrow.Timestamp(v.UnixMicro()))
		default:
			return qerrors.Newf(qerrors.ErrorTypeSchemaMismatch, "expected timestamp value, got %T", value)
		}

	default:
		return qerrors.Newf(qerrors.ErrorTypeInternal, "unsupported builder type %T", b)
	}

	return nil
}
