// Package dtype defines the logical data types understood by the engine
// and their mapping to Apache Arrow physical types.
package dtype

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
)

// Type is the logical data type of a column. It is fixed for the
// lifetime of a column.
type Type int

const (
	// Int64 is a signed 64-bit integer
	Int64 Type = iota
	// Float64 is a 64-bit IEEE 754 floating point number
	Float64
	// Utf8 is a variable-length UTF-8 string
	Utf8
	// Bool is a single bit boolean
	Bool
	// Date32 is days since the Unix epoch
	Date32
	// Timestamp is microseconds since the Unix epoch
	Timestamp
)

// String returns the canonical name of the type.
func (t Type) String() string {
	switch t {
	case Int64:
		return "i64"
	case Float64:
		return "f64"
	case Utf8:
		return "str"
	case Bool:
		return "bool"
	case Date32:
		return "date"
	case Timestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// ToArrow returns the Arrow physical type backing this logical type.
func (t Type) ToArrow() arrow.DataType {
	switch t {
	case Int64:
		return arrow.PrimitiveTypes.Int64
	case Float64:
		return arrow.PrimitiveTypes.Float64
	case Utf8:
		return arrow.BinaryTypes.String
	case Bool:
		return arrow.FixedWidthTypes.Boolean
	case Date32:
		return arrow.FixedWidthTypes.Date32
	case Timestamp:
		return arrow.FixedWidthTypes.Timestamp_us
	default:
		return arrow.BinaryTypes.String
	}
}

// FromArrow maps an Arrow type onto a logical type. Arrow types with no
// logical counterpart report an error rather than being coerced.
func FromArrow(dt arrow.DataType) (Type, error) {
	switch dt.ID() {
	case arrow.INT64:
		return Int64, nil
	case arrow.FLOAT64:
		return Float64, nil
	case arrow.STRING, arrow.LARGE_STRING:
		return Utf8, nil
	case arrow.BOOL:
		return Bool, nil
	case arrow.DATE32:
		return Date32, nil
	case arrow.TIMESTAMP:
		return Timestamp, nil
	default:
		return Utf8, fmt.Errorf("unsupported arrow type %s", dt.Name())
	}
}

// Infer determines the logical type of a Go value. Unknown types fall
// back to Utf8, matching the ingestion default for untyped sources.
func Infer(value interface{}) Type {
	switch value.(type) {
	case int, int32, int64, uint, uint32, uint64:
		return Int64
	case float32, float64:
		return Float64
	case bool:
		return Bool
	case time.Time:
		return Timestamp
	default:
		return Utf8
	}
}

// IsNumeric reports whether values of the type support arithmetic.
func (t Type) IsNumeric() bool {
	return t == Int64 || t == Float64
}
