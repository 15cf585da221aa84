// Package frame implements the eager DataFrame: an ordered collection
// of named chunked columns with a uniform row count. Row order is
// preserved by every operation; mutation goes through the ownership
// discipline enforced by the series package.
package frame

import (
	"fmt"
	"strings"

	"github.com/quasar-data/quasar/pkg/dtype"
	qerrors "github.com/quasar-data/quasar/pkg/errors"
	"github.com/quasar-data/quasar/pkg/series"
)

// DataFrame is an eager table of chunked columns. Column names are
// unique; every column holds exactly height elements.
type DataFrame struct {
	columns []*series.Series
	height  int
}

// New builds a DataFrame from columns, enforcing the name-uniqueness
// and uniform-height invariants.
func New(columns ...*series.Series) (*DataFrame, error) {
	seen := make(map[string]struct{}, len(columns))
	height := 0
	for i, col := range columns {
		if _, dup := seen[col.Name()]; dup {
			return nil, qerrors.Newf(qerrors.ErrorTypeSchemaMismatch,
				"duplicate column name %q", col.Name())
		}
		seen[col.Name()] = struct{}{}
		if i == 0 {
			height = col.Len()
		} else if col.Len() != height {
			return nil, qerrors.Newf(qerrors.ErrorTypeSchemaMismatch,
				"column %q has length %d, expected %d", col.Name(), col.Len(), height).
				WithDetail("column", col.Name())
		}
	}
	return &DataFrame{columns: columns, height: height}, nil
}

// Empty returns a zero-row frame with the given schema.
func Empty(schema *dtype.Schema) (*DataFrame, error) {
	cols := make([]*series.Series, schema.Len())
	for i, f := range schema.Fields {
		col, err := series.NewFromValues(f.Name, f.Type, nil)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return New(cols...)
}

// Height returns the row count.
func (df *DataFrame) Height() int { return df.height }

// Width returns the column count.
func (df *DataFrame) Width() int { return len(df.columns) }

// Schema returns the frame's schema in column order.
func (df *DataFrame) Schema() *dtype.Schema {
	fields := make([]dtype.Field, len(df.columns))
	for i, col := range df.columns {
		fields[i] = col.Field()
	}
	return dtype.NewSchema(fields...)
}

// Columns returns the backing columns in order. Callers must not
// mutate through this slice.
func (df *DataFrame) Columns() []*series.Series { return df.columns }

// Column returns the named column.
func (df *DataFrame) Column(name string) (*series.Series, error) {
	for _, col := range df.columns {
		if col.Name() == name {
			return col, nil
		}
	}
	return nil, qerrors.Newf(qerrors.ErrorTypeNotFound, "column %q not found", name).
		WithDetail("schema", df.Schema().String())
}

// SelectColumns returns a frame holding shared handles on the named
// columns, in the requested order. No data is copied.
func (df *DataFrame) SelectColumns(names ...string) (*DataFrame, error) {
	cols := make([]*series.Series, len(names))
	for i, name := range names {
		col, err := df.Column(name)
		if err != nil {
			return nil, err
		}
		cols[i] = col.Share()
	}
	return New(cols...)
}

// WithColumn returns a frame with col appended or, when a column of
// the same name exists, replaced in place. Existing columns are shared.
func (df *DataFrame) WithColumn(col *series.Series) (*DataFrame, error) {
	if df.height > 0 && col.Len() != df.height {
		return nil, qerrors.Newf(qerrors.ErrorTypeSchemaMismatch,
			"column %q has length %d, expected %d", col.Name(), col.Len(), df.height)
	}
	cols := make([]*series.Series, 0, len(df.columns)+1)
	replaced := false
	for _, existing := range df.columns {
		if existing.Name() == col.Name() {
			cols = append(cols, col)
			replaced = true
		} else {
			cols = append(cols, existing.Share())
		}
	}
	if !replaced {
		cols = append(cols, col)
	}
	return New(cols...)
}

// Drop returns a frame without the named column.
func (df *DataFrame) Drop(name string) (*DataFrame, error) {
	if _, err := df.Column(name); err != nil {
		return nil, err
	}
	cols := make([]*series.Series, 0, len(df.columns)-1)
	for _, col := range df.columns {
		if col.Name() != name {
			cols = append(cols, col.Share())
		}
	}
	return New(cols...)
}

// Head returns the first n rows.
func (df *DataFrame) Head(n int) (*DataFrame, error) {
	if n > df.height {
		n = df.height
	}
	return df.Slice(0, n)
}

// Slice returns rows [offset, offset+length) as zero-copy views.
func (df *DataFrame) Slice(offset, length int) (*DataFrame, error) {
	cols := make([]*series.Series, len(df.columns))
	for i, col := range df.columns {
		cols[i] = col.Slice(offset, length)
	}
	return New(cols...)
}

// Filter keeps the rows where mask is true.
func (df *DataFrame) Filter(mask *series.Series) (*DataFrame, error) {
	cols := make([]*series.Series, len(df.columns))
	for i, col := range df.columns {
		kept, err := col.Filter(mask)
		if err != nil {
			return nil, err
		}
		cols[i] = kept
	}
	return New(cols...)
}

// Row returns the boxed values of row i in column order.
func (df *DataFrame) Row(i int) []interface{} {
	row := make([]interface{}, len(df.columns))
	for c, col := range df.columns {
		row[c] = col.Get(i)
	}
	return row
}

// Share returns a frame of shared handles on the same column stores.
// Used when one frame is retained on both sides of an API boundary:
// an in-place mutation through either side then fails with
// ConcurrentBorrow instead of silently rewriting the other's data.
func (df *DataFrame) Share() *DataFrame {
	cols := make([]*series.Series, len(df.columns))
	for i, col := range df.columns {
		cols[i] = col.Share()
	}
	return &DataFrame{columns: cols, height: df.height}
}

// Equal reports logical equality: same schema and same values in the
// same row order. Chunking is not observable.
func (df *DataFrame) Equal(other *DataFrame) bool {
	if df.height != other.height || len(df.columns) != len(other.columns) {
		return false
	}
	for i, col := range df.columns {
		if !col.Equal(other.columns[i]) {
			return false
		}
	}
	return true
}

// Clone deep-copies every column into fresh exclusive buffers.
func (df *DataFrame) Clone() (*DataFrame, error) {
	cols := make([]*series.Series, len(df.columns))
	for i, col := range df.columns {
		c, err := col.Clone()
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return New(cols...)
}

// String renders a short debug summary.
func (df *DataFrame) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "DataFrame[%dx%d]{%s}", df.height, len(df.columns), df.Schema())
	return sb.String()
}
