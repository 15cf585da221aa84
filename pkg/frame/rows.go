package frame

import (
	"fmt"

	"github.com/quasar-data/quasar/pkg/dtype"
	qerrors "github.com/quasar-data/quasar/pkg/errors"
	"github.com/quasar-data/quasar/pkg/series"
)

// FromRows builds a frame from row-oriented data. This is the fallback
// construction path; columnar ingestion is always cheaper.
//
// Column types are inferred from the first non-nil value in each
// column. When names is nil, columns are named column_0..column_n
// following the header-less CSV convention.
func FromRows(rows [][]interface{}, names []string) (*DataFrame, error) {
	if len(rows) == 0 {
		return nil, qerrors.New(qerrors.ErrorTypeEmptyInput, "from_rows over zero rows")
	}

	width := len(rows[0])
	if names == nil {
		names = make([]string, width)
		for i := range names {
			names[i] = fmt.Sprintf("column_%d", i)
		}
	}
	if len(names) != width {
		return nil, qerrors.Newf(qerrors.ErrorTypeSchemaMismatch,
			"%d column names for rows of width %d", len(names), width)
	}

	// Transpose into per-column value slices.
	colValues := make([][]interface{}, width)
	for i := range colValues {
		colValues[i] = make([]interface{}, 0, len(rows))
	}
	for r, row := range rows {
		if len(row) != width {
			return nil, qerrors.Newf(qerrors.ErrorTypeSchemaMismatch,
				"row %d has width %d, expected %d", r, len(row), width)
		}
		for c, v := range row {
			colValues[c] = append(colValues[c], v)
		}
	}

	cols := make([]*series.Series, width)
	for c := range cols {
		t := inferColumnType(colValues[c])
		col, err := series.NewFromValues(names[c], t, colValues[c])
		if err != nil {
			return nil, err
		}
		cols[c] = col
	}
	return New(cols...)
}

// inferColumnType picks the type of the first non-nil value, falling
// back to Utf8 for an all-null column.
func inferColumnType(values []interface{}) dtype.Type {
	for _, v := range values {
		if v != nil {
			return dtype.Infer(v)
		}
	}
	return dtype.Utf8
}

// Rows returns all rows as boxed values. Intended for tests and small
// result sets; column access is the fast path.
func (df *DataFrame) Rows() [][]interface{} {
	rows := make([][]interface{}, df.height)
	for i := range rows {
		rows[i] = df.Row(i)
	}
	return rows
}
