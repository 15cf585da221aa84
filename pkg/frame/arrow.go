package frame

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/quasar-data/quasar/pkg/dtype"
	qerrors "github.com/quasar-data/quasar/pkg/errors"
	"github.com/quasar-data/quasar/pkg/series"
)

// FromArrowRecord imports an Arrow record batch as a frame. Column
// buffers are retained, not copied.
func FromArrowRecord(rec arrow.Record) (*DataFrame, error) {
	cols := make([]*series.Series, rec.NumCols())
	for i := 0; i < int(rec.NumCols()); i++ {
		field := rec.Schema().Field(i)
		t, err := dtype.FromArrow(field.Type)
		if err != nil {
			return nil, qerrors.Wrap(err, qerrors.ErrorTypeSchemaMismatch, "column "+field.Name)
		}
		col, err := series.FromChunks(field.Name, t, []arrow.Array{rec.Column(i)})
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return New(cols...)
}

// FromArrowRecords imports a sequence of record batches sharing one
// schema, preserving batch boundaries as chunks.
func FromArrowRecords(recs []arrow.Record) (*DataFrame, error) {
	if len(recs) == 0 {
		return nil, qerrors.New(qerrors.ErrorTypeEmptyInput, "no record batches")
	}
	dfs := make([]*DataFrame, len(recs))
	for i, rec := range recs {
		df, err := FromArrowRecord(rec)
		if err != nil {
			return nil, err
		}
		dfs[i] = df
	}
	return Concat(dfs, false)
}

// ToArrowRecord exports the frame as a single Arrow record batch.
// Columns are rechunked to one contiguous array each; single-chunk
// columns export without copying.
func (df *DataFrame) ToArrowRecord() (arrow.Record, error) {
	merged, err := df.Rechunk()
	if err != nil {
		return nil, err
	}
	arrs := make([]arrow.Array, len(merged.columns))
	for i, col := range merged.columns {
		arrs[i] = col.Chunks()[0]
	}
	return array.NewRecord(df.Schema().ToArrow(), arrs, int64(df.height)), nil
}
