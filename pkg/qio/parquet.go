package qio

import (
	"bytes"
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/quasar-data/quasar/pkg/dtype"
	qerrors "github.com/quasar-data/quasar/pkg/errors"
	"github.com/quasar-data/quasar/pkg/frame"
	"github.com/quasar-data/quasar/pkg/metrics"
	"github.com/quasar-data/quasar/pkg/series"
)

// ParquetOptions configures Parquet ingestion.
type ParquetOptions struct {
	// Columns restricts decoding to the named columns. Unlike CSV,
	// this is a true pushdown: other columns are never decoded.
	Columns []string
	// NRows stops reading after n rows when > 0.
	NRows int
	// BatchSize is the row count per decoded record batch.
	BatchSize int
}

// DefaultParquetOptions returns the ingestion defaults.
func DefaultParquetOptions() ParquetOptions {
	return ParquetOptions{BatchSize: 64 * 1024}
}

// ReadParquet decodes a Parquet source into a frame.
func ReadParquet(ctx context.Context, src Source, opts ParquetOptions) (*frame.DataFrame, error) {
	r, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	// Parquet footers need a seekable reader.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeParse, "reading parquet bytes").
			WithDetail("source", src.Label())
	}

	pf, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeParse, "opening parquet file").
			WithDetail("source", src.Label())
	}
	defer pf.Close()

	if opts.BatchSize <= 0 {
		opts.BatchSize = 64 * 1024
	}
	fr, err := pqarrow.NewFileReader(pf,
		pqarrow.ArrowReadProperties{BatchSize: int64(opts.BatchSize)},
		memory.DefaultAllocator)
	if err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeParse, "creating arrow reader").
			WithDetail("source", src.Label())
	}

	var df *frame.DataFrame
	if len(opts.Columns) > 0 {
		df, err = readParquetProjected(ctx, fr, src.Label(), opts)
	} else {
		df, err = readParquetTable(ctx, fr, src.Label())
	}
	if err != nil {
		return nil, err
	}

	if opts.NRows > 0 && df.Height() > opts.NRows {
		if df, err = df.Slice(0, opts.NRows); err != nil {
			return nil, err
		}
	}
	metrics.RowsScanned.WithLabelValues("parquet").Add(float64(df.Height()))
	return df, nil
}

// readParquetProjected decodes only the requested column indices.
func readParquetProjected(ctx context.Context, fr *pqarrow.FileReader, label string, opts ParquetOptions) (*frame.DataFrame, error) {
	schema, err := fr.Schema()
	if err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeParse, "parquet schema").
			WithDetail("source", label)
	}
	indices := make([]int, 0, len(opts.Columns))
	for _, name := range opts.Columns {
		idx := schema.FieldIndices(name)
		if len(idx) == 0 {
			return nil, qerrors.Newf(qerrors.ErrorTypeNotFound,
				"projected column %q not in parquet schema", name).
				WithDetail("source", label)
		}
		indices = append(indices, idx[0])
	}

	rr, err := fr.GetRecordReader(ctx, indices, nil)
	if err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeParse, "parquet record reader").
			WithDetail("source", label)
	}
	defer rr.Release()

	// Convert each batch while the reader still owns it; the frame
	// retains the column buffers it needs.
	var batches []*frame.DataFrame
	for rr.Next() {
		df, err := frame.FromArrowRecord(rr.Record())
		if err != nil {
			return nil, err
		}
		batches = append(batches, df)
	}
	if err := rr.Err(); err != nil && err != io.EOF {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeParse, "decoding parquet").
			WithDetail("source", label)
	}
	if len(batches) == 0 {
		return nil, qerrors.New(qerrors.ErrorTypeParse, "parquet source produced no rows").
			WithDetail("source", label)
	}
	return frame.Concat(batches, false)
}

// readParquetTable decodes all columns, preserving the file's chunking.
func readParquetTable(ctx context.Context, fr *pqarrow.FileReader, label string) (*frame.DataFrame, error) {
	tbl, err := fr.ReadTable(ctx)
	if err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeParse, "decoding parquet").
			WithDetail("source", label)
	}
	defer tbl.Release()

	cols := make([]*series.Series, tbl.NumCols())
	for i := 0; i < int(tbl.NumCols()); i++ {
		col := tbl.Column(i)
		t, err := dtype.FromArrow(col.DataType())
		if err != nil {
			return nil, qerrors.Wrap(err, qerrors.ErrorTypeParse, "column "+col.Name()).
				WithDetail("source", label)
		}
		s, err := series.FromChunks(col.Name(), t, col.Data().Chunks())
		if err != nil {
			return nil, err
		}
		cols[i] = s
	}
	return frame.New(cols...)
}

// parquetSink hides the destination's Close method from the parquet
// writer, which closes an io.Closer sink on Close. The destination
// belongs to the caller.
type parquetSink struct {
	io.Writer
}

// WriteParquet writes the frame as a snappy-compressed Parquet file.
// The destination is flushed but never closed.
func WriteParquet(df *frame.DataFrame, w io.Writer) error {
	rec, err := df.ToArrowRecord()
	if err != nil {
		return err
	}
	defer rec.Release()

	props := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Snappy),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithAllocator(memory.DefaultAllocator),
	)
	fw, err := pqarrow.NewFileWriter(rec.Schema(), parquetSink{w}, props, arrowProps)
	if err != nil {
		return qerrors.Wrap(err, qerrors.ErrorTypeParse, "creating parquet writer")
	}
	if err := fw.Write(rec); err != nil {
		return qerrors.Wrap(err, qerrors.ErrorTypeParse, "writing parquet")
	}
	return fw.Close()
}
