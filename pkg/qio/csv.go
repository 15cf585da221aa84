package qio

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"go.uber.org/zap"

	"github.com/quasar-data/quasar/pkg/dtype"
	qerrors "github.com/quasar-data/quasar/pkg/errors"
	"github.com/quasar-data/quasar/pkg/frame"
	"github.com/quasar-data/quasar/pkg/logger"
	"github.com/quasar-data/quasar/pkg/metrics"
)

// CSVOptions configures CSV ingestion.
type CSVOptions struct {
	// HasHeader indicates the first row names the columns. Without a
	// header, columns are named column_0..column_n by the decoder.
	HasHeader bool
	// Delimiter is the value separator.
	Delimiter rune
	// SchemaHint overrides inferred types for the named columns.
	SchemaHint *dtype.Schema
	// Columns projects the output to this subset, applied per decoded
	// batch so dropped columns never accumulate.
	Columns []string
	// NRows stops reading after n rows when > 0.
	NRows int
	// BatchSize is the number of rows decoded per chunk.
	BatchSize int
	// Rechunk merges the decoded chunks into one contiguous chunk.
	Rechunk bool
}

// DefaultCSVOptions returns the ingestion defaults.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		HasHeader: true,
		Delimiter: ',',
		BatchSize: 8192,
		Rechunk:   true,
	}
}

// ReadCSV decodes a CSV source into a frame.
func ReadCSV(src Source, opts CSVOptions) (*frame.DataFrame, error) {
	r, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return readCSV(r, src.Label(), opts)
}

func readCSV(r io.Reader, label string, opts CSVOptions) (*frame.DataFrame, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 8192
	}

	csvOpts := []csv.Option{
		csv.WithChunk(opts.BatchSize),
		csv.WithHeader(opts.HasHeader),
		csv.WithComma(opts.Delimiter),
		csv.WithNullReader(true, "", "null", "NULL"),
	}
	if opts.SchemaHint != nil {
		hints := make(map[string]arrow.DataType, opts.SchemaHint.Len())
		for _, f := range opts.SchemaHint.Fields {
			hints[f.Name] = f.Type.ToArrow()
		}
		csvOpts = append(csvOpts, csv.WithColumnTypes(hints))
	}

	rdr := csv.NewInferringReader(r, csvOpts...)
	defer rdr.Release()

	var batches []*frame.DataFrame
	rows := 0
	for rdr.Next() {
		rec := rdr.Record()
		df, err := frame.FromArrowRecord(rec)
		if err != nil {
			return nil, qerrors.Wrap(err, qerrors.ErrorTypeParse, "csv batch").
				WithDetail("source", label)
		}
		if opts.Columns != nil {
			if df, err = df.SelectColumns(opts.Columns...); err != nil {
				return nil, err
			}
		}
		batches = append(batches, df)
		rows += df.Height()
		if opts.NRows > 0 && rows >= opts.NRows {
			break
		}
	}
	if err := rdr.Err(); err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeParse, "reading csv").
			WithDetail("source", label)
	}
	if len(batches) == 0 {
		return nil, qerrors.New(qerrors.ErrorTypeParse, "csv source produced no rows").
			WithDetail("source", label)
	}

	df, err := frame.Concat(batches, false)
	if err != nil {
		return nil, err
	}
	if opts.NRows > 0 && df.Height() > opts.NRows {
		if df, err = df.Slice(0, opts.NRows); err != nil {
			return nil, err
		}
	}

	metrics.RowsScanned.WithLabelValues("csv").Add(float64(df.Height()))
	logger.Debug("csv read",
		zap.String("source", label),
		zap.Int("rows", df.Height()),
		zap.Int("columns", df.Width()))

	if opts.Rechunk {
		return df.Rechunk()
	}
	return df, nil
}

// WriteCSV writes the frame as CSV with a header row.
func WriteCSV(df *frame.DataFrame, w io.Writer, delimiter rune) error {
	rec, err := df.ToArrowRecord()
	if err != nil {
		return err
	}
	defer rec.Release()

	cw := csv.NewWriter(w, rec.Schema(),
		csv.WithComma(delimiter),
		csv.WithHeader(true),
	)
	if err := cw.Write(rec); err != nil {
		return qerrors.Wrap(err, qerrors.ErrorTypeParse, "writing csv")
	}
	if err := cw.Flush(); err != nil {
		return qerrors.Wrap(err, qerrors.ErrorTypeParse, "flushing csv")
	}
	return cw.Error()
}
