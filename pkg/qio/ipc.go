package qio

import (
	"bytes"
	"io"

	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	qerrors "github.com/quasar-data/quasar/pkg/errors"
	"github.com/quasar-data/quasar/pkg/frame"
	"github.com/quasar-data/quasar/pkg/metrics"
)

// ReadIPC decodes an Arrow IPC file (feather v2) into a frame. Batch
// boundaries become chunk boundaries.
func ReadIPC(src Source) (*frame.DataFrame, error) {
	r, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	// The IPC footer needs a seekable reader.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeParse, "reading ipc bytes").
			WithDetail("source", src.Label())
	}

	fr, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeParse, "opening ipc file").
			WithDetail("source", src.Label())
	}
	defer fr.Close()

	// Convert batch by batch: the reader owns each record only until
	// the next one is loaded, while the frame retains what it needs.
	batches := make([]*frame.DataFrame, 0, fr.NumRecords())
	for i := 0; i < fr.NumRecords(); i++ {
		rec, err := fr.Record(i)
		if err != nil {
			return nil, qerrors.Wrap(err, qerrors.ErrorTypeParse, "reading ipc batch").
				WithDetail("source", src.Label()).WithDetail("batch", i)
		}
		df, err := frame.FromArrowRecord(rec)
		if err != nil {
			return nil, err
		}
		batches = append(batches, df)
	}
	if len(batches) == 0 {
		return nil, qerrors.New(qerrors.ErrorTypeParse, "ipc source holds no record batches").
			WithDetail("source", src.Label())
	}

	df, err := frame.Concat(batches, false)
	if err != nil {
		return nil, err
	}
	metrics.RowsScanned.WithLabelValues("ipc").Add(float64(df.Height()))
	return df, nil
}

// WriteIPC writes the frame as an Arrow IPC file.
func WriteIPC(df *frame.DataFrame, w io.Writer) error {
	rec, err := df.ToArrowRecord()
	if err != nil {
		return err
	}
	defer rec.Release()

	fw, err := ipc.NewFileWriter(w,
		ipc.WithSchema(rec.Schema()),
		ipc.WithAllocator(memory.DefaultAllocator),
	)
	if err != nil {
		return qerrors.Wrap(err, qerrors.ErrorTypeParse, "creating ipc writer")
	}
	if err := fw.Write(rec); err != nil {
		return qerrors.Wrap(err, qerrors.ErrorTypeParse, "writing ipc batch")
	}
	return fw.Close()
}
