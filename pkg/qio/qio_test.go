package qio

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quasar-data/quasar/pkg/dtype"
	qerrors "github.com/quasar-data/quasar/pkg/errors"
	"github.com/quasar-data/quasar/pkg/frame"
	"github.com/quasar-data/quasar/pkg/series"
)

func testFrame(t *testing.T) *frame.DataFrame {
	t.Helper()
	df, err := frame.New(
		series.NewInt64("id", []int64{1, 2, 3}, nil),
		series.NewFloat64("score", []float64{0.5, 1.5, 2.5}, nil),
		series.NewUtf8("name", []string{"a", "b", "c"}, nil),
	)
	require.NoError(t, err)
	return df
}

func TestSourceResolution(t *testing.T) {
	assert.Equal(t, PathSource, PathOf("data.csv").Kind)
	assert.Equal(t, RemoteSource, PathOf("https://example.com/data.csv").Kind)
	assert.Equal(t, RemoteSource, PathOf("http://example.com/data.csv").Kind)
	assert.Equal(t, StreamSource, StreamOf(strings.NewReader("x")).Kind)

	_, err := PathOf("https://example.com/data.csv").Open()
	require.Error(t, err)
	assert.True(t, qerrors.IsType(err, qerrors.ErrorTypeCapability))
}

func TestReadCSVInfersTypes(t *testing.T) {
	csvData := "id,score,name\n1,0.5,a\n2,1.5,b\n3,2.5,c\n"

	df, err := ReadCSV(StreamOf(strings.NewReader(csvData)), DefaultCSVOptions())
	require.NoError(t, err)

	assert.Equal(t, 3, df.Height())
	assert.Equal(t, []string{"id", "score", "name"}, df.Schema().Names())
	idCol, err := df.Column("id")
	require.NoError(t, err)
	assert.Equal(t, dtype.Int64, idCol.DType())
	assert.Equal(t, int64(2), idCol.Get(1))
	assert.Equal(t, 1, idCol.NumChunks(), "default options rechunk")
}

func TestReadCSVOptions(t *testing.T) {
	csvData := "id,name\n1,a\n2,b\n3,c\n4,d\n"

	opts := DefaultCSVOptions()
	opts.NRows = 2
	opts.Columns = []string{"name"}
	df, err := ReadCSV(StreamOf(strings.NewReader(csvData)), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, df.Height())
	assert.Equal(t, []string{"name"}, df.Schema().Names())

	// schema hint forces a column wider than inference would pick
	hinted := DefaultCSVOptions()
	hinted.SchemaHint = dtype.NewSchema(dtype.Field{Name: "id", Type: dtype.Float64})
	df, err = ReadCSV(StreamOf(strings.NewReader(csvData)), hinted)
	require.NoError(t, err)
	idCol, err := df.Column("id")
	require.NoError(t, err)
	assert.Equal(t, dtype.Float64, idCol.DType())
}

func TestReadCSVNulls(t *testing.T) {
	csvData := "id,name\n1,a\n2,null\n"
	df, err := ReadCSV(StreamOf(strings.NewReader(csvData)), DefaultCSVOptions())
	require.NoError(t, err)
	nameCol, err := df.Column("name")
	require.NoError(t, err)
	assert.Nil(t, nameCol.Get(1))
}

func TestReadCSVParseError(t *testing.T) {
	_, err := ReadCSV(PathOf(filepath.Join(t.TempDir(), "missing.csv")), DefaultCSVOptions())
	require.Error(t, err)
	assert.True(t, qerrors.IsType(err, qerrors.ErrorTypeParse))
}

func TestReadCSVResultSupportsInPlaceAppend(t *testing.T) {
	csvData := "id,name\n1,a\n2,b\n"
	df, err := ReadCSV(StreamOf(strings.NewReader(csvData)), DefaultCSVOptions())
	require.NoError(t, err)

	extra, err := frame.New(
		series.NewInt64("id", []int64{3}, nil),
		series.NewUtf8("name", []string{"c"}, nil),
	)
	require.NoError(t, err)

	// A freshly ingested frame is exclusively owned, so destructive
	// append succeeds without a clone.
	out, err := df.VStack(extra, true)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Height())
}

func TestCSVRoundTrip(t *testing.T) {
	df := testFrame(t)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(df, &buf, ','))

	back, err := ReadCSV(StreamOf(&buf), DefaultCSVOptions())
	require.NoError(t, err)
	assert.True(t, back.Equal(df))
}

func TestIPCRoundTrip(t *testing.T) {
	df := testFrame(t)

	path := filepath.Join(t.TempDir(), "frame.arrow")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteIPC(df, f))
	require.NoError(t, f.Close())

	back, err := ReadIPC(PathOf(path))
	require.NoError(t, err)
	assert.True(t, back.Equal(df))
}

func TestParquetRoundTrip(t *testing.T) {
	df := testFrame(t)

	var buf bytes.Buffer
	require.NoError(t, WriteParquet(df, &buf))

	back, err := ReadParquet(context.Background(), StreamOf(&buf), DefaultParquetOptions())
	require.NoError(t, err)
	assert.True(t, back.Equal(df))
}

func TestWriteParquetLeavesSinkOpen(t *testing.T) {
	df := testFrame(t)

	path := filepath.Join(t.TempDir(), "frame.parquet")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteParquet(df, f))
	require.NoError(t, f.Close(), "writer must not close a sink it does not own")

	back, err := ReadParquet(context.Background(), PathOf(path), DefaultParquetOptions())
	require.NoError(t, err)
	assert.True(t, back.Equal(df))
}

func TestParquetProjectionAndLimit(t *testing.T) {
	df := testFrame(t)

	var buf bytes.Buffer
	require.NoError(t, WriteParquet(df, &buf))
	data := buf.Bytes()

	opts := DefaultParquetOptions()
	opts.Columns = []string{"name", "id"}
	projected, err := ReadParquet(context.Background(), StreamOf(bytes.NewReader(data)), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "id"}, projected.Schema().Names())
	assert.Equal(t, 3, projected.Height())

	limited := DefaultParquetOptions()
	limited.NRows = 1
	head, err := ReadParquet(context.Background(), StreamOf(bytes.NewReader(data)), limited)
	require.NoError(t, err)
	assert.Equal(t, 1, head.Height())

	missing := DefaultParquetOptions()
	missing.Columns = []string{"absent"}
	_, err = ReadParquet(context.Background(), StreamOf(bytes.NewReader(data)), missing)
	assert.True(t, qerrors.IsType(err, qerrors.ErrorTypeNotFound))
}

func TestReadJSONArray(t *testing.T) {
	jsonData := `[{"id": 1, "name": "a"}, {"id": 2, "name": "b"}, {"id": 3}]`

	df, err := ReadJSON(StreamOf(strings.NewReader(jsonData)))
	require.NoError(t, err)

	assert.Equal(t, 3, df.Height())
	assert.Equal(t, []string{"id", "name"}, df.Schema().Names())
	idCol, err := df.Column("id")
	require.NoError(t, err)
	assert.Equal(t, dtype.Int64, idCol.DType(), "integral json numbers decode as int64")
	nameCol, err := df.Column("name")
	require.NoError(t, err)
	assert.Nil(t, nameCol.Get(2), "missing key becomes null")
}

func TestReadJSONLines(t *testing.T) {
	jsonData := "{\"id\": 1.5}\n{\"id\": 2.5}\n"

	df, err := ReadJSON(StreamOf(strings.NewReader(jsonData)))
	require.NoError(t, err)
	assert.Equal(t, 2, df.Height())
	idCol, err := df.Column("id")
	require.NoError(t, err)
	assert.Equal(t, dtype.Float64, idCol.DType())
	assert.Equal(t, 2.5, idCol.Get(1))
}

func TestReadJSONRecycledMapsKeepKeysApart(t *testing.T) {
	first, err := ReadJSON(StreamOf(strings.NewReader("{\"id\": 1}\n{\"id\": 2}\n")))
	require.NoError(t, err)
	require.Equal(t, []string{"id"}, first.Schema().Names())

	// A later read reuses pooled row maps; keys from the first read
	// must not bleed into its schema.
	second, err := ReadJSON(StreamOf(strings.NewReader("{\"name\": \"x\"}\n")))
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, second.Schema().Names())
	nameCol, err := second.Column("name")
	require.NoError(t, err)
	assert.Equal(t, "x", nameCol.Get(0))
}

func TestReadJSONEmpty(t *testing.T) {
	_, err := ReadJSON(StreamOf(strings.NewReader("[]")))
	require.Error(t, err)
	assert.True(t, qerrors.IsType(err, qerrors.ErrorTypeEmptyInput))
}

func TestReadJSONMalformed(t *testing.T) {
	_, err := ReadJSON(StreamOf(strings.NewReader(`[{"id": }]`)))
	require.Error(t, err)
	assert.True(t, qerrors.IsType(err, qerrors.ErrorTypeParse))
}
