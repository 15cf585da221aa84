package lazy

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quasar-data/quasar/pkg/config"
	qerrors "github.com/quasar-data/quasar/pkg/errors"
	"github.com/quasar-data/quasar/pkg/expr"
	"github.com/quasar-data/quasar/pkg/frame"
	"github.com/quasar-data/quasar/pkg/metrics"
	"github.com/quasar-data/quasar/pkg/qio"
	"github.com/quasar-data/quasar/pkg/series"
	"github.com/quasar-data/quasar/pkg/testutil"
)

func testFrame(t *testing.T) *frame.DataFrame {
	t.Helper()
	df, err := frame.New(
		series.NewInt64("id", []int64{1, 2, 3, 4}, nil),
		series.NewUtf8("name", []string{"a", "b", "c", "d"}, nil),
		series.NewFloat64("score", []float64{0.5, 1.5, 2.5, 3.5}, nil),
	)
	require.NoError(t, err)
	return df
}

func writeCSV(t *testing.T, rows string) string {
	t.Helper()
	return testutil.WriteFile(t, "data.csv", []byte(rows))
}

func freshEngine(cacheEnabled bool) *Engine {
	cfg := config.Default()
	cfg.Cache.Enabled = cacheEnabled
	return NewEngine(cfg)
}

func TestFilterSelectCollect(t *testing.T) {
	lf := FromFrame(testFrame(t)).
		Filter(expr.Gt(expr.Col("id"), expr.Lit(int64(2)))).
		Select(expr.Col("name"), expr.Col("score"))

	df, err := lf.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, df.Height())
	assert.Equal(t, []string{"name", "score"}, df.Schema().Names())
	name, err := df.Column("name")
	require.NoError(t, err)
	assert.Equal(t, "c", name.Get(0))
	assert.Equal(t, "d", name.Get(1))
}

func TestSelectComputesColumns(t *testing.T) {
	lf := FromFrame(testFrame(t)).Select(
		expr.Col("id"),
		expr.Alias(expr.Mul(expr.Col("score"), expr.Lit(2.0)), "doubled"),
	)

	df, err := lf.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "doubled"}, df.Schema().Names())
	doubled, err := df.Column("doubled")
	require.NoError(t, err)
	assert.Equal(t, 1.0, doubled.Get(0))
	assert.Equal(t, 7.0, doubled.Get(3))
}

func TestCollectMatchesNaive(t *testing.T) {
	path := writeCSV(t, "id,name,score\n1,a,0.5\n2,b,1.5\n3,c,2.5\n4,d,3.5\n")
	eng := freshEngine(false)

	lf := eng.ScanCSV(path, qio.DefaultCSVOptions()).
		Filter(expr.GtEq(expr.Col("score"), expr.Lit(1.0))).
		Select(expr.Col("name"), expr.Col("id"))

	naive, err := lf.CollectNaive(context.Background())
	require.NoError(t, err)
	optimized, err := lf.Collect(context.Background())
	require.NoError(t, err)

	assert.True(t, optimized.Equal(naive), "optimizer must not change results")
	assert.Equal(t, 3, optimized.Height())
}

func TestDescribeShowsPushdown(t *testing.T) {
	path := writeCSV(t, "id,name,score\n1,a,0.5\n")
	lf := freshEngine(false).ScanCSV(path, qio.DefaultCSVOptions()).
		Filter(expr.Gt(expr.Col("id"), expr.Lit(int64(0)))).
		Select(expr.Col("name"))

	desc := lf.Describe()
	assert.Contains(t, desc, "LOGICAL PLAN")
	assert.Contains(t, desc, "OPTIMIZED PLAN")
	assert.Contains(t, desc, "projection=[name, id]")
	assert.Contains(t, desc, "predicate=")
	// The logical plan keeps its FILTER; the optimized plan folds it
	// into the scan.
	assert.Equal(t, 1, strings.Count(desc, "FILTER"))
}

func TestPredicateStaysAboveRenamingSelect(t *testing.T) {
	lf := FromFrame(testFrame(t)).
		Select(expr.Alias(expr.Col("id"), "key")).
		Filter(expr.Gt(expr.Col("key"), expr.Lit(int64(2))))

	desc := lf.Describe()
	optimized := desc[strings.Index(desc, "OPTIMIZED PLAN"):]
	assert.Contains(t, optimized, "FILTER", "renamed column blocks pushdown")

	df, err := lf.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, df.Height())
}

func TestCollectMemoizes(t *testing.T) {
	lf := FromFrame(testFrame(t)).Filter(expr.Lt(expr.Col("id"), expr.Lit(int64(3))))
	assert.Equal(t, StateUnmaterialized, lf.State())

	first, err := lf.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateMaterialized, lf.State())

	second, err := lf.Collect(context.Background())
	require.NoError(t, err)
	assert.True(t, second.Equal(first), "second collect returns the memoized result")

	firstCol, err := first.Column("id")
	require.NoError(t, err)
	secondCol, err := second.Column("id")
	require.NoError(t, err)
	assert.True(t, firstCol.SharesStoreWith(secondCol), "collects share the memoized buffers")
}

func TestCollectResultBlocksInPlaceMutation(t *testing.T) {
	lf := FromFrame(testFrame(t))
	df, err := lf.Collect(context.Background())
	require.NoError(t, err)

	_, err = df.VStack(testFrame(t), true)
	require.Error(t, err, "collect results share the memoized buffers")
	assert.True(t, qerrors.IsType(err, qerrors.ErrorTypeConcurrentBorrow))
	assert.True(t, qerrors.IsRetryable(err))

	again, err := lf.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, again.Height(), "memoized result unaffected by the attempt")
}

func TestCachedScanImmuneToCallerMutation(t *testing.T) {
	path := writeCSV(t, "id\n1\n2\n")
	eng := freshEngine(true)

	df, err := eng.ScanCSV(path, qio.DefaultCSVOptions()).Collect(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, df.Height())

	extra, err := frame.New(series.NewInt64("id", []int64{3}, nil))
	require.NoError(t, err)
	_, err = df.VStack(extra, true)
	require.Error(t, err, "collect results share the cached buffers")
	assert.True(t, qerrors.IsType(err, qerrors.ErrorTypeConcurrentBorrow))

	// A fresh plan over the same path still sees the original rows.
	again, err := eng.ScanCSV(path, qio.DefaultCSVOptions()).Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, again.Height())
}

func TestFailedCollectIsTerminal(t *testing.T) {
	lf := freshEngine(false).ScanCSV(filepath.Join(t.TempDir(), "absent.csv"), qio.DefaultCSVOptions())

	_, err1 := lf.Collect(context.Background())
	require.Error(t, err1)
	assert.Equal(t, StateFailed, lf.State())

	_, err2 := lf.Collect(context.Background())
	assert.Equal(t, err1, err2, "failed plans replay the stored error")
}

func TestCollectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lf := FromFrame(testFrame(t)).Filter(expr.Gt(expr.Col("id"), expr.Lit(int64(0))))
	_, err := lf.Collect(ctx)
	require.Error(t, err)
	assert.True(t, qerrors.IsType(err, qerrors.ErrorTypeQuery))
}

func TestNonBooleanPredicateRejected(t *testing.T) {
	lf := FromFrame(testFrame(t)).Filter(expr.Add(expr.Col("id"), expr.Lit(int64(1))))
	_, err := lf.Collect(context.Background())
	require.Error(t, err)
	assert.True(t, qerrors.IsType(err, qerrors.ErrorTypeQuery))
}

func TestLazyConcat(t *testing.T) {
	eng := freshEngine(false)
	a := eng.FromFrame(testFrame(t))
	b := eng.FromFrame(testFrame(t))

	lf, err := Concat([]*LazyFrame{a, b}, true)
	require.NoError(t, err)

	df, err := lf.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, df.Height())
	id, err := df.Column("id")
	require.NoError(t, err)
	assert.Equal(t, 1, id.NumChunks(), "rechunked concat is contiguous")

	_, err = Concat(nil, false)
	require.Error(t, err)
	assert.True(t, qerrors.IsType(err, qerrors.ErrorTypeEmptyInput))
}

func TestConcatSharedSubtreeScansOnce(t *testing.T) {
	path := writeCSV(t, "id\n1\n2\n3\n")
	eng := freshEngine(false)

	scan := eng.ScanCSV(path, qio.DefaultCSVOptions())
	lf, err := Concat([]*LazyFrame{scan, scan}, false)
	require.NoError(t, err)

	before := promtest.ToFloat64(metrics.RowsScanned.WithLabelValues("csv"))
	df, err := lf.Collect(context.Background())
	require.NoError(t, err)
	after := promtest.ToFloat64(metrics.RowsScanned.WithLabelValues("csv"))

	assert.Equal(t, 6, df.Height())
	assert.Equal(t, 3.0, after-before, "shared scan node decodes once per collect")
}

func TestScanCache(t *testing.T) {
	path := writeCSV(t, "id,name\n1,a\n2,b\n")
	eng := freshEngine(true)

	_, err := eng.ScanCSV(path, qio.DefaultCSVOptions()).Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, eng.CachedScans())

	hitsBefore := promtest.ToFloat64(metrics.ScanCacheHits)
	rowsBefore := promtest.ToFloat64(metrics.RowsScanned.WithLabelValues("csv"))

	// A second plan over the same path reuses the cached scan.
	_, err = eng.ScanCSV(path, qio.DefaultCSVOptions()).Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.ScanCacheHits)-hitsBefore)
	assert.Equal(t, 0.0, promtest.ToFloat64(metrics.RowsScanned.WithLabelValues("csv"))-rowsBefore)

	eng.InvalidateScan(path)
	assert.Equal(t, 0, eng.CachedScans())

	_, err = eng.ScanCSV(path, qio.DefaultCSVOptions()).Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, eng.CachedScans())

	eng.ClearScanCache()
	assert.Equal(t, 0, eng.CachedScans())
}

func TestScanCacheKeyedByOptions(t *testing.T) {
	path := writeCSV(t, "id,name\n1,a\n2,b\n")
	eng := freshEngine(true)

	_, err := eng.ScanCSV(path, qio.DefaultCSVOptions()).Collect(context.Background())
	require.NoError(t, err)

	limited := qio.DefaultCSVOptions()
	limited.NRows = 1
	df, err := eng.ScanCSV(path, limited).Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, df.Height())
	assert.Equal(t, 2, eng.CachedScans(), "different options cache separately")
}

func TestScanCacheEviction(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.MaxEntries = 2
	eng := NewEngine(cfg)

	for _, rows := range []string{"a\n1\n", "b\n2\n", "c\n3\n"} {
		path := writeCSV(t, rows)
		_, err := eng.ScanCSV(path, qio.DefaultCSVOptions()).Collect(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 2, eng.CachedScans(), "oldest entry evicted at capacity")
}

func TestScanParquetPushdown(t *testing.T) {
	df := testFrame(t)
	path := filepath.Join(t.TempDir(), "data.parquet")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, qio.WriteParquet(df, f))
	require.NoError(t, f.Close())

	eng := freshEngine(false)
	lf := eng.ScanParquet(path, qio.DefaultParquetOptions()).
		Filter(expr.Gt(expr.Col("id"), expr.Lit(int64(1)))).
		Select(expr.Col("name"))

	out, err := lf.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, out.Schema().Names())
	assert.Equal(t, 3, out.Height())

	naive, err := lf.CollectNaive(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Equal(naive))
}

func TestScanIPC(t *testing.T) {
	df := testFrame(t)
	path := filepath.Join(t.TempDir(), "data.arrow")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, qio.WriteIPC(df, f))
	require.NoError(t, f.Close())

	out, err := freshEngine(false).ScanIPC(path).
		Select(expr.Col("id"), expr.Col("score")).
		Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "score"}, out.Schema().Names())
	assert.Equal(t, 4, out.Height())
}

func TestTransformsDoNotMutateReceiver(t *testing.T) {
	base := FromFrame(testFrame(t))
	filtered := base.Filter(expr.Gt(expr.Col("id"), expr.Lit(int64(2))))

	all, err := base.Collect(context.Background())
	require.NoError(t, err)
	some, err := filtered.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, all.Height())
	assert.Equal(t, 2, some.Height())
}
