package frame

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	qerrors "github.com/quasar-data/quasar/pkg/errors"
	"github.com/quasar-data/quasar/pkg/series"
)

// VStack concatenates other's rows below df's rows.
//
// When inPlace is false a new frame is returned; both inputs keep
// their data untouched and the result reuses the source chunks without
// copying. When inPlace is true the append mutates df's chunk vectors,
// which requires every column store to be exclusively owned: if any
// store is shared with another frame, or aliased by other itself, the
// operation fails with ConcurrentBorrow before anything is mutated.
// The documented recovery is to deep-clone the shared side and retry
// once.
func (df *DataFrame) VStack(other *DataFrame, inPlace bool) (*DataFrame, error) {
	if err := df.schemaMatch(other); err != nil {
		return nil, err
	}

	if !inPlace {
		cols := make([]*series.Series, len(df.columns))
		for i, col := range df.columns {
			chunks := append(col.Chunks()[:len(col.Chunks()):len(col.Chunks())],
				other.columns[i].Chunks()...)
			stacked, err := series.FromChunks(col.Name(), col.DType(), chunks)
			if err != nil {
				return nil, err
			}
			cols[i] = stacked
		}
		return &DataFrame{columns: cols, height: df.height + other.height}, nil
	}

	// Check every column before touching any, so a borrow failure
	// leaves df fully unmodified.
	for i, col := range df.columns {
		if !col.IsExclusive() || col.SharesStoreWith(other.columns[i]) {
			return nil, qerrors.Newf(qerrors.ErrorTypeConcurrentBorrow,
				"column %q store is shared; clone the operand and retry", col.Name()).
				WithDetail("column", col.Name())
		}
	}
	for i, col := range df.columns {
		if err := col.AppendSeries(other.columns[i]); err != nil {
			return nil, err
		}
	}
	df.height += other.height
	return df, nil
}

func (df *DataFrame) schemaMatch(other *DataFrame) error {
	left, right := df.Schema(), other.Schema()
	if !left.Equal(right) {
		return qerrors.New(qerrors.ErrorTypeSchemaMismatch,
			"vstack requires identical column names and dtypes in the same order").
			WithDetail("left", left.String()).
			WithDetail("right", right.String())
	}
	return nil
}

// Rechunk merges every column into a single contiguous chunk. Columns
// are merged in parallel; each merge is an independent O(n) copy.
// Guarantees O(1) random access afterwards.
func (df *DataFrame) Rechunk() (*DataFrame, error) {
	cols := make([]*series.Series, len(df.columns))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, col := range df.columns {
		g.Go(func() error {
			merged, err := col.Rechunk()
			if err != nil {
				return err
			}
			cols[i] = merged
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &DataFrame{columns: cols, height: df.height}, nil
}

// Concat stacks the frames top to bottom, left to right. An empty
// input fails with EmptyInput. Each vstack builds fresh stores over
// the source chunks, so concat never contends for ownership, even
// when inputs share stores or repeat. The final frame is rechunked
// iff requested.
func Concat(dfs []*DataFrame, rechunk bool) (*DataFrame, error) {
	if len(dfs) == 0 {
		return nil, qerrors.New(qerrors.ErrorTypeEmptyInput, "concat over zero frames")
	}

	acc := dfs[0]
	for _, other := range dfs[1:] {
		next, err := acc.VStack(other, false)
		if err != nil {
			return nil, err
		}
		acc = next
	}

	if rechunk {
		return acc.Rechunk()
	}
	return acc, nil
}
