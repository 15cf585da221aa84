package lazy

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	qerrors "github.com/quasar-data/quasar/pkg/errors"
	"github.com/quasar-data/quasar/pkg/expr"
	"github.com/quasar-data/quasar/pkg/frame"
	"github.com/quasar-data/quasar/pkg/qio"
	"github.com/quasar-data/quasar/pkg/series"
)

// executor materializes one plan tree. Results are memoized per node,
// so a subtree referenced from several places runs once per collect
// even when inputs materialize in parallel.
type executor struct {
	eng  *Engine
	mu   sync.Mutex
	memo map[node]*memoEntry
}

type memoEntry struct {
	once sync.Once
	df   *frame.DataFrame
	err  error
}

func newExecutor(eng *Engine) *executor {
	return &executor{eng: eng, memo: make(map[node]*memoEntry)}
}

func (e *executor) execute(ctx context.Context, n node) (*frame.DataFrame, error) {
	e.mu.Lock()
	ent, ok := e.memo[n]
	if !ok {
		ent = &memoEntry{}
		e.memo[n] = ent
	}
	e.mu.Unlock()

	ent.once.Do(func() {
		ent.df, ent.err = e.run(ctx, n)
	})
	return ent.df, ent.err
}

func (e *executor) run(ctx context.Context, n node) (*frame.DataFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeQuery, "collect interrupted")
	}

	switch t := n.(type) {
	case *frameNode:
		// The plan retains the source frame, so hand out a shared
		// handle; in-place mutation by the caller cannot reach it.
		return t.df.Share(), nil

	case *scanNode:
		return e.runScan(ctx, t)

	case *filterNode:
		input, err := e.execute(ctx, t.input)
		if err != nil {
			return nil, err
		}
		return applyPredicate(input, t.predicate)

	case *selectNode:
		input, err := e.execute(ctx, t.input)
		if err != nil {
			return nil, err
		}
		cols := make([]*series.Series, len(t.exprs))
		for i, ex := range t.exprs {
			col, err := ex.Eval(input)
			if err != nil {
				return nil, err
			}
			cols[i] = col
		}
		return frame.New(cols...)

	case *concatNode:
		return e.runConcat(ctx, t)

	default:
		return nil, qerrors.Newf(qerrors.ErrorTypeInternal, "unknown plan node %T", n)
	}
}

// runConcat materializes the inputs in parallel, bounded by the
// engine's worker budget, then stacks them in input order.
func (e *executor) runConcat(ctx context.Context, n *concatNode) (*frame.DataFrame, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.eng.cfg.Execution.Workers)

	frames := make([]*frame.DataFrame, len(n.inputs))
	for i, in := range n.inputs {
		i, in := i, in
		g.Go(func() error {
			df, err := e.execute(gctx, in)
			if err != nil {
				return err
			}
			frames[i] = df
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return frame.Concat(frames, n.rechunk)
}

// runScan reads the node's source, consulting the engine cache for
// path-backed scans. The cached result already reflects the node's
// projection, predicate, and row limit.
func (e *executor) runScan(ctx context.Context, n *scanNode) (*frame.DataFrame, error) {
	key, cacheable := scanKey(n)
	if cacheable && e.eng.cache != nil {
		if df, ok := e.eng.cache.Get(key); ok {
			return df, nil
		}
	}

	df, err := e.readScan(ctx, n)
	if err != nil {
		return nil, err
	}
	if n.predicate != nil {
		if df, err = applyPredicate(df, n.predicate); err != nil {
			return nil, err
		}
	}

	if cacheable && e.eng.cache != nil {
		// The cache now holds the frame too; the caller gets a shared
		// handle so it cannot mutate the cached copy in place.
		e.eng.cache.Put(key, df)
		return df.Share(), nil
	}
	return df, nil
}

func (e *executor) readScan(ctx context.Context, n *scanNode) (*frame.DataFrame, error) {
	switch n.format {
	case formatCSV:
		opts := n.csv
		if opts.BatchSize <= 0 {
			opts.BatchSize = e.eng.cfg.Scan.BatchSize
		}
		if len(n.projection) > 0 {
			opts.Columns = n.projection
		}
		opts.NRows = n.nRows
		return qio.ReadCSV(n.src, opts)

	case formatParquet:
		opts := n.pq
		if len(n.projection) > 0 {
			opts.Columns = n.projection
		}
		opts.NRows = n.nRows
		return qio.ReadParquet(ctx, n.src, opts)

	case formatIPC:
		df, err := qio.ReadIPC(n.src)
		if err != nil {
			return nil, err
		}
		if len(n.projection) > 0 {
			if df, err = df.SelectColumns(n.projection...); err != nil {
				return nil, err
			}
		}
		if n.nRows > 0 && df.Height() > n.nRows {
			return df.Slice(0, n.nRows)
		}
		return df, nil

	default:
		return nil, qerrors.Newf(qerrors.ErrorTypeInternal, "unknown scan format %d", n.format)
	}
}

// scanKey builds the cache key for a scan. Only path-backed scans are
// cacheable; a stream can be read once.
func scanKey(n *scanNode) (string, bool) {
	if n.src.Kind != qio.PathSource {
		return "", false
	}
	pred := ""
	if n.predicate != nil {
		pred = n.predicate.String()
	}
	key := fmt.Sprintf("%s|%s|proj=%s|nrows=%d|pred=%s",
		n.src.Path, n.format, strings.Join(n.projection, ","), n.nRows, pred)
	return key, true
}

// applyPredicate evaluates a boolean predicate and keeps matching rows.
func applyPredicate(df *frame.DataFrame, predicate expr.Expr) (*frame.DataFrame, error) {
	if !expr.IsBool(predicate) {
		return nil, qerrors.Newf(qerrors.ErrorTypeQuery,
			"filter predicate must be boolean, got %s", predicate)
	}
	mask, err := predicate.Eval(df)
	if err != nil {
		return nil, err
	}
	return df.Filter(mask)
}
