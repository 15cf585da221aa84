package lazy

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	qerrors "github.com/quasar-data/quasar/pkg/errors"
	"github.com/quasar-data/quasar/pkg/expr"
	"github.com/quasar-data/quasar/pkg/frame"
	"github.com/quasar-data/quasar/pkg/logger"
	"github.com/quasar-data/quasar/pkg/metrics"
)

// State tracks a LazyFrame's materialization lifecycle.
type State int

const (
	// StateUnmaterialized is the initial state: the plan has never run.
	StateUnmaterialized State = iota
	// StateOptimizing means Collect is rewriting the plan.
	StateOptimizing
	// StateMaterializing means the plan is executing.
	StateMaterializing
	// StateMaterialized means the result is held and reused.
	StateMaterialized
	// StateFailed is terminal: the error is held and returned on every
	// later Collect.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnmaterialized:
		return "unmaterialized"
	case StateOptimizing:
		return "optimizing"
	case StateMaterializing:
		return "materializing"
	case StateMaterialized:
		return "materialized"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// LazyFrame is a deferred query: an immutable plan plus the engine
// that will run it. Transformations return new LazyFrames sharing the
// engine; the receiver is never modified. Collect materializes once
// and caches the result, so a LazyFrame is also a memo of its answer.
type LazyFrame struct {
	root node
	eng  *Engine

	mu     sync.Mutex
	state  State
	result *frame.DataFrame
	err    error
}

func newLazy(eng *Engine, root node) *LazyFrame {
	return &LazyFrame{root: root, eng: eng, state: StateUnmaterialized}
}

// State returns the current materialization state.
func (lf *LazyFrame) State() State {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	return lf.state
}

// Filter defers keeping the rows where predicate is true.
func (lf *LazyFrame) Filter(predicate expr.Expr) *LazyFrame {
	return newLazy(lf.eng, &filterNode{input: lf.root, predicate: predicate})
}

// Select defers projecting and computing the given expressions.
func (lf *LazyFrame) Select(exprs ...expr.Expr) *LazyFrame {
	return newLazy(lf.eng, &selectNode{input: lf.root, exprs: exprs})
}

// Concat defers stacking the frames vertically in order. All inputs
// must come from the same engine. When rechunk is set, each column of
// the result is merged into a single contiguous chunk.
func Concat(frames []*LazyFrame, rechunk bool) (*LazyFrame, error) {
	if len(frames) == 0 {
		return nil, qerrors.New(qerrors.ErrorTypeEmptyInput, "concat of zero lazy frames")
	}
	eng := frames[0].eng
	inputs := make([]node, len(frames))
	for i, f := range frames {
		if f.eng != eng {
			return nil, qerrors.New(qerrors.ErrorTypeQuery, "concat inputs span multiple engines")
		}
		inputs[i] = f.root
	}
	return newLazy(eng, &concatNode{inputs: inputs, rechunk: rechunk}), nil
}

// Collect optimizes and materializes the plan. The first successful
// call caches the result; later calls return it without re-running.
// Every call hands out shared handles on the memoized frame, so an
// in-place mutation of a collect result fails with ConcurrentBorrow
// instead of corrupting later collects. A failure is terminal: the
// same error comes back on every retry.
func (lf *LazyFrame) Collect(ctx context.Context) (*frame.DataFrame, error) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	switch lf.state {
	case StateMaterialized:
		return lf.result.Share(), nil
	case StateFailed:
		return nil, lf.err
	}

	timer := metrics.NewTimer()

	lf.state = StateOptimizing
	plan := optimize(lf.root)

	lf.state = StateMaterializing
	df, err := newExecutor(lf.eng).execute(ctx, plan)
	if err != nil {
		lf.state = StateFailed
		lf.err = err
		metrics.ObserveCollect("failure", timer.Stop())
		logger.Error("collect failed", zap.Error(err))
		return nil, err
	}

	lf.state = StateMaterialized
	lf.result = df
	d := timer.Stop()
	metrics.ObserveCollect("success", d)
	logger.Debug("collect finished",
		zap.Int("rows", df.Height()),
		zap.Int("columns", df.Width()),
		zap.Duration("duration", d))
	return lf.result.Share(), nil
}

// CollectNaive materializes the plan without the optimizer. It does
// not touch the LazyFrame's state or memo, so it can run before or
// after Collect; both must produce the same frame.
func (lf *LazyFrame) CollectNaive(ctx context.Context) (*frame.DataFrame, error) {
	return newExecutor(lf.eng).execute(ctx, lf.root)
}

// Describe renders the logical plan and the plan Collect would run.
func (lf *LazyFrame) Describe() string {
	var sb strings.Builder
	sb.WriteString("LOGICAL PLAN\n")
	renderPlan(&sb, lf.root, 1)
	sb.WriteString("OPTIMIZED PLAN\n")
	renderPlan(&sb, optimize(lf.root), 1)
	return sb.String()
}
