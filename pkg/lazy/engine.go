package lazy

import (
	"sync"

	"github.com/quasar-data/quasar/pkg/config"
	"github.com/quasar-data/quasar/pkg/frame"
	"github.com/quasar-data/quasar/pkg/qio"
)

// Engine executes lazy plans. It owns the worker budget and the scan
// cache; LazyFrames built from the same engine share both. Engines are
// safe for concurrent use.
type Engine struct {
	cfg   *config.EngineConfig
	cache *scanCache
}

// NewEngine creates an engine from cfg. A nil cfg uses the defaults.
func NewEngine(cfg *config.EngineConfig) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	e := &Engine{cfg: cfg}
	if cfg.Cache.Enabled {
		e.cache = newScanCache(cfg.Cache.MaxEntries)
	}
	return e
}

var (
	defaultEngineOnce sync.Once
	defaultEngine     *Engine
)

// DefaultEngine returns the shared engine used by the package-level
// scan constructors.
func DefaultEngine() *Engine {
	defaultEngineOnce.Do(func() {
		defaultEngine = NewEngine(nil)
	})
	return defaultEngine
}

// InvalidateScan drops every cached scan of the given path. Call it
// after the file changes on disk.
func (e *Engine) InvalidateScan(path string) {
	if e.cache != nil {
		e.cache.InvalidatePrefix(path + "|")
	}
}

// ClearScanCache drops all cached scan results.
func (e *Engine) ClearScanCache() {
	if e.cache != nil {
		e.cache.Clear()
	}
}

// CachedScans returns the number of scan results currently cached.
func (e *Engine) CachedScans() int {
	if e.cache == nil {
		return 0
	}
	return e.cache.Len()
}

// ScanCSV defers reading a CSV file. NRows and Columns from opts carry
// into the plan and combine with pushdown at collect time.
func (e *Engine) ScanCSV(path string, opts qio.CSVOptions) *LazyFrame {
	n := opts.NRows
	opts.NRows = 0
	return newLazy(e, &scanNode{
		src:    qio.PathOf(path),
		format: formatCSV,
		csv:    opts,
		nRows:  n,
	})
}

// ScanParquet defers reading a Parquet file.
func (e *Engine) ScanParquet(path string, opts qio.ParquetOptions) *LazyFrame {
	n := opts.NRows
	opts.NRows = 0
	return newLazy(e, &scanNode{
		src:    qio.PathOf(path),
		format: formatParquet,
		pq:     opts,
		nRows:  n,
	})
}

// ScanIPC defers reading an Arrow IPC file.
func (e *Engine) ScanIPC(path string) *LazyFrame {
	return newLazy(e, &scanNode{
		src:    qio.PathOf(path),
		format: formatIPC,
	})
}

// FromFrame lifts an eager frame into a lazy plan.
func (e *Engine) FromFrame(df *frame.DataFrame) *LazyFrame {
	return newLazy(e, &frameNode{df: df})
}

// Package-level constructors on the default engine.

// ScanCSV defers reading a CSV file on the default engine.
func ScanCSV(path string, opts qio.CSVOptions) *LazyFrame {
	return DefaultEngine().ScanCSV(path, opts)
}

// ScanParquet defers reading a Parquet file on the default engine.
func ScanParquet(path string, opts qio.ParquetOptions) *LazyFrame {
	return DefaultEngine().ScanParquet(path, opts)
}

// ScanIPC defers reading an Arrow IPC file on the default engine.
func ScanIPC(path string) *LazyFrame {
	return DefaultEngine().ScanIPC(path)
}

// FromFrame lifts an eager frame into a lazy plan on the default engine.
func FromFrame(df *frame.DataFrame) *LazyFrame {
	return DefaultEngine().FromFrame(df)
}
