// Package quasar is a chunked columnar query engine. Frames hold
// columns as sequences of immutable Arrow chunks; the lazy layer
// records scan, filter, select, and concat plans and materializes them
// with projection and predicate pushdown.
//
// The main entry points are pkg/frame for eager tables, pkg/lazy for
// deferred plans, and pkg/qio for CSV, Parquet, Arrow IPC, and JSON
// ingestion.
package quasar
