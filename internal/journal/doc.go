// Package journal persists the odds stream to PostgreSQL.
//
// The writer drains the dispatcher's odds and market-event buffers,
// flattens each message into rows (one per outcome), and batch-inserts
// them on a size or interval trigger. The journal is an optional sink;
// the cache and recovery layers never depend on it.
package journal
