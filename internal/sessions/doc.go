// Package sessions persists processing sessions in SQLite and drives their
// lifecycle: creation, idempotent membership merges, object-removal cascades,
// status transitions, and deletion.
//
// The Store is the single source of truth for session records and membership;
// membership writes are all-or-nothing transactions. The Manager layers the
// staging semantics on top: member files are materialized into a per-session
// folder (copy or hardlink), disk failures are reported per file without
// aborting a batch, and mutating operations are serialized per session
// identifier both in-process and, via a folder lock file, across processes.
//
// A session left with zero light members after an object removal is a valid
// transient state; deletion is always an explicit caller decision.
package sessions
