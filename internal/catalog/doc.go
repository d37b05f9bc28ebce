// Package catalog persists ingested FITS frames and imaging sessions in
// SQLite and exposes the query surface the matching engine and staging
// manager consume.
//
// Catalog entries are written once by ingestion and treated as read-only by
// the rest of the core; the single exception is the staging-path field, which
// the staging manager updates as files are materialized into processing
// session folders. Calibration lookups are served by an index over
// (frame_type, camera, telescope, captured_at) so proximity queries stay
// cheap as the catalog grows.
//
// Schema changes are applied as embedded migrations recorded in the
// schema_migrations table.
package catalog
