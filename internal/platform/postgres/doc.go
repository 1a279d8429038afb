// Package postgres provides the PostgreSQL implementation of store.JobStore
// together with connection setup and embedded goose migrations.
//
// Each job is a single row keyed by request ID. The full record is kept as
// JSONB; status and timestamps are duplicated into columns so the terminal
// guard and retention queries do not need to parse the document.
package postgres
