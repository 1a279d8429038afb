// Package store defines the result store contract for generation jobs and
// the implementations that do not need an external service: an in-memory
// store for tests and single-process use, and a Fallback wrapper that
// degrades to a secondary store when the primary one is unavailable.
//
// Durable implementations live under internal/platform (postgres,
// redisstore, filestore). All of them honour the same rules: last writer
// wins for processing records, a terminal record is never overwritten
// (ErrJobFinalized), and a missing record yields ErrJobNotFound.
package store
