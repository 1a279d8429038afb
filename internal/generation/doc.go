// Package generation runs text-generation work against pluggable remote
// backends. It owns the pieces that make a single long job reliable:
//
//   - RunBounded executes one operation under a hard time budget.
//   - Retrier repeats a failing operation with exponential backoff and jitter.
//   - Chain walks an ordered list of (backend, model) pairs until one of them
//     produces usable text.
//
// Backend adapters live under internal/platform and implement the Backend
// interface. Every error that leaves this package is classified into a Kind
// so callers can decide whether to retry, advance, or give up.
package generation
