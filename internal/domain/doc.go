// Package domain contains the core entities of the generation service: the
// immutable GenerationRequest submitted by a caller, the JobRecord persisted
// and polled while a job runs, and the titled Sections a completed job
// exposes. It is independent of any specific infrastructure or delivery
// mechanism.
package domain
