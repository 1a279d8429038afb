// Package service contains the generation use cases: the Orchestrator,
// which accepts requests and drives each job from placeholder to a single
// terminal record, and the StatusReader, which answers polls from the
// result store without side effects.
//
// Services receive their collaborators through constructor injection and
// depend only on interfaces from internal/store, internal/task and
// internal/events, never on a concrete backing service.
package service
