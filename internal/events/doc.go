// Package events carries job lifecycle notifications from the orchestrator
// to observers such as metrics, without the orchestrator knowing who
// listens.
//
// The primary components are:
// - JobEvent: one lifecycle notification for a generation job
// - EventHandler: interface for components that consume events
// - EventEmitter: interface for components that publish events
package events
