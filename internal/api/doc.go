// Package api handles incoming HTTP requests, request validation and
// response formatting for the generation service. Handlers translate HTTP
// into calls on the orchestrator and status reader and never expose raw
// internal errors to clients.
package api
