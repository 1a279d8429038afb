// Package gemini adapts Google's Gemini API to the generation.Backend
// interface.
//
// The adapter builds a genai client for the credential carried by each
// request, sends the prompt as a single user turn, and concatenates the
// text parts of the first candidate. Provider failures are normalised into
// generation kinds: HTTP 401/403 and invalid API keys become
// authentication errors, 429 becomes a rate-limit error, safety blocks and
// empty candidates become empty-output errors, and anything else is a
// transport or timeout error.
package gemini
