// Package config loads service settings from defaults, an optional YAML
// file and DOCGEN_* environment variables, and validates them before any
// component is built.
package config
