// Package content splits raw generated Markdown into titled sections.
package content
