// Package report renders inspection reports and sanitize results.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Markdown for sharing, with a mermaid severity chart
//
// Report data structures live in the model package; this package only
// formats them. Writers implement the Writer interface, allowing them to
// be used interchangeably and composed for multi-format output.
package report
