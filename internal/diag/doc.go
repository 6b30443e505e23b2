// Package diag turns compiler failures and lint findings into the single
// end-of-run report a user sees.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – Info, Warning or Error (severity.go).
//   - Code – compact numeric identifier with a stable string form (codes.go).
//   - File, Line, Col – location in the original source tree.
//   - Message – compiler or linter text with physical paths already rewritten.
//
// Diagnostic.String renders the "<file>:<line>:<col>: <message>" form that
// editors and terminals recognise.
//
// # Reporters
//
// CompileReporter and LintReporter are pipeline stages. Both rewrite paths
// through a Replacer (normally a *pathtrack.Registry), buffer text in a
// Buffer that drops exact duplicates, and write one Report when their input
// channel closes. CompileReporter swallows failure artifacts; LintReporter
// forwards everything. Both may forward structured diagnostics to a Reporter
// such as BagReporter for summaries.
//
// # Classification
//
// Classify recognises the unresolved-import shape
//
//	Specified as '<module>'.
//	Imported by ./<importer>.
//
// and rewrites it to "<importer>:0:0: Import not found: <module>". Any other
// text has process wrapper prose ("Error: Command failed:", bracketed
// "[Error: ...]" wrapping, "exit status N") stripped.
//
// # Report layout
//
// A non-empty report is a start banner, a blank line, the buffered entries
// joined by newlines, a newline and a stop banner. Banners are repeated glyphs
// sized to Report.Width terminal cells and are omitted when Width is zero.
// An empty buffer produces no output at all.
package diag
