// Package pathtrack records where files were moved to during one pipeline run
// and rewrites any later mention of a moved path back to the original.
//
// # Model
//
// A Registry owns an ordered list of Sessions. A Session is one pass of the
// pipeline that copies, compiles or renames files (for example "libraries",
// "sources" or "compile"). Each Session holds ordered pairs of
// (original path, Pattern), where the Pattern was derived from the path the
// file ended up at.
//
//	reg := pathtrack.NewRegistry()
//	s := reg.Create("libraries")
//	s.RecordBefore("/proj/lib/a.js")
//	// ... copy ...
//	_ = s.RecordAfter("/tmp/build/a.js")
//
//	out, err := reg.Replace("/tmp/build/a.js:3:1: unexpected token")
//	// out == "/proj/lib/a.js:3:1: unexpected token"
//
// # Ordering
//
// Session.Replace applies pairs from the most recently recorded back to the
// first. Registry.Replace applies sessions in creation order, each one
// rewriting the output of the previous.
//
// # Matching
//
// A Pattern matches its path as a whole token: `/` and `\` are
// interchangeable, a leading drive letter is optional on either side, and the
// match must not be glued to surrounding path characters. Text and paths are
// compared in Unicode NFC.
package pathtrack
