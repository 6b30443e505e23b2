package diag

import (
	"fmt"
	"strings"
)

// Diagnostic is one finding attributed to an original source file.
// File, Line and Col are optional; when File is empty Message is the whole text.
type Diagnostic struct {
	Severity Severity
	Code     Code
	File     string
	Line     uint32
	Col      uint32
	Message  string
}

func New(sev Severity, code Code, file string, line, col uint32, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		File:     file,
		Line:     line,
		Col:      col,
		Message:  msg,
	}
}

// String renders the diagnostic in "<file>:<line>:<col>: <message>" form.
func (d Diagnostic) String() string {
	if d.File == "" {
		return strings.TrimRight(d.Message, " \t\r\n")
	}
	return fmt.Sprintf("%s:%d:%d: %s", d.File, d.Line, d.Col, d.Message)
}

// Reporter receives structured diagnostics as reporters produce them.
type Reporter interface {
	Report(d Diagnostic)
}

// BagReporter writes into a *Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(d Diagnostic) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(d)
}
