package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// compiler invocation
	CmpInfo           Code = 1000
	CmpFailed         Code = 1001
	CmpImportNotFound Code = 1002
	CmpOutputMissing  Code = 1003

	// lint
	LntInfo    Code = 2000
	LntFinding Code = 2001

	// source maps
	MapInfo       Code = 3000
	MapParseError Code = 3001

	// path tracking
	TrkInfo          Code = 4000
	TrkSessionOrder  Code = 4001
	TrkUnknownOutput Code = 4002

	IOLoadFileError Code = 5001
)

var codeDescription = map[Code]string{
	UnknownCode:       "Unknown error",
	CmpInfo:           "Compiler information",
	CmpFailed:         "Compilation failed",
	CmpImportNotFound: "Import not found",
	CmpOutputMissing:  "Compiler produced no output",
	LntInfo:           "Lint information",
	LntFinding:        "Lint finding",
	MapInfo:           "Source map information",
	MapParseError:     "Source map is not valid JSON",
	TrkInfo:           "Path tracking information",
	TrkSessionOrder:   "Tracking session has unpaired paths",
	TrkUnknownOutput:  "Output path has no recorded original",
	IOLoadFileError:   "I/O load file error",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("CMP%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("LNT%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("MAP%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("TRK%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
