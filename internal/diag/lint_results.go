package diag

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"fortio.org/safecast"
	"github.com/tidwall/jsonc"

	"rewind/internal/artifact"
)

// Lint result files come from an external linter. Two layouts are accepted:
//
//	[{"file": "...", "error": {"line": 1, "character": 2, "reason": "...", "code": "W033"}}]
//	[{"filePath": "...", "messages": [{"line": 1, "column": 2, "message": "...", "ruleId": "semi"}]}]
//
// Comments and trailing commas are allowed.
type lintEntry struct {
	File     string        `json:"file"`
	Error    *lintFinding  `json:"error"`
	FilePath string        `json:"filePath"`
	Messages []lintFinding `json:"messages"`
}

type lintFinding struct {
	Line      json.Number `json:"line"`
	Character json.Number `json:"character"`
	Column    json.Number `json:"column"`
	Reason    string      `json:"reason"`
	Message   string      `json:"message"`
	Code      string      `json:"code"`
	RuleID    string      `json:"ruleId"`
}

// LoadLintResults reads a lint result file and groups findings by the
// cleaned absolute path of the file they belong to. Relative paths are
// resolved against dir.
func LoadLintResults(path, dir string) (map[string]*artifact.LintReport, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the manifest or CLI
	if err != nil {
		return nil, fmt.Errorf("read lint results: %w", err)
	}
	return ParseLintResults(data, dir)
}

// ParseLintResults is LoadLintResults on already-read bytes.
func ParseLintResults(data []byte, dir string) (map[string]*artifact.LintReport, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()
	var entries []lintEntry
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("parse lint results: %w", err)
	}

	reports := make(map[string]*artifact.LintReport)
	add := func(file string, f lintFinding) error {
		if file == "" {
			return fmt.Errorf("lint result without a file name")
		}
		if !filepath.IsAbs(file) {
			file = filepath.Join(dir, file)
		}
		file = filepath.Clean(file)
		res, err := f.result(file)
		if err != nil {
			return err
		}
		rep, ok := reports[file]
		if !ok {
			rep = &artifact.LintReport{}
			reports[file] = rep
		}
		rep.Results = append(rep.Results, res)
		return nil
	}

	for _, e := range entries {
		switch {
		case e.Error != nil:
			if err := add(e.File, *e.Error); err != nil {
				return nil, err
			}
		case e.FilePath != "":
			for _, m := range e.Messages {
				if err := add(e.FilePath, m); err != nil {
					return nil, err
				}
			}
		}
	}
	return reports, nil
}

func (f lintFinding) result(file string) (artifact.LintResult, error) {
	line, err := toUint32(f.Line)
	if err != nil {
		return artifact.LintResult{}, fmt.Errorf("%s: line: %w", file, err)
	}
	colNum := f.Character
	if colNum == "" {
		colNum = f.Column
	}
	col, err := toUint32(colNum)
	if err != nil {
		return artifact.LintResult{}, fmt.Errorf("%s: column: %w", file, err)
	}
	reason := f.Reason
	if reason == "" {
		reason = f.Message
	}
	code := f.Code
	if code == "" {
		code = f.RuleID
	}
	return artifact.LintResult{File: file, Line: line, Column: col, Reason: reason, Code: code}, nil
}

func toUint32(n json.Number) (uint32, error) {
	if n == "" {
		return 0, nil
	}
	v, err := n.Int64()
	if err != nil {
		return 0, err
	}
	return safecast.Conv[uint32](v)
}
