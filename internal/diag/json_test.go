package diag

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	bag := NewBag(0)
	bag.Add(New(SevWarning, LntFinding, "/p/b.js", 3, 1, "Missing semicolon."))
	bag.Add(New(SevError, CmpFailed, "", 0, 0, "compiler crashed"))
	bag.Add(New(SevError, CmpImportNotFound, "/p/a.js", 0, 0, "Import not found: ./x"))

	var buf bytes.Buffer
	if err := WriteJSON(&buf, bag); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Count != 3 || len(out.Diagnostics) != 3 {
		t.Fatalf("count = %d", out.Count)
	}
	first := out.Diagnostics[0]
	if first.Location != nil || first.Message != "compiler crashed" || first.Severity != "error" {
		t.Fatalf("first = %+v", first)
	}
	second := out.Diagnostics[1]
	if second.Location == nil || second.Location.File != "/p/a.js" || second.Code != CmpImportNotFound.ID() {
		t.Fatalf("second = %+v", second)
	}
	third := out.Diagnostics[2]
	if third.Severity != "warning" || third.Location.Line != 3 || third.Title != LntFinding.Title() {
		t.Fatalf("third = %+v", third)
	}
}
