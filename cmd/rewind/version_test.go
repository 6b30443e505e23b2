package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"rewind/internal/version"
)

func TestRenderVersionJSON(t *testing.T) {
	origVersion, origCommit := version.Version, version.GitCommit
	t.Cleanup(func() { version.Version, version.GitCommit = origVersion, origCommit })
	version.Version, version.GitCommit = " ", "abc"

	var buf bytes.Buffer
	if err := renderVersionJSON(&buf); err != nil {
		t.Fatal(err)
	}
	var got versionPayload
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if got.Tool != "rewind" || got.Version != "dev" || got.GitCommit != "abc" || got.BuildDate != "" {
		t.Fatalf("payload = %+v", got)
	}
}
