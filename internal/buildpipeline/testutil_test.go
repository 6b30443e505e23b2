package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// fakeCompiler mimics a compiler invoked with DefaultCompilerArgs: it writes
// <out> and a sibling <stem>.map whose sources point at the emitted script.
// Sources containing "FAIL" fail with a located message on stderr.
type fakeCompiler struct {
	calls  atomic.Int32
	noMap  bool
	silent bool

	mu   sync.Mutex
	seen []string
}

func (f *fakeCompiler) Invoke(_ context.Context, inv Invocation) (InvokeResult, error) {
	f.calls.Add(1)
	if len(inv.Args) != 4 {
		return InvokeResult{}, fmt.Errorf("unexpected args %v", inv.Args)
	}
	out, src := inv.Args[2], inv.Args[3]
	f.mu.Lock()
	f.seen = append(f.seen, src)
	f.mu.Unlock()

	content, err := os.ReadFile(src)
	if err != nil {
		return InvokeResult{}, err
	}
	if strings.Contains(string(content), "FAIL") {
		return InvokeResult{Stderr: out + ":3:1: unexpected token\n"}, errors.New("exit status 2")
	}
	if f.silent {
		return InvokeResult{}, nil
	}
	stem := strings.TrimSuffix(filepath.Base(out), ".js")
	script := "console.log(1);\n"
	if !f.noMap {
		script += "//# sourceMappingURL=" + stem + ".map\n"
	}
	if err := os.WriteFile(out, []byte(script), 0o644); err != nil {
		return InvokeResult{}, err
	}
	if f.noMap {
		return InvokeResult{}, nil
	}
	doc := fmt.Sprintf(`{"version":3,"file":%q,"sources":[%q],"names":["/keep"],"mappings":"AAAA","sourcesContent":["x"]}`,
		stem+".js", filepath.ToSlash(out))
	return InvokeResult{}, os.WriteFile(filepath.Join(filepath.Dir(out), stem+".map"), []byte(doc), 0o644)
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func mustRead(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}
