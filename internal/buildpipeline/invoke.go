package buildpipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Invocation is one external compiler run.
type Invocation struct {
	Name string
	Args []string
	Dir  string
}

func (inv Invocation) String() string {
	if len(inv.Args) == 0 {
		return inv.Name
	}
	return inv.Name + " " + strings.Join(inv.Args, " ")
}

// InvokeResult holds the captured output of a run.
type InvokeResult struct {
	Stdout string
	Stderr string
}

// Invoker runs the external compiler. A non-nil error means the file failed.
type Invoker interface {
	Invoke(ctx context.Context, inv Invocation) (InvokeResult, error)
}

// ExecInvoker starts a real process per invocation.
type ExecInvoker struct {
	// PrintCommands echoes each command line to Log before running it.
	PrintCommands bool
	Log           io.Writer
}

func (e ExecInvoker) Invoke(ctx context.Context, inv Invocation) (InvokeResult, error) {
	var res InvokeResult
	if e.PrintCommands && e.Log != nil {
		if _, err := fmt.Fprintln(e.Log, inv.String()); err != nil {
			return res, fmt.Errorf("failed to print command: %w", err)
		}
	}
	// #nosec G204 -- the compiler command comes from the project manifest
	cmd := exec.CommandContext(ctx, inv.Name, inv.Args...)
	cmd.Dir = inv.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	return res, err
}

// expandArgs substitutes {src} and {out} placeholders.
func expandArgs(args []string, src, out string) []string {
	expanded := make([]string, len(args))
	r := strings.NewReplacer("{src}", src, "{out}", out)
	for i, a := range args {
		expanded[i] = r.Replace(a)
	}
	return expanded
}

// failureText picks the diagnostic payload of a failed invocation.
func failureText(inv Invocation, res InvokeResult, err error) string {
	if msg := strings.TrimSpace(res.Stderr); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(res.Stdout); msg != "" {
		return msg
	}
	return fmt.Sprintf("%s: %v", inv.String(), err)
}
