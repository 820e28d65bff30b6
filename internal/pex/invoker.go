// Package pex drives the external pex_wrapper packaging tool. The tool is a
// black box with a fixed command-line contract; this package builds its
// argument list, runs it, and propagates a non-zero exit verbatim as a build
// failure. It also emits the thin launcher scripts py_test targets use.
package pex

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Invoker runs the pex_wrapper tool.
type Invoker struct {
	ToolPath string
	Verbose  bool
}

// NewInvoker creates an Invoker for the tool at toolPath.
func NewInvoker(toolPath string, verbose bool) *Invoker {
	return &Invoker{ToolPath: toolPath, Verbose: verbose}
}

// Request describes one packaging invocation.
type Request struct {
	EntryPoint   string // dotted module path
	OutputPath   string // destination archive
	ManifestPath string // serialized closure manifest
	ZipSafe      bool
	UseWheel     bool
	WorkDir      string // working directory for the invocation
}

// buildArgs constructs the CLI arguments for a pex_wrapper invocation.
// Flag order is part of the tool contract: optional toggles first, then
// --entry-point, then the output archive path, then the manifest path.
func buildArgs(req Request) []string {
	var args []string
	if !req.ZipSafe {
		args = append(args, "--not-zip-safe")
	}
	if !req.UseWheel {
		args = append(args, "--no-use-wheel")
	}
	args = append(args, "--entry-point", req.EntryPoint, req.OutputPath, req.ManifestPath)
	return args
}

// Invoke runs the packaging tool for req. Any non-zero exit is returned as
// an error carrying the tool's stderr. Retries are the caller's policy.
func (inv *Invoker) Invoke(ctx context.Context, req Request) error {
	args := buildArgs(req)

	cmd := exec.CommandContext(ctx, inv.ToolPath, args...)
	cmd.Dir = req.WorkDir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if inv.Verbose {
		fmt.Fprintf(os.Stderr, "[pex] running: %s %s\n", inv.ToolPath, strings.Join(args, " "))
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pex_wrapper failed for %s: %w\nstderr: %s",
			req.OutputPath, err, stderr.String())
	}
	return nil
}

// Validate checks that the packaging tool is present and runnable.
func (inv *Invoker) Validate() error {
	cmd := exec.Command(inv.ToolPath, "--version")
	out, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("pex_wrapper not found at %q: %w", inv.ToolPath, err)
	}
	if inv.Verbose {
		fmt.Fprintf(os.Stderr, "[pex] version: %s", string(out))
	}
	return nil
}
