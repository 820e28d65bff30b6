package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/magnetarlabs/pulsar/internal/build"
	"github.com/magnetarlabs/pulsar/internal/cache"
	"github.com/magnetarlabs/pulsar/internal/config"
	"github.com/magnetarlabs/pulsar/internal/events"
	"github.com/magnetarlabs/pulsar/internal/fetch"
	"github.com/magnetarlabs/pulsar/internal/pex"
	"github.com/magnetarlabs/pulsar/internal/target"
)

// loadWorkspace locates and loads the workspace: an explicit --workspace
// directory, or the nearest ancestor of the cwd carrying workspace.toml.
func loadWorkspace(cfg config.Config) (*target.Workspace, error) {
	dir := cfg.Workspace
	if dir == "" || dir == "." {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		root, err := target.FindRoot(cwd)
		if err != nil {
			return nil, err
		}
		dir = root
	}
	return target.Load(dir)
}

// toolPath resolves the packaging tool: machine config wins only when the
// workspace does not pin one explicitly.
func toolPath(cfg config.Config, ws *target.Workspace) string {
	if ws.Manifest.Tool.PexWrapper != "pex_wrapper" {
		return ws.Manifest.Tool.PexWrapper
	}
	if cfg.PexToolPath != "" {
		return cfg.PexToolPath
	}
	return ws.Manifest.Tool.PexWrapper
}

// newBuilder assembles the build pipeline: resolver, invoker, action cache,
// and optional event log.
func newBuilder(ctx context.Context, cfg config.Config, ws *target.Workspace) (*build.Builder, func(), error) {
	b, err := build.New(ws, pex.NewInvoker(toolPath(cfg, ws), cfg.Verbose))
	if err != nil {
		return nil, nil, err
	}
	b.Verbose = cfg.Verbose

	var closers []func()
	if !cfg.NoCache {
		if err := os.MkdirAll(build.OutDir(ws), 0o755); err != nil {
			return nil, nil, err
		}
		c, err := cache.Open(ctx, filepath.Join(build.OutDir(ws), "pulsar.db"))
		if err != nil {
			return nil, nil, err
		}
		b.Cache = c
		closers = append(closers, func() { c.Close() })
	}
	if cfg.EventsLog != "" {
		path := cfg.EventsLog
		if !filepath.IsAbs(path) {
			path = filepath.Join(ws.Root, path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, err
		}
		e, err := events.NewEmitter(path)
		if err != nil {
			return nil, nil, err
		}
		b.Events = e
		closers = append(closers, func() { e.Close() })
	}

	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}
	return b, cleanup, nil
}

// parseLabels parses command-line label arguments relative to the
// workspace root package.
func parseLabels(args []string) ([]target.Label, error) {
	labels := make([]target.Label, 0, len(args))
	for _, arg := range args {
		l, err := target.ParseLabel(arg, "")
		if err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, nil
}

// ensureWheels installs the workspace's bootstrap wheels if any label names
// a test target, so the injected pytest closure points at real files.
func ensureWheels(ctx context.Context, cfg config.Config, ws *target.Workspace, labels []target.Label) error {
	needed := false
	for _, l := range labels {
		if spec, ok := ws.Target(l); ok && spec.Kind == target.KindTest {
			needed = true
			break
		}
	}
	if !needed {
		return nil
	}
	f := &fetch.Fetcher{StoreDir: build.WheelDir(ws), Verbose: cfg.Verbose}
	if _, err := f.Fetch(ctx, ws.Manifest.Wheels); err != nil {
		return fmt.Errorf("installing bootstrap wheels: %w", err)
	}
	return nil
}
