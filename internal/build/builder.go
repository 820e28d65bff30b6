// Package build orchestrates single-target builds: closure computation,
// manifest staging, packaging-tool invocation, and publication of the final
// executable output. Each step is discrete; a failure in any step aborts
// the target's build with no partial public output.
package build

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/magnetarlabs/pulsar/internal/cache"
	"github.com/magnetarlabs/pulsar/internal/events"
	"github.com/magnetarlabs/pulsar/internal/manifest"
	"github.com/magnetarlabs/pulsar/internal/pex"
	"github.com/magnetarlabs/pulsar/internal/resolve"
	"github.com/magnetarlabs/pulsar/internal/target"
)

// Builder builds runnable targets of one workspace.
type Builder struct {
	Workspace *target.Workspace
	Resolver  *resolve.Resolver
	Invoker   *pex.Invoker
	Cache     *cache.Cache    // nil disables caching
	Events    *events.Emitter // nil disables the event log
	Verbose   bool
}

// Result describes a completed build.
type Result struct {
	Label        string
	Archive      string // produced (or cache-hit) archive
	Output       string // public executable: the archive copy, or the launcher
	ManifestPath string
	CacheHit     bool
}

// New creates a Builder for ws. The resolver is constructed over the
// workspace's wheel store so pytest injection points at installed wheels.
func New(ws *target.Workspace, inv *pex.Invoker) (*Builder, error) {
	r, err := resolve.New(ws, WheelDir(ws))
	if err != nil {
		return nil, err
	}
	return &Builder{Workspace: ws, Resolver: r, Invoker: inv}, nil
}

// OutDir returns the workspace's output root.
func OutDir(ws *target.Workspace) string {
	return filepath.Join(ws.Root, ws.Manifest.Tool.OutDir)
}

// WheelDir returns the workspace's installed-wheel store.
func WheelDir(ws *target.Workspace) string {
	return filepath.Join(OutDir(ws), "wheels")
}

// BinDir returns the public executable output directory.
func BinDir(ws *target.Workspace) string {
	return filepath.Join(OutDir(ws), "bin")
}

// Build runs the full pipeline for one runnable target:
//
//	(a) compute the combined closure
//	(b) serialize it to the staging manifest
//	(c) invoke the packaging tool (skipped on an action-cache hit)
//	(d) publish the public output: an archive copy for py_binary,
//	    a launcher script for py_test
func (b *Builder) Build(ctx context.Context, l target.Label) (*Result, error) {
	label := l.String()
	spec, ok := b.Workspace.Target(l)
	if !ok {
		return nil, fmt.Errorf("%w: %s", target.ErrUnknownDep, label)
	}
	if !spec.Runnable() {
		return nil, fmt.Errorf("%w: %s is a %s", target.ErrNotRunnable, label, spec.Kind)
	}

	b.Events.Emit(events.Event{Kind: events.KindBuildStart, Label: label})

	res, err := b.build(ctx, label, spec)
	if err != nil {
		b.Events.Emit(events.Event{Kind: events.KindBuildFailed, Label: label,
			Data: map[string]string{"error": err.Error()}})
		return nil, err
	}

	b.Events.Emit(events.Event{Kind: events.KindBuildDone, Label: label,
		Data: map[string]any{"output": res.Output, "cache_hit": res.CacheHit}})
	return res, nil
}

func (b *Builder) build(ctx context.Context, label string, spec *target.Spec) (*Result, error) {
	// Entry point first: conflicts and absence abort before any closure
	// work. Test targets are pinned to the bundled runner module.
	var entry string
	if spec.Kind == target.KindTest {
		entry = target.PytestRunnerModule
	} else {
		var err error
		if entry, err = b.Resolver.EntryPoint(spec); err != nil {
			return nil, err
		}
	}

	c, err := b.Resolver.Closure(spec.Label())
	if err != nil {
		return nil, err
	}
	text := manifest.Serialize(c)
	digest := cache.Digest(text)
	b.Events.Emit(events.Event{Kind: events.KindClosureDone, Label: label,
		Data: map[string]any{"manifest_sha": digest, "modules": c.Sources.Len()}})

	stagingDir := filepath.Join(OutDir(b.Workspace), filepath.FromSlash(spec.Dir))
	manifestPath := filepath.Join(stagingDir, spec.Name+".manifest.txt")
	archivePath := filepath.Join(stagingDir, spec.Name+".pex")

	res := &Result{Label: label, Archive: archivePath, ManifestPath: manifestPath}

	// The staged manifest is written on every build, hit or miss, so
	// ManifestPath always names this run's closure.
	if err := manifest.Write(c, manifestPath); err != nil {
		return nil, err
	}

	if cached, hit, err := b.Cache.Lookup(ctx, label, digest); err != nil {
		return nil, err
	} else if hit {
		res.Archive = cached
		res.CacheHit = true
		b.Events.Emit(events.Event{Kind: events.KindCacheHit, Label: label,
			Data: map[string]string{"archive": cached}})
	} else {
		if err := b.Invoker.Invoke(ctx, pex.Request{
			EntryPoint:   entry,
			OutputPath:   archivePath,
			ManifestPath: manifestPath,
			ZipSafe:      spec.IsZipSafe(),
			UseWheel:     spec.UsesWheel(),
			WorkDir:      b.Workspace.Root,
		}); err != nil {
			return nil, err
		}
		if err := b.Cache.Record(ctx, label, digest, archivePath); err != nil {
			return nil, err
		}
		b.Events.Emit(events.Event{Kind: events.KindPackDone, Label: label,
			Data: map[string]string{"archive": archivePath}})
	}

	output, err := b.publish(spec, res.Archive)
	if err != nil {
		return nil, err
	}
	res.Output = output
	return res, nil
}

// publish produces the target's public executable output.
func (b *Builder) publish(spec *target.Spec, archivePath string) (string, error) {
	binDir := BinDir(b.Workspace)
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return "", fmt.Errorf("creating bin directory: %w", err)
	}

	if spec.Kind == target.KindTest {
		launcher := filepath.Join(binDir, spec.Name)
		if err := pex.WriteLauncher(launcher, archivePath, b.Resolver.TestFiles(spec)); err != nil {
			return "", err
		}
		return launcher, nil
	}

	out := filepath.Join(binDir, spec.Name)
	if err := copyFile(archivePath, out, 0o755); err != nil {
		return "", fmt.Errorf("publishing %s: %w", spec.Label(), err)
	}
	return out, nil
}

// copyFile copies src to dst with the given mode, truncating dst.
func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
