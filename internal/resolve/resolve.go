// Package resolve bridges target declarations to closure computation. It
// builds the dependency DAG from a loaded workspace (rejecting cycles before
// any closure work starts), memoizes per-target closures in dependency
// order, and resolves entry points for runnable targets.
package resolve

import (
	"fmt"
	"path"
	"path/filepath"

	"github.com/magnetarlabs/pulsar/internal/closure"
	"github.com/magnetarlabs/pulsar/internal/dag"
	"github.com/magnetarlabs/pulsar/internal/target"
)

// Resolver computes closures for the targets of one workspace. A target's
// closure is computed at most once; diamond dependencies reuse the memoized
// result, so resolution is linear in graph size.
type Resolver struct {
	ws       *target.Workspace
	graph    *dag.DAG
	closures map[string]*closure.Closure

	// pytestWheels are the physical paths of the bootstrap wheels injected
	// into every py_test closure.
	pytestWheels []string
}

// New builds a Resolver for the workspace. Graph construction fails on
// unknown dependency labels, dependencies on non-library targets, and
// cycles, all before any closure is computed.
func New(ws *target.Workspace, wheelDir string) (*Resolver, error) {
	g := dag.New()
	for _, s := range ws.Targets {
		if err := g.AddNode(s.Label().String(), string(s.Kind)); err != nil {
			return nil, err
		}
	}
	for _, s := range ws.Targets {
		from := s.Label().String()
		for _, raw := range s.Deps {
			depLabel, err := target.ParseLabel(raw, s.Dir)
			if err != nil {
				return nil, fmt.Errorf("target %s: %w", from, err)
			}
			dep, ok := ws.Target(depLabel)
			if !ok {
				return nil, fmt.Errorf("target %s: %w: %s", from, target.ErrUnknownDep, depLabel)
			}
			if dep.Kind != target.KindLibrary {
				return nil, fmt.Errorf("target %s: %w: %s is a %s",
					from, target.ErrMissingCapability, depLabel, dep.Kind)
			}
			if err := g.AddEdge(from, depLabel.String()); err != nil {
				return nil, fmt.Errorf("target %s: %w", from, err)
			}
		}
	}

	var wheels []string
	for _, wheel := range ws.Manifest.Wheels {
		wheels = append(wheels, filepath.Join(wheelDir, path.Base(wheel.URL)))
	}

	return &Resolver{
		ws:           ws,
		graph:        g,
		closures:     make(map[string]*closure.Closure),
		pytestWheels: wheels,
	}, nil
}

// Graph exposes the dependency DAG for reporting and watch mode.
func (r *Resolver) Graph() *dag.DAG {
	return r.graph
}

// Closure returns the combined transitive closure of the labeled target.
// Dependencies are resolved first, in declaration order; the target's own
// contributions come last. For py_test targets the pytest bootstrap wheels
// are injected ahead of the declared dependencies, so the merge contract
// stays uniform across target kinds.
func (r *Resolver) Closure(l target.Label) (*closure.Closure, error) {
	key := l.String()
	if c, ok := r.closures[key]; ok {
		return c, nil
	}

	spec, ok := r.ws.Target(l)
	if !ok {
		return nil, fmt.Errorf("%w: %s", target.ErrUnknownDep, key)
	}

	var deps []*closure.Closure
	if spec.Kind == target.KindTest {
		deps = append(deps, r.pytestClosure())
	}
	for _, raw := range spec.Deps {
		depLabel, err := target.ParseLabel(raw, spec.Dir)
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", key, err)
		}
		depClosure, err := r.Closure(depLabel)
		if err != nil {
			return nil, err
		}
		deps = append(deps, depClosure)
	}

	c := closure.Merge(r.direct(spec), deps)
	r.closures[key] = c
	return c, nil
}

// direct assembles a spec's own contributions. Logical paths are
// workspace-relative (package dir + declared file); physical paths are
// absolute.
func (r *Resolver) direct(spec *target.Spec) closure.Direct {
	var d closure.Direct
	for _, src := range spec.Srcs {
		d.Sources = append(d.Sources, closure.SourceFile{
			LogicalPath:  logicalPath(spec.Dir, src),
			PhysicalPath: r.physicalPath(spec.Dir, src),
		})
	}
	for _, egg := range spec.Eggs {
		d.Prebuilt = append(d.Prebuilt, r.physicalPath(spec.Dir, egg))
	}
	d.Requirements = append(d.Requirements, spec.Reqs...)
	for _, data := range spec.Data {
		d.Data = append(d.Data, closure.DataFile{
			LogicalPath:  logicalPath(spec.Dir, data),
			PhysicalPath: r.physicalPath(spec.Dir, data),
		})
	}
	return d
}

// pytestClosure builds the implicit dependency closure for py_test targets:
// the bootstrap wheels as prebuilt packages.
func (r *Resolver) pytestClosure() *closure.Closure {
	return closure.Merge(closure.Direct{Prebuilt: r.pytestWheels}, nil)
}

// EntryPoint resolves the module whose top-level code runs when the
// target's archive executes. Precedence: explicit entry_point and main
// together conflict; explicit entry_point is used verbatim; main derives a
// dotted path; otherwise the first declared source wins.
func (r *Resolver) EntryPoint(spec *target.Spec) (string, error) {
	label := spec.Label().String()
	switch {
	case spec.EntryPoint != "" && spec.Main != "":
		return "", fmt.Errorf("target %s: %w", label, target.ErrConflictingEntryPoint)
	case spec.EntryPoint != "":
		return spec.EntryPoint, nil
	case spec.Main != "":
		return closure.ModuleName(logicalPath(spec.Dir, spec.Main)), nil
	}
	for _, src := range spec.Srcs {
		if closure.IsSource(src) {
			return closure.ModuleName(logicalPath(spec.Dir, src)), nil
		}
	}
	return "", fmt.Errorf("target %s: %w", label, target.ErrNoEntryPoint)
}

// TestFiles returns the workspace-relative paths of a test target's
// declared source files, in declaration order. These are the arguments the
// pytest launcher forwards to the archive.
func (r *Resolver) TestFiles(spec *target.Spec) []string {
	var files []string
	for _, src := range spec.Srcs {
		if closure.IsSource(src) {
			files = append(files, logicalPath(spec.Dir, src))
		}
	}
	return files
}

func logicalPath(dir, file string) string {
	return path.Join(dir, filepath.ToSlash(file))
}

func (r *Resolver) physicalPath(dir, file string) string {
	return filepath.Join(r.ws.Root, filepath.FromSlash(dir), filepath.FromSlash(file))
}
