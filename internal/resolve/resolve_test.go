package resolve

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/magnetarlabs/pulsar/internal/dag"
	"github.com/magnetarlabs/pulsar/internal/target"
)

// ws assembles an in-memory workspace rooted at /w with the given specs.
// The manifest carries the built-in wheel pins, as Load would produce.
func ws(t *testing.T, specs ...*target.Spec) *target.Workspace {
	t.Helper()
	m := target.Manifest{Wheels: target.DefaultWheels}
	return target.NewWorkspace("/w", m, specs)
}

func lib(dir, name string, mutate ...func(*target.Spec)) *target.Spec {
	return mkSpec(target.KindLibrary, dir, name, mutate...)
}

func bin(dir, name string, mutate ...func(*target.Spec)) *target.Spec {
	return mkSpec(target.KindBinary, dir, name, mutate...)
}

func mkSpec(kind target.Kind, dir, name string, mutate ...func(*target.Spec)) *target.Spec {
	s := &target.Spec{
		Name:       name,
		Kind:       kind,
		Dir:        dir,
		SourceFile: dir + "/BUILD.toml",
	}
	for _, m := range mutate {
		m(s)
	}
	return s
}

func mustResolver(t *testing.T, w *target.Workspace) *Resolver {
	t.Helper()
	r, err := New(w, "/w/out/wheels")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestClosureChainOrder(t *testing.T) {
	t.Parallel()
	w := ws(t,
		lib("c", "c", func(s *target.Spec) { s.Srcs = []string{"c.py"} }),
		lib("b", "b", func(s *target.Spec) { s.Srcs = []string{"b.py"}; s.Deps = []string{"c:c"} }),
		bin("a", "a", func(s *target.Spec) { s.Srcs = []string{"a.py"}; s.Deps = []string{"b:b"} }),
	)
	r := mustResolver(t, w)

	c, err := r.Closure(target.Label{Dir: "a", Name: "a"})
	if err != nil {
		t.Fatalf("Closure: %v", err)
	}
	want := []string{"c/c.py", "b/b.py", "a/a.py"}
	if diff := cmp.Diff(want, c.Sources.Keys()); diff != "" {
		t.Errorf("source order mismatch (-want +got):\n%s", diff)
	}
}

func TestClosureMemoizedAcrossDiamond(t *testing.T) {
	t.Parallel()
	w := ws(t,
		lib("base", "base", func(s *target.Spec) { s.Srcs = []string{"base.py"}; s.Reqs = []string{"six"} }),
		lib("l", "l", func(s *target.Spec) { s.Deps = []string{"base:base"} }),
		lib("r", "r", func(s *target.Spec) { s.Deps = []string{"base:base"} }),
		bin("top", "top", func(s *target.Spec) {
			s.Srcs = []string{"top.py"}
			s.Deps = []string{"l:l", "r:r"}
		}),
	)
	r := mustResolver(t, w)

	c, err := r.Closure(target.Label{Dir: "top", Name: "top"})
	if err != nil {
		t.Fatalf("Closure: %v", err)
	}
	if got := c.Requirements.Keys(); len(got) != 1 || got[0] != "six" {
		t.Errorf("requirements = %v, want [six]", got)
	}
	if got := c.Sources.Len(); got != 2 {
		t.Errorf("Sources.Len() = %d, want 2 (base.py deduped across diamond)", got)
	}
}

func TestNewRejectsCycle(t *testing.T) {
	t.Parallel()
	w := ws(t,
		lib("a", "a", func(s *target.Spec) { s.Deps = []string{"b:b"} }),
		lib("b", "b", func(s *target.Spec) { s.Deps = []string{"a:a"} }),
	)
	if _, err := New(w, "/w/out/wheels"); !errors.Is(err, dag.ErrCycle) {
		t.Errorf("New error = %v, want ErrCycle", err)
	}
}

func TestNewRejectsSelfDependency(t *testing.T) {
	t.Parallel()
	w := ws(t,
		lib("a", "a", func(s *target.Spec) { s.Deps = []string{"a:a"} }),
	)
	if _, err := New(w, "/w/out/wheels"); !errors.Is(err, dag.ErrCycle) {
		t.Errorf("New error = %v, want ErrCycle", err)
	}
}

func TestNewRejectsDepOnBinary(t *testing.T) {
	t.Parallel()
	w := ws(t,
		bin("tool", "tool", func(s *target.Spec) { s.Srcs = []string{"tool.py"} }),
		bin("app", "app", func(s *target.Spec) { s.Deps = []string{"tool:tool"} }),
	)
	_, err := New(w, "/w/out/wheels")
	if !errors.Is(err, target.ErrMissingCapability) {
		t.Fatalf("New error = %v, want ErrMissingCapability", err)
	}
	if !strings.Contains(err.Error(), "tool:tool") {
		t.Errorf("error %q does not name the offending dependency", err)
	}
}

func TestEntryPointPrecedence(t *testing.T) {
	t.Parallel()
	r := mustResolver(t, ws(t, lib("lib", "core")))

	cases := []struct {
		name    string
		spec    *target.Spec
		want    string
		wantErr error
	}{
		{
			name:    "conflict",
			spec:    bin("", "x", func(s *target.Spec) { s.EntryPoint = "x.main"; s.Main = "main.py" }),
			wantErr: target.ErrConflictingEntryPoint,
		},
		{
			name: "explicit module",
			spec: bin("", "x", func(s *target.Spec) { s.EntryPoint = "x.main" }),
			want: "x.main",
		},
		{
			name: "explicit file",
			spec: bin("app", "x", func(s *target.Spec) { s.Main = "run.py" }),
			want: "app.run",
		},
		{
			name: "first source",
			spec: bin("", "x", func(s *target.Spec) { s.Srcs = []string{"pkg/foo.py", "pkg/bar.py"} }),
			want: "pkg.foo",
		},
		{
			name:    "no sources",
			spec:    bin("", "x"),
			wantErr: target.ErrNoEntryPoint,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.EntryPoint(tc.spec)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("EntryPoint error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("EntryPoint: %v", err)
			}
			if got != tc.want {
				t.Errorf("EntryPoint = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPytestWheelsInjectedFirst(t *testing.T) {
	t.Parallel()
	w := ws(t,
		lib("lib", "core", func(s *target.Spec) { s.Eggs = []string{"vendored.whl"} }),
		mkSpec(target.KindTest, "t", "t", func(s *target.Spec) {
			s.Srcs = []string{"a_test.py"}
			s.Deps = []string{"lib:core"}
		}),
	)
	r := mustResolver(t, w)

	c, err := r.Closure(target.Label{Dir: "t", Name: "t"})
	if err != nil {
		t.Fatalf("Closure: %v", err)
	}
	prebuilt := c.Prebuilt.Keys()
	if len(prebuilt) != 3 {
		t.Fatalf("prebuilt = %v, want pytest wheel, py wheel, vendored.whl", prebuilt)
	}
	// The two bootstrap wheels come before any declared contribution.
	if !strings.Contains(prebuilt[0], "pytest") {
		t.Errorf("prebuilt[0] = %q, want the pytest wheel first", prebuilt[0])
	}
	if !strings.HasSuffix(prebuilt[2], "vendored.whl") {
		t.Errorf("prebuilt[2] = %q, want the declared egg last", prebuilt[2])
	}
}

func TestTestFiles(t *testing.T) {
	t.Parallel()
	r := mustResolver(t, ws(t, lib("lib", "core")))
	spec := mkSpec(target.KindTest, "t", "t", func(s *target.Spec) {
		s.Srcs = []string{"a_test.py", "b_test.py", "fixture.json"}
	})
	want := []string{"t/a_test.py", "t/b_test.py"}
	if diff := cmp.Diff(want, r.TestFiles(spec)); diff != "" {
		t.Errorf("TestFiles mismatch (-want +got):\n%s", diff)
	}
}
