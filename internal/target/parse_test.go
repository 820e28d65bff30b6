package target

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeWorkspace lays out a workspace in a temp dir from a map of relative
// path → file contents.
func writeWorkspace(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("writing %s: %v", rel, err)
		}
	}
	return root
}

func TestLoadWorkspace(t *testing.T) {
	t.Parallel()
	root := writeWorkspace(t, map[string]string{
		"workspace.toml": "[workspace]\nname = \"demo\"\n",
		"lib/BUILD.toml": `
[[py_library]]
name = "core"
srcs = ["core.py"]
reqs = ["six"]
`,
		"app/BUILD.toml": `
[[py_binary]]
name = "app"
srcs = ["main.py"]
deps = ["lib:core"]
`,
	})

	w, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(w.Targets) != 2 {
		t.Fatalf("len(Targets) = %d, want 2", len(w.Targets))
	}

	lib, ok := w.Target(Label{Dir: "lib", Name: "core"})
	if !ok {
		t.Fatal("lib:core not found")
	}
	if lib.Kind != KindLibrary || lib.SourceFile != "lib/BUILD.toml" {
		t.Errorf("lib:core = kind %q source %q", lib.Kind, lib.SourceFile)
	}

	app, ok := w.Target(Label{Dir: "app", Name: "app"})
	if !ok {
		t.Fatal("app:app not found")
	}
	if app.Kind != KindBinary {
		t.Errorf("app:app kind = %q, want %q", app.Kind, KindBinary)
	}
	if !app.IsZipSafe() || !app.UsesWheel() {
		t.Error("zip_safe/use_wheel defaults should be true")
	}
}

func TestLoadMissingWorkspaceFile(t *testing.T) {
	t.Parallel()
	if _, err := Load(t.TempDir()); !errors.Is(err, ErrNoWorkspace) {
		t.Errorf("Load error = %v, want ErrNoWorkspace", err)
	}
}

func TestLoadToolDefaults(t *testing.T) {
	t.Parallel()
	root := writeWorkspace(t, map[string]string{
		"workspace.toml": "[workspace]\nname = \"demo\"\n",
	})
	w, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tool := w.Manifest.Tool
	if tool.PexWrapper != "pex_wrapper" || tool.Python != "python" || tool.OutDir != "out" {
		t.Errorf("tool defaults = %+v", tool)
	}
}

func TestLoadSkipsOutputAndHiddenDirs(t *testing.T) {
	t.Parallel()
	root := writeWorkspace(t, map[string]string{
		"workspace.toml":  "[workspace]\nname = \"demo\"\n[tool]\nout_dir = \"out\"\n",
		"out/BUILD.toml":  "[[py_library]]\nname = \"stale\"\n",
		".git/BUILD.toml": "[[py_library]]\nname = \"junk\"\n",
		"lib/BUILD.toml":  "[[py_library]]\nname = \"core\"\nsrcs = [\"core.py\"]\n",
	})
	w, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(w.Targets) != 1 || w.Targets[0].Name != "core" {
		t.Errorf("Targets = %v, want only lib:core", w.Targets)
	}
}

func TestDefaultWheelsMergedAndOverridable(t *testing.T) {
	t.Parallel()
	root := writeWorkspace(t, map[string]string{
		"workspace.toml": `
[workspace]
name = "demo"

[[wheel]]
name = "pytest"
url = "https://mirror.internal/pytest.whl"
sha256 = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
`,
	})
	w, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	byName := make(map[string]WheelSpec)
	for _, ws := range w.Manifest.Wheels {
		byName[ws.Name] = ws
	}
	if _, ok := byName["py"]; !ok {
		t.Error("built-in py wheel missing after merge")
	}
	if got := byName["pytest"].URL; got != "https://mirror.internal/pytest.whl" {
		t.Errorf("pytest wheel URL = %q, want the override", got)
	}
}
