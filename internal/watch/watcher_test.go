package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startWatcher(t *testing.T, dirs ...string) *Watcher {
	t.Helper()
	w, err := New(dirs)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_DetectsSourceChange(t *testing.T) {
	dir := t.TempDir()
	srcFile := filepath.Join(dir, "main.py")
	if err := os.WriteFile(srcFile, []byte("print('v1')\n"), 0644); err != nil {
		t.Fatalf("failed to create source file: %v", err)
	}

	w := startWatcher(t, dir)

	if err := os.WriteFile(srcFile, []byte("print('v2')\n"), 0644); err != nil {
		t.Fatalf("failed to update source file: %v", err)
	}

	select {
	case change := <-w.Changes:
		if change.Kind != ChangeModified {
			t.Errorf("expected ChangeModified, got %d", change.Kind)
		}
		if filepath.Base(change.File) != "main.py" {
			t.Errorf("expected main.py, got %q", change.File)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
}

func TestWatcher_BuildFileChangeIsFlagged(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir)

	buildFile := filepath.Join(dir, "BUILD.toml")
	if err := os.WriteFile(buildFile, []byte("[[py_library]]\nname = \"x\"\n"), 0644); err != nil {
		t.Fatalf("failed to create BUILD.toml: %v", err)
	}

	select {
	case change := <-w.Changes:
		if change.Kind != ChangeBuildFile {
			t.Errorf("expected ChangeBuildFile, got %d", change.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
}

func TestWatcher_IgnoresHiddenAndBackupFiles(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir)

	if err := os.WriteFile(filepath.Join(dir, ".main.py.swp"), []byte("x"), 0644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.py~"), []byte("x"), 0644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	select {
	case change := <-w.Changes:
		t.Errorf("unexpected change event: %+v", change)
	case <-time.After(300 * time.Millisecond):
		// Expected: editor droppings are ignored.
	}
}

func TestWatcher_DetectsRemoval(t *testing.T) {
	dir := t.TempDir()
	srcFile := filepath.Join(dir, "gone.py")
	if err := os.WriteFile(srcFile, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to create source file: %v", err)
	}

	w := startWatcher(t, dir)

	if err := os.Remove(srcFile); err != nil {
		t.Fatalf("failed to remove source file: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case change := <-w.Changes:
			if change.Kind == ChangeRemoved && filepath.Base(change.File) == "gone.py" {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for removal event")
		}
	}
}

func TestWatcher_WatchesMultipleDirs(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	w := startWatcher(t, dirA, dirB)

	if err := os.WriteFile(filepath.Join(dirB, "lib.py"), []byte("x"), 0644); err != nil {
		t.Fatalf("failed to create source file: %v", err)
	}

	select {
	case change := <-w.Changes:
		if filepath.Base(change.File) != "lib.py" {
			t.Errorf("expected lib.py, got %q", change.File)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
}
