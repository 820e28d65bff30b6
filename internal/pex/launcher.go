package pex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// bytecodeToggle disables interpreter bytecode caching in the launched
// archive, so test runs leave no .pyc litter in the workspace.
const bytecodeToggle = "export PYTHONDONTWRITEBYTECODE=1"

// LauncherScript renders the py_test launcher: the bytecode toggle on the
// first line, then the archive path followed by the space-joined test file
// paths. The archive remains a runtime input of the script.
func LauncherScript(archivePath string, testFiles []string) string {
	payload := archivePath
	if len(testFiles) > 0 {
		payload += " " + strings.Join(testFiles, " ")
	}
	return bytecodeToggle + "\n" + payload + "\n"
}

// WriteLauncher writes the launcher script to path and marks it executable.
func WriteLauncher(path, archivePath string, testFiles []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating launcher directory: %w", err)
	}
	script := LauncherScript(archivePath, testFiles)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		return fmt.Errorf("writing launcher %s: %w", path, err)
	}
	return nil
}
