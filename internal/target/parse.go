package target

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// BuildFileName is the per-package target declaration file.
const BuildFileName = "BUILD.toml"

// WorkspaceFileName marks the workspace root and carries tool configuration.
const WorkspaceFileName = "workspace.toml"

// Load reads a workspace rooted at root: workspace.toml plus every
// BUILD.toml in the tree. Targets keep declaration order (file paths
// sorted, then table order within each file) so dependency iteration is
// stable across runs.
func Load(root string) (*Workspace, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace root: %w", err)
	}

	data, err := os.ReadFile(filepath.Join(root, WorkspaceFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoWorkspace
		}
		return nil, fmt.Errorf("reading %s: %w", WorkspaceFileName, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", WorkspaceFileName, err)
	}
	if m.Tool.OutDir == "" {
		m.Tool.OutDir = "out"
	}
	if m.Tool.PexWrapper == "" {
		m.Tool.PexWrapper = "pex_wrapper"
	}
	if m.Tool.Python == "" {
		m.Tool.Python = "python"
	}
	m.Wheels = mergeWheels(m.Wheels)

	buildFiles, err := findBuildFiles(root, m.Tool.OutDir)
	if err != nil {
		return nil, err
	}

	loader := &fileLoader{root: root}
	for _, bf := range buildFiles {
		if err := loader.loadBuildFile(bf); err != nil {
			return nil, err
		}
	}
	return NewWorkspace(root, m, loader.specs), nil
}

// FindRoot walks upward from dir looking for workspace.toml.
func FindRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, WorkspaceFileName)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoWorkspace
		}
		dir = parent
	}
}

// findBuildFiles collects every BUILD.toml under root, skipping the output
// tree and hidden directories. Paths are returned sorted for determinism.
func findBuildFiles(root, outDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || name == outDir) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == BuildFileName {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning workspace: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// fileLoader accumulates specs while BUILD.toml files are parsed.
type fileLoader struct {
	root  string
	specs []*Spec
}

// loadBuildFile parses one BUILD.toml and registers its targets.
func (l *fileLoader) loadBuildFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var bf BuildFile
	if err := toml.Unmarshal(data, &bf); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	rel, err := filepath.Rel(l.root, filepath.Dir(path))
	if err != nil {
		return fmt.Errorf("relativizing %s: %w", path, err)
	}
	dir := cleanDir(filepath.ToSlash(rel))
	srcFile := filepath.ToSlash(filepath.Join(dir, BuildFileName))

	register := func(specs []Spec, kind Kind) {
		for i := range specs {
			s := specs[i]
			s.Kind = kind
			s.Dir = dir
			s.SourceFile = srcFile
			l.specs = append(l.specs, &s)
		}
	}
	register(bf.Libraries, KindLibrary)
	register(bf.Binaries, KindBinary)
	register(bf.Tests, KindTest)
	return nil
}

// mergeWheels overlays user [[wheel]] declarations on the built-in pytest
// bootstrap pins. A user entry with a default's name replaces it.
func mergeWheels(declared []WheelSpec) []WheelSpec {
	byName := make(map[string]bool, len(declared))
	for _, ws := range declared {
		byName[ws.Name] = true
	}
	out := make([]WheelSpec, 0, len(DefaultWheels)+len(declared))
	for _, dw := range DefaultWheels {
		if !byName[dw.Name] {
			out = append(out, dw)
		}
	}
	return append(out, declared...)
}
