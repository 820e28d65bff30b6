package target

import (
	"fmt"
	"path"
	"strings"
)

// Label addresses one target: a workspace-relative package directory and a
// target name within that directory's BUILD.toml.
type Label struct {
	Dir  string // slash-separated, "" for the workspace root package
	Name string
}

// String renders the canonical form "dir:name".
func (l Label) String() string {
	return l.Dir + ":" + l.Name
}

// ParseLabel parses a label reference as written in a deps list or on the
// command line. fromDir anchors the two shorthands:
//
//	"lib/core:api"  → {lib/core, api}
//	":api"          → {fromDir, api}        (same-package dep)
//	"lib/core"      → {lib/core, core}      (name defaults to the basename)
func ParseLabel(raw, fromDir string) (Label, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Label{}, fmt.Errorf("%w: empty label", ErrBadLabel)
	}
	if strings.Count(raw, ":") > 1 {
		return Label{}, fmt.Errorf("%w: %q", ErrBadLabel, raw)
	}

	dir, name, found := strings.Cut(raw, ":")
	if !found {
		// Bare directory form: name defaults to the last path element.
		d := cleanDir(raw)
		if d == "" {
			return Label{}, fmt.Errorf("%w: %q", ErrBadLabel, raw)
		}
		return Label{Dir: d, Name: path.Base(d)}, nil
	}
	if name == "" {
		return Label{}, fmt.Errorf("%w: %q has empty target name", ErrBadLabel, raw)
	}
	if dir == "" {
		return Label{Dir: cleanDir(fromDir), Name: name}, nil
	}
	return Label{Dir: cleanDir(dir), Name: name}, nil
}

// cleanDir normalizes a package directory to slash-separated relative form.
func cleanDir(dir string) string {
	dir = strings.ReplaceAll(dir, "\\", "/")
	dir = path.Clean(strings.Trim(dir, "/"))
	if dir == "." {
		return ""
	}
	return dir
}
