// Package closure computes the transitive input closure of a build target:
// the complete, deduplicated, compile-ordered set of source files, prebuilt
// packages, requirement names, and data resources the target needs to run.
//
// Ordering is the load-bearing contract: a dependency's entries always
// precede the depending target's own entries, and the first occurrence of a
// key wins across diamond-shaped dependency paths. Downstream manifest
// content-addressing relies on Merge being deterministic and idempotent.
package closure

import (
	"path/filepath"
	"strings"
)

// SourceFile identifies one interpreted source file by its import-relative
// logical path and its physical location on disk.
type SourceFile struct {
	LogicalPath  string
	PhysicalPath string
}

// DataFile identifies one non-code resource, with the same logical/physical
// split as SourceFile.
type DataFile struct {
	LogicalPath  string
	PhysicalPath string
}

// Closure is the combined transitive closure of a single target. Each
// sub-collection is independently ordered and deduplicated by its
// identifying key: logical path for sources and data, physical path for
// prebuilt packages, the name itself for requirements.
//
// A Closure is derived data. It is never mutated after Merge returns; larger
// closures are produced by merging it into them.
type Closure struct {
	Sources      *OrderedMap // logical path → physical path
	Prebuilt     *OrderedMap // physical path → physical path
	Requirements *OrderedMap // name → name
	Data         *OrderedMap // logical path → physical path
}

// New returns an empty Closure.
func New() *Closure {
	return &Closure{
		Sources:      NewOrderedMap(),
		Prebuilt:     NewOrderedMap(),
		Requirements: NewOrderedMap(),
		Data:         NewOrderedMap(),
	}
}

// Direct holds one target's own contributions, before any suffix filtering.
type Direct struct {
	Sources      []SourceFile
	Prebuilt     []string // physical paths of .whl/.egg files
	Requirements []string
	Data         []DataFile
}

// SourceSuffix is the recognized interpreted-source suffix.
const SourceSuffix = ".py"

// prebuiltSuffixes are the recognized prebuilt package suffixes.
var prebuiltSuffixes = []string{".whl", ".egg"}

// IsSource reports whether path carries the interpreted-source suffix.
func IsSource(path string) bool {
	return strings.HasSuffix(path, SourceSuffix)
}

// IsPrebuilt reports whether path looks like a prebuilt package file.
func IsPrebuilt(path string) bool {
	for _, s := range prebuiltSuffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}

// Merge computes a target's Closure from its direct contributions and the
// already-computed closures of its dependencies, in declaration order.
//
// For each dependency, every sub-collection is appended entry by entry
// before the target's own direct contributions, skipping keys already seen.
// Unrecognized files among direct sources and prebuilt packages are silently
// dropped by suffix filtering; data files are taken as declared.
//
// Merge is pure: identical inputs yield an identical (and identically
// ordered) Closure.
func Merge(direct Direct, deps []*Closure) *Closure {
	c := New()

	for _, dep := range deps {
		appendAll(c.Sources, dep.Sources)
		appendAll(c.Prebuilt, dep.Prebuilt)
		appendAll(c.Requirements, dep.Requirements)
		appendAll(c.Data, dep.Data)
	}

	for _, s := range direct.Sources {
		if !IsSource(s.LogicalPath) {
			continue
		}
		c.Sources.Put(s.LogicalPath, s.PhysicalPath)
	}
	for _, p := range direct.Prebuilt {
		if !IsPrebuilt(p) {
			continue
		}
		c.Prebuilt.Put(p, p)
	}
	for _, r := range direct.Requirements {
		c.Requirements.Put(r, r)
	}
	for _, d := range direct.Data {
		c.Data.Put(d.LogicalPath, d.PhysicalPath)
	}

	return c
}

func appendAll(dst, src *OrderedMap) {
	for _, e := range src.Entries() {
		dst.Put(e.Key, e.Value)
	}
}

// ModuleName derives a dotted module path from a source file path by
// stripping the extension and replacing path separators with dots.
// "pkg/foo.py" becomes "pkg.foo".
func ModuleName(path string) string {
	path = strings.TrimSuffix(path, filepath.Ext(path))
	path = strings.ReplaceAll(path, "\\", "/")
	return strings.ReplaceAll(path, "/", ".")
}
