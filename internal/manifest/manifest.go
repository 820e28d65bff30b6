// Package manifest renders a closure into the flat text manifest consumed by
// the external pex_wrapper packaging tool.
//
// The format is an external contract and must be reproduced bit-for-bit:
// five sections in fixed order (modules, requirements, resources,
// nativeLibraries, prebuiltLibraries), each a `name:` header followed by
// tab-indented `key:value` lines in closure order, the lines joined by
// newlines. Sections are themselves joined by single newlines, so an empty
// section is followed by a blank line. nativeLibraries is reserved and
// always empty.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magnetarlabs/pulsar/internal/closure"
)

// Serialize renders c into the manifest text format.
// The same closure always produces byte-identical output.
func Serialize(c *closure.Closure) string {
	sections := []string{
		section("modules", c.Sources.Entries()),
		section("requirements", c.Requirements.Entries()),
		section("resources", c.Data.Entries()),
		section("nativeLibraries", nil),
		section("prebuiltLibraries", c.Prebuilt.Entries()),
	}
	return strings.Join(sections, "\n")
}

func section(name string, entries []closure.Entry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = "\t" + e.Key + ":" + e.Value
	}
	return name + ":\n" + strings.Join(lines, "\n")
}

// Write serializes c and writes it to path, creating parent directories as
// needed. The file is written whole; a manifest is consumed exactly once by
// the packaging tool, so no atomic rename is required.
func Write(c *closure.Closure, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("manifest: creating staging directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(Serialize(c)), 0o644); err != nil {
		return fmt.Errorf("manifest: writing %s: %w", path, err)
	}
	return nil
}
