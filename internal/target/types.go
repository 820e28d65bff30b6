package target

// Kind discriminates the three target flavors declared in BUILD.toml.
type Kind string

const (
	KindLibrary Kind = "py_library"
	KindBinary  Kind = "py_binary"
	KindTest    Kind = "py_test"
)

// Spec is one target declaration parsed from a BUILD.toml table.
// Library targets use the first six fields; binary and test targets add the
// entry-point and archive toggles.
type Spec struct {
	Name string   `toml:"name"`
	Srcs []string `toml:"srcs"` // package-relative source files
	Deps []string `toml:"deps"` // labels of library targets
	Eggs []string `toml:"eggs"` // package-relative prebuilt .whl/.egg files
	Reqs []string `toml:"reqs"` // external requirement names
	Data []string `toml:"data"` // package-relative resource files

	EntryPoint string `toml:"entry_point"` // explicit dotted module path
	Main       string `toml:"main"`        // explicit entry file; exclusive with EntryPoint
	ZipSafe    *bool  `toml:"zip_safe"`    // default true
	UseWheel   *bool  `toml:"use_wheel"`   // default true

	// Populated by the loader, not by TOML.
	Kind       Kind   `toml:"-"`
	Dir        string `toml:"-"` // workspace-relative package directory
	SourceFile string `toml:"-"` // BUILD.toml path for error context
}

// Label returns the spec's fully qualified label.
func (s *Spec) Label() Label {
	return Label{Dir: s.Dir, Name: s.Name}
}

// IsZipSafe resolves the zip_safe toggle, defaulting to true.
func (s *Spec) IsZipSafe() bool {
	return s.ZipSafe == nil || *s.ZipSafe
}

// UsesWheel resolves the use_wheel toggle, defaulting to true.
func (s *Spec) UsesWheel() bool {
	return s.UseWheel == nil || *s.UseWheel
}

// Runnable reports whether the target produces an executable archive.
func (s *Spec) Runnable() bool {
	return s.Kind == KindBinary || s.Kind == KindTest
}

// BuildFile is the parsed form of one BUILD.toml.
type BuildFile struct {
	Libraries []Spec `toml:"py_library"`
	Binaries  []Spec `toml:"py_binary"`
	Tests     []Spec `toml:"py_test"`
}

// WheelSpec declares one remotely fetched prebuilt package, pinned by URL
// and content hash. Evaluated once at fetch time, outside closure
// computation.
type WheelSpec struct {
	Name   string `toml:"name"`
	URL    string `toml:"url"`
	SHA256 string `toml:"sha256"`
}

// Manifest is parsed from workspace.toml at the workspace root.
type Manifest struct {
	Workspace Info        `toml:"workspace"`
	Tool      Tool        `toml:"tool"`
	Wheels    []WheelSpec `toml:"wheel"`
}

// Info holds the workspace's identity.
type Info struct {
	Name string `toml:"name"`
}

// Tool holds packaging-tool configuration overrides.
type Tool struct {
	PexWrapper string `toml:"pex_wrapper"` // path to the packaging tool
	Python     string `toml:"python"`      // interpreter for the launcher
	OutDir     string `toml:"out_dir"`     // output root, default "out"
}

// Workspace is the fully loaded representation of a workspace tree.
type Workspace struct {
	Root     string // absolute path of the workspace root
	Manifest Manifest
	Targets  []*Spec // declaration order across BUILD.toml files

	byLabel map[string]*Spec
}

// NewWorkspace assembles a workspace from already-built specs. Load uses it
// after parsing; tests use it to construct workspaces in memory. When two
// specs share a label, the first declaration wins for lookups (Validate
// reports the duplicate).
func NewWorkspace(root string, m Manifest, specs []*Spec) *Workspace {
	w := &Workspace{
		Root:     root,
		Manifest: m,
		Targets:  specs,
		byLabel:  make(map[string]*Spec, len(specs)),
	}
	for _, s := range specs {
		key := s.Label().String()
		if _, exists := w.byLabel[key]; !exists {
			w.byLabel[key] = s
		}
	}
	return w
}

// Target looks up a spec by label.
func (w *Workspace) Target(l Label) (*Spec, bool) {
	s, ok := w.byLabel[l.String()]
	return s, ok
}

// PytestRunnerModule is the fixed entry point of py_test archives. The
// module ships inside the pytest wheel declared in the workspace bootstrap.
const PytestRunnerModule = "pytest_runner"

// DefaultWheels are the bootstrap declarations for the two wheels the
// pytest runner needs. A workspace.toml [[wheel]] entry with the same name
// overrides the built-in pin.
var DefaultWheels = []WheelSpec{
	{
		Name:   "pytest",
		URL:    "https://files.pythonhosted.org/packages/py2.py3/p/pytest/pytest-2.9.2-py2.py3-none-any.whl",
		SHA256: "ccc23b4aab3ef3e19e731de9baca73f3b1a7e610d9ec65b28c36a5a3305f0349",
	},
	{
		Name:   "py",
		URL:    "https://files.pythonhosted.org/packages/py2.py3/p/py/py-1.4.31-py2.py3-none-any.whl",
		SHA256: "4a3e4f3000c123835ac39cab5ccc510642153bc47bc1f13e2bbb53039540ae69",
	},
}
