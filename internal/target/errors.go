package target

import "errors"

// Sentinel errors for workspace loading, validation, and build planning.
var (
	// ErrNoWorkspace indicates no workspace.toml was found at or above the
	// starting directory.
	ErrNoWorkspace = errors.New("workspace.toml not found")
	// ErrMissingField indicates a required field (e.g. name) is empty.
	ErrMissingField = errors.New("required field missing")
	// ErrDuplicateTarget indicates two targets share the same label.
	ErrDuplicateTarget = errors.New("duplicate target label")
	// ErrUnknownDep indicates a target depends on a label that does not exist.
	ErrUnknownDep = errors.New("dependency on unknown target")
	// ErrBadLabel indicates a label string could not be parsed.
	ErrBadLabel = errors.New("malformed target label")
	// ErrConflictingEntryPoint indicates both entry_point and main were set.
	ErrConflictingEntryPoint = errors.New("entry_point and main are mutually exclusive")
	// ErrNoEntryPoint indicates no entry point could be resolved and no
	// source files were declared.
	ErrNoEntryPoint = errors.New("no entry point resolvable")
	// ErrMissingCapability indicates a declared dependency is not a
	// closure-contributing target (e.g. a binary used as a library dep).
	ErrMissingCapability = errors.New("dependency does not contribute a closure")
	// ErrNotRunnable indicates a build was requested for a target kind that
	// produces no executable archive.
	ErrNotRunnable = errors.New("target is not a binary or test")
	// ErrBadWheel indicates a [[wheel]] declaration is incomplete.
	ErrBadWheel = errors.New("wheel declaration missing name, url, or sha256")
)

// ValidationCategory classifies a validation error for programmatic handling.
type ValidationCategory string

const (
	ValCatMissingField  ValidationCategory = "missing_field"
	ValCatDuplicate     ValidationCategory = "duplicate_target"
	ValCatUnknownDep    ValidationCategory = "unknown_dep"
	ValCatBadLabel      ValidationCategory = "bad_label"
	ValCatEntryConflict ValidationCategory = "entry_conflict"
	ValCatBadWheel      ValidationCategory = "bad_wheel"
)

// ValidationError records a validation problem with source context.
type ValidationError struct {
	Category   ValidationCategory
	Label      string // offending target label, if known
	SourceFile string // BUILD.toml or workspace.toml path
	Field      string
	Err        error
}

// Error returns a human-readable string including source file and target context.
func (e *ValidationError) Error() string {
	if e.Label != "" {
		return e.SourceFile + ": target " + e.Label + ": " + e.Err.Error()
	}
	return e.SourceFile + ": " + e.Err.Error()
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
