package target

import "fmt"

// Validate checks a loaded workspace for structural correctness: required
// fields, unique labels, resolvable dependencies, entry-point exclusivity,
// and well-formed wheel declarations. Cycle detection happens later, when
// the dependency graph is built.
func Validate(w *Workspace) []ValidationError {
	var errs []ValidationError

	seen := make(map[string]string) // label → source file

	for _, s := range w.Targets {
		if s.Name == "" {
			errs = append(errs, ValidationError{
				Category:   ValCatMissingField,
				SourceFile: s.SourceFile,
				Field:      "name",
				Err:        fmt.Errorf("%w: name", ErrMissingField),
			})
			continue
		}

		label := s.Label().String()
		if prev, ok := seen[label]; ok {
			errs = append(errs, ValidationError{
				Category:   ValCatDuplicate,
				Label:      label,
				SourceFile: s.SourceFile,
				Err:        fmt.Errorf("%w: %q already declared in %s", ErrDuplicateTarget, label, prev),
			})
		} else {
			seen[label] = s.SourceFile
		}

		if s.EntryPoint != "" && s.Main != "" {
			errs = append(errs, ValidationError{
				Category:   ValCatEntryConflict,
				Label:      label,
				SourceFile: s.SourceFile,
				Field:      "entry_point",
				Err:        ErrConflictingEntryPoint,
			})
		}
	}

	// Dependencies must reference known targets.
	for _, s := range w.Targets {
		if s.Name == "" {
			continue
		}
		for _, raw := range s.Deps {
			dep, err := ParseLabel(raw, s.Dir)
			if err != nil {
				errs = append(errs, ValidationError{
					Category:   ValCatBadLabel,
					Label:      s.Label().String(),
					SourceFile: s.SourceFile,
					Field:      "deps",
					Err:        err,
				})
				continue
			}
			if _, ok := w.Target(dep); !ok {
				errs = append(errs, ValidationError{
					Category:   ValCatUnknownDep,
					Label:      s.Label().String(),
					SourceFile: s.SourceFile,
					Field:      "deps",
					Err:        fmt.Errorf("%w: %q", ErrUnknownDep, dep.String()),
				})
			}
		}
	}

	for _, ws := range w.Manifest.Wheels {
		if ws.Name == "" || ws.URL == "" || ws.SHA256 == "" {
			errs = append(errs, ValidationError{
				Category:   ValCatBadWheel,
				SourceFile: WorkspaceFileName,
				Field:      "wheel",
				Err:        fmt.Errorf("%w: %+v", ErrBadWheel, ws),
			})
		}
	}

	return errs
}
