// Package errs defines the build tool's error taxonomy: one exported type
// per failure kind the pipeline can produce. Each wraps its cause (if any)
// with golang.org/x/xerrors, matching distri's own "%w"-via-xerrors
// wrapping idiom, and implements Unwrap so callers can use errors.As/Is.
package errs

import (
	"fmt"
	"strings"

	"golang.org/x/xerrors"
)

// BadManifest is returned by the manifest loader when the manifest fails
// validation (spec.md §4.1).
type BadManifest struct {
	Detail string
}

func (e *BadManifest) Error() string { return fmt.Sprintf("bad manifest: %s", e.Detail) }

// BadImportPath is returned by the import-path validator (spec.md §7; the
// classifier itself is total and never returns this).
type BadImportPath struct {
	Path   string
	Detail string
}

func (e *BadImportPath) Error() string {
	return fmt.Sprintf("bad import path %q: %s", e.Path, e.Detail)
}

// AccessEdge names a forbidden importer-kind -> import-kind edge.
type AccessEdge struct {
	ImporterKind string
	ImportKind   string
}

func (e AccessEdge) String() string { return e.ImporterKind + "->" + e.ImportKind }

// AccessViolation is one forbidden import edge found by the access-control
// enforcer, located at a specific file and line (spec.md §4.3).
type AccessViolation struct {
	File string
	Line int
	Edge AccessEdge
}

func (e *AccessViolation) Error() string {
	return fmt.Sprintf("%s:%d: forbidden import: %s", e.File, e.Line, e.Edge)
}

// AccessViolations aggregates every violation found across a project, so the
// build can report all of them at once (spec.md §4.3, "batched reporting").
type AccessViolations struct {
	Violations []*AccessViolation
}

func (e *AccessViolations) Error() string {
	lines := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		lines[i] = v.Error()
	}
	return fmt.Sprintf("%d access violation(s):\n%s", len(e.Violations), strings.Join(lines, "\n"))
}

// FetchFailed wraps a network or git failure while materializing a package
// (spec.md §4.4).
type FetchFailed struct {
	ImportPath string
	Cause      error
}

func (e *FetchFailed) Error() string {
	return fmt.Sprintf("fetch %s failed: %v", e.ImportPath, e.Cause)
}
func (e *FetchFailed) Unwrap() error { return e.Cause }

// NoMatchingVersion is returned when no tag of a fetched repository
// satisfies the requested version requirement.
type NoMatchingVersion struct {
	ImportPath  string
	Requirement string
	Available   []string
}

func (e *NoMatchingVersion) Error() string {
	return fmt.Sprintf("no version of %s satisfies %s (available: %s)",
		e.ImportPath, e.Requirement, strings.Join(e.Available, ", "))
}

// VersionConflict is returned by the resolver when two requirements on the
// same import path cannot both be satisfied by one resolved version
// (spec.md §4.5).
type VersionConflict struct {
	ImportPath  string
	Required    string
	Existing    string
	RequestedBy string
}

func (e *VersionConflict) Error() string {
	return fmt.Sprintf("version conflict on %s: requested %s by %s, but %s is already resolved",
		e.ImportPath, e.Required, e.RequestedBy, e.Existing)
}

// Cycle is returned by the plan step when the dependency relation among
// resolved packages is not acyclic (spec.md §4.8).
type Cycle struct {
	Participants []string
}

func (e *Cycle) Error() string {
	return fmt.Sprintf("dependency cycle among: %s", strings.Join(e.Participants, ", "))
}

// CompilationFailed is returned when a compiler invocation exits non-zero
// (spec.md §4.8).
type CompilationFailed struct {
	Package  string
	Stdout   string
	Stderr   string
	ExitCode int
}

func (e *CompilationFailed) Error() string {
	return fmt.Sprintf("compilation of %s failed (exit %d): %s", e.Package, e.ExitCode, e.Stderr)
}

// CompilerTimeout is returned when a compiler invocation exceeds its
// wall-clock budget (spec.md §4.8, §5).
type CompilerTimeout struct {
	Package string
}

func (e *CompilerTimeout) Error() string {
	return fmt.Sprintf("compiler timed out building %s", e.Package)
}

// MissingEnv is returned when a required environment variable (HOME on
// Unix, APPDATA on Windows) is unset (spec.md §4.6).
type MissingEnv struct {
	Var string
}

func (e *MissingEnv) Error() string {
	return fmt.Sprintf("required environment variable %s is not set", e.Var)
}

// IO wraps any filesystem-level failure with the operation and path that
// triggered it.
type IO struct {
	Op    string
	Path  string
	Cause error
}

func (e *IO) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Cause)
}
func (e *IO) Unwrap() error { return e.Cause }

// Wrap attaches context to err using the same "op: %w" idiom distri uses
// throughout internal/build/build.go, without introducing a new type.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return xerrors.Errorf("%s: %w", op, err)
}
