// Package build implements the build orchestrator (spec.md §4.8): the
// manifest → resolve → access-check → plan → incremental-filter → compile →
// cache-update → link → cleanup pipeline, including the bounded-parallel
// compiler scheduler (spec.md §5).
//
// The scheduler is ported from distri's internal/batch/batch.go: the same
// gonum simple.DirectedGraph + topo.Sort cycle detection, the same
// edges-point-from-dependent-to-dependency convention, and the same
// errgroup worker pool draining a work channel, generalised from "build a
// distri package by shelling out to `distri build`" to "compile a
// PackageInfo by shelling out to the configured compiler".
package build

import (
	"time"

	"github.com/asthra-lang/ampu/internal/cache"
	"github.com/asthra-lang/ampu/internal/importscan"
	"github.com/asthra-lang/ampu/internal/version"
)

// PackageInfo is one build unit (spec.md §3, "Package info (build unit)").
type PackageInfo struct {
	Name         string
	Version      version.Version
	Dependencies map[string]version.Requirement
	SourceFiles  []string
	EntryFile    string
	OutputPath   string
	Checksum     string

	// Dir is the package's source root (the fetched working copy for a
	// ThirdParty package, or the project root for the local/root package).
	Dir string
	// Kind is the package's own PackageKind, used to apply the
	// belt-and-braces access check during import-search-path construction
	// and to decide --stdlib-mode.
	Kind importscan.PackageKind
}

// CompilationResult is what one compiler invocation reports back to the
// scheduler (spec.md §5, "worker tasks return CompilationResult records
// rather than mutating the cache directly").
type CompilationResult struct {
	Package  string
	Warnings []string
	Err      error
}

// BuildResult aggregates a full build_project run (spec.md §4.8).
type BuildResult struct {
	// Compiled lists packages in completion order (spec.md §5, "the build
	// result reports compiled packages in completion order").
	Compiled []string
	// Skipped lists packages the incremental filter found already
	// up-to-date.
	Skipped  []string
	Warnings map[string][]string
	// EntryOutputPath is the selected entry package's output path (spec.md
	// §4.8 step 8, "Link").
	EntryOutputPath string
	Duration        time.Duration
	// CompilerVersion is the `<compiler> --version` output captured before
	// the first compile (spec.md §10.2, supplemented from
	// original_source/ampu/src/compiler/asthra_compiler.rs).
	CompilerVersion string
	// CacheStats counts the incremental filter's hit/miss decisions for
	// this run (spec.md §10.5, supplemented from cache.Stats).
	CacheStats cache.Stats
}
