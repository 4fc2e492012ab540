// Package access enforces the package-level access-control matrix between
// an importing file's PackageKind and the ImportKind of each import it
// contains (spec.md §3, §4.3). The project walk is a plain filepath.Walk
// plus extension filter, in the style of the teacher's directory-walking
// helpers (distri's internal/build/glob.go walks package metadata the same
// way: no generic "tree visitor" abstraction, just a direct walk).
package access

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/asthra-lang/ampu/internal/env"
	"github.com/asthra-lang/ampu/internal/errs"
	"github.com/asthra-lang/ampu/internal/importscan"
)

// Edge names one (importer kind, import kind) pair.
type Edge struct {
	Importer importscan.PackageKind
	Import   importscan.Kind
}

// forbidden holds the fixed matrix from spec.md §3: all edges are allowed
// except these two.
var forbidden = map[Edge]bool{
	{Importer: importscan.UserCode, Import: importscan.Internal}:    true,
	{Importer: importscan.PkgThirdParty, Import: importscan.Internal}: true,
}

// Check reports a violation if importerKind is not permitted to import
// importKind, per the fixed matrix in spec.md §3.
func Check(importerKind importscan.PackageKind, importKind importscan.Kind) error {
	if forbidden[Edge{Importer: importerKind, Import: importKind}] {
		return &edgeViolation{importerKind: importerKind, importKind: importKind}
	}
	return nil
}

type edgeViolation struct {
	importerKind importscan.PackageKind
	importKind   importscan.Kind
}

func (v *edgeViolation) Error() string {
	return v.importerKind.String() + " -> " + v.importKind.String() + " is forbidden"
}

// sourceExtension is the target-language's source file extension.
const sourceExtension = ".asthra"

// toolCacheDir is the directory name under which fetched third-party
// packages are cached, used to detect ThirdParty importers by location
// (spec.md §4.2).
const toolCacheDir = env.ToolDir

// CheckProject walks root recursively, reads every *.asthra file, classifies
// its location and every import it contains, and accumulates every matrix
// violation found without short-circuiting, so a single run reports every
// offending import in the project (spec.md §4.3). A malformed import path
// (empty or whitespace-only) is not an accumulable matrix violation: per
// spec.md §4.2/§4.3/§8, importscan.Validate rejects it as a bad-import-path
// error that aborts the walk immediately.
func CheckProject(root string) ([]*errs.AccessViolation, error) {
	var violations []*errs.AccessViolation
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return &errs.IO{Op: "walk", Path: path, Cause: err}
		}
		if info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, sourceExtension) {
			return nil
		}
		contents, err := os.ReadFile(path)
		if err != nil {
			return &errs.IO{Op: "read", Path: path, Cause: err}
		}
		importerKind := importscan.ClassifyPackage(filepath.ToSlash(path), toolCacheDir)
		for _, imp := range importscan.ParseImports(string(contents)) {
			if err := importscan.Validate(imp.Path); err != nil {
				return err
			}
			if v := Check(importerKind, imp.Kind); v != nil {
				violations = append(violations, &errs.AccessViolation{
					File: path,
					Line: imp.Line,
					Edge: errs.AccessEdge{
						ImporterKind: importerKind.String(),
						ImportKind:   imp.Kind.String(),
					},
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(violations, func(i, j int) bool {
		if violations[i].File != violations[j].File {
			return violations[i].File < violations[j].File
		}
		return violations[i].Line < violations[j].Line
	})
	return violations, nil
}
