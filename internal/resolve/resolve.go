// Package resolve implements the dependency resolver (spec.md §4.5): a
// breadth-first traversal of the requirement graph that unifies version
// constraints under a single-version-per-package policy, invoking a package
// fetcher for every newly discovered import path, and producing a locked
// Graph or a version-conflict/fetch error. The resolver does not check for
// cycles; those are detected when the build plan is constructed.
//
// Grounded on distri's own package-set construction in cmd/distri/build.go
// (a worklist of pending package names fed by each package's own
// dependency list), generalised here to a BFS queue of
// (import-path, requirement, requested-by) triples per spec.md §4.5.
package resolve

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/asthra-lang/ampu/internal/errs"
	"github.com/asthra-lang/ampu/internal/gitfetch"
	"github.com/asthra-lang/ampu/internal/version"
)

// ResolvedPackage is one node of the resolved graph (spec.md §3).
type ResolvedPackage struct {
	ImportPath   string
	Version      version.Version
	Dependencies map[string]version.Requirement
	Dir          string
	SourceFiles  []string
	Checksum     string
}

// Graph maps import path to resolved package. Every dependency target of
// every package in the graph is itself a key (spec.md §3 invariant).
type Graph struct {
	Packages map[string]ResolvedPackage
}

// DOT renders the dependency relation as a Graphviz digraph, with edges
// sorted for deterministic output (spec.md §10, supplemented feature).
func (g *Graph) DOT() string {
	names := make([]string, 0, len(g.Packages))
	for name := range g.Packages {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("digraph deps {\n")
	for _, name := range names {
		deps := make([]string, 0, len(g.Packages[name].Dependencies))
		for dep := range g.Packages[name].Dependencies {
			deps = append(deps, dep)
		}
		sort.Strings(deps)
		for _, dep := range deps {
			fmt.Fprintf(&b, "\t%q -> %q;\n", name, dep)
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// Fetcher is the subset of gitfetch.Fetcher the resolver depends on,
// allowing tests to substitute a fake.
type Fetcher interface {
	Fetch(ctx context.Context, importPath string, req version.Requirement) (*gitfetch.Package, error)
}

type workItem struct {
	importPath  string
	requirement version.Requirement
	requestedBy string
}

// Resolve implements spec.md §4.5's BFS algorithm. rootDeps is the
// manifest's [dependencies] table; an empty rootDeps resolves to an empty,
// successful graph.
func Resolve(ctx context.Context, rootDeps map[string]version.Requirement, fetcher Fetcher) (*Graph, error) {
	resolved := make(map[string]ResolvedPackage)

	var queue []workItem
	for _, path := range sortedKeys(rootDeps) {
		queue = append(queue, workItem{importPath: path, requirement: rootDeps[path], requestedBy: "<root>"})
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if existing, ok := resolved[item.importPath]; ok {
			if item.requirement.Satisfied(existing.Version) {
				continue
			}
			return nil, &errs.VersionConflict{
				ImportPath:  item.importPath,
				Required:    item.requirement.String(),
				Existing:    existing.Version.String(),
				RequestedBy: item.requestedBy,
			}
		}

		pkg, err := fetcher.Fetch(ctx, item.importPath, item.requirement)
		if err != nil {
			return nil, err
		}

		resolved[item.importPath] = ResolvedPackage{
			ImportPath:   pkg.ImportPath,
			Version:      pkg.Version,
			Dependencies: pkg.Dependencies,
			Dir:          pkg.Dir,
			SourceFiles:  pkg.SourceFiles,
			Checksum:     pkg.Checksum,
		}

		for _, dep := range sortedKeys(pkg.Dependencies) {
			queue = append(queue, workItem{importPath: dep, requirement: pkg.Dependencies[dep], requestedBy: item.importPath})
		}
	}

	return &Graph{Packages: resolved}, nil
}

func sortedKeys(m map[string]version.Requirement) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
