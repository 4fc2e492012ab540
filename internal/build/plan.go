package build

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/asthra-lang/ampu/internal/env"
	"github.com/asthra-lang/ampu/internal/errs"
	"github.com/asthra-lang/ampu/internal/gitfetch"
	"github.com/asthra-lang/ampu/internal/importscan"
	"github.com/asthra-lang/ampu/internal/resolve"
	"github.com/asthra-lang/ampu/internal/version"
)

// Plan is a topologically ordered build plan (spec.md §4.8 step 4).
type Plan struct {
	// Order lists every package, dependencies before dependents.
	Order []PackageInfo
	// ByName indexes Order for O(1) lookup during scheduling.
	ByName map[string]PackageInfo
	// StdlibRoot is always the first -I search path for every package.
	StdlibRoot string
}

// discoverSourceFiles walks dir/src (or dir itself if no src subdirectory)
// for files with the target language's extension, sorted by path.
func discoverSourceFiles(dir string) ([]string, error) {
	root := filepath.Join(dir, "src")
	if _, err := os.Stat(root); os.IsNotExist(err) {
		root = dir
	}
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, gitfetch.SourceExtension) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, &errs.IO{Op: "walk source tree", Path: root, Cause: err}
	}
	sort.Strings(files)
	return files, nil
}

// pickEntryFile prefers main.<ext> or lib.<ext>, else the first source file
// alphabetically (spec.md §4.8 step 4).
func pickEntryFile(files []string) string {
	if len(files) == 0 {
		return ""
	}
	var main, lib string
	first := files[0]
	for _, f := range files {
		if f < first {
			first = f
		}
		base := filepath.Base(f)
		if base == "main"+gitfetch.SourceExtension {
			main = f
		}
		if base == "lib"+gitfetch.SourceExtension {
			lib = f
		}
	}
	if main != "" {
		return main
	}
	if lib != "" {
		return lib
	}
	return first
}

// RootInput describes the project being built, before its source tree has
// been scanned.
type RootInput struct {
	Name         string
	Version      version.Version
	Dir          string
	Dependencies map[string]version.Requirement
}

// BuildPackageInfo discovers root's source files, entry file, and checksum,
// producing a PackageInfo for the project itself (not a fetched
// dependency — those already carry this data from gitfetch.Package).
func BuildPackageInfo(root RootInput) (PackageInfo, error) {
	files, err := discoverSourceFiles(root.Dir)
	if err != nil {
		return PackageInfo{}, err
	}
	checksum, err := gitfetch.Checksum(files)
	if err != nil {
		return PackageInfo{}, err
	}
	return PackageInfo{
		Name:         root.Name,
		Version:      root.Version,
		Dependencies: root.Dependencies,
		SourceFiles:  files,
		EntryFile:    pickEntryFile(files),
		Checksum:     checksum,
		Dir:          root.Dir,
		Kind:         importscan.UserCode,
	}, nil
}

type planNode struct {
	id   int64
	name string
}

func (n *planNode) ID() int64 { return n.id }

// BuildPlan assembles the root package and every resolved dependency into a
// topologically sorted Plan via gonum's topo.Sort, which reports the cyclic
// components when no order exists (spec.md §4.8 step 4, ported from distri's
// internal/batch/batch.go use of gonum.org/v1/gonum/graph/simple +
// topo.Sort). OutputPath for each package
// is computed by outputPath.
func BuildPlan(rootPkg PackageInfo, g *resolve.Graph, stdlibRoot string, outputPath func(PackageInfo) string) (*Plan, error) {
	infos := make(map[string]PackageInfo, len(g.Packages)+1)
	infos[rootPkg.Name] = rootPkg
	for name, rp := range g.Packages {
		infos[name] = PackageInfo{
			Name:         rp.ImportPath,
			Version:      rp.Version,
			Dependencies: rp.Dependencies,
			SourceFiles:  rp.SourceFiles,
			EntryFile:    pickEntryFile(rp.SourceFiles),
			Checksum:     rp.Checksum,
			Dir:          rp.Dir,
			Kind:         importscan.ClassifyPackage(filepath.ToSlash(rp.Dir), env.ToolDir),
		}
	}

	dg := simple.NewDirectedGraph()
	nodes := make(map[string]*planNode, len(infos))
	id := int64(0)
	names := make([]string, 0, len(infos))
	for name := range infos {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		n := &planNode{id: id, name: name}
		id++
		nodes[name] = n
		dg.AddNode(n)
	}
	for _, name := range names {
		for dep := range infos[name].Dependencies {
			if target, ok := nodes[dep]; ok {
				dg.SetEdge(dg.NewEdge(nodes[name], target))
			}
		}
	}

	sorted, err := topo.Sort(dg)
	if err != nil {
		uo, ok := err.(topo.Unorderable)
		if !ok {
			return nil, err
		}
		var participants []string
		for _, component := range uo {
			for _, n := range component {
				participants = append(participants, n.(*planNode).name)
			}
		}
		sort.Strings(participants)
		return nil, &errs.Cycle{Participants: participants}
	}

	// topo.Sort orders dependents before dependencies (it follows edge
	// direction n -> dep); reverse so Order lists dependencies first, which
	// is what the scheduler and -I path construction expect.
	order := make([]PackageInfo, len(sorted))
	for i, n := range sorted {
		info := infos[n.(*planNode).name]
		if outputPath != nil {
			info.OutputPath = outputPath(info)
		}
		order[len(sorted)-1-i] = info
	}

	byName := make(map[string]PackageInfo, len(order))
	for _, p := range order {
		byName[p.Name] = p
	}
	return &Plan{Order: order, ByName: byName, StdlibRoot: stdlibRoot}, nil
}

var _ graph.Node = (*planNode)(nil)
