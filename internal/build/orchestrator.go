package build

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/asthra-lang/ampu/internal/access"
	"github.com/asthra-lang/ampu/internal/cache"
	"github.com/asthra-lang/ampu/internal/env"
	"github.com/asthra-lang/ampu/internal/errs"
	"github.com/asthra-lang/ampu/internal/gitfetch"
	"github.com/asthra-lang/ampu/internal/layout"
	"github.com/asthra-lang/ampu/internal/manifest"
	"github.com/asthra-lang/ampu/internal/resolve"
	"github.com/asthra-lang/ampu/internal/version"
)

// DefaultMaxArtifactAge bounds how long an unused cached artifact survives
// a cleanup sweep (spec.md §4.7's evict takes a caller-supplied max-age;
// this is ampu's default policy).
const DefaultMaxArtifactAge = 30 * 24 * time.Hour

// Ctx is a build context: configuration threaded through every phase,
// mirroring distri's internal/batch.Ctx (Log *log.Logger plus
// configuration fields, with a Build method driving the pipeline).
type Ctx struct {
	Log     *log.Logger
	Root    string
	Profile layout.Profile
	Jobs    int

	// Fetcher and Cache, if set, are shared across a workspace build
	// (BuildWorkspace) so every member resolves dependencies through one
	// on-disk fetch cache and one library cache keyed by package name,
	// instead of each member building its own (spec.md §10.1). Nil means
	// "construct private ones for this project" — the single-project path.
	Fetcher *gitfetch.Fetcher
	Cache   *cache.Cache
}

// Build runs the full build_project pipeline (spec.md §4.8).
func (c *Ctx) Build(ctx context.Context) (*BuildResult, error) {
	manifestPath := filepath.Join(c.Root, manifest.DefaultFileName)
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, errs.Wrap("load manifest", err)
	}

	if violations, err := access.CheckProject(c.Root); err != nil {
		return nil, errs.Wrap("access check", err)
	} else if len(violations) > 0 {
		return nil, &errs.AccessViolations{Violations: violations}
	}

	fetcher := c.Fetcher
	if fetcher == nil {
		cacheRoot, err := env.UserCacheRoot()
		if err != nil {
			return nil, err
		}
		fetcher = gitfetch.NewFetcher(cacheRoot)
	}
	graph, err := resolve.Resolve(ctx, m.AllDependencies(), fetcher)
	if err != nil {
		return nil, errs.Wrap("resolve dependencies", err)
	}

	if violations, err := access.CheckProject(c.Root); err != nil {
		return nil, errs.Wrap("access check", err)
	} else if len(violations) > 0 {
		return nil, &errs.AccessViolations{Violations: violations}
	}

	if err := writeLockfile(c.Root, graph); err != nil {
		c.logf("write lockfile: %v", err)
	}

	rootPkg, err := BuildPackageInfo(RootInput{
		Name:         m.Package.Name,
		Version:      m.ParsedVersion(),
		Dir:          c.Root,
		Dependencies: m.AllDependencies(),
	})
	if err != nil {
		return nil, errs.Wrap("plan root package", err)
	}

	dirs, err := layout.Compute(c.Root, c.Profile)
	if err != nil {
		return nil, err
	}
	if err := dirs.EnsureExists(); err != nil {
		return nil, err
	}

	stdlibRoot, err := env.StdlibRoot()
	if err != nil {
		return nil, err
	}

	outputPath := func(p PackageInfo) string {
		return layout.LibraryPath(dirs, p.Name, layout.Static, layout.HostOS())
	}
	plan, err := BuildPlan(rootPkg, graph, stdlibRoot, outputPath)
	if err != nil {
		return nil, err
	}

	cch := c.Cache
	if cch == nil {
		cch = cache.New(dirs.Cache)
		if err := cch.Load(); err != nil {
			return nil, err
		}
	}

	rebuild := make(map[string]bool, len(plan.Order))
	for _, p := range plan.Order {
		depHash := TransitiveDepHash(p.Name, plan)
		if !cch.IsUpToDate(p.Name, p.Checksum, depHash) {
			rebuild[p.Name] = true
		}
	}

	compilerPath := env.CompilerPath()
	compilerVersion, err := CheckCompilerVersion(ctx, compilerPath)
	if err != nil {
		return nil, errs.Wrap("check compiler version", err)
	}
	checkAsthraVersionCompat(m, compilerVersion, c.logf)

	jobs := c.Jobs
	if jobs <= 0 {
		jobs = m.Build.ParallelJobs
	}
	sched := &Scheduler{
		Jobs: env.JobCount(jobs),
		Cfg: Config{
			CompilerPath: compilerPath,
			Target:       m.Build.Target,
			Optimization: m.Build.Optimization,
			DebugInfo:    m.Build.DebugInfo,
			StdlibRoot:   stdlibRoot,
		},
		Cache: cch,
		Log:   c.Log,
	}
	result, buildErr := sched.Run(ctx, plan, rebuild)
	result.CompilerVersion = compilerVersion
	result.CacheStats = cch.Stats
	if entry, ok := plan.ByName[rootPkg.Name]; ok {
		result.EntryOutputPath = entry.OutputPath
	}

	if err := cch.CleanupIfDue(cache.DefaultCleanupInterval, DefaultMaxArtifactAge); err != nil {
		c.logf("cache cleanup: %v", err)
	}

	return result, buildErr
}

// checkAsthraVersionCompat compares the compiler's reported version against
// the manifest's optional package.asthra_version requirement, logging a
// warning on mismatch rather than failing the build (spec.md §10.2,
// supplemented from original_source/ampu/src/compiler/asthra_compiler.rs,
// which treats this as advisory). A version string the compiler reports
// that ampu's parser cannot make sense of is skipped silently, since the
// check is best-effort only.
func checkAsthraVersionCompat(m *manifest.Manifest, compilerVersion string, logf func(string, ...interface{})) {
	if m.Package.AsthraVersion == "" {
		return
	}
	req, err := version.ParseRequirement(m.Package.AsthraVersion)
	if err != nil {
		return
	}
	v, err := version.Parse(extractVersionToken(compilerVersion))
	if err != nil {
		return
	}
	if !req.Satisfied(v) {
		logf("warning: compiler version %s does not satisfy package.asthra_version %s", v, m.Package.AsthraVersion)
	}
}

// extractVersionToken returns the last whitespace-separated token of a
// "<compiler> --version" line (e.g. "asthrac 1.4.2" -> "1.4.2"), since the
// external compiler's exact version-string format isn't standardized.
func extractVersionToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func (c *Ctx) logf(format string, args ...interface{}) {
	if c.Log != nil {
		c.Log.Printf(format, args...)
	}
}

// writeLockfile persists graph as the project's lockfile (spec.md §6).
func writeLockfile(root string, g *resolve.Graph) error {
	packages := make(map[string]manifest.LockedPackage, len(g.Packages))
	for name, p := range g.Packages {
		deps := make(map[string]string, len(p.Dependencies))
		for dep, req := range p.Dependencies {
			deps[dep] = req.String()
		}
		packages[name] = manifest.LockedPackage{
			Version:      p.Version.String(),
			Checksum:     p.Checksum,
			Dependencies: deps,
		}
	}
	l := &manifest.Lockfile{
		FormatVersion: manifest.LockFileFormatVersion,
		GeneratedAt:   time.Now(),
		Packages:      packages,
	}
	return manifest.SaveLockfile(l, filepath.Join(root, manifest.DefaultLockFileName))
}

// SourceFiles exposes a plan package's source file list to external tools
// (spec.md §10, supplemented feature: fmt/check are declared external
// collaborators that need this list without depending on the rest of the
// orchestrator).
func SourceFiles(p PackageInfo) []string { return p.SourceFiles }

// BuildWorkspace builds every member of a workspace manifest rooted at
// root, sharing a single package fetch cache and a single library cache
// (keyed by package name) across members instead of letting each member
// build its own (spec.md §10.1, supplemented from
// original_source/ampu/src/config/workspace.rs). Returns one BuildResult
// per member directory; a member's failure aborts remaining members and is
// reported wrapped with the member's directory.
func BuildWorkspace(ctx context.Context, root string, ws *manifest.Workspace, profile layout.Profile, jobs int, logger *log.Logger) (map[string]*BuildResult, error) {
	members, err := ws.ResolveMembers(root)
	if err != nil {
		return nil, errs.Wrap("resolve workspace members", err)
	}
	if len(members) == 0 {
		return nil, &errs.BadManifest{Detail: "workspace has no valid members"}
	}

	cacheRoot, err := env.UserCacheRoot()
	if err != nil {
		return nil, err
	}
	fetcher := gitfetch.NewFetcher(cacheRoot)

	dirs, err := layout.Compute(root, profile)
	if err != nil {
		return nil, err
	}
	if err := dirs.EnsureExists(); err != nil {
		return nil, err
	}
	sharedCache := cache.New(dirs.Cache)
	if err := sharedCache.Load(); err != nil {
		return nil, err
	}

	results := make(map[string]*BuildResult, len(members))
	for _, memberDir := range members {
		member := &Ctx{
			Log:     logger,
			Root:    memberDir,
			Profile: profile,
			Jobs:    jobs,
			Fetcher: fetcher,
			Cache:   sharedCache,
		}
		result, err := member.Build(ctx)
		if err != nil {
			return results, errs.Wrap(fmt.Sprintf("workspace member %s", memberDir), err)
		}
		results[memberDir] = result
	}
	return results, nil
}
