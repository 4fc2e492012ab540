// Package manifest implements the typed representation of a project's
// manifest and lockfile (spec.md §3, §4.1, §6), backed by TOML
// (github.com/BurntSushi/toml), grounded on the TOML-codec usage recurring
// throughout the example pack's manifests (e.g. GoogleCloudPlatform-osconfig,
// flanksource-arch-unit, google-skia-buildbot all decode project config with
// BurntSushi/toml). The teacher's own manifest codec (pb/readbuild.go) reads
// prototext, not TOML; this package keeps its load-validate-return shape
// (see Load) but swaps the wire format, since spec.md §6 specifies a
// TOML-like manifest text.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/renameio"

	"github.com/asthra-lang/ampu/internal/errs"
	"github.com/asthra-lang/ampu/internal/version"
)

// DefaultFileName is the manifest's default on-disk name.
const DefaultFileName = "asthra.toml"

// Package holds the [package] table.
type Package struct {
	Name          string   `toml:"name"`
	Version       string   `toml:"version"`
	AsthraVersion string   `toml:"asthra_version"`
	Description   string   `toml:"description,omitempty"`
	Authors       []string `toml:"authors,omitempty"`
	License       string   `toml:"license,omitempty"`
}

// Build holds the [build] table. Zero values map to the documented
// defaults: Target "native", Optimization "standard", DebugInfo false.
type Build struct {
	Target       string `toml:"target"`
	Optimization string `toml:"optimization"`
	DebugInfo    bool   `toml:"debug_info"`
	ParallelJobs int    `toml:"parallel_jobs,omitempty"`
}

// Workspace holds the [workspace] table (spec.md §10, supplemented from
// original_source/ampu/src/config/workspace.rs).
type Workspace struct {
	Members []string `toml:"members,omitempty"`
	Exclude []string `toml:"exclude,omitempty"`
}

// ResolveMembers expands w.Members (plain paths or single-"*" glob
// patterns) against root, drops any path whose root-relative form contains
// an Exclude substring, and keeps only directories holding a manifest file.
// Ported from original_source/ampu/src/config/workspace.rs's
// resolve_glob_pattern/matches_pattern/is_valid_package, re-expressed over
// filepath.Glob instead of a hand-rolled prefix/suffix split. Results are
// deduplicated and returned in sorted order.
func (w *Workspace) ResolveMembers(root string) ([]string, error) {
	seen := make(map[string]bool)
	var members []string
	for _, pattern := range w.Members {
		dirs, err := resolveMemberPattern(root, pattern)
		if err != nil {
			return nil, err
		}
		for _, dir := range dirs {
			rel, err := filepath.Rel(root, dir)
			if err != nil {
				rel = dir
			}
			if matchesAny(rel, w.Exclude) {
				continue
			}
			if _, err := os.Stat(filepath.Join(dir, DefaultFileName)); err != nil {
				continue
			}
			if !seen[dir] {
				seen[dir] = true
				members = append(members, dir)
			}
		}
	}
	sort.Strings(members)
	return members, nil
}

func matchesAny(rel string, excludes []string) bool {
	for _, ex := range excludes {
		if ex != "" && strings.Contains(rel, ex) {
			return true
		}
	}
	return false
}

func resolveMemberPattern(root, pattern string) ([]string, error) {
	if !strings.Contains(pattern, "*") {
		dir := filepath.Join(root, pattern)
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return nil, nil
		}
		return []string{dir}, nil
	}
	matches, err := filepath.Glob(filepath.Join(root, pattern))
	if err != nil {
		return nil, &errs.IO{Op: "glob workspace members", Path: pattern, Cause: err}
	}
	var dirs []string
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.IsDir() {
			dirs = append(dirs, m)
		}
	}
	return dirs, nil
}

// Manifest is the typed, validated representation of a project's manifest
// file. Dependency requirement strings are kept raw (not pre-parsed) so
// that Save(Load(path)) round-trips byte-for-byte through TOML; use
// Dependency/AllDependencies to obtain parsed version.Requirement values.
type Manifest struct {
	Package         Package           `toml:"package"`
	Dependencies    map[string]string `toml:"dependencies,omitempty"`
	DevDependencies map[string]string `toml:"dev-dependencies,omitempty"`
	Build           Build             `toml:"build"`
	Workspace       *Workspace        `toml:"workspace,omitempty"`
}

// defaultBuild fills in the documented defaults for an unset [build] table.
func defaultBuild() Build {
	return Build{Target: "native", Optimization: "standard", DebugInfo: false}
}

// Load reads and validates the manifest at path. On the first validation
// failure, it returns a *errs.BadManifest describing it; Load never returns
// a partially validated Manifest.
func Load(path string) (*Manifest, error) {
	var m Manifest
	m.Build = defaultBuild()
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, &errs.IO{Op: "decode manifest", Path: path, Cause: err}
	}
	if m.Build.Target == "" {
		m.Build.Target = "native"
	}
	if m.Build.Optimization == "" {
		m.Build.Optimization = "standard"
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Save serialises m to path, atomically (via renameio, matching the
// teacher's use of renameio for durable writes in internal/build/build.go).
func Save(m *Manifest, path string) error {
	if err := m.Validate(); err != nil {
		return err
	}
	t, err := renameio.TempFile("", path)
	if err != nil {
		return &errs.IO{Op: "create temp manifest", Path: path, Cause: err}
	}
	defer t.Cleanup()
	if err := toml.NewEncoder(t).Encode(m); err != nil {
		return &errs.IO{Op: "encode manifest", Path: path, Cause: err}
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return &errs.IO{Op: "replace manifest", Path: path, Cause: err}
	}
	return nil
}

var validTargets = map[string]bool{"native": true, "x86_64": true, "arm64": true, "wasm32": true}
var validOptimizations = map[string]bool{"none": true, "basic": true, "standard": true, "aggressive": true}

// Validate checks the manifest per spec.md §4.1: non-empty package name;
// parseable package version; parseable asthra_version requirement; every
// dependency and dev-dependency value parses as a version requirement. It
// reports the first failure found, in that order.
func (m *Manifest) Validate() error {
	if m.Package.Name == "" {
		return &errs.BadManifest{Detail: "package.name must not be empty"}
	}
	if _, err := version.Parse(m.Package.Version); err != nil {
		return &errs.BadManifest{Detail: fmt.Sprintf("package.version: %v", err)}
	}
	if _, err := version.ParseRequirement(m.Package.AsthraVersion); err != nil {
		return &errs.BadManifest{Detail: fmt.Sprintf("package.asthra_version: %v", err)}
	}
	for path, req := range m.Dependencies {
		if _, err := version.ParseRequirement(req); err != nil {
			return &errs.BadManifest{Detail: fmt.Sprintf("dependencies[%s]: %v", path, err)}
		}
	}
	for path, req := range m.DevDependencies {
		if _, err := version.ParseRequirement(req); err != nil {
			return &errs.BadManifest{Detail: fmt.Sprintf("dev-dependencies[%s]: %v", path, err)}
		}
	}
	if m.Build.Target != "" && !validTargets[m.Build.Target] {
		return &errs.BadManifest{Detail: fmt.Sprintf("build.target: unknown target %q", m.Build.Target)}
	}
	if m.Build.Optimization != "" && !validOptimizations[m.Build.Optimization] {
		return &errs.BadManifest{Detail: fmt.Sprintf("build.optimization: unknown level %q", m.Build.Optimization)}
	}
	if m.Build.ParallelJobs < 0 {
		return &errs.BadManifest{Detail: "build.parallel_jobs must be positive"}
	}
	return nil
}

// ParsedVersion returns the package's own version.
func (m *Manifest) ParsedVersion() version.Version {
	return version.MustParse(m.Package.Version)
}

// Dependency returns the parsed version requirement for the named
// dependency. ok is false if path is not a declared dependency.
func (m *Manifest) Dependency(path string) (version.Requirement, bool) {
	raw, ok := m.Dependencies[path]
	if !ok {
		return version.Requirement{}, false
	}
	return version.MustParseRequirement(raw), true
}

// AllDependencies returns every [dependencies] entry as parsed
// requirements, keyed by import path. Validate must have succeeded.
func (m *Manifest) AllDependencies() map[string]version.Requirement {
	out := make(map[string]version.Requirement, len(m.Dependencies))
	for path, raw := range m.Dependencies {
		out[path] = version.MustParseRequirement(raw)
	}
	return out
}

// Exists reports whether a manifest file exists at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
