// Package layout implements the pure, on-disk artifact layout functions of
// spec.md §4.6: mapping (profile, target, artifact-name, artifact-kind) to
// filesystem paths, and bootstrapping the directory tree. Grounded on
// distri's own target-tree conventions (distri lays build output out as
// build/distri/pkg/<name>-<arch>-<version>, a flat profile-keyed tree built
// from pure path-joining helpers — TrimArchiveSuffix, digest-derived
// filenames — rather than a templating system).
package layout

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/asthra-lang/ampu/internal/env"
	"github.com/asthra-lang/ampu/internal/errs"
)

// Profile is one of the three named build configurations (spec.md §3).
type Profile int

const (
	Debug Profile = iota
	Release
	Test
)

func (p Profile) String() string {
	switch p {
	case Debug:
		return "debug"
	case Release:
		return "release"
	case Test:
		return "test"
	default:
		return "unknown"
	}
}

// ArtifactKind is one of the three library artifact kinds (spec.md §3).
type ArtifactKind int

const (
	Static ArtifactKind = iota
	Dynamic
	Object
)

// Directories holds the absolute paths derived from (project-root, profile)
// (spec.md §3 "Build directories").
type Directories struct {
	Root          string
	Target        string
	Profile       string
	Deps          string
	Build         string
	DepsExternal  string
	Cache         string
	UserCacheRoot string
}

// Compute derives Directories for root and profile. A missing HOME/APPDATA
// is a fatal *errs.MissingEnv, not a fallback (spec.md §4.6).
func Compute(root string, profile Profile) (Directories, error) {
	userCache, err := env.UserCacheRoot()
	if err != nil {
		return Directories{}, err
	}
	target := filepath.Join(root, "target")
	profileDir := filepath.Join(target, profile.String())
	return Directories{
		Root:          root,
		Target:        target,
		Profile:       profileDir,
		Deps:          filepath.Join(profileDir, "deps"),
		Build:         filepath.Join(profileDir, "build"),
		DepsExternal:  filepath.Join(profileDir, "deps", "external"),
		Cache:         filepath.Join(target, "cache"),
		UserCacheRoot: userCache,
	}, nil
}

// EnsureExists creates every directory in d, idempotently.
func (d Directories) EnsureExists() error {
	for _, dir := range []string{d.Target, d.Profile, d.Deps, d.Build, d.DepsExternal, d.Cache, d.UserCacheRoot} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &errs.IO{Op: "mkdir", Path: dir, Cause: err}
		}
	}
	return nil
}

// sanitize replaces '/' and '-' with '_', per spec.md §4.6's naming rule.
func sanitize(name string) string {
	r := strings.NewReplacer("/", "_", "-", "_")
	return r.Replace(name)
}

// LibraryFilename derives the artifact's filename from (name, kind,
// hostOS), per spec.md §4.6.
func LibraryFilename(name string, kind ArtifactKind, hostOS string) string {
	n := sanitize(name)
	switch kind {
	case Static:
		if hostOS == "windows" {
			return n + ".lib"
		}
		return "lib" + n + ".a"
	case Dynamic:
		switch hostOS {
		case "windows":
			return n + ".dll"
		case "darwin":
			return "lib" + n + ".dylib"
		default: // linux and other Unix-like
			return "lib" + n + ".so"
		}
	case Object:
		if hostOS == "windows" {
			return n + ".obj"
		}
		return n + ".o"
	default:
		return n
	}
}

// HostOS returns the current host OS, for convenience callers that don't
// need to cross-compile the artifact filename.
func HostOS() string { return runtime.GOOS }

// LibraryPath routes external_* names under deps/external, other
// static/dynamic artifacts under deps, and objects under build/<name>/
// (spec.md §4.6).
func LibraryPath(d Directories, name string, kind ArtifactKind, hostOS string) string {
	filename := LibraryFilename(name, kind, hostOS)
	switch kind {
	case Object:
		return filepath.Join(d.Build, sanitize(name), filename)
	default:
		if strings.HasPrefix(name, "external_") {
			return filepath.Join(d.DepsExternal, filename)
		}
		return filepath.Join(d.Deps, filename)
	}
}
