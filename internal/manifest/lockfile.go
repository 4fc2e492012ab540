package manifest

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/renameio"

	"github.com/asthra-lang/ampu/internal/errs"
	"github.com/asthra-lang/ampu/internal/version"
)

// DefaultLockFileName is the lockfile's default on-disk name.
const DefaultLockFileName = "asthra.lock"

// LockFileFormatVersion is the current lockfile format version (spec.md
// §3, "format version field for forward compatibility").
const LockFileFormatVersion = "1"

// LockedPackage is one [packages.<import-path>] entry.
type LockedPackage struct {
	Version      string            `toml:"version"`
	Checksum     string            `toml:"checksum"`
	Dependencies map[string]string `toml:"dependencies,omitempty"`
}

// Lockfile is a serialised resolved graph plus per-package checksums and a
// generation timestamp (spec.md §3, §6).
type Lockfile struct {
	FormatVersion string                    `toml:"version"`
	GeneratedAt   time.Time                 `toml:"generated_at"`
	Packages      map[string]LockedPackage  `toml:"packages"`
}

// LoadLockfile reads a lockfile from path. A missing file is returned as an
// *errs.IO like any other read failure; callers distinguish "no lockfile
// yet" by checking os.IsNotExist on the wrapped cause.
func LoadLockfile(path string) (*Lockfile, error) {
	var l Lockfile
	if _, err := toml.DecodeFile(path, &l); err != nil {
		return nil, &errs.IO{Op: "decode lockfile", Path: path, Cause: err}
	}
	return &l, nil
}

// SaveLockfile writes l to path atomically.
func SaveLockfile(l *Lockfile, path string) error {
	t, err := renameio.TempFile("", path)
	if err != nil {
		return &errs.IO{Op: "create temp lockfile", Path: path, Cause: err}
	}
	defer t.Cleanup()
	if err := toml.NewEncoder(t).Encode(l); err != nil {
		return &errs.IO{Op: "encode lockfile", Path: path, Cause: err}
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return &errs.IO{Op: "replace lockfile", Path: path, Cause: err}
	}
	return nil
}

// UpToDate reports whether l agrees with the manifest's current
// requirements and a freshly resolved set of package versions (spec.md §3,
// "Lockfile on disk agrees with manifest iff the resolver would produce the
// same graph"): every requirement must still be satisfied by the locked
// version, and the set of locked packages must exactly match the set of
// resolved import paths — no additions, no removals.
func (l *Lockfile) UpToDate(requirements map[string]version.Requirement, resolved map[string]version.Version) bool {
	if len(l.Packages) != len(resolved) {
		return false
	}
	for path, v := range resolved {
		locked, ok := l.Packages[path]
		if !ok {
			return false
		}
		lockedVersion, err := version.Parse(locked.Version)
		if err != nil || lockedVersion.Compare(v) != 0 {
			return false
		}
	}
	for path, req := range requirements {
		locked, ok := l.Packages[path]
		if !ok {
			return false
		}
		lockedVersion, err := version.Parse(locked.Version)
		if err != nil || !req.Satisfied(lockedVersion) {
			return false
		}
	}
	return true
}

// FormatSelf returns a human-readable one-line summary of the lockfile.
func (l *Lockfile) FormatSelf() string {
	return fmt.Sprintf("lockfile v%s, %d package(s), generated %s",
		l.FormatVersion, len(l.Packages), l.GeneratedAt.Format(time.RFC3339))
}
