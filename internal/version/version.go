// Package version implements the semantic-version type and version
// requirement predicates used throughout ampu: the manifest, the lockfile,
// and the dependency resolver all speak in terms of version.Version and
// version.Requirement rather than raw strings.
package version

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// Version is a semantic-version triple with optional prerelease and build
// metadata. Release versions are totally ordered; a prerelease version
// orders below the release version it precedes, matching semver.org's
// precedence rules.
type Version struct {
	v *semver.Version
}

// Parse parses s as a semantic version, e.g. "1.2.3", "1.2.3-rc.1+build5".
func Parse(s string) (Version, error) {
	v, err := semver.StrictNewVersion(s)
	if err != nil {
		return Version{}, fmt.Errorf("bad version %q: %w", s, err)
	}
	return Version{v: v}, nil
}

// MustParse is Parse, panicking on error. Reserved for literals in tests and
// built-in defaults, never for untrusted input.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.String()
}

// IsZero reports whether v is the zero Version (no version parsed).
func (v Version) IsZero() bool { return v.v == nil }

// Compare returns -1, 0, or +1 as v is less than, equal to, or greater than
// other, using the total order described in the package doc.
func (v Version) Compare(other Version) int {
	return v.v.Compare(other.v)
}

// Less reports whether v orders strictly before other.
func (v Version) Less(other Version) bool { return v.Compare(other) < 0 }

// Major, Minor, Patch expose the version's numeric components.
func (v Version) Major() uint64 { return v.v.Major() }
func (v Version) Minor() uint64 { return v.v.Minor() }
func (v Version) Patch() uint64 { return v.v.Patch() }

// Prerelease returns the prerelease component, or "" if v is a release
// version.
func (v Version) Prerelease() string { return v.v.Prerelease() }

// Sort sorts versions ascending in place.
func Sort(versions []Version) {
	sort.Slice(versions, func(i, j int) bool { return versions[i].Less(versions[j]) })
}

// Requirement is a predicate over versions: wildcard, exact, caret, tilde,
// or a comparator set, e.g. "*", "1.2.3", "^1.2", "~1.2", ">=1.0, <2.0".
type Requirement struct {
	raw string
	c   *semver.Constraints
}

// ParseRequirement parses s as a version requirement.
func ParseRequirement(s string) (Requirement, error) {
	c, err := semver.NewConstraint(s)
	if err != nil {
		return Requirement{}, fmt.Errorf("bad version requirement %q: %w", s, err)
	}
	return Requirement{raw: s, c: c}, nil
}

// MustParseRequirement is ParseRequirement, panicking on error.
func MustParseRequirement(s string) Requirement {
	r, err := ParseRequirement(s)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Requirement) String() string { return r.raw }

// Satisfied reports whether v satisfies the requirement.
func (r Requirement) Satisfied(v Version) bool {
	return r.c.Check(v.v)
}

// HighestSatisfying returns the largest version in versions that satisfies
// r, and true. If none satisfy r, it returns the zero Version and false.
// Ties are impossible: the resolver's caller guarantees a unique version per
// candidate (spec.md §4.5, "Determinism").
func (r Requirement) HighestSatisfying(versions []Version) (Version, bool) {
	best := Version{}
	found := false
	for _, v := range versions {
		if !r.Satisfied(v) {
			continue
		}
		if !found || best.Less(v) {
			best = v
			found = true
		}
	}
	return best, found
}
