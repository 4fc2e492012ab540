package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/asthra-lang/ampu/internal/version"
)

func validManifest() *Manifest {
	return &Manifest{
		Package: Package{
			Name:          "github.com/u/example",
			Version:       "1.0.0",
			AsthraVersion: "^1.0",
			Description:   "an example package",
		},
		Dependencies: map[string]string{
			"github.com/u/dep": "^1.2.0",
		},
		Build: defaultBuild(),
	}
}

func TestManifestRoundTrip(t *testing.T) {
	m := validManifest()
	path := filepath.Join(t.TempDir(), DefaultFileName)
	if err := Save(m, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(m, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateEmptyName(t *testing.T) {
	m := validManifest()
	m.Package.Name = ""
	if err := m.Validate(); err == nil {
		t.Fatal("Validate: want error for empty name")
	}
}

func TestValidateBadVersion(t *testing.T) {
	m := validManifest()
	m.Package.Version = "not-a-version"
	if err := m.Validate(); err == nil {
		t.Fatal("Validate: want error for bad version")
	}
}

func TestValidateBadDependencyRequirement(t *testing.T) {
	m := validManifest()
	m.Dependencies["github.com/u/dep"] = "not-a-requirement??"
	if err := m.Validate(); err == nil {
		t.Fatal("Validate: want error for bad dependency requirement")
	}
}

func TestValidateBadTarget(t *testing.T) {
	m := validManifest()
	m.Build.Target = "ppc64"
	if err := m.Validate(); err == nil {
		t.Fatal("Validate: want error for unknown build target")
	}
}

func TestLockfileUpToDate(t *testing.T) {
	l := &Lockfile{
		FormatVersion: LockFileFormatVersion,
		GeneratedAt:   time.Now(),
		Packages: map[string]LockedPackage{
			"github.com/u/dep": {Version: "1.2.0", Checksum: "abc"},
		},
	}
	req, ok := validManifest().Dependency("github.com/u/dep")
	if !ok {
		t.Fatal("Dependency: want ok=true")
	}
	requirements := map[string]version.Requirement{"github.com/u/dep": req}
	resolved := map[string]version.Version{"github.com/u/dep": version.MustParse("1.2.0")}

	if !l.UpToDate(requirements, resolved) {
		t.Error("UpToDate = false, want true")
	}

	// A requirement the lockfile no longer satisfies must report stale.
	requirements["github.com/u/dep"] = version.MustParseRequirement("^2.0.0")
	if l.UpToDate(requirements, resolved) {
		t.Error("UpToDate = true, want false (requirement no longer satisfied)")
	}

	// A resolved package missing from the lockfile must report stale.
	requirements["github.com/u/dep"] = req
	resolved["github.com/u/other"] = version.MustParse("1.0.0")
	if l.UpToDate(requirements, resolved) {
		t.Error("UpToDate = true, want false (added package)")
	}
}

func TestWorkspaceResolveMembersDirectPaths(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a", "b", "c"} {
		dir := filepath.Join(root, name)
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
		if name != "c" {
			if err := os.WriteFile(filepath.Join(dir, DefaultFileName), []byte("[package]\n"), 0644); err != nil {
				t.Fatal(err)
			}
		}
	}

	w := &Workspace{Members: []string{"a", "b", "c"}, Exclude: []string{"b"}}
	members, err := w.ResolveMembers(root)
	if err != nil {
		t.Fatalf("ResolveMembers: %v", err)
	}
	want := []string{filepath.Join(root, "a")}
	if diff := cmp.Diff(want, members); diff != "" {
		t.Errorf("ResolveMembers mismatch (-want +got):\n%s", diff)
	}
}

func TestWorkspaceResolveMembersGlob(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"pkg/one", "pkg/two"} {
		dir := filepath.Join(root, name)
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, DefaultFileName), []byte("[package]\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	w := &Workspace{Members: []string{"pkg/*"}}
	members, err := w.ResolveMembers(root)
	if err != nil {
		t.Fatalf("ResolveMembers: %v", err)
	}
	want := []string{filepath.Join(root, "pkg", "one"), filepath.Join(root, "pkg", "two")}
	if diff := cmp.Diff(want, members); diff != "" {
		t.Errorf("ResolveMembers mismatch (-want +got):\n%s", diff)
	}
}
