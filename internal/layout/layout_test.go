package layout

import (
	"path/filepath"
	"testing"
)

func TestLibraryFilenameSanitisation(t *testing.T) {
	if got, want := LibraryFilename("a/b-c", Static, "linux"), "liba_b_c.a"; got != want {
		t.Errorf("LibraryFilename = %q, want %q", got, want)
	}
}

func TestLibraryFilenamePlatformVaried(t *testing.T) {
	cases := []struct {
		name, os string
		kind     ArtifactKind
		want     string
	}{
		{"github.com/u/r", "linux", Static, "libgithub_com_u_r.a"},
		{"github.com/u/r", "windows", Static, "github_com_u_r.lib"},
		{"github.com/u/r", "darwin", Dynamic, "libgithub_com_u_r.dylib"},
		{"github.com/u/r", "linux", Dynamic, "libgithub_com_u_r.so"},
		{"github.com/u/r", "windows", Dynamic, "github_com_u_r.dll"},
		{"github.com/u/r", "linux", Object, "github_com_u_r.o"},
		{"github.com/u/r", "windows", Object, "github_com_u_r.obj"},
	}
	for _, tc := range cases {
		if got := LibraryFilename(tc.name, tc.kind, tc.os); got != tc.want {
			t.Errorf("LibraryFilename(%q, %v, %q) = %q, want %q", tc.name, tc.kind, tc.os, got, tc.want)
		}
	}
}

func TestLibraryPathRouting(t *testing.T) {
	d := Directories{Deps: "/r/target/debug/deps", DepsExternal: "/r/target/debug/deps/external", Build: "/r/target/debug/build"}
	if got, want := LibraryPath(d, "external_zlib", Static, "linux"), "/r/target/debug/deps/external/libexternal_zlib.a"; got != want {
		t.Errorf("LibraryPath(external) = %q, want %q", got, want)
	}
	if got, want := LibraryPath(d, "mylib", Static, "linux"), "/r/target/debug/deps/libmylib.a"; got != want {
		t.Errorf("LibraryPath(regular) = %q, want %q", got, want)
	}
	if got, want := LibraryPath(d, "mylib", Object, "linux"), "/r/target/debug/build/mylib/mylib.o"; got != want {
		t.Errorf("LibraryPath(object) = %q, want %q", got, want)
	}
}

func TestComputeLayout(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	root := "/some/project"
	d, err := Compute(root, Release)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if want := filepath.Join(root, "target"); d.Target != want {
		t.Errorf("Target = %q, want %q", d.Target, want)
	}
	if want := filepath.Join(root, "target", "release"); d.Profile != want {
		t.Errorf("Profile = %q, want %q", d.Profile, want)
	}
	if want := filepath.Join(home, ".asthra"); d.UserCacheRoot != want {
		t.Errorf("UserCacheRoot = %q, want %q", d.UserCacheRoot, want)
	}
}

func TestComputeMissingEnvFatal(t *testing.T) {
	t.Setenv("HOME", "")
	if _, err := Compute("/some/project", Debug); err == nil {
		t.Fatal("Compute: want error when HOME unset")
	}
}
