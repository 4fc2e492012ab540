package gitfetch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/asthra-lang/ampu/internal/version"
)

func TestRepoCoordinatesGitHub(t *testing.T) {
	url, repoPath, err := repoCoordinates("github.com/u/r/sub/pkg")
	if err != nil {
		t.Fatalf("repoCoordinates: %v", err)
	}
	if want := "https://github.com/u/r.git"; url != want {
		t.Errorf("cloneURL = %q, want %q", url, want)
	}
	if want := "github.com/u/r"; repoPath != want {
		t.Errorf("repoPath = %q, want %q", repoPath, want)
	}
}

func TestRepoCoordinatesCustomHost(t *testing.T) {
	_, repoPath, err := repoCoordinates("git.example.org/team/project")
	if err != nil {
		t.Fatalf("repoCoordinates: %v", err)
	}
	if want := "git.example.org/team/project"; repoPath != want {
		t.Errorf("repoPath = %q, want %q", repoPath, want)
	}
}

func TestRepoCoordinatesRejectsUndottedHost(t *testing.T) {
	if _, _, err := repoCoordinates("localhost/u/r"); err == nil {
		t.Fatal("repoCoordinates: want error for undotted host")
	}
}

func TestRepoCoordinatesRejectsShortPath(t *testing.T) {
	if _, _, err := repoCoordinates("github.com/u"); err == nil {
		t.Fatal("repoCoordinates: want error for incomplete path")
	}
}

func TestPickTagHighestSatisfying(t *testing.T) {
	req := version.MustParseRequirement("^1.0.0")
	tags := []tagRef{
		{name: "v1.0.0", version: version.MustParse("1.0.0"), hash: plumbing.NewHash("a")},
		{name: "v1.5.0", version: version.MustParse("1.5.0"), hash: plumbing.NewHash("b")},
		{name: "v2.0.0", version: version.MustParse("2.0.0"), hash: plumbing.NewHash("c")},
	}
	got, hash, ok := pickTag(tags, req)
	if !ok {
		t.Fatal("pickTag: want ok=true")
	}
	if got.String() != "1.5.0" {
		t.Errorf("pickTag version = %s, want 1.5.0", got)
	}
	if hash != plumbing.NewHash("b") {
		t.Errorf("pickTag hash = %v, want hash of v1.5.0", hash)
	}
}

func TestPickTagNoMatch(t *testing.T) {
	req := version.MustParseRequirement("^3.0.0")
	tags := []tagRef{{name: "v1.0.0", version: version.MustParse("1.0.0")}}
	if _, _, ok := pickTag(tags, req); ok {
		t.Error("pickTag: want ok=false when nothing satisfies requirement")
	}
}

func TestChecksumDeterministicAndOrderSensitiveToContent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.asthra")
	b := filepath.Join(dir, "b.asthra")
	if err := os.WriteFile(a, []byte("package a"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("package b"), 0644); err != nil {
		t.Fatal(err)
	}
	mtime := time.Now()
	os.Chtimes(a, mtime, mtime)
	os.Chtimes(b, mtime, mtime)

	first, err := Checksum([]string{a, b})
	if err != nil {
		t.Fatalf("Checksum: %v", err)
	}
	second, err := Checksum([]string{a, b})
	if err != nil {
		t.Fatalf("Checksum: %v", err)
	}
	if first != second {
		t.Error("Checksum is not deterministic for identical input")
	}

	if err := os.WriteFile(b, []byte("package b changed"), 0644); err != nil {
		t.Fatal(err)
	}
	third, err := Checksum([]string{a, b})
	if err != nil {
		t.Fatalf("Checksum: %v", err)
	}
	if first == third {
		t.Error("Checksum did not change when file content changed")
	}
}

func TestSanitizeDir(t *testing.T) {
	got := sanitizeDir("github.com/u/r")
	want := filepath.Join("github.com", "u", "r")
	if got != want {
		t.Errorf("sanitizeDir = %q, want %q", got, want)
	}
}
