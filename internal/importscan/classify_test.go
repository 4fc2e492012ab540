package importscan

import "testing"

func TestClassifyMatrix(t *testing.T) {
	cases := []struct {
		path string
		want Kind
	}{
		{"stdlib/string", Stdlib},
		{"internal/x", Internal},
		{"github.com/u/r", ThirdParty},
		{"./u", Local},
		{"../c", Local},
		{"", Local},
		{"   ", Local},
		{"gitlab.com/group/project/sub", ThirdParty},
		{"nodothost/u/r", Local},
		{"a.b/x", Local}, // TLD "b" too short
	}
	for _, tc := range cases {
		if got := Classify(tc.path); got != tc.want {
			t.Errorf("Classify(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestClassifyIsTotal(t *testing.T) {
	// Classify must never panic and must always return exactly one Kind,
	// for any string (spec.md §8 invariant).
	inputs := []string{"", " ", "\t\n", "/", "..", "github.com", "x.yz/"}
	for _, in := range inputs {
		_ = Classify(in)
	}
}

func TestClassifyPackage(t *testing.T) {
	cases := []struct {
		path string
		want PackageKind
	}{
		{"/project/src/stdlib/string/str.asthra", PkgStdlib},
		{"/project/src/internal/runtime/mem.asthra", PkgInternal},
		{"/home/u/.ampu/cache/github.com/u/r/pkg.asthra", PkgThirdParty},
		{"/project/src/main.asthra", UserCode},
	}
	for _, tc := range cases {
		if got := ClassifyPackage(tc.path, ".ampu"); got != tc.want {
			t.Errorf("ClassifyPackage(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}
