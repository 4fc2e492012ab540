package version

import "testing"

func TestCompareTotalOrder(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "1.0.1", -1},
		{"1.2.0", "1.1.9", 1},
		{"1.0.0-rc.1", "1.0.0", -1}, // prerelease orders below release
		{"1.0.0-rc.1", "1.0.0-rc.2", -1},
	}
	for _, tc := range cases {
		a, err := Parse(tc.a)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.a, err)
		}
		b, err := Parse(tc.b)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.b, err)
		}
		if got := a.Compare(b); got != tc.want {
			t.Errorf("Compare(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestRequirementSatisfied(t *testing.T) {
	cases := []struct {
		req  string
		ver  string
		want bool
	}{
		{"*", "0.0.1", true},
		{"1.2.3", "1.2.3", true},
		{"1.2.3", "1.2.4", false},
		{"^1.2.0", "1.9.9", true},
		{"^1.2.0", "2.0.0", false},
		{"~1.2.0", "1.2.9", true},
		{"~1.2.0", "1.3.0", false},
		{">=1.0.0, <2.0.0", "1.9.9", true},
		{">=1.0.0, <2.0.0", "2.0.0", false},
	}
	for _, tc := range cases {
		r, err := ParseRequirement(tc.req)
		if err != nil {
			t.Fatalf("ParseRequirement(%q): %v", tc.req, err)
		}
		v, err := Parse(tc.ver)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.ver, err)
		}
		if got := r.Satisfied(v); got != tc.want {
			t.Errorf("%q.Satisfied(%q) = %v, want %v", tc.req, tc.ver, got, tc.want)
		}
	}
}

func TestHighestSatisfying(t *testing.T) {
	r := MustParseRequirement("^1.0.0")
	versions := []Version{
		MustParse("1.0.0"),
		MustParse("1.4.2"),
		MustParse("2.0.0"), // excluded by caret
		MustParse("1.3.9"),
	}
	got, ok := r.HighestSatisfying(versions)
	if !ok {
		t.Fatal("HighestSatisfying: no match found")
	}
	if got.String() != "1.4.2" {
		t.Errorf("HighestSatisfying = %v, want 1.4.2", got)
	}
}

func TestHighestSatisfyingNoMatch(t *testing.T) {
	r := MustParseRequirement("^2.0.0")
	_, ok := r.HighestSatisfying([]Version{MustParse("1.0.0")})
	if ok {
		t.Fatal("HighestSatisfying: expected no match")
	}
}
