// Package importscan classifies import paths and scans source files for
// import statements. The classifier is a total, prefix-driven function — no
// regex, per the re-architecture note in spec.md §9 ("Ad-hoc regex
// classification... reimplement as a prioritised match on string prefixes
// and a small dotted-host recogniser"). This mirrors the prefix/host
// classification idiom already used by the teacher's upstream-version
// checker (internal/checkupstream/check.go classifies URLs by host prefix,
// not regex).
package importscan

import "strings"

// Kind is one of the four import-path kinds (spec.md §3).
type Kind int

const (
	// Local is the default/fallback kind: "./…", "../…", and anything that
	// does not classify as Stdlib, Internal, or ThirdParty.
	Local Kind = iota
	Stdlib
	Internal
	ThirdParty
)

func (k Kind) String() string {
	switch k {
	case Stdlib:
		return "Stdlib"
	case Internal:
		return "Internal"
	case ThirdParty:
		return "ThirdParty"
	case Local:
		return "Local"
	default:
		return "Unknown"
	}
}

const (
	stdlibPrefix   = "stdlib/"
	internalPrefix = "internal/"
)

// Classify is total: every string, including "" and whitespace-only
// strings, classifies into exactly one Kind. Malformed paths are rejected
// later, by a validator invoked at access-check time, not here.
func Classify(path string) Kind {
	switch {
	case strings.HasPrefix(path, stdlibPrefix):
		return Stdlib
	case strings.HasPrefix(path, internalPrefix):
		return Internal
	case isHostQualified(path):
		return ThirdParty
	default:
		return Local
	}
}

// isHostQualified reports whether path begins with "<domain>/" followed by
// at least one more character, where domain contains at least one dot and
// ends in a two-or-more-letter TLD (spec.md §4.2). The user/repo components
// after the domain are not checked here.
func isHostQualified(path string) bool {
	slash := strings.IndexByte(path, '/')
	if slash <= 0 {
		return false
	}
	host := path[:slash]
	if slash+1 >= len(path) {
		return false // nothing follows the host component
	}
	dot := strings.LastIndexByte(host, '.')
	if dot <= 0 || dot == len(host)-1 {
		return false // no dot, or dot is first/last character
	}
	tld := host[dot+1:]
	if len(tld) < 2 {
		return false
	}
	for _, r := range tld {
		if !isASCIILetter(r) {
			return false
		}
	}
	return true
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// PackageKind is the kind of the *importer*, derived from its on-disk
// location (spec.md §3, §4.2).
type PackageKind int

const (
	UserCode PackageKind = iota
	PkgStdlib
	PkgInternal
	PkgThirdParty
)

func (k PackageKind) String() string {
	switch k {
	case PkgStdlib:
		return "Stdlib"
	case PkgInternal:
		return "Internal"
	case PkgThirdParty:
		return "ThirdParty"
	default:
		return "UserCode"
	}
}

// ClassifyPackage derives the PackageKind of the file at path, per spec.md
// §4.2: "/stdlib/" → Stdlib, "/internal/" → Internal, "/<tool-dir>/cache/"
// → ThirdParty, else UserCode.
func ClassifyPackage(path, toolDir string) PackageKind {
	switch {
	case strings.Contains(path, "/stdlib/"):
		return PkgStdlib
	case strings.Contains(path, "/internal/"):
		return PkgInternal
	case strings.Contains(path, "/"+toolDir+"/cache/"):
		return PkgThirdParty
	default:
		return UserCode
	}
}
