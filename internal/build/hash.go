package build

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/asthra-lang/ampu/internal/cache"
)

// combinedHash folds a package's own checksum together with its already
// transitive dep-hash, so that a dependent's dep-hash entry for this
// package reflects everything beneath it, not just its direct checksum.
func combinedHash(p PackageInfo, depHash string) string {
	h := sha256.Sum256([]byte(p.Checksum + "\x00" + depHash))
	return hex.EncodeToString(h[:])
}

// TransitiveDepHash computes the dep-hash for name per spec.md §4.7: a
// deterministic hash over the sorted (dep-name, hash) pairs of name's direct
// dependencies in the plan. Each entry's hash is a combinedHash of that
// dependency's checksum and its own TransitiveDepHash, so the result covers
// the whole transitive closure and a change anywhere in the subtree changes every
// ancestor's TransitiveDepHash (spec.md §3, "a package's dep-hash depends
// on the checksums of its transitive dependencies").
func TransitiveDepHash(name string, plan *Plan) string {
	return transitiveDepHash(name, plan, make(map[string]string))
}

func transitiveDepHash(name string, plan *Plan, memo map[string]string) string {
	p, ok := plan.ByName[name]
	if !ok {
		return ""
	}
	deps := make([]string, 0, len(p.Dependencies))
	for dep := range p.Dependencies {
		if _, ok := plan.ByName[dep]; ok {
			deps = append(deps, dep)
		}
	}
	sort.Strings(deps)

	entries := make([]cache.DepEntry, 0, len(deps))
	for _, dep := range deps {
		dh, ok := memo[dep]
		if !ok {
			dh = transitiveDepHash(dep, plan, memo)
			memo[dep] = dh
		}
		entries = append(entries, cache.DepEntry{Name: dep, Hash: combinedHash(plan.ByName[dep], dh)})
	}
	return cache.DepHash(entries)
}
