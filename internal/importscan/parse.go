package importscan

import (
	"bufio"
	"strings"

	"github.com/asthra-lang/ampu/internal/errs"
)

// Import is one import statement found in a source file, classified and
// located by line number (1-indexed).
type Import struct {
	Path string
	Kind Kind
	Line int
}

const importKeyword = "import \""

// ParseImports scans contents for occurrences of the simple double-quoted
// form `import "<path>"`, including several on one line, and classifies each
// captured path (spec.md §4.2). It never fails: malformed paths are
// classified (as Local, by the total Classify) and surfaced separately by
// Validate.
func ParseImports(contents string) []Import {
	var imports []Import
	sc := bufio.NewScanner(strings.NewReader(contents))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		for {
			idx := strings.Index(line, importKeyword)
			if idx == -1 {
				break
			}
			rest := line[idx+len(importKeyword):]
			end := strings.IndexByte(rest, '"')
			if end == -1 {
				break
			}
			path := rest[:end]
			imports = append(imports, Import{
				Path: path,
				Kind: Classify(path),
				Line: lineNo,
			})
			line = rest[end+1:]
		}
	}
	return imports
}

// Validate rejects import paths the classifier accepts only because it is
// total: the empty string and whitespace-only strings. It is invoked at
// access-check time (spec.md §4.2, §8 "Boundary behaviours"), never by
// Classify itself.
func Validate(path string) error {
	if strings.TrimSpace(path) == "" {
		return &errs.BadImportPath{Path: path, Detail: "import path is empty or whitespace-only"}
	}
	return nil
}
