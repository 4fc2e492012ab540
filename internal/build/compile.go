package build

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/asthra-lang/ampu/internal/errs"
	"github.com/asthra-lang/ampu/internal/importscan"
)

// CompilerTimeout is the default per-package wall-clock budget (spec.md §5).
const CompilerTimeout = 300 * time.Second

// VersionCheckTimeout bounds the compiler's --version subcommand (spec.md
// §5).
const VersionCheckTimeout = 10 * time.Second

// Config configures one compiler invocation; it is derived from the
// project's manifest [build] table and the active profile.
type Config struct {
	CompilerPath string
	Target       string // "native", "x86_64", "arm64", "wasm32"
	Optimization string // "none", "basic", "standard", "aggressive"
	DebugInfo    bool
	StdlibRoot   string
}

func optimizationFlag(level string) string {
	switch level {
	case "none":
		return "-O0"
	case "basic":
		return "-O1"
	case "aggressive":
		return "-O3"
	default: // "standard" and unset
		return "-O2"
	}
}

// importSearchPaths computes -I search paths for p (spec.md §4.8,
// "Import-search paths for p"): the stdlib root always first, then for each
// dependency either its cache directory (ThirdParty), its source directory
// (Local), or nothing (Stdlib, already covered); finally the directory of
// p's first source file. An Internal dependency on a non-Stdlib/Internal
// importer is rejected here as a belt-and-braces access violation, even
// though the access-control enforcer (internal/access) should already have
// caught it earlier in the pipeline.
func importSearchPaths(p PackageInfo, plan *Plan) ([]string, error) {
	paths := []string{plan.StdlibRoot}

	deps := make([]string, 0, len(p.Dependencies))
	for dep := range p.Dependencies {
		deps = append(deps, dep)
	}
	sort.Strings(deps)

	for _, dep := range deps {
		kind := importscan.Classify(dep)
		if kind == importscan.Internal && p.Kind != importscan.PkgStdlib && p.Kind != importscan.PkgInternal {
			return nil, &errs.AccessViolation{
				File: p.EntryFile,
				Edge: errs.AccessEdge{ImporterKind: p.Kind.String(), ImportKind: kind.String()},
			}
		}
		depInfo, ok := plan.ByName[dep]
		if !ok {
			continue
		}
		switch kind {
		case importscan.ThirdParty, importscan.Local, importscan.Internal:
			paths = append(paths, depInfo.Dir)
		case importscan.Stdlib:
			// covered by plan.StdlibRoot
		}
	}

	if len(p.SourceFiles) > 0 {
		paths = append(paths, filepath.Dir(p.SourceFiles[0]))
	}
	return paths, nil
}

// CommandArgs builds the compiler's argument list for p (not including
// argv[0]), per spec.md §4.8's "Compiler invocation contract".
func CommandArgs(p PackageInfo, plan *Plan, cfg Config) ([]string, error) {
	searchPaths, err := importSearchPaths(p, plan)
	if err != nil {
		return nil, err
	}

	args := append([]string{}, p.SourceFiles...)
	args = append(args, "-o", p.OutputPath)
	for _, dir := range searchPaths {
		args = append(args, "-I", dir)
	}
	if cfg.Target != "" && cfg.Target != "native" {
		args = append(args, "--target", cfg.Target)
	}
	args = append(args, optimizationFlag(cfg.Optimization))
	if cfg.DebugInfo {
		args = append(args, "--debug")
	}
	// Every compiled package produces a static library artifact; linking
	// (spec.md §4.8 step 8, §9) is a stub that merely selects the entry
	// package's output, so Dynamic/Object are never requested here.
	args = append(args, "--library-type=static")
	if strings.HasPrefix(p.Name, "stdlib/") {
		args = append(args, "--stdlib-mode")
	}
	return args, nil
}

// Invoke runs the compiler for p under CompilerTimeout, returning the
// warnings found on stderr (lines containing "warning:") on success, or a
// *errs.CompilationFailed / *errs.CompilerTimeout on failure (spec.md §4.8,
// "Exit handling").
func Invoke(ctx context.Context, p PackageInfo, plan *Plan, cfg Config) ([]string, error) {
	args, err := CommandArgs(p, plan, cfg)
	if err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, CompilerTimeout)
	defer cancel()

	cmd := exec.CommandContext(timeoutCtx, cfg.CompilerPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if timeoutCtx.Err() == context.DeadlineExceeded {
		return nil, &errs.CompilerTimeout{Package: p.Name}
	}
	if runErr != nil {
		exitCode := -1
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return nil, &errs.CompilationFailed{
			Package:  p.Name,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			ExitCode: exitCode,
		}
	}
	return warningsOf(stderr.String()), nil
}

func warningsOf(stderr string) []string {
	var warnings []string
	scanner := bufio.NewScanner(strings.NewReader(stderr))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, "warning:") {
			warnings = append(warnings, line)
		}
	}
	return warnings
}

// CheckCompilerVersion runs "<compiler> --version" under
// VersionCheckTimeout, returning its trimmed stdout (spec.md §10,
// supplemented feature: advisory compiler-version check).
func CheckCompilerVersion(ctx context.Context, compilerPath string) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, VersionCheckTimeout)
	defer cancel()
	out, err := exec.CommandContext(timeoutCtx, compilerPath, "--version").Output()
	if err != nil {
		if timeoutCtx.Err() == context.DeadlineExceeded {
			return "", &errs.CompilerTimeout{Package: "<version-check>"}
		}
		return "", &errs.IO{Op: "check compiler version", Path: compilerPath, Cause: err}
	}
	return strings.TrimSpace(string(out)), nil
}
