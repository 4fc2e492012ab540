// Package env resolves the build tool's environment-driven configuration:
// the user-global package cache root and the compiler/job-count overrides
// (spec.md §4.6, §6). Adapted from distri's internal/env/env.go, which
// resolves $DISTRIROOT with a silent $HOME fallback; ampu deliberately drops
// that fallback for the cache root, because spec.md §4.6 is explicit that a
// missing HOME/APPDATA is fatal, not a fallback case.
package env

import (
	"os"
	"runtime"
	"strconv"

	"github.com/asthra-lang/ampu/internal/errs"
)

// ToolDir is the name of ampu's cache directory under the user's home,
// e.g. $HOME/.asthra (spec.md §4.6 fixes this literal name).
const ToolDir = ".asthra"

// UserCacheRoot returns the user-global package cache root: $APPDATA/asthra
// on Windows, $HOME/.asthra on Unix. A missing required variable is a fatal
// MissingEnv error, never a fallback (spec.md §4.6).
func UserCacheRoot() (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", &errs.MissingEnv{Var: "APPDATA"}
		}
		return appData + string(os.PathSeparator) + "asthra", nil
	}
	home := os.Getenv("HOME")
	if home == "" {
		return "", &errs.MissingEnv{Var: "HOME"}
	}
	return home + string(os.PathSeparator) + ToolDir, nil
}

// CompilerPath returns the compiler binary to invoke, defaulting to
// "asthrac" looked up on $PATH, overridable via AMPU_COMPILER.
func CompilerPath() string {
	if p := os.Getenv("AMPU_COMPILER"); p != "" {
		return p
	}
	return "asthrac"
}

// JobCount returns the configured parallel job count: the AMPU_JOBS
// environment variable if set and a positive integer, else fallback if
// positive, else runtime.NumCPU().
func JobCount(fallback int) int {
	if s := os.Getenv("AMPU_JOBS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	if fallback > 0 {
		return fallback
	}
	return runtime.NumCPU()
}

// StdlibRoot returns the directory holding the target language's standard
// library sources, always passed to the compiler as the first -I search
// path (spec.md §4.8, "Import-search paths"). Overridable via
// AMPU_STDLIB_ROOT; otherwise a "stdlib" directory under the user-global
// cache root.
func StdlibRoot() (string, error) {
	if p := os.Getenv("AMPU_STDLIB_ROOT"); p != "" {
		return p, nil
	}
	root, err := UserCacheRoot()
	if err != nil {
		return "", err
	}
	return root + string(os.PathSeparator) + "stdlib", nil
}
