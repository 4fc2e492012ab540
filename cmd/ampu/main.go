// Command ampu builds Asthra projects: it resolves and fetches third-party
// dependencies, enforces package-level access control, and orchestrates
// parallel, incremental compilation via the external asthrac compiler.
//
// Grounded on the teacher's cmd/distri/distri.go dispatch shape: a map of
// verb -> func(ctx, args) error, global flags parsed before the verb, and an
// interruptible context threaded through every subcommand.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/sys/unix"

	"github.com/asthra-lang/ampu/internal/access"
	"github.com/asthra-lang/ampu/internal/build"
	"github.com/asthra-lang/ampu/internal/env"
	"github.com/asthra-lang/ampu/internal/errs"
	"github.com/asthra-lang/ampu/internal/layout"
	"github.com/asthra-lang/ampu/internal/manifest"
	"github.com/asthra-lang/ampu/internal/oninterrupt"
	"github.com/asthra-lang/ampu/internal/trace"
)

var (
	debug     = flag.Bool("debug", false, "format error messages with additional detail")
	traceFile = flag.String("trace", "", "write a chrome://tracing event file recording compiler invocations")
)

// isTerminal reports whether stderr is an interactive terminal, ported from
// distri's batch.go check: a successful TCGETS ioctl means a tty is attached.
// Piped/redirected output gets plain per-package log lines instead of the
// progress summary.
var isTerminal = func() bool {
	_, err := unix.IoctlGetTermios(int(os.Stderr.Fd()), unix.TCGETS)
	return err == nil
}()

type verb struct {
	fn    func(ctx context.Context, args []string) error
	usage string
}

func funcmain() error {
	flag.Parse()

	if *traceFile != "" {
		f, err := os.Create(*traceFile)
		if err != nil {
			return err
		}
		trace.Sink(f)
	}

	verbs := map[string]verb{
		"build": {cmdBuild, "build [-profile debug|release|test] [-jobs N] [-C dir]"},
		"fetch": {cmdFetch, "fetch [-C dir]"},
		"check": {cmdCheck, "check [-C dir]"},
		"clean": {cmdClean, "clean [-profile debug|release|test] [-C dir]"},
	}

	args := flag.Args()
	name := "build"
	if len(args) > 0 {
		name, args = args[0], args[1:]
	}

	if name == "help" {
		printHelp(verbs)
		return nil
	}

	v, ok := verbs[name]
	if !ok {
		printHelp(verbs)
		return fmt.Errorf("unknown command %q", name)
	}

	ctx, cancel := oninterrupt.Context(context.Background())
	defer cancel()

	if err := v.fn(ctx, args); err != nil {
		if *debug {
			return fmt.Errorf("%s: %+v", name, err)
		}
		return fmt.Errorf("%s: %v", name, err)
	}
	return nil
}

func printHelp(verbs map[string]verb) {
	fmt.Fprintf(os.Stderr, "ampu [-flags] <command> [-flags] [args]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	for name, v := range verbs {
		fmt.Fprintf(os.Stderr, "\t%-8s %s\n", name, v.usage)
	}
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// parseProfile maps a -profile flag value to a layout.Profile.
func parseProfile(s string) (layout.Profile, error) {
	switch s {
	case "", "debug":
		return layout.Debug, nil
	case "release":
		return layout.Release, nil
	case "test":
		return layout.Test, nil
	default:
		return layout.Debug, fmt.Errorf("unknown profile %q", s)
	}
}

func cmdBuild(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	root := fs.String("C", ".", "project root directory")
	profileFlag := fs.String("profile", "debug", "build profile: debug, release, or test")
	jobs := fs.Int("jobs", 0, "parallel compiler job count (0 = auto)")
	fs.Parse(args)

	profile, err := parseProfile(*profileFlag)
	if err != nil {
		return err
	}

	logger := log.New(os.Stderr, "ampu: ", 0)

	m, err := manifest.Load(manifestPath(*root))
	if err != nil {
		return err
	}
	if m.Workspace != nil {
		results, err := build.BuildWorkspace(ctx, *root, m.Workspace, profile, *jobs, logger)
		for memberDir, result := range results {
			logBuildResult(logger, memberDir, result)
		}
		return err
	}

	c := &build.Ctx{Log: logger, Root: *root, Profile: profile, Jobs: *jobs}
	result, err := c.Build(ctx)
	if result != nil {
		logBuildResult(logger, *root, result)
	}
	return err
}

func logBuildResult(logger *log.Logger, label string, result *build.BuildResult) {
	if isTerminal {
		logger.Printf("%s: compiled %d package(s), %d up to date, in %s (compiler %s, %d cache hit(s))",
			label, len(result.Compiled), len(result.Skipped), result.Duration,
			result.CompilerVersion, result.CacheStats.Hits)
	} else {
		for _, name := range result.Compiled {
			logger.Printf("%s: compiled %s", label, name)
		}
		if len(result.Skipped) > 0 {
			logger.Printf("%s: %d package(s) up to date", label, len(result.Skipped))
		}
	}
	for _, name := range result.Compiled {
		for _, w := range result.Warnings[name] {
			logger.Printf("%s: %s: warning: %s", label, name, w)
		}
	}
	if result.EntryOutputPath != "" {
		logger.Printf("%s: entry artifact: %s", label, result.EntryOutputPath)
	}
}

func cmdFetch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	root := fs.String("C", ".", "project root directory")
	fs.Parse(args)

	m, err := manifest.Load(manifestPath(*root))
	if err != nil {
		return err
	}
	cacheRoot, err := env.UserCacheRoot()
	if err != nil {
		return err
	}

	logger := log.New(os.Stderr, "ampu: ", 0)
	logger.Printf("fetching %d dependencies into %s", len(m.Dependencies), cacheRoot)

	c := &build.Ctx{Log: logger, Root: *root, Profile: layout.Debug}
	_, err = c.Build(ctx) // resolution + lockfile write happen as part of Build's early phases
	return err
}

func cmdCheck(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	root := fs.String("C", ".", "project root directory")
	fs.Parse(args)

	if _, err := manifest.Load(manifestPath(*root)); err != nil {
		return err
	}
	violations, err := access.CheckProject(*root)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		return &errs.AccessViolations{Violations: violations}
	}
	fmt.Fprintln(os.Stderr, "ok")
	return nil
}

func cmdClean(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("clean", flag.ExitOnError)
	root := fs.String("C", ".", "project root directory")
	profileFlag := fs.String("profile", "", "build profile to clean (default: all)")
	fs.Parse(args)

	if *profileFlag == "" {
		for _, p := range []layout.Profile{layout.Debug, layout.Release, layout.Test} {
			if err := cleanProfile(*root, p); err != nil {
				return err
			}
		}
		return nil
	}
	profile, err := parseProfile(*profileFlag)
	if err != nil {
		return err
	}
	return cleanProfile(*root, profile)
}

func cleanProfile(root string, profile layout.Profile) error {
	dirs, err := layout.Compute(root, profile)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dirs.Profile); err != nil {
		return &errs.IO{Op: "remove profile output", Path: dirs.Profile, Cause: err}
	}
	return nil
}

func manifestPath(root string) string {
	return root + string(os.PathSeparator) + manifest.DefaultFileName
}
