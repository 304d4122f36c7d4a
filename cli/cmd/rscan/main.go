package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"rscan/cli/internal/comment"
	"rscan/cli/internal/config"
	"rscan/cli/internal/diff"
	"rscan/cli/internal/erruser"
	"rscan/cli/internal/git"
	"rscan/cli/internal/patch"
	"rscan/cli/internal/trace"
	"rscan/cli/internal/version"
)

// errExit is an error that carries an exit code for the CLI. Use errors.As to detect it.
type errExit int

func (e errExit) Error() string {
	return "exit " + strconv.Itoa(int(e))
}

func main() {
	os.Exit(Run())
}

// Run is the entry point for the CLI.
func Run() int {
	return runCLI(os.Args[1:])
}

func runCLI(args []string) int {
	return execute(args, os.Stdin, os.Stdout, os.Stderr)
}

// execute runs the command tree with the given streams and returns the
// process exit code.
func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	if err := rootCmd.Execute(); err != nil {
		var exitErr errExit
		if errors.As(err, &exitErr) {
			return int(exitErr)
		}
		fmt.Fprintln(stderr, err)
		if u := errors.Unwrap(err); u != nil {
			fmt.Fprintf(stderr, "Details: %v\n", u)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "rscan",
		Short:   "Rebuild logical statements from diffs and scan them for bug patterns",
		Version: version.String(),
	}
	pf := rootCmd.PersistentFlags()
	pf.StringP("dir", "C", "", "Run as if started in this directory")
	pf.StringP("output", "o", "", "Output format: human, json or yaml (overrides config and env)")
	pf.String("view", "", "Entries to report: current, additions or all (overrides config and env)")
	pf.String("log-level", "", "Log level: trace, debug, info, warn, error or disabled")
	pf.Bool("trace", false, "Print parser steps (seals, forks, comment recovery) to stderr")
	pf.Int("cache-size", 0, "Literal-range cache entries (0 = use config)")
	pf.Duration("timeout", 0, "Time limit for git commands (0 = use config)")
	pf.StringSlice("exclude", nil, "Exclude patterns for diff input (replaces config)")
	pf.StringSlice("ext", nil, "File extensions to keep from diff input (replaces config)")
	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newDiffCmd())
	rootCmd.AddCommand(newLocateCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	return rootCmd
}

// overridesFromFlags returns Overrides for the persistent flags that were
// set on the command line, or nil when none were.
func overridesFromFlags(cmd *cobra.Command) *config.Overrides {
	flags := cmd.Flags()
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}
	var o config.Overrides
	set := false
	if changed("output") {
		v, _ := flags.GetString("output")
		o.Output, set = &v, true
	}
	if changed("view") {
		v, _ := flags.GetString("view")
		o.View, set = &v, true
	}
	if changed("log-level") {
		v, _ := flags.GetString("log-level")
		o.LogLevel, set = &v, true
	}
	if changed("trace") {
		v, _ := flags.GetBool("trace")
		o.Trace, set = &v, true
	}
	if changed("cache-size") {
		v, _ := flags.GetInt("cache-size")
		o.CacheSize, set = &v, true
	}
	if changed("timeout") {
		v, _ := flags.GetDuration("timeout")
		o.Timeout, set = &v, true
	}
	if changed("exclude") {
		v, _ := flags.GetStringSlice("exclude")
		o.ExcludePatterns, set = &v, true
	}
	if changed("ext") {
		v, _ := flags.GetStringSlice("ext")
		o.Extensions, set = &v, true
	}
	if !set {
		return nil
	}
	return &o
}

// env is the state shared by one invocation of a subcommand.
type env struct {
	cfg      *config.Config
	repoRoot string
	view     patch.View
	log      zerolog.Logger
	tracer   *trace.Tracer
	scanner  *comment.Scanner
	out      io.Writer
}

// setup resolves the working directory and repository, loads the layered
// configuration and builds the logger. Without needRepo a directory
// outside any repository is accepted and repoRoot stays empty.
func setup(cmd *cobra.Command, needRepo bool) (*env, error) {
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, erruser.New("Could not determine current directory.", err)
		}
		dir = cwd
	}
	repoRoot, err := git.RepoRoot(dir)
	if err != nil {
		if needRepo {
			return nil, err
		}
		repoRoot = ""
	}
	cfg, err := config.Load(cmd.Context(), config.LoadOptions{RepoRoot: repoRoot, Overrides: overridesFromFlags(cmd)})
	if err != nil {
		return nil, err
	}
	view, err := patch.ParseView(cfg.View)
	if err != nil {
		return nil, erruser.New("Invalid view; use current, additions or all.", err)
	}
	stderr := cmd.ErrOrStderr()
	e := &env{
		cfg:      cfg,
		repoRoot: repoRoot,
		view:     view,
		log:      zerolog.New(zerolog.ConsoleWriter{Out: stderr}).Level(cfg.Level()).With().Timestamp().Logger(),
		scanner:  comment.NewScanner(cfg.CacheSize),
		out:      cmd.OutOrStdout(),
	}
	if cfg.Trace {
		e.tracer = trace.New(stderr)
	}
	e.log.Debug().Str("repo", repoRoot).Str("output", cfg.Output).Str("view", cfg.View).Msg("configuration loaded")
	return e, nil
}

// withTimeout returns a context bounded by the configured git timeout.
func (e *env) withTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if e.cfg.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, e.cfg.Timeout)
}

func (e *env) diffOptions() *diff.Options {
	return &diff.Options{ExcludePatterns: e.cfg.ExcludePatterns, Extensions: e.cfg.Extensions}
}

func (e *env) parseOptions(isPatch bool, name, revision string) patch.Options {
	return patch.Options{IsPatch: isPatch, Name: name, Revision: revision, Scanner: e.scanner, Trace: e.tracer}
}

// parse parses one file's text and logs what came out of it.
func (e *env) parse(text string, isPatch bool, name, revision string) *patch.Patch {
	e.tracer.Section(name)
	p := patch.Parse(text, e.parseOptions(isPatch, name, revision))
	if isPatch && len(p.Hunks) == 0 {
		e.log.Warn().Str("file", name).Msg("no hunk headers found; nothing to parse")
	}
	e.log.Debug().Str("file", name).Str("revision", revision).Int("hunks", len(p.Hunks)).Int("entries", p.Entries()).Msg("parsed")
	return p
}

func (e *env) parseFiles(files []diff.File, revision string) []*patch.Patch {
	out := make([]*patch.Patch, 0, len(files))
	for _, f := range files {
		out = append(out, e.parse(f.Text, true, f.Path, revision))
	}
	return out
}

func (e *env) logSkipped(skipped []diff.Skip) {
	for _, s := range skipped {
		e.log.Info().Str("file", s.Path).Str("reason", s.Reason).Msg("skipped")
	}
}

// parseText parses text read from a file or stdin. A multi-file unified
// diff is split per file and filtered like git input; anything else is
// one file named name.
func (e *env) parseText(text, name, revision string, bare bool) ([]*patch.Patch, error) {
	if !bare && diff.IsMultiFile(text) {
		files, err := diff.SplitFiles(text)
		if err != nil {
			return nil, erruser.New("Could not split the diff into files.", err)
		}
		kept, skipped := diff.Filter(files, e.diffOptions())
		e.logSkipped(skipped)
		return e.parseFiles(kept, revision), nil
	}
	return []*patch.Patch{e.parse(text, !bare, name, revision)}, nil
}

// gitPatches parses the diff base..head (head "" is the working tree), or
// with eachCommit every commit in base..head separately, each patch
// carrying its commit as revision.
func (e *env) gitPatches(ctx context.Context, base, head string, eachCommit bool) ([]*patch.Patch, error) {
	if !eachCommit {
		files, skipped, err := diff.Files(ctx, e.repoRoot, base, head, e.diffOptions())
		if err != nil {
			return nil, userErr("Could not compute the diff.", err)
		}
		e.logSkipped(skipped)
		revision := ""
		if head != "" {
			if revision, err = git.RevParse(ctx, e.repoRoot, head); err != nil {
				return nil, err
			}
		}
		return e.parseFiles(files, revision), nil
	}
	until := head
	if until == "" {
		until = "HEAD"
	}
	shas, err := git.RevList(ctx, e.repoRoot, base, until)
	if err != nil {
		return nil, err
	}
	var out []*patch.Patch
	for _, sha := range shas {
		files, skipped, err := diff.Commit(ctx, e.repoRoot, sha, e.diffOptions())
		if err != nil {
			return nil, userErr("Could not read commit "+sha+".", err)
		}
		e.logSkipped(skipped)
		out = append(out, e.parseFiles(files, sha)...)
	}
	e.log.Debug().Int("commits", len(shas)).Msg("scanned commits")
	return out, nil
}

// userErr wraps err with msg unless it already carries a user-facing message.
func userErr(msg string, err error) error {
	if erruser.Is(err) {
		return err
	}
	return erruser.New(msg, err)
}
