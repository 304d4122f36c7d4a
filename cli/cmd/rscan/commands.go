package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rscan/cli/internal/erruser"
	"rscan/cli/internal/findings"
	"rscan/cli/internal/history"
	"rscan/cli/internal/locate"
	"rscan/cli/internal/patch"
	"rscan/cli/internal/report"
	"rscan/cli/internal/rules"
	"rscan/cli/internal/scope"
)

func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Rebuild the logical statements of a patch or source file (default stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runParse,
	}
	cmd.Flags().Bool("bare", false, "Treat the input as a whole source file, not a diff")
	cmd.Flags().String("name", "", "File name recorded on the result (default: the input path)")
	cmd.Flags().String("revision", "", "Revision recorded on the result")
	return cmd
}

// readInput reads the file named by args, or stdin when args is empty or
// "-". name is the path, or "" for stdin.
func readInput(cmd *cobra.Command, args []string) (text, name string, err error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", erruser.New("Could not read standard input.", err)
		}
		return string(b), "", nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", erruser.Newf(err, "Could not read %s.", args[0])
	}
	return string(b), args[0], nil
}

// inputPatches parses the input of a parse-like command.
func inputPatches(cmd *cobra.Command, e *env, args []string) ([]*patch.Patch, error) {
	text, name, err := readInput(cmd, args)
	if err != nil {
		return nil, err
	}
	if n, _ := cmd.Flags().GetString("name"); n != "" {
		name = n
	}
	if name == "" {
		name = "<stdin>"
	}
	bare, _ := cmd.Flags().GetBool("bare")
	revision, _ := cmd.Flags().GetString("revision")
	return e.parseText(text, name, revision, bare)
}

func runParse(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd, false)
	if err != nil {
		return err
	}
	patches, err := inputPatches(cmd, e, args)
	if err != nil {
		return err
	}
	if err := report.WritePatches(e.out, e.cfg.Output, patches, e.view); err != nil {
		return erruser.New("Could not write output.", err)
	}
	return nil
}

func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff [base] [head]",
		Short: "Rebuild the logical statements of the changes between two revisions",
		Long: "Rebuild the logical statements of the changes between base and head.\n" +
			"base defaults to base_ref from config (HEAD~1); without head the working tree is compared.",
		Args: cobra.MaximumNArgs(2),
		RunE: runDiff,
	}
	addRangeFlags(cmd)
	return cmd
}

func addRangeFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("each-commit", false, "Parse every commit in base..head separately, recording its SHA")
}

// rangeArgs returns base and head from args, defaulting base to the
// configured base ref.
func rangeArgs(e *env, args []string) (base, head string) {
	base = e.cfg.BaseRef
	if len(args) > 0 {
		base = args[0]
	}
	if len(args) > 1 {
		head = args[1]
	}
	return base, head
}

// revisionPatches parses the git range named by args.
func revisionPatches(cmd *cobra.Command, e *env, args []string) ([]*patch.Patch, error) {
	base, head := rangeArgs(e, args)
	eachCommit, _ := cmd.Flags().GetBool("each-commit")
	ctx, cancel := e.withTimeout(cmd.Context())
	defer cancel()
	return e.gitPatches(ctx, base, head, eachCommit)
}

func runDiff(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd, true)
	if err != nil {
		return err
	}
	patches, err := revisionPatches(cmd, e, args)
	if err != nil {
		return err
	}
	if err := report.WritePatches(e.out, e.cfg.Output, patches, e.view); err != nil {
		return erruser.New("Could not write output.", err)
	}
	return nil
}

func newLocateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locate [base] [head]",
		Short: "Report where patterns match the changed statements",
		Long: "Match patterns against the rebuilt statements of a git range, or of a patch given\n" +
			"with --input, and report each match at the physical line that produced it.\n" +
			"Rules come from .rscan/patterns/*.yaml in the repository and from --pattern/--keyword.",
		Args: cobra.MaximumNArgs(2),
		RunE: runLocate,
	}
	addRangeFlags(cmd)
	cmd.Flags().String("input", "", "Read a patch or source file instead of a git range (- for stdin)")
	cmd.Flags().Bool("bare", false, "With --input, treat the input as a whole source file")
	cmd.Flags().String("name", "", "With --input, file name recorded on findings")
	cmd.Flags().String("revision", "", "With --input, revision recorded on findings")
	cmd.Flags().StringArray("pattern", nil, "Regular expression to report (repeatable)")
	cmd.Flags().StringArray("keyword", nil, "Literal text to report (repeatable)")
	cmd.Flags().Bool("trim", false, "Match --pattern against statements with surrounding whitespace removed")
	cmd.Flags().String("priority", "exp", "Report findings at this level or above: high, medium, low, exp or ignore")
	cmd.Flags().String("baseline", "", "Findings file from an earlier locate -o json/yaml; report only new findings")
	cmd.Flags().Bool("record", false, "Append this run to .rscan/history.jsonl")
	cmd.Flags().Bool("exit-code", false, "Exit with status 1 when anything is reported")
	return cmd
}

// flagRules builds the rules given on the command line. Each is named
// after its pattern or keyword and has low priority.
func flagRules(cmd *cobra.Command) ([]rules.Rule, error) {
	patterns, _ := cmd.Flags().GetStringArray("pattern")
	keywords, _ := cmd.Flags().GetStringArray("keyword")
	trim, _ := cmd.Flags().GetBool("trim")
	out := make([]rules.Rule, 0, len(patterns)+len(keywords))
	for _, p := range patterns {
		out = append(out, rules.Rule{Name: "pattern:" + p, Pattern: p, Trim: trim, Source: "--pattern"})
	}
	for _, k := range keywords {
		out = append(out, rules.Rule{Name: "keyword:" + k, Keyword: k, Source: "--keyword"})
	}
	for i := range out {
		if err := out[i].Compile(); err != nil {
			return nil, erruser.New("Invalid pattern.", err)
		}
	}
	return out, nil
}

func runLocate(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	if input != "" && len(args) > 0 {
		return erruser.New("Give either --input or a revision range, not both.", nil)
	}
	levelName, _ := cmd.Flags().GetString("priority")
	level, err := findings.ParsePriority(levelName)
	if err != nil {
		return erruser.New("Invalid --priority.", err)
	}
	extra, err := flagRules(cmd)
	if err != nil {
		return err
	}
	e, err := setup(cmd, input == "")
	if err != nil {
		return err
	}
	loader, err := rules.NewLoader(e.repoRoot, extra...)
	if err != nil {
		return erruser.New("Could not discover pattern directories.", err)
	}
	e.log.Debug().Int("dirs", len(loader.Dirs())).Int("flag_rules", len(extra)).Msg("rules ready")

	var patches []*patch.Patch
	if input != "" {
		var inArgs []string
		if input != "-" {
			inArgs = []string{input}
		}
		patches, err = inputPatches(cmd, e, inArgs)
	} else {
		patches, err = revisionPatches(cmd, e, args)
	}
	if err != nil {
		return err
	}

	list, err := locate.Run(patches, loader, e.view)
	if err != nil {
		return erruser.New("Could not load patterns.", err)
	}
	list = findings.Filter(list, level)
	if path, _ := cmd.Flags().GetString("baseline"); path != "" {
		baseline, err := scope.LoadBaseline(path)
		if err != nil {
			return err
		}
		res := scope.Partition(list, baseline)
		e.log.Info().Int("new", len(res.New)).Int("known", len(res.Known)).Msg("compared with baseline")
		list = res.New
	}
	for i := range list {
		if err := list[i].Validate(); err != nil {
			e.log.Error().Err(err).Str("finding", list[i].String()).Msg("invalid finding")
		}
	}
	if e.repoRoot != "" {
		findings.SetURIs(e.repoRoot, list)
	}
	if err := report.WriteFindings(e.out, e.cfg.Output, list); err != nil {
		return erruser.New("Could not write findings.", err)
	}
	if record, _ := cmd.Flags().GetBool("record"); record {
		if e.repoRoot == "" {
			return erruser.New("--record needs a Git repository.", nil)
		}
		rec := history.Record{
			Time:     time.Now().UTC(),
			Input:    input,
			View:     e.view.String(),
			Files:    len(patches),
			Findings: list,
		}
		if input == "" {
			rec.Base, rec.Head = rangeArgs(e, args)
		}
		if err := history.Append(historyDir(e.repoRoot), rec, history.DefaultMaxRecords); err != nil {
			return err
		}
	}
	if exitCode, _ := cmd.Flags().GetBool("exit-code"); exitCode && len(list) > 0 {
		return errExit(1)
	}
	return nil
}

func historyDir(repoRoot string) string {
	return filepath.Join(repoRoot, ".rscan")
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded locate runs, oldest first",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	cmd.Flags().IntP("limit", "n", 0, "Show only the last n runs (0 = all)")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd, true)
	if err != nil {
		return err
	}
	recs, err := history.ReadRecords(historyDir(e.repoRoot))
	if err != nil {
		return err
	}
	if n, _ := cmd.Flags().GetInt("limit"); n > 0 && len(recs) > n {
		recs = recs[len(recs)-n:]
	}
	if e.cfg.Output != report.FormatHuman {
		var all []findings.Finding
		for _, r := range recs {
			all = append(all, r.Findings...)
		}
		if err := report.WriteFindings(e.out, e.cfg.Output, all); err != nil {
			return erruser.New("Could not write history.", err)
		}
		return nil
	}
	for _, r := range recs {
		if _, err := fmt.Fprintf(e.out, "%s  %s  %s\n", r.Time.Format(time.RFC3339), r.Scope(), summary(r)); err != nil {
			return erruser.New("Could not write history.", err)
		}
	}
	return nil
}

// summary formats a run's finding counts, most important level first.
func summary(r history.Record) string {
	counts := r.Counts()
	parts := make([]string, 0, len(counts))
	for p := findings.PriorityHigh; p <= findings.PriorityIgnore; p++ {
		if n := counts[p]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", p, n))
		}
	}
	s := fmt.Sprintf("%d file(s), %d finding(s)", r.Files, len(r.Findings))
	if len(parts) > 0 {
		s += " (" + strings.Join(parts, ", ") + ")"
	}
	return s
}
