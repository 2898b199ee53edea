package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/roach88/nodelink/internal/history"
	"github.com/roach88/nodelink/internal/host"
	"github.com/roach88/nodelink/internal/ir"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	IncludeOpen bool // replay uncommitted transactions too
	Diff        bool // show how the journal changed the described scene
}

// ReplayResult holds the replay result.
type ReplayResult struct {
	Scene         string   `json:"scene"`
	Mutations     int      `json:"mutations"`
	Open          []string `json:"open_transactions"`
	Hash          string   `json:"hash"`
	Deterministic bool     `json:"deterministic"`
	Diff          string   `json:"diff,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <scene>",
		Short: "Replay a journal onto a scene and verify determinism",
		Long: `Rebuild the scene from its description and re-apply every committed
mutation in the journal, twice, comparing the resulting scene hashes.

Transactions that were begun but never committed are listed; pass
--include-open to replay their mutations as well.

Exit codes:
  0 - Journal replays deterministically
  1 - Replay diverged or was not deterministic
  2 - Command error (scene or database not found, etc.)

Examples:
  nodelink replay rig.cue --db rig.db
  nodelink replay rig.cue --db rig.db --diff`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().String("db", "", "path to SQLite journal")
	cmd.Flags().BoolVar(&opts.IncludeOpen, "include-open", false, "replay uncommitted transactions too")
	cmd.Flags().BoolVar(&opts.Diff, "diff", false, "show the scene changes the journal makes")

	return cmd
}

func runReplay(opts *ReplayOptions, scene string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	cfg, err := opts.Config(cmd)
	if err != nil {
		return err
	}
	if cfg.Journal.Path == "" {
		return formatter.Abort(ExitCommandError, ErrCodeBadArgument, "no journal database: pass --db or set journal.path", nil)
	}
	st, err := openStore(cfg.Journal.Path)
	if err != nil {
		return report(formatter, err)
	}
	defer st.Close()

	muts, err := st.ReplayMutations(ctx, opts.IncludeOpen)
	if err != nil {
		return formatter.Abort(ExitCommandError, ErrCodeDatabase, "failed to read journal", err)
	}
	open, err := st.FindOpenTransactions(ctx)
	if err != nil {
		return formatter.Abort(ExitCommandError, ErrCodeDatabase, "failed to read journal", err)
	}

	result := ReplayResult{Mutations: len(muts), Open: []string{}}
	for _, tx := range open {
		result.Open = append(result.Open, tx.Transaction.ID)
	}

	first, err := replayOnto(scene, muts)
	if err != nil {
		return report(formatter, err)
	}
	second, err := replayOnto(scene, muts)
	if err != nil {
		return report(formatter, err)
	}
	formatter.VerboseLog("Replayed %d mutation(s) twice", len(muts))

	h1, err := first.Hash()
	if err != nil {
		return formatter.Abort(ExitCommandError, ErrCodeReplay, "failed to hash scene", err)
	}
	h2, err := second.Hash()
	if err != nil {
		return formatter.Abort(ExitCommandError, ErrCodeReplay, "failed to hash scene", err)
	}
	result.Hash = h1
	result.Deterministic = h1 == h2

	spec, base, _, err := buildScene(scene)
	if err != nil {
		return report(formatter, err)
	}
	result.Scene = spec.Name
	if opts.Diff {
		if result.Diff, err = sceneDiff(base, first); err != nil {
			return formatter.Abort(ExitCommandError, ErrCodeReplay, "failed to diff scenes", err)
		}
	}

	if formatter.JSON() {
		if !result.Deterministic {
			return formatter.Fail(ExitFailure, ErrCodeDeterminism, "determinism verification failed", result)
		}
		return formatter.Success(result)
	}
	return outputReplayText(formatter, result)
}

// replayOnto builds a fresh scene from path and applies muts to it.
func replayOnto(path string, muts []ir.Mutation) (*host.Memory, error) {
	_, scene, _, err := buildScene(path)
	if err != nil {
		return nil, err
	}
	if err := history.Replay(scene, muts); err != nil {
		return nil, &workspaceError{ExitFailure, ErrCodeReplay, "journal does not replay onto scene", err}
	}
	return scene, nil
}

// sceneDiff returns the lines of the indented dump that differ between
// before and after, prefixed "-" or "+".
func sceneDiff(before, after *host.Memory) (string, error) {
	a, err := indentedDump(before)
	if err != nil {
		return "", err
	}
	b, err := indentedDump(after)
	if err != nil {
		return "", err
	}

	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		default:
			continue
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(strings.TrimSuffix(line, "\n"))
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}

func indentedDump(m *host.Memory) (string, error) {
	raw, err := m.Dump()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "", err
	}
	buf.WriteByte('\n')
	return buf.String(), nil
}

func outputReplayText(formatter *OutputFormatter, result ReplayResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Replay Summary: %s, %d mutation(s)\n", result.Scene, result.Mutations)
	fmt.Fprintf(w, "  Hash: %s\n", result.Hash)
	for _, id := range result.Open {
		fmt.Fprintf(w, "  Warning: transaction %s was never committed\n", id)
	}
	if result.Diff != "" {
		fmt.Fprintln(w)
		fmt.Fprint(w, result.Diff)
	}
	fmt.Fprintln(w)

	if result.Deterministic {
		fmt.Fprintln(w, "✓ Journal replays deterministically")
		return nil
	}
	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
