package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nodelink/internal/ir"
	"github.com/roach88/nodelink/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	TxID string // optional - one transaction only
}

// HistoryEntry is one journaled transaction.
type HistoryEntry struct {
	Transaction ir.Transaction `json:"transaction"`
	Mutations   []ir.Mutation  `json:"mutations"`
}

// HistoryResult holds the journal listing.
type HistoryResult struct {
	Transactions []HistoryEntry `json:"transactions"`
	Open         int            `json:"open"`
	LastSeq      int64          `json:"last_seq"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled transactions",
		Long: `List the transactions recorded in a journal database with their
mutations, in seq order. Transactions that were begun but never committed
are marked open.

Examples:
  nodelink history --db rig.db
  nodelink history --db rig.db --tx 0190c1e2-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().String("db", "", "path to SQLite journal")
	cmd.Flags().StringVar(&opts.TxID, "tx", "", "show one transaction only")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
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

	result, err := readHistory(ctx, st, opts.TxID)
	if errors.Is(err, store.ErrNotFound) {
		return formatter.Abort(ExitCommandError, ErrCodeNotFound, "transaction not found", err)
	}
	if err != nil {
		return formatter.Abort(ExitCommandError, ErrCodeDatabase, "failed to read journal", err)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputHistoryText(formatter, result)
}

func readHistory(ctx context.Context, st *store.Store, txID string) (HistoryResult, error) {
	var txs []ir.Transaction
	if txID != "" {
		tx, err := st.ReadTransaction(ctx, txID)
		if err != nil {
			return HistoryResult{}, err
		}
		txs = []ir.Transaction{tx}
	} else {
		var err error
		if txs, err = st.ReadTransactions(ctx); err != nil {
			return HistoryResult{}, err
		}
	}

	result := HistoryResult{Transactions: make([]HistoryEntry, 0, len(txs))}
	for _, tx := range txs {
		muts, err := st.ReadMutations(ctx, tx.ID)
		if err != nil {
			return HistoryResult{}, err
		}
		if !tx.Committed {
			result.Open++
		}
		result.Transactions = append(result.Transactions, HistoryEntry{Transaction: tx, Mutations: nonNil(muts)})
	}

	last, err := st.GetLastSeq(ctx)
	if err != nil {
		return HistoryResult{}, err
	}
	result.LastSeq = last
	return result, nil
}

func outputHistoryText(formatter *OutputFormatter, result HistoryResult) error {
	w := formatter.Writer
	if len(result.Transactions) == 0 {
		fmt.Fprintln(w, "No transactions recorded.")
		return nil
	}

	for _, e := range result.Transactions {
		state := ""
		if !e.Transaction.Committed {
			state = " [open]"
		}
		fmt.Fprintf(w, "%4d %s %s%s\n", e.Transaction.Seq, e.Transaction.ID, e.Transaction.Name, state)
		for _, m := range e.Mutations {
			fmt.Fprintf(w, "     %s\n", formatMutation(m))
		}
	}
	fmt.Fprintf(w, "\n%d transaction(s), %d open, last seq %d\n", len(result.Transactions), result.Open, result.LastSeq)
	return nil
}
