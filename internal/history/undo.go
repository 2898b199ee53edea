package history

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/nodelink/internal/graph"
	"github.com/roach88/nodelink/internal/ir"
)

// Undo reverts the link mutations of transaction txID in reverse order,
// inside a new transaction named "undo <name>".
//
// Undo checks the scene before each step: a link it is about to remove must
// still be fed by the recorded source, and a link it restores must find its
// in-port free. Transactions containing a node deletion are refused before
// anything is touched.
func (j *Journal) Undo(ctx context.Context, txID string) (ir.Transaction, error) {
	if j.open != nil {
		return ir.Transaction{}, fmt.Errorf("undo %s: %w (%s)", txID, ErrTxOpen, j.open.Name)
	}
	i := slices.IndexFunc(j.txs, func(tx ir.Transaction) bool { return tx.ID == txID })
	if i < 0 {
		return ir.Transaction{}, fmt.Errorf("undo %s: %w", txID, ErrUnknownTx)
	}
	target := j.txs[i]

	muts := j.MutationsOf(txID)
	for _, m := range muts {
		if m.Op == ir.OpDeleteNode {
			return ir.Transaction{}, fmt.Errorf("undo %q: %w: %s", target.Name, ErrIrreversible, m.Node)
		}
	}

	tx, err := j.Begin(ctx, "undo "+target.Name)
	if err != nil {
		return ir.Transaction{}, err
	}
	var errs []error
	for k := len(muts) - 1; k >= 0; k-- {
		if err := j.revert(muts[k]); err != nil {
			errs = append(errs, err)
			break
		}
	}
	if err := j.Commit(); err != nil {
		errs = append(errs, err)
	}
	tx.Committed = true
	return tx, errors.Join(errs...)
}

func (j *Journal) revert(m ir.Mutation) error {
	switch m.Op {
	case ir.OpCreateLink:
		src, ok := j.host.SourceOf(m.In.Node, m.In.Port)
		if !ok || src.Endpoint() != m.Out {
			return fmt.Errorf("%w: %s is no longer fed by %s", ErrUndoFailed, m.In, m.Out)
		}
		if !j.RemoveLink(m.In.Node, m.In.Port) {
			return fmt.Errorf("%w: host refused to unlink %s", ErrUndoFailed, m.In)
		}
	case ir.OpRemoveLink:
		if !j.CreateLink(m.Out.Node, m.Out.Port, m.In.Node, m.In.Port, false, true) {
			return fmt.Errorf("%w: host refused to relink %s -> %s", ErrUndoFailed, m.Out, m.In)
		}
	default:
		return fmt.Errorf("%w: cannot revert %s", ErrUndoFailed, m.Op)
	}
	return nil
}

// ErrReplayDiverged is returned by Replay when the host refuses a recorded
// mutation.
var ErrReplayDiverged = errors.New("replay diverged")

// Replay applies muts to h in order. It is meant for a scene built from the
// same description the journal was recorded against.
func Replay(h graph.Host, muts []ir.Mutation) error {
	for _, m := range muts {
		var ok bool
		switch m.Op {
		case ir.OpCreateLink:
			ok = h.CreateLink(m.Out.Node, m.Out.Port, m.In.Node, m.In.Port, m.CreatedOutPort, m.CreatedInPort)
		case ir.OpRemoveLink:
			ok = h.RemoveLink(m.In.Node, m.In.Port)
		case ir.OpDeleteNode:
			ok = h.DeleteNode(m.Node)
		default:
			return fmt.Errorf("replay seq %d: unknown op %q", m.Seq, m.Op)
		}
		if !ok {
			return fmt.Errorf("%w at seq %d: %s %s -> %s %s", ErrReplayDiverged, m.Seq, m.Op, m.Out, m.In, m.Node)
		}
	}
	return nil
}
