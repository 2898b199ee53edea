package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/nodelink/internal/graph"
	"github.com/roach88/nodelink/internal/ir"
)

var (
	// ErrTxOpen is returned by Begin and Undo while a transaction is open.
	ErrTxOpen = errors.New("transaction already open")

	// ErrNoTx is returned by Commit when no transaction is open.
	ErrNoTx = errors.New("no open transaction")

	// ErrUnknownTx is returned by Undo for an ID the journal never issued.
	ErrUnknownTx = errors.New("unknown transaction")

	// ErrIrreversible is returned by Undo for transactions that deleted a
	// node. The links the node carried are gone with it.
	ErrIrreversible = errors.New("transaction deleted a node and cannot be undone")

	// ErrUndoFailed is returned when the scene no longer matches what a
	// mutation left behind.
	ErrUndoFailed = errors.New("undo failed")
)

// SeqSource hands out logical sequence numbers. *Clock implements it.
type SeqSource interface {
	Next() int64
	Current() int64
}

// Sink persists journal records. *store.Store implements it.
type Sink interface {
	WriteTransaction(ctx context.Context, tx ir.Transaction) error
	CommitTransaction(ctx context.Context, txID string) error
	WriteMutation(ctx context.Context, m ir.Mutation) error
}

// Journal is a graph.Host decorator that records every successful
// structural mutation.
//
// Journal is not safe for concurrent use, like the host it wraps.
type Journal struct {
	host   graph.Host
	clock  SeqSource
	tokens TxTokenGenerator
	sink   Sink
	logger *slog.Logger

	ctx  context.Context
	open *ir.Transaction
	txs  []ir.Transaction
	muts []ir.Mutation
	err  error
}

var (
	_ graph.Host   = (*Journal)(nil)
	_ graph.Editor = (*Journal)(nil)
)

// Option configures a Journal.
type Option func(*Journal)

// WithClock sets the seq source. Default: NewClock().
func WithClock(c SeqSource) Option {
	return func(j *Journal) { j.clock = c }
}

// WithTokenGenerator sets the transaction ID generator.
// Default: UUIDv7Generator.
func WithTokenGenerator(g TxTokenGenerator) Option {
	return func(j *Journal) { j.tokens = g }
}

// WithSink persists transactions and mutations as they are recorded.
func WithSink(s Sink) Option {
	return func(j *Journal) { j.sink = s }
}

// WithLogger sets the logger used for recorded mutations.
func WithLogger(l *slog.Logger) Option {
	return func(j *Journal) { j.logger = l }
}

// New wraps h.
func New(h graph.Host, opts ...Option) *Journal {
	j := &Journal{
		host:   h,
		clock:  NewClock(),
		tokens: UUIDv7Generator{},
		logger: slog.New(slog.DiscardHandler),
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Host returns the wrapped host.
func (j *Journal) Host() graph.Host {
	return j.host
}

// Begin opens a named transaction. Mutations recorded until Commit are
// filed under it.
func (j *Journal) Begin(ctx context.Context, name string) (ir.Transaction, error) {
	if j.open != nil {
		return ir.Transaction{}, fmt.Errorf("begin %q: %w (%s)", name, ErrTxOpen, j.open.Name)
	}
	tx := ir.Transaction{
		ID:   j.tokens.Generate(),
		Name: name,
		Seq:  j.clock.Next(),
	}
	if j.sink != nil {
		if err := j.sink.WriteTransaction(ctx, tx); err != nil {
			return ir.Transaction{}, fmt.Errorf("begin %q: %w", name, err)
		}
	}
	j.ctx = ctx
	j.txs = append(j.txs, tx)
	j.open = &j.txs[len(j.txs)-1]
	return tx, nil
}

// Commit closes the open transaction. It also reports the first sink
// error seen while the transaction was open.
func (j *Journal) Commit() error {
	if j.open == nil {
		return ErrNoTx
	}
	tx := j.open
	j.open = nil
	tx.Committed = true
	ctx := j.ctx
	j.ctx = context.Background()

	if j.sink != nil {
		if err := j.sink.CommitTransaction(ctx, tx.ID); err != nil && j.err == nil {
			j.err = err
		}
	}
	if err := j.err; err != nil {
		j.err = nil
		return fmt.Errorf("commit %q: %w", tx.Name, err)
	}
	return nil
}

// Do runs fn inside a transaction named name. The transaction is committed
// whether or not fn succeeds; fn's error takes precedence.
func (j *Journal) Do(ctx context.Context, name string, fn func() error) error {
	if _, err := j.Begin(ctx, name); err != nil {
		return err
	}
	err := fn()
	if cerr := j.Commit(); err == nil {
		err = cerr
	}
	return err
}

// Transactions returns every transaction in seq order.
func (j *Journal) Transactions() []ir.Transaction {
	return append([]ir.Transaction(nil), j.txs...)
}

// Mutations returns every recorded mutation in seq order.
func (j *Journal) Mutations() []ir.Mutation {
	return append([]ir.Mutation(nil), j.muts...)
}

// MutationsOf returns the mutations filed under txID.
func (j *Journal) MutationsOf(txID string) []ir.Mutation {
	var out []ir.Mutation
	for _, m := range j.muts {
		if m.TxID == txID {
			out = append(out, m)
		}
	}
	return out
}

var mutationID = ir.MutationID

// record stamps m and files it under the open transaction. Mutations made
// outside a transaction get one of their own, named after the op.
func (j *Journal) record(m ir.Mutation) {
	implicit := j.open == nil
	if implicit {
		if _, err := j.Begin(context.Background(), string(m.Op)); err != nil {
			j.fail(err)
			return
		}
	}

	m.TxID = j.open.ID
	m.Seq = j.clock.Next()
	id, err := mutationID(m)
	if err != nil {
		j.fail(err)
		j.closeImplicit(implicit)
		return
	}
	m.ID = id
	j.muts = append(j.muts, m)

	j.logger.Debug("mutation recorded",
		"tx", m.TxID,
		"seq", m.Seq,
		"op", string(m.Op),
		"out", m.Out.String(),
		"in", m.In.String(),
		"node", string(m.Node),
	)

	if j.sink != nil {
		if err := j.sink.WriteMutation(j.ctx, m); err != nil {
			j.fail(err)
		}
	}

	j.closeImplicit(implicit)
}

func (j *Journal) closeImplicit(implicit bool) {
	if !implicit {
		return
	}
	if err := j.Commit(); err != nil {
		j.logger.Warn("journal sink failed", "err", err)
	}
}

func (j *Journal) fail(err error) {
	if j.err == nil {
		j.err = err
	}
}

// Resolve implements graph.Host.
func (j *Journal) Resolve(key ir.Key) (graph.NodeInfo, bool) { return j.host.Resolve(key) }

// Exists implements graph.Host.
func (j *Journal) Exists(key ir.Key) bool { return j.host.Exists(key) }

// PortCounts implements graph.Host.
func (j *Journal) PortCounts(key ir.Key) (ir.PortCounts, bool) { return j.host.PortCounts(key) }

// SourceOf implements graph.Host.
func (j *Journal) SourceOf(key ir.Key, inPort int) (ir.Source, bool) {
	return j.host.SourceOf(key, inPort)
}

// DestinationsOf implements graph.Host.
func (j *Journal) DestinationsOf(key ir.Key, outPort int) []ir.Endpoint {
	return j.host.DestinationsOf(key, outPort)
}

// BoundaryInOf implements graph.Host.
func (j *Journal) BoundaryInOf(scope ir.Key) (ir.Key, bool) { return j.host.BoundaryInOf(scope) }

// BoundaryOutOf implements graph.Host.
func (j *Journal) BoundaryOutOf(scope ir.Key) (ir.Key, bool) { return j.host.BoundaryOutOf(scope) }

// ParentScopeOf implements graph.Host.
func (j *Journal) ParentScopeOf(key ir.Key) ir.Key { return j.host.ParentScopeOf(key) }

// CreateLink implements graph.Host and records the link along with any
// port the host added for it.
func (j *Journal) CreateLink(out ir.Key, outPort int, in ir.Key, inPort int, createOut, createIn bool) bool {
	outBefore, _ := j.host.PortCounts(out)
	inBefore, _ := j.host.PortCounts(in)
	if !j.host.CreateLink(out, outPort, in, inPort, createOut, createIn) {
		return false
	}
	outAfter, _ := j.host.PortCounts(out)
	inAfter, _ := j.host.PortCounts(in)

	j.record(ir.Mutation{
		Op:             ir.OpCreateLink,
		Out:            ir.Endpoint{Node: out, Port: outPort},
		In:             ir.Endpoint{Node: in, Port: inPort},
		CreatedOutPort: outAfter.Out > outBefore.Out,
		CreatedInPort:  inAfter.In > inBefore.In,
	})
	return true
}

// RemoveLink implements graph.Host and records the source the in-port had.
func (j *Journal) RemoveLink(key ir.Key, inPort int) bool {
	src, linked := j.host.SourceOf(key, inPort)
	if !j.host.RemoveLink(key, inPort) {
		return false
	}
	if linked {
		j.record(ir.Mutation{
			Op:  ir.OpRemoveLink,
			Out: src.Endpoint(),
			In:  ir.Endpoint{Node: key, Port: inPort},
		})
	}
	return true
}

// DeleteNode implements graph.Host.
func (j *Journal) DeleteNode(key ir.Key) bool {
	if !j.host.DeleteNode(key) {
		return false
	}
	j.record(ir.Mutation{
		Op:   ir.OpDeleteNode,
		Out:  ir.Endpoint{Node: ir.NoKey, Port: ir.NoPort},
		In:   ir.Endpoint{Node: ir.NoKey, Port: ir.NoPort},
		Node: key,
	})
	return true
}

// Rename implements graph.Editor when the wrapped host does. Renames are
// not journaled.
func (j *Journal) Rename(key ir.Key, name string) (ir.Key, bool) {
	ed, ok := j.host.(graph.Editor)
	if !ok {
		return ir.NoKey, false
	}
	return ed.Rename(key, name)
}

// Move implements graph.Editor when the wrapped host does. Moves are not
// journaled.
func (j *Journal) Move(key ir.Key, scope ir.Key) (ir.Key, bool) {
	ed, ok := j.host.(graph.Editor)
	if !ok {
		return ir.NoKey, false
	}
	return ed.Move(key, scope)
}
