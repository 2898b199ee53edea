package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/nodelink/internal/compiler"
	"github.com/roach88/nodelink/internal/graph"
	"github.com/roach88/nodelink/internal/history"
	"github.com/roach88/nodelink/internal/host"
	"github.com/roach88/nodelink/internal/ir"
	"github.com/roach88/nodelink/internal/link"
	"github.com/roach88/nodelink/internal/store"
	"github.com/roach88/nodelink/internal/testutil"
)

// Outcomes a step can report besides link error codes.
const (
	OutcomeOK             = "ok"
	OutcomeNothingRemoved = "NOTHING_REMOVED"
	OutcomeIrreversible   = "IRREVERSIBLE"
	OutcomeUndoFailed     = "UNDO_FAILED"
	OutcomeError          = "ERROR"
)

var errNothingRemoved = errors.New("no connection was removed")

// Harness runs one scenario against a freshly built scene.
type Harness struct {
	scene   *host.Memory
	journal *history.Journal
	linker  *link.Linker
	store   *store.Store
	logger  *slog.Logger

	// txs holds the transaction ID of each executed step.
	txs []string
}

type config struct {
	logger *slog.Logger
	tracer trace.Tracer
}

// Option configures a scenario run.
type Option func(*config)

// WithLogger sets the logger passed to the journal and the Linker.
// Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithTracer sets the tracer passed to the Linker.
func WithTracer(t trace.Tracer) Option {
	return func(c *config) {
		c.tracer = t
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against its own scene and in-memory journal database.
// Transaction IDs and seqs are deterministic, so identical scenarios
// produce identical traces.
//
// A returned error means the scenario could not run at all. Failed
// expectations are reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := config{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&cfg)
	}

	_, scene, _, err := compiler.BuildFile(scenario.Scene)
	if err != nil {
		return nil, fmt.Errorf("failed to build scene: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	j := history.New(scene,
		history.WithClock(testutil.NewDeterministicClock()),
		history.WithTokenGenerator(testutil.NewSequentialTxGenerator(scenario.TxPrefix)),
		history.WithSink(st),
		history.WithLogger(cfg.logger),
	)

	autoDisconnect := true
	if scenario.Options.AutoDisconnect != nil {
		autoDisconnect = *scenario.Options.AutoDisconnect
	}
	linkOpts := []link.Option{
		link.WithAutoDisconnect(autoDisconnect),
		link.WithPruneDanglingLegs(scenario.Options.PruneDanglingLegs),
		link.WithLogger(cfg.logger),
	}
	if cfg.tracer != nil {
		linkOpts = append(linkOpts, link.WithTracer(cfg.tracer))
	}

	h := &Harness{
		scene:   scene,
		journal: j,
		linker:  link.New(graph.NewRegistry(j), linkOpts...),
		store:   st,
		logger:  cfg.logger,
	}

	ctx := context.Background()
	result := NewResult()
	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}
	result.Links = scene.Links()

	actx := &AssertionContext{
		Scene:   scene,
		Linker:  h.linker,
		Journal: j,
		Store:   st,
		Ctx:     ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeSteps runs every step in its own transaction and checks its
// expected outcome. Only journal failures abort the run.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		txID, err := h.execute(ctx, step)
		var jerr *journalError
		if errors.As(err, &jerr) {
			return fmt.Errorf("step %d: %w", i+1, jerr.err)
		}
		h.txs = append(h.txs, txID)

		outcome := outcomeOf(err)
		st := StepTrace{
			Step:      i + 1,
			Action:    step.Action(),
			TxID:      txID,
			Outcome:   outcome,
			Mutations: []ir.Mutation{},
		}
		if txID != "" {
			st.Mutations = append(st.Mutations, h.journal.MutationsOf(txID)...)
		}
		result.Trace = append(result.Trace, st)

		switch {
		case step.ExpectError == "" && err != nil:
			result.AddError(fmt.Sprintf("step %d (%s): unexpected error: %v", i+1, step.Action(), err))
		case step.ExpectError != "" && err == nil:
			result.AddError(fmt.Sprintf("step %d (%s): expected %s, got success", i+1, step.Action(), step.ExpectError))
		case step.ExpectError != "" && step.ExpectError != outcome:
			result.AddError(fmt.Sprintf("step %d (%s): expected %s, got %s: %v", i+1, step.Action(), step.ExpectError, outcome, err))
		}

		h.logger.Info("step completed",
			"step", i+1,
			"action", step.Action(),
			"tx", txID,
			"outcome", outcome,
			"mutations", len(st.Mutations),
		)
	}
	return nil
}

// journalError marks failures of the journal itself, as opposed to
// refused operations.
type journalError struct{ err error }

func (e *journalError) Error() string { return e.err.Error() }
func (e *journalError) Unwrap() error { return e.err }

// execute runs one step and returns the ID of the transaction it ran in.
func (h *Harness) execute(ctx context.Context, step Step) (string, error) {
	if step.Undo != nil {
		tx, err := h.journal.Undo(ctx, h.txs[step.Undo.Step-1])
		return tx.ID, err
	}

	tx, err := h.journal.Begin(ctx, describeStep(step))
	if err != nil {
		return "", &journalError{err}
	}
	opErr := h.apply(step)
	if err := h.journal.Commit(); err != nil {
		return tx.ID, &journalError{err}
	}
	return tx.ID, opErr
}

// apply performs the link operation of step.
func (h *Harness) apply(step Step) error {
	switch {
	case step.Connect != nil:
		out, in, err := parsePair(step.Connect.From, step.Connect.To)
		if err != nil {
			return err
		}
		create := step.Connect.CreatePorts == nil || *step.Connect.CreatePorts
		_, err = h.linker.Connect(out, in, create)
		return err

	case step.Disconnect != nil:
		in, err := ir.ParseEndpoint(step.Disconnect.To)
		if err != nil {
			return err
		}
		l := h.linker.FromIn(in)
		if step.Disconnect.From != "" {
			out, err := ir.ParseEndpoint(step.Disconnect.From)
			if err != nil {
				return err
			}
			l = h.linker.NewLink(out, in)
		}
		if !h.linker.Disconnect(l) {
			return errNothingRemoved
		}
		return nil

	case step.Insert != nil:
		in, err := ir.ParseEndpoint(step.Insert.To)
		if err != nil {
			return err
		}
		_, err = h.linker.InsertBetween(h.linker.FromIn(in), ir.NewKey(step.Insert.Node), step.Insert.InPort, step.Insert.OutPort)
		return err

	case step.Remove != nil:
		return h.linker.RemoveNode(ir.NewKey(step.Remove.Node))
	}
	return fmt.Errorf("step has no operation")
}

func parsePair(from, to string) (ir.Endpoint, ir.Endpoint, error) {
	out, err := ir.ParseEndpoint(from)
	if err != nil {
		return ir.Endpoint{}, ir.Endpoint{}, err
	}
	in, err := ir.ParseEndpoint(to)
	if err != nil {
		return ir.Endpoint{}, ir.Endpoint{}, err
	}
	return out, in, nil
}

// describeStep names the transaction a step runs in.
func describeStep(s Step) string {
	switch {
	case s.Connect != nil:
		return fmt.Sprintf("connect %s -> %s", s.Connect.From, s.Connect.To)
	case s.Disconnect != nil:
		return "disconnect " + s.Disconnect.To
	case s.Insert != nil:
		return fmt.Sprintf("insert %s before %s", s.Insert.Node, s.Insert.To)
	case s.Remove != nil:
		return "remove " + s.Remove.Node
	}
	return s.Action()
}

// outcomeOf maps a step error to the code scenarios match expect_error
// against.
func outcomeOf(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if code := link.CodeOf(err); code != "" {
		return string(code)
	}
	switch {
	case errors.Is(err, errNothingRemoved):
		return OutcomeNothingRemoved
	case errors.Is(err, history.ErrIrreversible):
		return OutcomeIrreversible
	case errors.Is(err, history.ErrUndoFailed):
		return OutcomeUndoFailed
	}
	return OutcomeError
}
