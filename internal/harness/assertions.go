package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/nodelink/internal/history"
	"github.com/roach88/nodelink/internal/host"
	"github.com/roach88/nodelink/internal/ir"
	"github.com/roach88/nodelink/internal/link"
	"github.com/roach88/nodelink/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string      // Assertion type for categorization
	Expected string      // Human-readable expected outcome
	Actual   string      // Human-readable actual outcome
	Trace    []StepTrace // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, st := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s (%s)\n", st.Step, st.Action, st.TxID, st.Outcome)
		for _, m := range st.Mutations {
			if m.Op == ir.OpDeleteNode {
				fmt.Fprintf(&buf, "      %d %s %s\n", m.Seq, m.Op, m.Node)
				continue
			}
			fmt.Fprintf(&buf, "      %d %s %s -> %s\n", m.Seq, m.Op, m.Out, m.In)
		}
	}

	return buf.String()
}

// AssertionContext carries what assertions inspect after the last step.
type AssertionContext struct {
	Scene   *host.Memory
	Linker  *link.Linker
	Journal *history.Journal
	Store   *store.Store
	Ctx     context.Context
}

// EvaluateAssertions runs every assertion and returns one message per
// failure.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertLinkExists:
		return assertLinkExists(result, a, actx)
	case AssertLinkAbsent:
		return assertLinkAbsent(result, a, actx)
	case AssertStructuralLink:
		return assertStructuralLink(result, a, actx)
	case AssertPortCount:
		return assertPortCount(result, a, actx)
	case AssertFanIn:
		return assertFanIn(result, actx)
	case AssertMutationCount:
		return assertMutationCount(result, a, actx)
	}
	return fmt.Errorf("unknown assertion type: %s", a.Type)
}

// assertLinkExists checks that the logical link a.From -> a.To exists,
// following boundary legs across groups.
func assertLinkExists(result *Result, a Assertion, actx *AssertionContext) error {
	out, in, err := parsePair(a.From, a.To)
	if err != nil {
		return err
	}
	if actx.Linker.NewLink(out, in).Exists() {
		return nil
	}
	actual := "no connection"
	if l := actx.Linker.FromIn(in); l.Exists() {
		actual = "fed by " + l.Out().String()
	}
	return &AssertionError{
		Type:     AssertLinkExists,
		Expected: fmt.Sprintf("%s -> %s", out, in),
		Actual:   actual,
		Trace:    result.Trace,
	}
}

// assertLinkAbsent checks that a.To has no logical source, or none from
// a.From when set.
func assertLinkAbsent(result *Result, a Assertion, actx *AssertionContext) error {
	in, err := ir.ParseEndpoint(a.To)
	if err != nil {
		return err
	}
	l := actx.Linker.FromIn(in)
	if !l.Exists() {
		return nil
	}
	if a.From != "" {
		out, err := ir.ParseEndpoint(a.From)
		if err != nil {
			return err
		}
		if l.Out() != out {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertLinkAbsent,
		Expected: fmt.Sprintf("%s unconnected", in),
		Actual:   "fed by " + l.Out().String(),
		Trace:    result.Trace,
	}
}

// assertStructuralLink checks for a direct host link, boundary proxies
// included.
func assertStructuralLink(result *Result, a Assertion, actx *AssertionContext) error {
	out, in, err := parsePair(a.From, a.To)
	if err != nil {
		return err
	}
	want := ir.LinkSpec{From: out, To: in}
	if slices.Contains(actx.Scene.Links(), want) {
		return nil
	}
	actual := "in-port unlinked"
	if src, ok := actx.Scene.SourceOf(in.Node, in.Port); ok {
		actual = "linked from " + src.Endpoint().String()
	}
	return &AssertionError{
		Type:     AssertStructuralLink,
		Expected: fmt.Sprintf("%s -> %s", out, in),
		Actual:   actual,
		Trace:    result.Trace,
	}
}

func assertPortCount(result *Result, a Assertion, actx *AssertionContext) error {
	key := ir.NewKey(a.Node)
	counts, ok := actx.Scene.PortCounts(key)
	if !ok {
		return &AssertionError{
			Type:     AssertPortCount,
			Expected: fmt.Sprintf("node %s", key),
			Actual:   "node does not exist",
			Trace:    result.Trace,
		}
	}
	if (a.In != nil && *a.In != counts.In) || (a.Out != nil && *a.Out != counts.Out) {
		return &AssertionError{
			Type:     AssertPortCount,
			Expected: formatCounts(a.In, a.Out),
			Actual:   fmt.Sprintf("in=%d out=%d", counts.In, counts.Out),
			Trace:    result.Trace,
		}
	}
	return nil
}

func formatCounts(in, out *int) string {
	var parts []string
	if in != nil {
		parts = append(parts, fmt.Sprintf("in=%d", *in))
	}
	if out != nil {
		parts = append(parts, fmt.Sprintf("out=%d", *out))
	}
	return strings.Join(parts, " ")
}

// assertFanIn checks that no in-port in the scene has more than one source.
func assertFanIn(result *Result, actx *AssertionContext) error {
	if err := actx.Scene.Check(); err != nil {
		return &AssertionError{
			Type:     AssertFanIn,
			Expected: "at most one source per in-port",
			Actual:   err.Error(),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertMutationCount checks the journal size. The persisted journal must
// agree with the in-memory one.
func assertMutationCount(result *Result, a Assertion, actx *AssertionContext) error {
	op := ir.MutationOp(a.Op)
	got := result.MutationCount(op)

	stored, err := actx.Store.ReadAllMutations(actx.Ctx)
	if err != nil {
		return fmt.Errorf("reading stored mutations: %w", err)
	}
	persisted := 0
	for _, m := range stored {
		if op == "" || m.Op == op {
			persisted++
		}
	}
	if persisted != got {
		return &AssertionError{
			Type:     AssertMutationCount,
			Expected: fmt.Sprintf("%d mutations persisted", got),
			Actual:   fmt.Sprintf("%d persisted", persisted),
			Trace:    result.Trace,
		}
	}

	if got != *a.Count {
		what := "mutations"
		if op != "" {
			what = string(op) + " mutations"
		}
		return &AssertionError{
			Type:     AssertMutationCount,
			Expected: fmt.Sprintf("%d %s", *a.Count, what),
			Actual:   fmt.Sprintf("%d", got),
			Trace:    result.Trace,
		}
	}
	return nil
}
