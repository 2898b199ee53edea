package harness

import "github.com/roach88/nodelink/internal/ir"

// StepTrace records what one scenario step did to the scene.
type StepTrace struct {
	Step    int    `json:"step"` // 1-based
	Action  string `json:"action"`
	TxID    string `json:"tx,omitempty"`
	Outcome string `json:"outcome"` // "ok" or an error code

	// Mutations are the journal records filed under TxID, in seq order.
	Mutations []ir.Mutation `json:"mutations"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step met its expectation and every
	// assertion held.
	Pass bool `json:"pass"`

	Trace []StepTrace `json:"trace"`

	// Errors holds one message per failed expectation. Empty if Pass.
	Errors []string `json:"errors,omitempty"`

	// Links is the final structural link list of the scene.
	Links []ir.LinkSpec `json:"links"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []StepTrace{},
		Errors: []string{},
	}
}

// AddError records a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// MutationCount counts the recorded mutations, optionally only those of op.
func (r *Result) MutationCount(op ir.MutationOp) int {
	n := 0
	for _, st := range r.Trace {
		for _, m := range st.Mutations {
			if op == "" || m.Op == op {
				n++
			}
		}
	}
	return n
}
