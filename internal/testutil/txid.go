package testutil

import (
	"strconv"
	"sync"
)

// SequentialTxGenerator returns prefix-1, prefix-2, ... as transaction IDs.
// It satisfies history.TxTokenGenerator and never runs out.
type SequentialTxGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialTxGenerator creates a generator with the given prefix.
// The prefix usually comes from the scenario file:
//
//	tx_prefix: "connect-demo"
//
// If prefix is empty, IDs are "tx-1", "tx-2", ...
func NewSequentialTxGenerator(prefix string) *SequentialTxGenerator {
	if prefix == "" {
		prefix = "tx"
	}
	return &SequentialTxGenerator{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequentialTxGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return g.prefix + "-" + strconv.Itoa(g.n)
}

// Reset restarts numbering at 1.
func (g *SequentialTxGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
