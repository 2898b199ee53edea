package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialTxGenerator(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		want   []string
	}{
		{"default prefix", "", []string{"tx-1", "tx-2", "tx-3"}},
		{"custom prefix", "demo", []string{"demo-1", "demo-2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := NewSequentialTxGenerator(tt.prefix)
			for _, want := range tt.want {
				assert.Equal(t, want, gen.Generate())
			}
		})
	}
}

func TestSequentialTxGenerator_Reset(t *testing.T) {
	gen := NewSequentialTxGenerator("s")
	gen.Generate()
	gen.Generate()
	gen.Reset()
	assert.Equal(t, "s-1", gen.Generate())
}
