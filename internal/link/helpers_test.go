package link

import (
	"github.com/stretchr/testify/require"

	"github.com/roach88/nodelink/internal/graph"
	"github.com/roach88/nodelink/internal/host"
	"github.com/roach88/nodelink/internal/ir"
)

type nodeDef struct {
	key     ir.Key
	kind    ir.Kind
	in, out int
}

func ordinary(key ir.Key, in, out int) nodeDef {
	return nodeDef{key: key, kind: ir.KindOrdinary, in: in, out: out}
}

func group(key ir.Key) nodeDef {
	return nodeDef{key: key, kind: ir.KindGroup}
}

// testingT is satisfied by *testing.T and *rapid.T.
type testingT interface {
	require.TestingT
	Helper()
}

func newScene(t testingT, defs ...nodeDef) *host.Memory {
	t.Helper()
	m := host.NewMemory("Top")
	for _, d := range defs {
		require.NoError(t, m.AddNode(d.key, d.kind, d.in, d.out))
	}
	return m
}

func newLinker(m *host.Memory, opts ...Option) *Linker {
	return New(graph.NewRegistry(m), opts...)
}

func ep(node ir.Key, port int) ir.Endpoint {
	return ir.Endpoint{Node: node, Port: port}
}

func structural(from ir.Endpoint, to ir.Endpoint) ir.LinkSpec {
	return ir.LinkSpec{From: from, To: to}
}

// siblingScene has A inside G1 and B inside G2, both under Top.
func siblingScene(t testingT) *host.Memory {
	return newScene(t,
		group("Top/G1"),
		group("Top/G2"),
		ordinary("Top/G1/A", 0, 1),
		ordinary("Top/G1/A2", 0, 1),
		ordinary("Top/G2/B", 1, 0),
		ordinary("Top/G2/B2", 1, 0),
	)
}

func newRegistry(h graph.Host) *graph.Registry {
	return graph.NewRegistry(h)
}
