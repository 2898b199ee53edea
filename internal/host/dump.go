package host

import (
	"github.com/roach88/nodelink/internal/ir"
)

// Dump renders the graph as canonical JSON: every node with its kind and
// port counts, then every structural link. Two graphs with the same
// structure dump to identical bytes.
func (m *Memory) Dump() ([]byte, error) {
	nodes := make([]any, 0, len(m.nodes))
	for _, k := range m.Keys() {
		n := m.nodes[k]
		nodes = append(nodes, map[string]any{
			"key":  n.key,
			"kind": n.kind.String(),
			"in":   len(n.in),
			"out":  len(n.out),
		})
	}
	links := make([]any, 0)
	for _, l := range m.Links() {
		links = append(links, map[string]any{"from": l.From, "to": l.To})
	}
	return ir.MarshalCanonical(map[string]any{
		"root":  m.root,
		"nodes": nodes,
		"links": links,
	})
}

// Hash returns the content hash of Dump.
func (m *Memory) Hash() (string, error) {
	b, err := m.Dump()
	if err != nil {
		return "", err
	}
	return ir.SceneHash(b), nil
}
