package host

import (
	"fmt"
	"slices"
	"sort"

	"github.com/roach88/nodelink/internal/graph"
	"github.com/roach88/nodelink/internal/ir"
)

// Names of the boundary proxies the host creates inside every group.
const (
	BoundaryInName  = "Multi-Port-In"
	BoundaryOutName = "Multi-Port-Out"
)

type inSlot struct {
	linked bool
	from   ir.Endpoint
}

type node struct {
	key   ir.Key
	kind  ir.Kind
	in    []inSlot
	out   [][]ir.Endpoint
	attrs map[string]*Attribute
}

// Memory is an in-memory host graph rooted at a single root scope.
type Memory struct {
	root  ir.Key
	nodes map[ir.Key]*node
}

var (
	_ graph.Host   = (*Memory)(nil)
	_ graph.Editor = (*Memory)(nil)
)

// NewMemory creates an empty graph with root scope root (e.g. "Top").
func NewMemory(root ir.Key) *Memory {
	m := &Memory{root: root, nodes: make(map[ir.Key]*node)}
	m.nodes[root] = &node{key: root, kind: ir.KindGroup}
	return m
}

// Root returns the root scope key.
func (m *Memory) Root() ir.Key {
	return m.root
}

// AddNode creates a node with fixed initial port counts. The parent scope
// must already exist and be a group. Boundary proxies cannot be added; the
// host creates them.
func (m *Memory) AddNode(key ir.Key, kind ir.Kind, in, out int) error {
	if _, exists := m.nodes[key]; exists {
		return fmt.Errorf("add %s: node already exists", key)
	}
	if kind.IsBoundary() {
		return fmt.Errorf("add %s: boundary proxies are created by the host", key)
	}
	if in < 0 || out < 0 {
		return fmt.Errorf("add %s: negative port count", key)
	}
	if kind == ir.KindPassThrough && (in > 1 || out > 1) {
		return fmt.Errorf("add %s: pass-through nodes have one in-port and one out-port", key)
	}
	parent, ok := m.nodes[key.Parent()]
	if !ok || parent.kind != ir.KindGroup {
		return fmt.Errorf("add %s: parent scope %s is not a group", key, key.Parent())
	}
	n := &node{
		key:  key,
		kind: kind,
		in:   make([]inSlot, in),
		out:  make([][]ir.Endpoint, out),
	}
	m.nodes[key] = n
	return nil
}

// Resolve implements graph.Host. Proxy keys resolve (and are created) as
// soon as their group exists.
func (m *Memory) Resolve(key ir.Key) (graph.NodeInfo, bool) {
	n, ok := m.lookup(key)
	if !ok {
		return graph.NodeInfo{}, false
	}
	return graph.NodeInfo{Key: n.key, Kind: n.kind, Parent: n.key.Parent()}, true
}

// Exists implements graph.Host.
func (m *Memory) Exists(key ir.Key) bool {
	_, ok := m.lookup(key)
	return ok
}

// PortCounts implements graph.Host.
func (m *Memory) PortCounts(key ir.Key) (ir.PortCounts, bool) {
	n, ok := m.lookup(key)
	if !ok {
		return ir.PortCounts{}, false
	}
	return ir.PortCounts{In: len(n.in), Out: len(n.out)}, true
}

// SourceOf implements graph.Host.
func (m *Memory) SourceOf(key ir.Key, inPort int) (ir.Source, bool) {
	n, ok := m.nodes[key]
	if !ok || inPort < 0 || inPort >= len(n.in) || !n.in[inPort].linked {
		return ir.Source{}, false
	}
	from := n.in[inPort].from
	src := m.nodes[from.Node]
	idx := slices.Index(src.out[from.Port], ir.Endpoint{Node: key, Port: inPort})
	return ir.Source{Node: from.Node, Port: from.Port, LinkIndex: idx}, true
}

// DestinationsOf implements graph.Host.
func (m *Memory) DestinationsOf(key ir.Key, outPort int) []ir.Endpoint {
	n, ok := m.nodes[key]
	if !ok || outPort < 0 || outPort >= len(n.out) {
		return nil
	}
	return slices.Clone(n.out[outPort])
}

// BoundaryInOf implements graph.Host.
func (m *Memory) BoundaryInOf(scope ir.Key) (ir.Key, bool) {
	n, ok := m.proxy(scope, ir.KindBoundaryIn)
	if !ok {
		return ir.NoKey, false
	}
	return n.key, true
}

// BoundaryOutOf implements graph.Host.
func (m *Memory) BoundaryOutOf(scope ir.Key) (ir.Key, bool) {
	n, ok := m.proxy(scope, ir.KindBoundaryOut)
	if !ok {
		return ir.NoKey, false
	}
	return n.key, true
}

// ParentScopeOf implements graph.Host.
func (m *Memory) ParentScopeOf(key ir.Key) ir.Key {
	return key.Parent()
}

// CreateLink implements graph.Host.
func (m *Memory) CreateLink(outKey ir.Key, outPort int, inKey ir.Key, inPort int, createOut, createIn bool) bool {
	src, ok := m.lookup(outKey)
	if !ok {
		return false
	}
	dst, ok := m.lookup(inKey)
	if !ok || src == dst {
		return false
	}
	if outKey.Parent() != inKey.Parent() {
		return false
	}
	if outPort < 0 || inPort < 0 {
		return false
	}

	// Validate both sides before touching anything.
	growOut := false
	switch {
	case outPort < len(src.out):
	case outPort == len(src.out) && createOut && graph.CanCreatePort(src.kind, ir.Out):
		growOut = true
	default:
		return false
	}
	growIn, insertIn := false, false
	switch {
	case inPort < len(dst.in) && !dst.in[inPort].linked:
	case inPort < len(dst.in) && createIn && graph.CollapsesOnUnlink(dst.kind):
		insertIn = true
	case inPort == len(dst.in) && createIn && graph.CanCreatePort(dst.kind, ir.In):
		growIn = true
	default:
		return false
	}

	if growOut {
		m.resize(src, ir.Out, len(src.out)+1)
	}
	if growIn {
		m.resize(dst, ir.In, len(dst.in)+1)
	}
	if insertIn {
		m.insertInPort(dst, inPort)
	}

	dst.in[inPort] = inSlot{linked: true, from: ir.Endpoint{Node: outKey, Port: outPort}}
	src.out[outPort] = append(src.out[outPort], ir.Endpoint{Node: inKey, Port: inPort})
	return true
}

// RemoveLink implements graph.Host.
func (m *Memory) RemoveLink(key ir.Key, inPort int) bool {
	n, ok := m.nodes[key]
	if !ok || inPort < 0 || inPort >= len(n.in) || !n.in[inPort].linked {
		return false
	}
	m.unlink(n, inPort)
	return true
}

// DeleteNode implements graph.Host. Deleting a group deletes its whole
// subtree, proxies included.
func (m *Memory) DeleteNode(key ir.Key) bool {
	if key == m.root {
		return false
	}
	if _, ok := m.nodes[key]; !ok {
		return false
	}
	m.detachSubtree(key)
	for k := range m.nodes {
		if key.Contains(k) {
			delete(m.nodes, k)
		}
	}
	return true
}

// Rename implements graph.Editor.
func (m *Memory) Rename(key ir.Key, name string) (ir.Key, bool) {
	if key == m.root || name == "" {
		return ir.NoKey, false
	}
	n, ok := m.nodes[key]
	if !ok || n.kind.IsBoundary() {
		return ir.NoKey, false
	}
	renamed := ir.JoinKey(key.Parent(), name)
	if _, taken := m.nodes[renamed]; taken {
		return ir.NoKey, false
	}
	m.rekey(key, renamed)
	return renamed, true
}

// Move implements graph.Editor. Links leaving or entering the moved subtree
// are dropped, since they would no longer join nodes of the same scope.
func (m *Memory) Move(key ir.Key, scope ir.Key) (ir.Key, bool) {
	n, ok := m.nodes[key]
	if !ok || key == m.root || n.kind.IsBoundary() {
		return ir.NoKey, false
	}
	target, ok := m.nodes[scope]
	if !ok || target.kind != ir.KindGroup || key.Contains(scope) {
		return ir.NoKey, false
	}
	moved := ir.JoinKey(scope, key.Name())
	if _, taken := m.nodes[moved]; taken {
		return ir.NoKey, false
	}
	m.detachSubtree(key)
	m.rekey(key, moved)
	return moved, true
}

// Links returns every structural link, sorted by destination.
func (m *Memory) Links() []ir.LinkSpec {
	var links []ir.LinkSpec
	for _, n := range m.nodes {
		for p, slot := range n.in {
			if slot.linked {
				links = append(links, ir.LinkSpec{From: slot.from, To: ir.Endpoint{Node: n.key, Port: p}})
			}
		}
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].To.Node != links[j].To.Node {
			return links[i].To.Node < links[j].To.Node
		}
		return links[i].To.Port < links[j].To.Port
	})
	return links
}

// Keys returns every node key in sorted order.
func (m *Memory) Keys() []ir.Key {
	keys := make([]ir.Key, 0, len(m.nodes))
	for k := range m.nodes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Check verifies the structural invariants: every in-port has at most one
// source and that source lists it, every out-port destination points back,
// and group port counts mirror their proxies.
func (m *Memory) Check() error {
	for _, n := range m.nodes {
		for p, slot := range n.in {
			if !slot.linked {
				continue
			}
			src, ok := m.nodes[slot.from.Node]
			if !ok || slot.from.Port >= len(src.out) {
				return fmt.Errorf("%s[%d]: source %s does not exist", n.key, p, slot.from)
			}
			if c := countEndpoint(src.out[slot.from.Port], ir.Endpoint{Node: n.key, Port: p}); c != 1 {
				return fmt.Errorf("%s[%d]: listed %d times by source %s", n.key, p, c, slot.from)
			}
		}
		for p, dests := range n.out {
			for _, d := range dests {
				dst, ok := m.nodes[d.Node]
				if !ok || d.Port >= len(dst.in) || !dst.in[d.Port].linked ||
					dst.in[d.Port].from != (ir.Endpoint{Node: n.key, Port: p}) {
					return fmt.Errorf("%s[%d] -> %s: destination does not point back", n.key, p, d)
				}
			}
		}
		if n.kind == ir.KindGroup && n.key != m.root {
			if bi, ok := m.nodes[ir.JoinKey(n.key, BoundaryInName)]; ok && len(bi.out) != len(n.in) {
				return fmt.Errorf("%s: %d in-ports but boundary-in has %d out-ports", n.key, len(n.in), len(bi.out))
			}
			if bo, ok := m.nodes[ir.JoinKey(n.key, BoundaryOutName)]; ok && len(bo.in) != len(n.out) {
				return fmt.Errorf("%s: %d out-ports but boundary-out has %d in-ports", n.key, len(n.out), len(bo.in))
			}
		}
	}
	return nil
}

func countEndpoint(list []ir.Endpoint, e ir.Endpoint) int {
	c := 0
	for _, x := range list {
		if x == e {
			c++
		}
	}
	return c
}

// lookup finds key, creating a boundary proxy on demand when key names one.
func (m *Memory) lookup(key ir.Key) (*node, bool) {
	if n, ok := m.nodes[key]; ok {
		return n, true
	}
	switch key.Name() {
	case BoundaryInName:
		return m.proxy(key.Parent(), ir.KindBoundaryIn)
	case BoundaryOutName:
		return m.proxy(key.Parent(), ir.KindBoundaryOut)
	}
	return nil, false
}

// proxy returns (creating on first use) a boundary proxy of group scope.
func (m *Memory) proxy(scope ir.Key, kind ir.Kind) (*node, bool) {
	g, ok := m.nodes[scope]
	if !ok || g.kind != ir.KindGroup || scope == m.root {
		return nil, false
	}
	name := BoundaryInName
	if kind == ir.KindBoundaryOut {
		name = BoundaryOutName
	}
	key := ir.JoinKey(scope, name)
	if n, ok := m.nodes[key]; ok {
		return n, true
	}
	n := &node{key: key, kind: kind}
	if kind == ir.KindBoundaryIn {
		n.out = make([][]ir.Endpoint, len(g.in))
	} else {
		n.in = make([]inSlot, len(g.out))
	}
	m.nodes[key] = n
	return n, true
}

// mirror returns the node whose ports pair with n's ports in direction d.
func (m *Memory) mirror(n *node, d ir.Direction) (*node, ir.Direction, bool) {
	switch {
	case n.kind == ir.KindGroup && d == ir.In:
		p, ok := m.nodes[ir.JoinKey(n.key, BoundaryInName)]
		return p, ir.Out, ok
	case n.kind == ir.KindGroup && d == ir.Out:
		p, ok := m.nodes[ir.JoinKey(n.key, BoundaryOutName)]
		return p, ir.In, ok
	case n.kind == ir.KindBoundaryIn && d == ir.Out:
		p, ok := m.nodes[n.key.Parent()]
		return p, ir.In, ok
	case n.kind == ir.KindBoundaryOut && d == ir.In:
		p, ok := m.nodes[n.key.Parent()]
		return p, ir.Out, ok
	}
	return nil, d, false
}

// resize grows n's ports in direction d to count, keeping the mirrored
// proxy or group in step.
func (m *Memory) resize(n *node, d ir.Direction, count int) {
	grow := func(n *node, d ir.Direction) {
		if d == ir.In {
			for len(n.in) < count {
				n.in = append(n.in, inSlot{})
			}
		} else {
			for len(n.out) < count {
				n.out = append(n.out, nil)
			}
		}
	}
	grow(n, d)
	if p, pd, ok := m.mirror(n, d); ok {
		grow(p, pd)
	}
}

// insertInPort opens an empty in-port at index p, shifting later ports up.
func (m *Memory) insertInPort(n *node, p int) {
	n.in = slices.Insert(n.in, p, inSlot{})
	for q := len(n.in) - 1; q > p; q-- {
		m.repoint(n, q-1, q)
	}
}

// unlink removes the link on in-port p of n, collapsing the port for kinds
// that drop unlinked ports.
func (m *Memory) unlink(n *node, p int) {
	from := n.in[p].from
	if src, ok := m.nodes[from.Node]; ok {
		src.out[from.Port] = slices.DeleteFunc(src.out[from.Port], func(e ir.Endpoint) bool {
			return e == ir.Endpoint{Node: n.key, Port: p}
		})
	}
	n.in[p] = inSlot{}
	if !graph.CollapsesOnUnlink(n.kind) {
		return
	}
	n.in = slices.Delete(n.in, p, p+1)
	for q := p; q < len(n.in); q++ {
		m.repoint(n, q+1, q)
	}
}

// repoint updates the source of n's in-port (now at index to, previously at
// index from) so its destination list matches.
func (m *Memory) repoint(n *node, from, to int) {
	slot := n.in[to]
	if !slot.linked {
		return
	}
	src := m.nodes[slot.from.Node]
	dests := src.out[slot.from.Port]
	for i, e := range dests {
		if e == (ir.Endpoint{Node: n.key, Port: from}) {
			dests[i].Port = to
			return
		}
	}
}

// detachSubtree removes every link joining a node inside root's subtree to
// a node outside it.
func (m *Memory) detachSubtree(root ir.Key) {
	for {
		in, found := m.findCrossingLink(root)
		if !found {
			return
		}
		m.unlink(m.nodes[in.Node], in.Port)
	}
}

func (m *Memory) findCrossingLink(root ir.Key) (ir.Endpoint, bool) {
	for _, n := range m.nodes {
		for p, slot := range n.in {
			if slot.linked && root.Contains(n.key) != root.Contains(slot.from.Node) {
				return ir.Endpoint{Node: n.key, Port: p}, true
			}
		}
	}
	return ir.Endpoint{}, false
}

// rekey renames every node in old's subtree and every endpoint referring
// to one.
func (m *Memory) rekey(old, renamed ir.Key) {
	move := func(k ir.Key) ir.Key {
		if old.Contains(k) {
			return renamed + k[len(old):]
		}
		return k
	}
	next := make(map[ir.Key]*node, len(m.nodes))
	for k, n := range m.nodes {
		n.key = move(k)
		for p := range n.in {
			n.in[p].from.Node = move(n.in[p].from.Node)
		}
		for p := range n.out {
			for i := range n.out[p] {
				n.out[p][i].Node = move(n.out[p][i].Node)
			}
		}
		next[n.key] = n
	}
	m.nodes = next
}
