package graph

import "github.com/roach88/nodelink/internal/ir"

// Scope is implemented by nodes that contain other nodes and multiplex
// connections across their edge through boundary proxies.
type Scope interface {
	Key() ir.Key
	BoundaryIn() (*Node, bool)
	BoundaryOut() (*Node, bool)
}

// Group is the Scope view of a group node.
type Group struct {
	*Node
}

// BoundaryIn returns the group's boundary-in proxy.
func (g *Group) BoundaryIn() (*Node, bool) {
	key, ok := g.reg.BoundaryIn(g.Key())
	if !ok {
		return nil, false
	}
	return g.reg.Node(key)
}

// BoundaryOut returns the group's boundary-out proxy.
func (g *Group) BoundaryOut() (*Node, bool) {
	key, ok := g.reg.BoundaryOut(g.Key())
	if !ok {
		return nil, false
	}
	return g.reg.Node(key)
}

// Group resolves key as a group.
func (r *Registry) Group(key ir.Key) (*Group, bool) {
	n, ok := r.Node(key)
	if !ok || !n.IsScope() {
		return nil, false
	}
	return &Group{Node: n}, true
}

// IsRoot reports whether scope is a root scope.
func IsRoot(scope ir.Key) bool {
	return scope != ir.NoKey && scope.Parent() == ir.NoKey
}

// BoundaryIn returns the boundary-in proxy of scope. The root scope and
// non-group nodes have none.
func (r *Registry) BoundaryIn(scope ir.Key) (ir.Key, bool) {
	if IsRoot(scope) {
		return ir.NoKey, false
	}
	return r.host.BoundaryInOf(scope)
}

// BoundaryOut returns the boundary-out proxy of scope.
func (r *Registry) BoundaryOut(scope ir.Key) (ir.Key, bool) {
	if IsRoot(scope) {
		return ir.NoKey, false
	}
	return r.host.BoundaryOutOf(scope)
}

// ScopeOf returns the direct parent scope of key.
func (r *Registry) ScopeOf(key ir.Key) ir.Key {
	if n, ok := r.Node(key); ok {
		return n.Parent()
	}
	return r.host.ParentScopeOf(key)
}

// CommonAncestor returns the lowest scope containing both scopes a and b:
// the longest shared prefix of their path components. It is a pure string
// operation and never consults the host.
func CommonAncestor(a, b ir.Key) ir.Key {
	ac, bc := a.Components(), b.Components()
	n := 0
	for n < len(ac) && n < len(bc) && ac[n] == bc[n] {
		n++
	}
	if n == 0 {
		return ir.NoKey
	}
	key := ir.Key(ac[0])
	for _, c := range ac[1:n] {
		key = ir.JoinKey(key, c)
	}
	return key
}

// ScopesBetween lists the scopes entered when descending from ancestor to
// scope, outermost first, scope included. It is empty when scope is the
// ancestor itself, and nil when ancestor does not contain scope.
func ScopesBetween(ancestor, scope ir.Key) []ir.Key {
	if !ancestor.Contains(scope) {
		return nil
	}
	chain := []ir.Key{}
	for s := scope; s != ancestor; s = s.Parent() {
		chain = append(chain, s)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}
