package link

import (
	"fmt"
	"slices"

	"github.com/roach88/nodelink/internal/graph"
	"github.com/roach88/nodelink/internal/ir"
)

// PathSegment is one structural leg of a logical connection, planned but
// not necessarily realized.
type PathSegment struct {
	From     ir.Key
	FromPort int
	To       ir.Key
	ToPort   int

	// Exists marks a leg already present in the graph; it is never
	// recreated.
	Exists bool

	// CreatePort marks a leg whose realization creates a port on one of its
	// ends. It is only set when creating that port is permitted.
	CreatePort bool
}

func (s PathSegment) String() string {
	state := "new"
	if s.Exists {
		state = "exists"
	} else if s.CreatePort {
		state = "new+port"
	}
	return fmt.Sprintf("%s[%d] -> %s[%d] (%s)", s.From, s.FromPort, s.To, s.ToPort, state)
}

// FindOutwardPath plans the legs climbing from from out of every enclosing
// scope until reaching targetScope, on the way to the in-port to. At each
// level it reuses, in order: a leg from the current position into the
// scope's boundary-out, a boundary-out in-port whose group out-port is
// unused, a boundary-out in-port whose group out-port already heads toward
// to and reaches no other in-port; otherwise it allocates a new port
// pair when allowCreate permits.
//
// It returns the legs and the position reached inside targetScope.
func (k *Linker) FindOutwardPath(from ir.Endpoint, targetScope ir.Key, to ir.Endpoint, allowCreate bool) ([]PathSegment, ir.Endpoint, error) {
	chain := graph.ScopesBetween(targetScope, k.reg.ScopeOf(to.Node))
	if chain == nil {
		return nil, from, newError(CodeInvalidEndpoint, nil, "%s is not inside scope %s", to.Node, targetScope)
	}
	onward := to
	if len(chain) > 0 {
		onward = ir.Endpoint{Node: chain[0], Port: ir.NoPort}
	}
	return k.outward(from, targetScope, onward, to, allowCreate, nil)
}

// onward is where the connection continues once it reaches targetScope; a
// port of ir.NoPort matches any port of that node.
func (k *Linker) outward(pos ir.Endpoint, targetScope ir.Key, onward, to ir.Endpoint, allowCreate bool, legs []PathSegment) ([]PathSegment, ir.Endpoint, error) {
	scope := k.reg.ScopeOf(pos.Node)
	if scope == targetScope {
		return legs, pos, nil
	}
	if !targetScope.Contains(scope) {
		return nil, pos, newError(CodeInvalidEndpoint, nil, "%s is not inside scope %s", pos.Node, targetScope)
	}
	bo, ok := k.reg.BoundaryOut(scope)
	if !ok {
		return nil, pos, newError(CodeInvalidEndpoint, nil, "scope %s has no boundary-out proxy", scope)
	}

	next := onward
	if parent := k.reg.ScopeOf(scope); parent != targetScope {
		outer, _ := k.reg.BoundaryOut(parent)
		next = ir.Endpoint{Node: outer, Port: ir.NoPort}
	}

	seg := PathSegment{From: pos.Node, FromPort: pos.Port, To: bo, ToPort: ir.NoPort}
	for _, d := range k.reg.DestinationsOf(pos.Node, pos.Port) {
		if d.Node == bo {
			seg.ToPort, seg.Exists = d.Port, true
			break
		}
	}
	if !seg.Exists {
		port, err := k.pickPair(bo, ir.In, scope, ir.Out, next, to, allowCreate)
		if err != nil {
			return nil, pos, err
		}
		seg.ToPort = port
		seg.CreatePort = k.needsPort(pos, ir.Endpoint{Node: bo, Port: port})
	}
	return k.outward(ir.Endpoint{Node: scope, Port: seg.ToPort}, targetScope, onward, to, allowCreate, append(legs, seg))
}

// FindInwardPath plans the legs descending from from, a position in the
// common ancestor scope, into every scope enclosing to, ending with the
// terminal leg into to. At each level it reuses, in order: an existing
// connection from the current position into the scope, a free in-port whose
// boundary-in out-port is unused, a free in-port whose boundary-in out-port
// already feeds only the next hop and reaches no in-port other than to;
// otherwise it allocates a new port pair
// when allowCreate permits.
func (k *Linker) FindInwardPath(from ir.Endpoint, to ir.Endpoint, allowCreate bool) ([]PathSegment, error) {
	chain := graph.ScopesBetween(k.reg.ScopeOf(from.Node), k.reg.ScopeOf(to.Node))
	if chain == nil {
		return nil, newError(CodeInvalidEndpoint, nil, "%s is not below the scope of %s", to.Node, from.Node)
	}
	return k.inward(from, chain, to, allowCreate, false, nil)
}

func (k *Linker) inward(pos ir.Endpoint, chain []ir.Key, to ir.Endpoint, allowCreate, insertIn bool, legs []PathSegment) ([]PathSegment, error) {
	if len(chain) == 0 {
		return append(legs, k.terminal(pos, to, insertIn)), nil
	}
	scope := chain[0]
	bi, ok := k.reg.BoundaryIn(scope)
	if !ok {
		return nil, newError(CodeInvalidEndpoint, nil, "scope %s has no boundary-in proxy", scope)
	}

	next := to
	if len(chain) > 1 {
		next = ir.Endpoint{Node: chain[1], Port: ir.NoPort}
	}

	seg := PathSegment{From: pos.Node, FromPort: pos.Port, To: scope, ToPort: ir.NoPort}
	for _, d := range k.reg.DestinationsOf(pos.Node, pos.Port) {
		if d.Node == scope {
			seg.ToPort, seg.Exists = d.Port, true
			break
		}
	}
	if !seg.Exists {
		port, err := k.pickPair(scope, ir.In, bi, ir.Out, next, to, allowCreate)
		if err != nil {
			return nil, err
		}
		seg.ToPort = port
		seg.CreatePort = k.needsPort(pos, ir.Endpoint{Node: scope, Port: port})
	}
	return k.inward(ir.Endpoint{Node: bi, Port: seg.ToPort}, chain[1:], to, allowCreate, insertIn, append(legs, seg))
}

func (k *Linker) terminal(pos, to ir.Endpoint, insertIn bool) PathSegment {
	seg := PathSegment{From: pos.Node, FromPort: pos.Port, To: to.Node, ToPort: to.Port}
	if !insertIn {
		seg.Exists = slices.Contains(k.reg.DestinationsOf(pos.Node, pos.Port), to)
	}
	seg.CreatePort = !seg.Exists && (insertIn || k.needsPort(pos, to))
	return seg
}

// pickPair chooses the port on entry (a boundary-out in-port or a group
// in-port) for a new leg. Its counterpart is the paired port on exit, the
// other side of the scope edge. A partly used pair is only taken when
// everything its exit port reaches is to, so reuse never feeds a new source
// into another in-port.
func (k *Linker) pickPair(entry ir.Key, entryDir ir.Direction, exit ir.Key, exitDir ir.Direction, next, to ir.Endpoint, allowCreate bool) (int, error) {
	count := k.reg.PortCount(entry, entryDir)
	for p := 0; p < count; p++ {
		if k.reg.IsFree(entry, entryDir, p) && k.reg.IsFree(exit, exitDir, p) {
			return p, nil
		}
	}
	for p := 0; p < count; p++ {
		if k.reg.IsFree(entry, entryDir, p) && k.reusable(ir.Endpoint{Node: exit, Port: p}, next, to) {
			return p, nil
		}
	}
	n, ok := k.reg.Node(entry)
	if !ok {
		return ir.NoPort, newError(CodeInvalidEndpoint, nil, "%s does not exist", entry)
	}
	if !allowCreate {
		return ir.NoPort, newError(CodeInvalidEndpoint, nil, "no free %s-port on %s and port creation is not allowed", entryDir, entry)
	}
	if !n.CanCreatePort(entryDir) {
		return ir.NoPort, newError(CodeInvalidEndpoint, nil, "%s nodes cannot create %s-ports", n.Kind(), entryDir)
	}
	return count, nil
}

// needsPort reports whether linking out to in requires creating a port.
func (k *Linker) needsPort(out, in ir.Endpoint) bool {
	return out.Port >= k.reg.PortCount(out.Node, ir.Out) || in.Port >= k.reg.PortCount(in.Node, ir.In)
}

// reusable reports whether the exit port of a partly used pair heads only
// for next and reaches no in-port besides to.
func (k *Linker) reusable(exit, next, to ir.Endpoint) bool {
	if !leadsOnlyTo(k.reg.DestinationsOf(exit.Node, exit.Port), next) {
		return false
	}
	for _, t := range k.targets(exit) {
		if t != to {
			return false
		}
	}
	return true
}

func leadsOnlyTo(dests []ir.Endpoint, next ir.Endpoint) bool {
	if len(dests) == 0 || next.Node == ir.NoKey {
		return false
	}
	for _, d := range dests {
		if d.Node != next.Node || (next.Port != ir.NoPort && d.Port != next.Port) {
			return false
		}
	}
	return true
}

// plan computes every leg of out -> in, outward legs first.
func (k *Linker) plan(out, in ir.Endpoint, allowCreate, insertIn bool) ([]PathSegment, error) {
	outScope, inScope := k.reg.ScopeOf(out.Node), k.reg.ScopeOf(in.Node)
	if outScope == inScope {
		return []PathSegment{k.terminal(out, in, insertIn)}, nil
	}

	ancestor := graph.CommonAncestor(outScope, inScope)
	chain := graph.ScopesBetween(ancestor, inScope)
	if chain == nil {
		return nil, newError(CodeInvalidEndpoint, nil, "%s and %s share no scope", out.Node, in.Node)
	}
	outward, pos, err := k.FindOutwardPath(out, ancestor, in, allowCreate)
	if err != nil {
		return nil, err
	}
	legs, err := k.inward(pos, chain, in, allowCreate, insertIn, outward)
	if err != nil {
		return nil, err
	}
	return legs, nil
}
