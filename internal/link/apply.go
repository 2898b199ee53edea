package link

import (
	"errors"

	"github.com/roach88/nodelink/internal/graph"
	"github.com/roach88/nodelink/internal/ir"
)

// Apply realizes l in the graph.
//
// Unless force is set, a link that was established before is diffed
// against that state, and the old connection is removed when either end
// changed. A destination in-port carrying some other connection is cleared
// first when auto-disconnect is on, otherwise Apply fails with
// CodePortOccupied before touching the graph. Missing legs are created
// outward first, then inward, and the result must validate or Apply fails
// with CodeStructuralInconsistency.
//
// Planning reads the boundary proxies of every scope crossed, and a host
// that creates proxies on first use may therefore keep new, unlinked proxies
// after a rejected Apply. No link or port is touched before the rejection.
//
// Applying a link that already exists is a no-op.
func (k *Linker) Apply(l *Link, force bool) (err error) {
	span := k.span("link.Apply", l)
	defer func() { endSpan(span, err) }()
	return k.apply(l, force, k.autoDisconnect)
}

func (k *Linker) apply(l *Link, force, autoDisconnect bool) error {
	if err := k.checkEndpoints(l); err != nil {
		return err
	}

	prev := k.previous(l, force)
	exists := l.Validate()
	if exists && prev == nil {
		k.logger.Debug("link already realized", "link", Describe(l))
		l.insertIn = false
		return nil
	}

	// Probe read-only so that every rejection happens before the first
	// mutation.
	foreign := false
	if !exists {
		probe, err := k.plan(l.out, l.in, l.allowCreate, l.insertIn)
		if err != nil {
			return withLink(err, l)
		}
		_, occupied := k.reg.SourceOf(l.in.Node, l.in.Port)
		terminal := probe[len(probe)-1]
		foreign = occupied && !terminal.Exists && !l.insertIn && (prev == nil || prev.in != l.in)
		if foreign && !autoDisconnect {
			return newError(CodePortOccupied, l, "%s is already linked", l.in)
		}
	}

	var loose []ir.Endpoint
	if prev != nil && !(exists && prev.in == l.in) {
		src, err := k.removeInto(l, prev.in)
		if err != nil {
			return err
		}
		loose = append(loose, src)
		k.logger.Info("removed previous connection", "from", prev.out, "to", prev.in)
	}
	if foreign {
		src, err := k.removeInto(l, l.in)
		if err != nil {
			return err
		}
		loose = append(loose, src)
		k.logger.Info("disconnected occupied in-port", "port", l.in, "from", src)
	}

	if !exists {
		legs, err := k.plan(l.out, l.in, l.allowCreate, l.insertIn)
		if err != nil {
			return &Error{Code: CodeStructuralInconsistency, Message: "path vanished after disconnecting", Link: Describe(l), Err: err}
		}
		k.logger.Debug("planned link", "link", Describe(l), "legs", len(legs))
		if err := k.realize(l, legs); err != nil {
			return err
		}
	}

	l.insertIn = false
	l.invalidate()
	if !l.Validate() {
		return newError(CodeStructuralInconsistency, l, "link does not validate after apply")
	}
	s := l.current()
	l.applied = &s

	if k.pruneDangling {
		for _, from := range loose {
			if err := k.prune(from); err != nil {
				return err
			}
		}
	}
	return nil
}

// previous returns the state to diff l against: its last realized state,
// when that differs from l's current fields and is still in the graph.
func (k *Linker) previous(l *Link, force bool) *state {
	if force || l.applied == nil {
		return nil
	}
	old := *l.applied
	if old == l.current() {
		return nil
	}
	if _, ok := k.linked(old.out, old.in); !ok {
		l.applied = nil
		return nil
	}
	return &old
}

// removeInto removes the leg feeding in. When the removal collapsed the
// port, l's pending in-port is re-offset: a later port shifts down by one,
// and the same port is re-inserted by the terminal leg.
func (k *Linker) removeInto(l *Link, in ir.Endpoint) (ir.Endpoint, error) {
	src, _ := k.reg.SourceOf(in.Node, in.Port)
	before := k.reg.PortCount(in.Node, ir.In)
	if err := k.reg.RemoveLink(in); err != nil {
		return ir.Endpoint{}, &Error{Code: CodeStructuralInconsistency, Message: "removing link", Link: Describe(l), Err: err}
	}
	if k.reg.PortCount(in.Node, ir.In) < before && in.Node == l.in.Node {
		switch {
		case l.in.Port > in.Port:
			l.in.Port--
		case l.in.Port == in.Port:
			l.insertIn = true
		}
	}
	return src.Endpoint(), nil
}

// realize creates every leg not marked as existing, in order.
func (k *Linker) realize(l *Link, legs []PathSegment) error {
	for _, seg := range legs {
		if seg.Exists {
			continue
		}
		out := ir.Endpoint{Node: seg.From, Port: seg.FromPort}
		in := ir.Endpoint{Node: seg.To, Port: seg.ToPort}
		if err := k.reg.CreateLink(out, in, seg.CreatePort, seg.CreatePort); err != nil {
			return &Error{Code: CodeStructuralInconsistency, Message: "creating leg " + seg.String(), Link: Describe(l), Err: err}
		}
		k.logger.Info("created leg", "from", out, "to", in, "create_port", seg.CreatePort)
	}
	return nil
}

// checkEndpoints rejects links that can never be applied: unknown or
// unresolvable ends, boundary proxies as ends, self links, groups linked
// with their own contents, and ports the node's kind cannot create.
func (k *Linker) checkEndpoints(l *Link) error {
	if !l.out.Known() || !l.in.Known() {
		return newError(CodeInvalidEndpoint, l, "both ends must be known to apply a link")
	}
	outNode, ok := k.reg.Node(l.out.Node)
	if !ok {
		return newError(CodeInvalidEndpoint, l, "%s does not exist", l.out.Node)
	}
	inNode, ok := k.reg.Node(l.in.Node)
	if !ok {
		return newError(CodeInvalidEndpoint, l, "%s does not exist", l.in.Node)
	}
	if outNode.IsBoundary() || inNode.IsBoundary() {
		return newError(CodeInvalidEndpoint, l, "boundary proxies cannot be link endpoints")
	}
	if l.out.Node == l.in.Node {
		return newError(CodeInvalidEndpoint, l, "cannot link %s to itself", l.out.Node)
	}
	if l.out.Node.Contains(l.in.Node) || l.in.Node.Contains(l.out.Node) {
		return newError(CodeInvalidEndpoint, l, "cannot link a group with its own contents")
	}
	if err := checkPort(l, outNode, ir.Out, l.out.Port, l.allowCreate); err != nil {
		return err
	}
	return checkPort(l, inNode, ir.In, l.in.Port, l.allowCreate || l.insertIn)
}

func checkPort(l *Link, n *graph.Node, d ir.Direction, port int, allowCreate bool) error {
	count := n.PortCount(d)
	switch {
	case port < count:
		return nil
	case port == count && allowCreate && n.CanCreatePort(d):
		return nil
	case port == count && allowCreate:
		return newError(CodeInvalidEndpoint, l, "%s nodes cannot create %s-ports", n.Kind(), d)
	case port == count:
		return newError(CodeInvalidEndpoint, l, "%s has no %s-port %d and port creation is not allowed", n.Key(), d, port)
	}
	return newError(CodeInvalidEndpoint, l, "%s has %d %s-ports, port %d is out of range", n.Key(), count, d, port)
}

func withLink(err error, l *Link) error {
	var le *Error
	if errors.As(err, &le) && le.Link == "" {
		le.Link = Describe(l)
	}
	return err
}
