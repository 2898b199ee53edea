package link

import (
	"errors"

	"github.com/roach88/nodelink/internal/graph"
	"github.com/roach88/nodelink/internal/ir"
)

// Connect links out to in and returns the applied Link. A port of
// ir.NoPort picks the first free port of that node, or a new one when
// allowCreatePorts permits. Connecting an already connected pair is a
// no-op.
func (k *Linker) Connect(out, in ir.Endpoint, allowCreatePorts bool) (l *Link, err error) {
	span := k.span("link.Connect", nil)
	defer func() { endSpan(span, err) }()

	if out, err = k.pickPort(out, ir.Out, allowCreatePorts); err != nil {
		return nil, err
	}
	if in, err = k.pickPort(in, ir.In, allowCreatePorts); err != nil {
		return nil, err
	}
	l = k.NewLink(out, in)
	l.allowCreate = allowCreatePorts
	span.SetAttributes(linkAttr(l))
	if err := k.apply(l, false, k.autoDisconnect); err != nil {
		return nil, err
	}
	return l, nil
}

func (k *Linker) pickPort(e ir.Endpoint, d ir.Direction, allowCreate bool) (ir.Endpoint, error) {
	if e.Port != ir.NoPort {
		return e, nil
	}
	port, ok := k.reg.FreePort(e.Node, d, allowCreate)
	if !ok {
		return e, newError(CodeInvalidEndpoint, nil, "no free %s-port on %s", d, e.Node)
	}
	return ir.Endpoint{Node: e.Node, Port: port}, nil
}

// Disconnect removes l from the graph: the link feeding its in-port, or,
// when only the out-end is known and the rest cannot be derived, the
// destination at its out link index. It reports whether anything was
// removed. An in-port fed by a different connection is left alone.
func (k *Linker) Disconnect(l *Link) (removed bool) {
	span := k.span("link.Disconnect", l)
	defer func() {
		span.SetAttributes(attributeRemoved(removed))
		endSpan(span, nil)
	}()

	if !l.in.Known() && l.out.Known() {
		l.Validate()
	}

	var target ir.Endpoint
	switch {
	case l.in.Known():
		if l.out.Known() && !l.Validate() {
			return false
		}
		target = l.in
	case l.out.Known() && l.outLinkIndex >= 0:
		dests := k.reg.DestinationsOf(l.out.Node, l.out.Port)
		if l.outLinkIndex >= len(dests) {
			return false
		}
		target = dests[l.outLinkIndex]
	default:
		return false
	}

	src, ok := k.reg.SourceOf(target.Node, target.Port)
	if !ok {
		return false
	}
	if err := k.reg.RemoveLink(target); err != nil {
		k.logger.Warn("disconnect refused", "link", Describe(l), "error", err)
		return false
	}
	k.logger.Info("disconnected", "link", Describe(l))

	l.invalidate()
	l.applied = nil
	if k.pruneDangling {
		if err := k.prune(src.Endpoint()); err != nil {
			k.logger.Warn("prune failed", "from", src.Endpoint(), "error", err)
		}
	}
	return true
}

// RemoveNode deletes key from the graph. Pass-through nodes are bypassed:
// every node that fed them is linked directly to every node they fed
// before they are gone. Legs left dangling by the deletion are reused by
// the new connections where they lie on the path.
func (k *Linker) RemoveNode(key ir.Key) (err error) {
	span := k.span("link.RemoveNode", nil)
	defer func() { endSpan(span, err) }()

	n, ok := k.reg.Node(key)
	if !ok {
		return newError(CodeInvalidEndpoint, nil, "%s does not exist", key)
	}
	if n.IsBoundary() {
		return newError(CodeInvalidEndpoint, nil, "%s is a boundary proxy; delete its group instead", key)
	}
	if !graph.IsPassThrough(n.Kind()) {
		return k.deleteNode(key)
	}

	var sources, feeds []ir.Endpoint
	for p := 0; p < n.PortCount(ir.In); p++ {
		hops, real := k.upstream(ir.Endpoint{Node: key, Port: p})
		if len(hops) > 0 {
			feeds = append(feeds, hops[0].Endpoint())
		}
		if real {
			sources = append(sources, hops[len(hops)-1].Endpoint())
		}
	}
	var targets []ir.Endpoint
	for p := 0; p < n.PortCount(ir.Out); p++ {
		targets = append(targets, k.targets(ir.Endpoint{Node: key, Port: p})...)
	}

	if err := k.deleteNode(key); err != nil {
		return err
	}
	k.logger.Info("bypassing removed node", "node", key, "sources", len(sources), "targets", len(targets))

	for _, src := range sources {
		for _, dst := range targets {
			l := k.NewLink(src, dst)
			l.allowCreate = true
			if err := k.apply(l, false, true); err != nil {
				return err
			}
		}
	}
	if k.pruneDangling {
		for _, from := range feeds {
			if err := k.prune(from); err != nil {
				return err
			}
		}
	}
	return nil
}

func (k *Linker) deleteNode(key ir.Key) error {
	if err := k.reg.Delete(key); err != nil {
		code := CodeStructuralInconsistency
		if errors.Is(err, graph.ErrUnknownNode) {
			code = CodeInvalidEndpoint
		}
		return &Error{Code: code, Message: "deleting " + string(key), Err: err}
	}
	return nil
}

// InsertBetween splices node into existing. existing is re-pointed to end
// at node:inPort; the returned Link runs from node:outPort to existing's
// former in-end.
func (k *Linker) InsertBetween(existing *Link, node ir.Key, inPort, outPort int) (second *Link, err error) {
	span := k.span("link.InsertBetween", existing)
	defer func() { endSpan(span, err) }()

	if !existing.Exists() {
		return nil, newError(CodeValidationFailure, existing, "cannot insert into a link that does not exist")
	}
	n, ok := k.reg.Node(node)
	if !ok {
		return nil, newError(CodeInvalidEndpoint, existing, "%s does not exist", node)
	}
	if n.IsBoundary() {
		return nil, newError(CodeInvalidEndpoint, existing, "boundary proxies cannot be link endpoints")
	}

	oldIn := existing.in
	before := k.reg.PortCount(oldIn.Node, ir.In)

	existing.in = ir.Endpoint{Node: node, Port: inPort}
	existing.invalidate()
	if err := k.apply(existing, false, k.autoDisconnect); err != nil {
		return nil, err
	}

	second = k.NewLink(ir.Endpoint{Node: node, Port: outPort}, oldIn)
	second.allowCreate = existing.allowCreate
	if k.reg.PortCount(oldIn.Node, ir.In) < before {
		second.insertIn = true
	}
	if err := k.apply(second, false, k.autoDisconnect); err != nil {
		return nil, err
	}
	return second, nil
}

// InLinks lists one link per linked in-port of key. The out-ends are
// resolved lazily on first access.
func (k *Linker) InLinks(key ir.Key) []*Link {
	var links []*Link
	for p := 0; p < k.reg.PortCount(key, ir.In); p++ {
		if _, ok := k.reg.SourceOf(key, p); ok {
			links = append(links, k.listed(unknownEndpoint(), ir.NoPort, ir.Endpoint{Node: key, Port: p}))
		}
	}
	return links
}

// OutLinks lists one link per destination of every out-port of key. The
// in-ends are resolved lazily on first access.
func (k *Linker) OutLinks(key ir.Key) []*Link {
	var links []*Link
	for p := 0; p < k.reg.PortCount(key, ir.Out); p++ {
		for i := range k.reg.DestinationsOf(key, p) {
			links = append(links, k.listed(ir.Endpoint{Node: key, Port: p}, i, unknownEndpoint()))
		}
	}
	return links
}
