package link

import (
	"github.com/roach88/nodelink/internal/ir"
)

// upstream follows what feeds in, crossing boundary-in proxies up to their
// group's in-port and group out-ports down to their boundary-out proxy. It
// returns every source passed, nearest first, and whether the walk ended on
// a node that is neither a proxy nor a scope.
func (k *Linker) upstream(in ir.Endpoint) ([]ir.Source, bool) {
	var hops []ir.Source
	seen := make(map[ir.Endpoint]bool)
	cur := in
	for !seen[cur] {
		seen[cur] = true
		src, ok := k.reg.SourceOf(cur.Node, cur.Port)
		if !ok {
			return hops, false
		}
		hops = append(hops, src)
		n, ok := k.reg.Node(src.Node)
		if !ok {
			return hops, false
		}
		switch n.Kind() {
		case ir.KindBoundaryIn:
			cur = ir.Endpoint{Node: n.Parent(), Port: src.Port}
		case ir.KindGroup:
			bo, ok := k.reg.BoundaryOut(src.Node)
			if !ok {
				return hops, false
			}
			cur = ir.Endpoint{Node: bo, Port: src.Port}
		default:
			return hops, true
		}
	}
	return hops, false
}

// downstream follows out to the single in-port it logically feeds. A
// linkIndex >= 0 picks the destination of the first hop; every other hop
// must have exactly one destination. It returns the in-end and the link
// index used on the first hop.
func (k *Linker) downstream(out ir.Endpoint, linkIndex int) (ir.Endpoint, int, bool) {
	seen := make(map[ir.Endpoint]bool)
	cur, idx, first := out, linkIndex, ir.NoPort
	for !seen[cur] {
		seen[cur] = true
		dests := k.reg.DestinationsOf(cur.Node, cur.Port)
		switch {
		case idx >= 0 && idx < len(dests):
		case idx < 0 && len(dests) == 1:
			idx = 0
		default:
			return ir.Endpoint{}, ir.NoPort, false
		}
		d := dests[idx]
		if first < 0 {
			first = idx
		}
		idx = ir.NoPort

		n, ok := k.reg.Node(d.Node)
		if !ok {
			return ir.Endpoint{}, ir.NoPort, false
		}
		switch n.Kind() {
		case ir.KindGroup:
			bi, ok := k.reg.BoundaryIn(d.Node)
			if !ok {
				return ir.Endpoint{}, ir.NoPort, false
			}
			cur = ir.Endpoint{Node: bi, Port: d.Port}
		case ir.KindBoundaryOut:
			cur = ir.Endpoint{Node: n.Parent(), Port: d.Port}
		default:
			return d, first, true
		}
	}
	return ir.Endpoint{}, ir.NoPort, false
}

// targets lists every in-port out logically feeds, following all fan-out.
func (k *Linker) targets(out ir.Endpoint) []ir.Endpoint {
	var found []ir.Endpoint
	seen := make(map[ir.Endpoint]bool)
	var visit func(cur ir.Endpoint)
	visit = func(cur ir.Endpoint) {
		if seen[cur] {
			return
		}
		seen[cur] = true
		for _, d := range k.reg.DestinationsOf(cur.Node, cur.Port) {
			n, ok := k.reg.Node(d.Node)
			if !ok {
				continue
			}
			switch n.Kind() {
			case ir.KindGroup:
				if bi, ok := k.reg.BoundaryIn(d.Node); ok {
					visit(ir.Endpoint{Node: bi, Port: d.Port})
				}
			case ir.KindBoundaryOut:
				visit(ir.Endpoint{Node: n.Parent(), Port: d.Port})
			default:
				found = append(found, d)
			}
		}
	}
	visit(out)
	return found
}

// prune walks back from an out-end that lost a destination and removes the
// boundary legs that no longer feed anything. Ports are kept.
func (k *Linker) prune(from ir.Endpoint) error {
	cur := from
	for len(k.reg.DestinationsOf(cur.Node, cur.Port)) == 0 {
		n, ok := k.reg.Node(cur.Node)
		if !ok {
			return nil
		}
		var feed ir.Endpoint
		switch n.Kind() {
		case ir.KindBoundaryIn:
			feed = ir.Endpoint{Node: n.Parent(), Port: cur.Port}
		case ir.KindGroup:
			bo, ok := k.reg.BoundaryOut(cur.Node)
			if !ok {
				return nil
			}
			feed = ir.Endpoint{Node: bo, Port: cur.Port}
		default:
			return nil
		}
		src, ok := k.reg.SourceOf(feed.Node, feed.Port)
		if !ok {
			return nil
		}
		if err := k.reg.RemoveLink(feed); err != nil {
			return &Error{Code: CodeStructuralInconsistency, Message: "pruning dangling leg", Err: err}
		}
		k.logger.Info("pruned dangling leg", "from", src.Endpoint(), "to", feed)
		cur = src.Endpoint()
	}
	return nil
}
