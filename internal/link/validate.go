package link

import (
	"github.com/roach88/nodelink/internal/ir"
)

// Validate reconciles the known fields against the graph and caches the
// result.
//
// With both ends known the link exists when walking up from the in-end
// reaches the out-end; the walk may stop early at a group used as the
// out-end. With only the in-end known the out-end becomes the first node up
// the chain that is neither a proxy nor a scope. With only the out-end
// known the walk goes down and fails on any fan-out it cannot disambiguate.
func (l *Link) Validate() bool {
	k := l.linker
	ok := false
	switch {
	case l.out.Known() && l.in.Known():
		var idx int
		idx, ok = k.linked(l.out, l.in)
		if ok {
			l.outLinkIndex = idx
		}
	case l.in.Known():
		hops, real := k.upstream(l.in)
		if real {
			src := hops[len(hops)-1]
			l.out = src.Endpoint()
			l.outLinkIndex = src.LinkIndex
			ok = true
		}
	case l.out.Known():
		var in ir.Endpoint
		var idx int
		in, idx, ok = k.downstream(l.out, l.outLinkIndex)
		if ok {
			l.in = in
			l.outLinkIndex = idx
		}
	}
	l.checked, l.exists = true, ok
	if ok && l.applied == nil {
		s := l.current()
		l.applied = &s
	}
	return ok
}

// linked reports whether out logically feeds in, and with which link index
// on out's port.
func (k *Linker) linked(out, in ir.Endpoint) (int, bool) {
	hops, _ := k.upstream(in)
	for _, src := range hops {
		if src.Endpoint() == out {
			return src.LinkIndex, true
		}
	}
	return ir.NoPort, false
}
