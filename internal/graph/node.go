package graph

import "github.com/roach88/nodelink/internal/ir"

// Node is a view of one host node. It holds identity data only; port state
// is read from the host on every call.
type Node struct {
	reg  *Registry
	info NodeInfo
}

func (n *Node) Key() ir.Key      { return n.info.Key }
func (n *Node) Kind() ir.Kind    { return n.info.Kind }
func (n *Node) Parent() ir.Key   { return n.info.Parent }
func (n *Node) String() string   { return string(n.info.Key) }
func (n *Node) Info() NodeInfo   { return n.info }
func (n *Node) IsScope() bool    { return n.info.Kind.IsScope() }
func (n *Node) IsBoundary() bool { return n.info.Kind.IsBoundary() }

// PortCount returns the current number of ports in direction d.
func (n *Node) PortCount(d ir.Direction) int {
	return n.reg.PortCount(n.info.Key, d)
}

// CanCreatePort reports whether this node's kind may grow ports in d.
func (n *Node) CanCreatePort(d ir.Direction) bool {
	return CanCreatePort(n.info.Kind, d)
}

// AsScope returns the node as a Scope when it is a group.
func (n *Node) AsScope() (Scope, bool) {
	if !n.IsScope() {
		return nil, false
	}
	return &Group{Node: n}, true
}

// PortCount returns the number of ports of key in direction d, or 0 when
// key does not exist.
func (r *Registry) PortCount(key ir.Key, d ir.Direction) int {
	counts, ok := r.host.PortCounts(key)
	if !ok {
		return 0
	}
	return counts.Of(d)
}

// SourceOf returns what feeds in-port port of key.
func (r *Registry) SourceOf(key ir.Key, port int) (ir.Source, bool) {
	if port < 0 {
		return ir.Source{}, false
	}
	return r.host.SourceOf(key, port)
}

// DestinationsOf returns what out-port port of key feeds, by link index.
func (r *Registry) DestinationsOf(key ir.Key, port int) []ir.Endpoint {
	if port < 0 {
		return nil
	}
	return r.host.DestinationsOf(key, port)
}

// ConnectedAt returns the endpoint on the other side of a port.
//
// For an in-port it is the feeding out-port (linkIndex is ignored, fan-in is
// at most one). For an out-port it is the destination at linkIndex.
func (r *Registry) ConnectedAt(key ir.Key, d ir.Direction, port, linkIndex int) (ir.Endpoint, bool) {
	if d == ir.In {
		src, ok := r.SourceOf(key, port)
		if !ok {
			return ir.Endpoint{}, false
		}
		return src.Endpoint(), true
	}
	dests := r.DestinationsOf(key, port)
	if linkIndex < 0 || linkIndex >= len(dests) {
		return ir.Endpoint{}, false
	}
	return dests[linkIndex], true
}

// IsFree reports whether a port carries no link at all.
func (r *Registry) IsFree(key ir.Key, d ir.Direction, port int) bool {
	if d == ir.In {
		_, linked := r.SourceOf(key, port)
		return !linked
	}
	return len(r.DestinationsOf(key, port)) == 0
}

// FreePort finds a port with no link in direction d.
//
// Existing ports are scanned first. When none is free and allowCreate is
// set and the kind is on the creation allow-list, the current port count
// is returned, meaning "create a new port here". Otherwise ok is false and
// callers must treat that as a rejection.
func (r *Registry) FreePort(key ir.Key, d ir.Direction, allowCreate bool) (port int, ok bool) {
	node, found := r.Node(key)
	if !found {
		return ir.NoPort, false
	}
	count := node.PortCount(d)
	for p := 0; p < count; p++ {
		if r.IsFree(key, d, p) {
			return p, true
		}
	}
	if allowCreate && node.CanCreatePort(d) {
		return count, true
	}
	return ir.NoPort, false
}
