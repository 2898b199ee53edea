package graph

import "github.com/roach88/nodelink/internal/ir"

// NodeInfo is the identity data the host reports for a node.
type NodeInfo struct {
	Key    ir.Key
	Kind   ir.Kind
	Parent ir.Key
}

// Host is the set of node-graph primitives the authoring application
// exposes. Every call is synchronous and non-reentrant.
//
// Read methods report absence with ok=false (or an empty slice), never with
// an error. Mutating methods return false when the host refused the change.
type Host interface {
	// Resolve returns identity data for key.
	Resolve(key ir.Key) (NodeInfo, bool)

	// Exists reports whether key names a node.
	Exists(key ir.Key) bool

	// PortCounts returns the current in/out port counts of key.
	PortCounts(key ir.Key) (ir.PortCounts, bool)

	// SourceOf returns what feeds in-port inPort of key.
	SourceOf(key ir.Key, inPort int) (ir.Source, bool)

	// DestinationsOf returns the in-ports fed by out-port outPort of key,
	// ordered by link index.
	DestinationsOf(key ir.Key, outPort int) []ir.Endpoint

	// CreateLink links out:outPort to in:inPort. createOut/createIn permit
	// the host to add the port when the index equals the current count.
	CreateLink(out ir.Key, outPort int, in ir.Key, inPort int, createOut, createIn bool) bool

	// RemoveLink removes the link feeding in-port inPort of key.
	RemoveLink(key ir.Key, inPort int) bool

	// BoundaryInOf returns the boundary-in proxy of scope, creating it if
	// the scope is a group that has none yet.
	BoundaryInOf(scope ir.Key) (ir.Key, bool)

	// BoundaryOutOf returns the boundary-out proxy of scope.
	BoundaryOutOf(scope ir.Key) (ir.Key, bool)

	// ParentScopeOf returns the scope directly containing key.
	ParentScopeOf(key ir.Key) ir.Key

	// DeleteNode removes key and every link touching it.
	DeleteNode(key ir.Key) bool
}

// Editor is implemented by hosts that can rename and reparent nodes.
type Editor interface {
	Rename(key ir.Key, name string) (ir.Key, bool)
	Move(key ir.Key, scope ir.Key) (ir.Key, bool)
}
