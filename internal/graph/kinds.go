package graph

import "github.com/roach88/nodelink/internal/ir"

var inPortCreators = map[ir.Kind]bool{
	ir.KindGroup:       true,
	ir.KindBoundaryOut: true,
	ir.KindComposite:   true,
}

var outPortCreators = map[ir.Kind]bool{
	ir.KindGroup:      true,
	ir.KindBoundaryIn: true,
}

// CanCreatePort reports whether nodes of kind k may grow a port in
// direction d on demand.
func CanCreatePort(k ir.Kind, d ir.Direction) bool {
	if d == ir.In {
		return inPortCreators[k]
	}
	return outPortCreators[k]
}

// CollapsesOnUnlink reports whether removing the link on an in-port of kind
// k also removes the port, shifting every later port index down by one.
func CollapsesOnUnlink(k ir.Kind) bool {
	return k == ir.KindComposite
}

// IsPassThrough reports whether k is bypassed when removed from the graph.
func IsPassThrough(k ir.Kind) bool {
	return k == ir.KindPassThrough
}
