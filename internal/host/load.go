package host

import (
	"fmt"

	"github.com/roach88/nodelink/internal/ir"
)

// Load builds a Memory graph from a compiled scene. Nodes must be listed
// parents first; links are created in order, growing ports as allowed.
func Load(spec *ir.SceneSpec) (*Memory, error) {
	m := NewMemory(spec.Root)
	for _, ns := range spec.Nodes {
		if ns.Key == spec.Root {
			continue
		}
		if err := m.AddNode(ns.Key, ns.Kind, ns.In, ns.Out); err != nil {
			return nil, fmt.Errorf("scene %s: %w", spec.Name, err)
		}
		for _, as := range ns.Attrs {
			attr, err := attrFromSpec(as)
			if err != nil {
				return nil, fmt.Errorf("scene %s: node %s: %w", spec.Name, ns.Key, err)
			}
			_ = m.SetAttribute(ns.Key, attr)
		}
	}
	for _, ls := range spec.Links {
		if !m.CreateLink(ls.From.Node, ls.From.Port, ls.To.Node, ls.To.Port, true, true) {
			return nil, fmt.Errorf("scene %s: host refused link %s -> %s", spec.Name, ls.From, ls.To)
		}
	}
	if err := m.Check(); err != nil {
		return nil, fmt.Errorf("scene %s: %w", spec.Name, err)
	}
	return m, nil
}

func attrFromSpec(as ir.AttrSpec) (*Attribute, error) {
	if len(as.Keyframes) == 0 {
		return NewAttribute(as.Name, as.Value)
	}
	a := &Attribute{name: as.Name}
	a.SetAnimated(true)
	for _, kf := range as.Keyframes {
		if err := a.Set(kf.Value, kf.Frame); err != nil {
			return nil, err
		}
	}
	return a, nil
}
