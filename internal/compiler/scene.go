package compiler

import (
	"cmp"
	"fmt"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/nodelink/internal/ir"
)

// CompileFile reads a CUE file and compiles its top-level scene field.
func CompileFile(path string) (*ir.SceneSpec, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	return CompileSource(path, src)
}

// CompileSource compiles CUE source holding a top-level scene field.
// filename is only used for error positions.
func CompileSource(filename string, src []byte) (*ir.SceneSpec, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	sceneVal := v.LookupPath(cue.ParsePath("scene"))
	if !sceneVal.Exists() {
		return nil, &CompileError{
			Field:   "scene",
			Message: "scene is required",
			Pos:     v.Pos(),
		}
	}
	return CompileScene(sceneVal)
}

// CompileScene parses a CUE value into a SceneSpec.
//
// The value is the scene struct itself:
//
//	scene: {
//		name: "siblings"
//		root: "Top"
//		nodes: {
//			"Top/G1":   {kind: "group"}
//			"Top/G1/A": {kind: "ordinary", out_ports: 1}
//			"Top/G2":   {kind: "group"}
//			"Top/G2/B": {kind: "ordinary", in_ports: 1}
//		}
//		links: [{from: "Top/G1/A:0", to: "Top/G1/Multi-Port-Out:0"}]
//	}
//
// Nodes come back sorted parents first. Links keep their order.
func CompileScene(v cue.Value) (*ir.SceneSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.SceneSpec{}

	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.Name = name
	}

	rootVal := v.LookupPath(cue.ParsePath("root"))
	if !rootVal.Exists() {
		return nil, &CompileError{Field: "root", Message: "root is required", Pos: v.Pos()}
	}
	root, err := rootVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	spec.Root = ir.NewKey(root)

	spec.Nodes, err = parseNodes(v)
	if err != nil {
		return nil, err
	}

	spec.Links, err = parseLinks(v)
	if err != nil {
		return nil, err
	}

	return spec, nil
}

func parseNodes(v cue.Value) ([]ir.NodeSpec, error) {
	nodes := []ir.NodeSpec{}
	nodesVal := v.LookupPath(cue.ParsePath("nodes"))
	if !nodesVal.Exists() {
		return nodes, nil
	}

	iter, err := nodesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		ns, err := parseNode(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, ns)
	}

	slices.SortStableFunc(nodes, func(a, b ir.NodeSpec) int {
		if c := cmp.Compare(len(a.Key.Components()), len(b.Key.Components())); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return nodes, nil
}

func parseNode(label string, v cue.Value) (ir.NodeSpec, error) {
	field := "nodes." + label
	ns := ir.NodeSpec{Key: ir.NewKey(label)}

	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if !kindVal.Exists() {
		return ns, &CompileError{Field: field + ".kind", Message: "kind is required", Pos: v.Pos()}
	}
	kindName, err := kindVal.String()
	if err != nil {
		return ns, formatCUEError(err)
	}
	ns.Kind, err = ir.ParseKind(kindName)
	if err != nil {
		return ns, &CompileError{Field: field + ".kind", Message: err.Error(), Pos: kindVal.Pos()}
	}

	if ns.In, err = optionalInt(v, "in_ports"); err != nil {
		return ns, err
	}
	if ns.Out, err = optionalInt(v, "out_ports"); err != nil {
		return ns, err
	}

	attrsVal := v.LookupPath(cue.ParsePath("attrs"))
	if attrsVal.Exists() {
		iter, err := attrsVal.Fields()
		if err != nil {
			return ns, formatCUEError(err)
		}
		for iter.Next() {
			as, err := parseAttr(field+".attrs."+iter.Label(), iter.Label(), iter.Value())
			if err != nil {
				return ns, err
			}
			ns.Attrs = append(ns.Attrs, as)
		}
	}
	return ns, nil
}

func optionalInt(v cue.Value, name string) (int, error) {
	fv := v.LookupPath(cue.MakePath(cue.Str(name)))
	if !fv.Exists() {
		return 0, nil
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(n), nil
}

// parseAttr accepts either a bare value (static) or a struct with a
// keyframes list.
func parseAttr(field, name string, v cue.Value) (ir.AttrSpec, error) {
	as := ir.AttrSpec{Name: name}

	if v.IncompleteKind() != cue.StructKind {
		val, err := scalarValue(field, v)
		if err != nil {
			return as, err
		}
		as.Value = val
		return as, nil
	}

	kfVal := v.LookupPath(cue.ParsePath("keyframes"))
	if !kfVal.Exists() {
		return as, &CompileError{
			Field:   field,
			Message: "attribute must be a value or {keyframes: [...]}",
			Pos:     v.Pos(),
		}
	}
	iter, err := kfVal.List()
	if err != nil {
		return as, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		kv := iter.Value()
		kfField := fmt.Sprintf("%s.keyframes[%d]", field, i)
		frame, err := optionalInt(kv, "frame")
		if err != nil {
			return as, err
		}
		valueVal := kv.LookupPath(cue.ParsePath("value"))
		if !valueVal.Exists() {
			return as, &CompileError{Field: kfField + ".value", Message: "value is required", Pos: kv.Pos()}
		}
		val, err := scalarValue(kfField+".value", valueVal)
		if err != nil {
			return as, err
		}
		as.Keyframes = append(as.Keyframes, ir.Keyframe{Frame: frame, Value: val})
	}
	return as, nil
}

// scalarValue converts a concrete CUE value to string, int64 or bool.
// Floats are forbidden; frames and port indices are whole numbers and so
// are attribute values.
func scalarValue(field string, v cue.Value) (any, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return s, nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return n, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return b, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   field,
			Message: "float values are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported value kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func parseLinks(v cue.Value) ([]ir.LinkSpec, error) {
	links := []ir.LinkSpec{}
	linksVal := v.LookupPath(cue.ParsePath("links"))
	if !linksVal.Exists() {
		return links, nil
	}

	iter, err := linksVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		lv := iter.Value()
		field := fmt.Sprintf("links[%d]", i)
		from, err := parseEndpoint(field, lv, "from")
		if err != nil {
			return nil, err
		}
		to, err := parseEndpoint(field, lv, "to")
		if err != nil {
			return nil, err
		}
		links = append(links, ir.LinkSpec{From: from, To: to})
	}
	return links, nil
}

func parseEndpoint(field string, lv cue.Value, name string) (ir.Endpoint, error) {
	field += "." + name
	ev := lv.LookupPath(cue.ParsePath(name))
	if !ev.Exists() {
		return ir.Endpoint{}, &CompileError{Field: field, Message: name + " is required", Pos: lv.Pos()}
	}
	s, err := ev.String()
	if err != nil {
		return ir.Endpoint{}, formatCUEError(err)
	}
	e, err := ir.ParseEndpoint(s)
	if err != nil {
		return ir.Endpoint{}, &CompileError{Field: field, Message: err.Error(), Pos: ev.Pos()}
	}
	if e.Port == ir.NoPort {
		return ir.Endpoint{}, &CompileError{Field: field, Message: fmt.Sprintf("%q needs an explicit port", s), Pos: ev.Pos()}
	}
	return e, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
