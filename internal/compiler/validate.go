package compiler

import (
	"fmt"
	"reflect"

	"github.com/roach88/nodelink/internal/graph"
	"github.com/roach88/nodelink/internal/host"
	"github.com/roach88/nodelink/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrRootMissing     = "E200" // root key is empty
	ErrDuplicateNode   = "E201" // node key declared twice
	ErrOutsideRoot     = "E202" // node key not nested under root
	ErrParentNotGroup  = "E203" // parent missing or not a group
	ErrBadPortCount    = "E204" // negative port count
	ErrProxyDeclared   = "E205" // boundary proxies are implicit
	ErrPassThroughPort = "E206" // pass-through exceeds one in/one out
	ErrUnknownEndpoint = "E207" // link names a missing node
	ErrNotSiblings     = "E208" // link ends do not share a parent
	ErrFanIn           = "E209" // in-port fed twice
	ErrPortRange       = "E210" // port past count on a kind that cannot grow
	ErrBadAttribute    = "E211" // malformed attribute or keyframes
)

// ValidationError represents a scene validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled scene against the host's structural rules.
// Returns all errors found (does not fail-fast).
//
// Links are checked in order against simulated port counts, so a link may
// grow a port exactly when the host would: at index == count on a kind
// allowed to create ports in that direction.
func Validate(spec *ir.SceneSpec) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	if spec.Root == ir.NoKey {
		add("root", ErrRootMissing, "root is required")
		return errs
	}

	kinds := map[ir.Key]ir.Kind{spec.Root: ir.KindGroup}
	counts := map[ir.Key]*ir.PortCounts{spec.Root: {}}

	for i, ns := range spec.Nodes {
		field := fmt.Sprintf("nodes[%d]", i)
		if ns.Key == spec.Root {
			continue
		}
		if _, dup := kinds[ns.Key]; dup {
			add(field, ErrDuplicateNode, "duplicate node %s", ns.Key)
			continue
		}
		if !spec.Root.Contains(ns.Key) {
			add(field, ErrOutsideRoot, "%s is not inside root %s", ns.Key, spec.Root)
			continue
		}
		if ns.Kind.IsBoundary() {
			add(field, ErrProxyDeclared, "%s: %s proxies are created with their group", ns.Key, ns.Kind)
			continue
		}
		if pk, ok := kinds[ns.Key.Parent()]; !ok || pk != ir.KindGroup {
			add(field, ErrParentNotGroup, "%s: parent %s is not a declared group", ns.Key, ns.Key.Parent())
			continue
		}
		if ns.In < 0 || ns.Out < 0 {
			add(field, ErrBadPortCount, "%s: negative port count %d/%d", ns.Key, ns.In, ns.Out)
			continue
		}
		if ns.Kind == ir.KindPassThrough && (ns.In > 1 || ns.Out > 1) {
			add(field, ErrPassThroughPort, "%s: pass-through nodes have at most one in and one out port", ns.Key)
			continue
		}
		for j, as := range ns.Attrs {
			if msg := checkAttr(as); msg != "" {
				add(fmt.Sprintf("%s.attrs[%d]", field, j), ErrBadAttribute, "%s.%s: %s", ns.Key, as.Name, msg)
			}
		}
		kinds[ns.Key] = ns.Kind
		counts[ns.Key] = &ir.PortCounts{In: ns.In, Out: ns.Out}
	}

	// resolve maps a key to its kind and the counter backing each side.
	// Proxies share counters with their group.
	resolve := func(key ir.Key) (ir.Kind, *int, *int, bool) {
		if k, ok := kinds[key]; ok {
			return k, &counts[key].In, &counts[key].Out, true
		}
		scope := key.Parent()
		if scope == spec.Root || kinds[scope] != ir.KindGroup {
			return ir.KindOther, nil, nil, false
		}
		zero := 0
		switch key.Name() {
		case host.BoundaryInName:
			return ir.KindBoundaryIn, &zero, &counts[scope].In, true
		case host.BoundaryOutName:
			return ir.KindBoundaryOut, &counts[scope].Out, new(int), true
		}
		return ir.KindOther, nil, nil, false
	}

	fed := make(map[ir.Endpoint]int)
	for i, ls := range spec.Links {
		field := fmt.Sprintf("links[%d]", i)
		fromKind, _, outCount, okFrom := resolve(ls.From.Node)
		toKind, inCount, _, okTo := resolve(ls.To.Node)
		if !okFrom || !okTo {
			missing := ls.From.Node
			if okFrom {
				missing = ls.To.Node
			}
			add(field, ErrUnknownEndpoint, "unknown node %s", missing)
			continue
		}
		if ls.From.Node == ls.To.Node || ls.From.Node.Parent() != ls.To.Node.Parent() {
			add(field, ErrNotSiblings, "%s and %s are not distinct nodes of one scope", ls.From, ls.To)
			continue
		}
		if prev, dup := fed[ls.To]; dup {
			add(field, ErrFanIn, "%s is already fed by links[%d]", ls.To, prev)
			continue
		}
		if msg := grow(outCount, ls.From.Port, fromKind, ir.Out); msg != "" {
			add(field+".from", ErrPortRange, "%s: %s", ls.From, msg)
			continue
		}
		if msg := grow(inCount, ls.To.Port, toKind, ir.In); msg != "" {
			add(field+".to", ErrPortRange, "%s: %s", ls.To, msg)
			continue
		}
		fed[ls.To] = i
	}

	return errs
}

func grow(count *int, port int, k ir.Kind, d ir.Direction) string {
	switch {
	case port < *count:
		return ""
	case port == *count && graph.CanCreatePort(k, d):
		*count++
		return ""
	case graph.CanCreatePort(k, d):
		return fmt.Sprintf("%s-port %d skips past count %d", d, port, *count)
	default:
		return fmt.Sprintf("%s-port %d out of range (%d) and %s nodes cannot grow %s-ports", d, port, *count, k, d)
	}
}

func checkAttr(as ir.AttrSpec) string {
	if as.Name == "" {
		return "attribute name is empty"
	}
	if len(as.Keyframes) == 0 {
		if as.Value == nil {
			return "attribute has neither value nor keyframes"
		}
		return ""
	}
	if as.Value != nil {
		return "attribute has both a value and keyframes"
	}
	frames := make(map[int]bool)
	first := reflect.TypeOf(as.Keyframes[0].Value)
	for _, kf := range as.Keyframes {
		if kf.Frame < 1 {
			return fmt.Sprintf("keyframe at frame %d: frames start at 1", kf.Frame)
		}
		if frames[kf.Frame] {
			return fmt.Sprintf("duplicate keyframe at frame %d", kf.Frame)
		}
		frames[kf.Frame] = true
		if reflect.TypeOf(kf.Value) != first {
			return fmt.Sprintf("keyframe at frame %d has type %T, want %v", kf.Frame, kf.Value, first)
		}
	}
	return ""
}
