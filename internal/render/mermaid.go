// Package render draws scenes as Mermaid flowcharts.
package render

import (
	"fmt"
	"strings"

	"github.com/roach88/nodelink/internal/graph"
	"github.com/roach88/nodelink/internal/ir"
)

// Scene is what the renderer reads. *host.Memory satisfies it.
type Scene interface {
	Root() ir.Key
	Keys() []ir.Key
	Resolve(key ir.Key) (graph.NodeInfo, bool)
	Links() []ir.LinkSpec
}

// Overlay marks structural links to highlight, e.g. the legs a connect
// just created.
type Overlay struct {
	Links []ir.LinkSpec
}

// Mermaid produces a flowchart of scene. Each group becomes a subgraph
// holding its children and boundary proxies; links are labeled
// "outPort:inPort". Shapes follow the node kind:
//   - boundary in: [/Parallelogram/]
//   - boundary out: [\Parallelogram\]
//   - pass-through: ((Circle))
//   - composite: [[Subroutine]]
//   - default: [Rectangle]
func Mermaid(scene Scene, overlay *Overlay) string {
	children := make(map[ir.Key][]graph.NodeInfo)
	for _, key := range scene.Keys() {
		if key == scene.Root() {
			continue
		}
		info, ok := scene.Resolve(key)
		if !ok {
			continue
		}
		children[info.Parent] = append(children[info.Parent], info)
	}

	var sb strings.Builder
	sb.WriteString("flowchart LR\n")
	writeScope(&sb, children, scene.Root(), 1)

	links := scene.Links()
	for _, l := range links {
		fmt.Fprintf(&sb, "    %s -- \"%d:%d\" --> %s\n",
			sanitizeID(l.From.Node), l.From.Port, l.To.Port, sanitizeID(l.To.Node))
	}

	if overlay != nil && len(overlay.Links) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		for i, l := range links {
			for _, h := range overlay.Links {
				if h == l {
					fmt.Fprintf(&sb, "    linkStyle %d stroke:#fbc02d,stroke-width:3px;\n", i)
					break
				}
			}
		}
	}

	return sb.String()
}

func writeScope(sb *strings.Builder, children map[ir.Key][]graph.NodeInfo, scope ir.Key, depth int) {
	indent := strings.Repeat("    ", depth)
	for _, info := range children[scope] {
		id := sanitizeID(info.Key)
		name := strings.ReplaceAll(info.Key.Name(), "\"", "'")
		if info.Kind == ir.KindGroup {
			fmt.Fprintf(sb, "%ssubgraph %s[\"%s\"]\n", indent, id, name)
			writeScope(sb, children, info.Key, depth+1)
			fmt.Fprintf(sb, "%send\n", indent)
			continue
		}
		opener, closer := shape(info.Kind)
		fmt.Fprintf(sb, "%s%s%s\"%s\"%s\n", indent, id, opener, name, closer)
	}
}

func shape(k ir.Kind) (string, string) {
	switch k {
	case ir.KindBoundaryIn:
		return "[/", "/]"
	case ir.KindBoundaryOut:
		return "[\\", "\\]"
	case ir.KindPassThrough:
		return "((", "))"
	case ir.KindComposite:
		return "[[", "]]"
	}
	return "[", "]"
}

func sanitizeID(key ir.Key) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")
	return r.Replace(string(key))
}
