package ir

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Key identifies a node by its slash-separated path from the root scope,
// e.g. "Top/Group1/Peg". The parent scope of a node is its key without the
// last component.
type Key string

// NoKey marks an unknown node.
const NoKey Key = ""

// NoPort marks an unknown port index.
const NoPort = -1

// NewKey normalizes s into a Key (NFC, no trailing slash).
func NewKey(s string) Key {
	return Key(norm.NFC.String(strings.TrimRight(strings.TrimSpace(s), "/")))
}

// JoinKey returns the key of a child named name inside scope.
func JoinKey(scope Key, name string) Key {
	if scope == NoKey {
		return NewKey(name)
	}
	return NewKey(string(scope) + "/" + name)
}

// IsZero reports whether k is NoKey.
func (k Key) IsZero() bool { return k == NoKey }

// Parent returns the enclosing scope key, or NoKey for a root.
func (k Key) Parent() Key {
	i := strings.LastIndexByte(string(k), '/')
	if i < 0 {
		return NoKey
	}
	return k[:i]
}

// Name returns the last path component.
func (k Key) Name() string {
	i := strings.LastIndexByte(string(k), '/')
	return string(k[i+1:])
}

// Components splits the key into its path components.
func (k Key) Components() []string {
	if k == NoKey {
		return nil
	}
	return strings.Split(string(k), "/")
}

// Contains reports whether other is k itself or nested somewhere below k.
func (k Key) Contains(other Key) bool {
	if k == NoKey {
		return false
	}
	return other == k || strings.HasPrefix(string(other), string(k)+"/")
}

func (k Key) String() string { return string(k) }

// Direction selects the in or out side of a node.
type Direction int

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == In {
		return "in"
	}
	return "out"
}

// ParseDirection parses "in" or "out".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return In, nil
	case "out":
		return Out, nil
	}
	return In, fmt.Errorf("unknown direction %q", s)
}

// Kind enumerates the node kinds the linking core distinguishes.
type Kind int

const (
	KindOrdinary    Kind = iota // fixed ports, no special linking rules
	KindGroup                   // scope owning one boundary-in and one boundary-out proxy
	KindBoundaryIn              // multiplexes a group's in-ports to its children
	KindBoundaryOut             // multiplexes children to a group's out-ports
	KindPassThrough             // single in, single out; bypassed on removal
	KindComposite               // in-ports created on demand, collapse when unlinked
	KindOther
)

var kindNames = [...]string{
	KindOrdinary:    "ordinary",
	KindGroup:       "group",
	KindBoundaryIn:  "boundary_in",
	KindBoundaryOut: "boundary_out",
	KindPassThrough: "pass_through",
	KindComposite:   "composite",
	KindOther:       "other",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// ParseKind maps a kind name back to its Kind.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return KindOther, fmt.Errorf("unknown node kind %q", s)
}

// IsBoundary reports whether k is one of the two boundary proxy kinds.
func (k Kind) IsBoundary() bool { return k == KindBoundaryIn || k == KindBoundaryOut }

// IsScope reports whether nodes of kind k contain other nodes.
func (k Kind) IsScope() bool { return k == KindGroup }

// Endpoint is one side of a structural or logical connection.
type Endpoint struct {
	Node Key `json:"node"`
	Port int `json:"port"`
}

// Known reports whether both the node and the port are set.
func (e Endpoint) Known() bool { return e.Node != NoKey && e.Port >= 0 }

func (e Endpoint) String() string {
	node, port := "?", "?"
	if e.Node != NoKey {
		node = string(e.Node)
	}
	if e.Port >= 0 {
		port = fmt.Sprintf("%d", e.Port)
	}
	return fmt.Sprintf("%s[%s]", node, port)
}

// ParseEndpoint parses "node:port". The port may be omitted or written as
// "?" to leave it unknown.
func ParseEndpoint(s string) (Endpoint, error) {
	s = strings.TrimSpace(s)
	e := Endpoint{Node: NewKey(s), Port: NoPort}
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		node, port := s[:i], s[i+1:]
		e.Node = NewKey(node)
		if port != "?" {
			p, err := strconv.Atoi(port)
			if err != nil || p < 0 {
				return Endpoint{}, fmt.Errorf("endpoint %q: bad port %q", s, port)
			}
			e.Port = p
		}
	}
	if e.Node == NoKey {
		return Endpoint{}, fmt.Errorf("endpoint %q: missing node", s)
	}
	return e, nil
}

// Source describes what feeds an in-port: an out-port and the index of the
// link within that out-port's fan-out.
type Source struct {
	Node      Key `json:"node"`
	Port      int `json:"port"`
	LinkIndex int `json:"link_index"`
}

// Endpoint drops the link index.
func (s Source) Endpoint() Endpoint { return Endpoint{Node: s.Node, Port: s.Port} }

// PortCounts holds the number of in and out ports of a node.
type PortCounts struct {
	In  int `json:"in"`
	Out int `json:"out"`
}

// Of returns the count for d.
func (c PortCounts) Of(d Direction) int {
	if d == In {
		return c.In
	}
	return c.Out
}
