package link

import (
	"fmt"
	"strconv"

	"github.com/roach88/nodelink/internal/ir"
)

// Link describes one logical connection from an out-port to an in-port.
//
// A Link may be fully specified or know only one end. Whether it exists is
// computed against the graph and cached until a field changes. Field
// setters re-apply the link immediately unless updates are stopped, so a
// Link can be edited one field at a time or in a batch.
type Link struct {
	linker *Linker

	out          ir.Endpoint
	outLinkIndex int
	in           ir.Endpoint

	allowCreate bool
	stopUpdates bool

	// insertIn makes the terminal leg insert its in-port instead of
	// expecting it to be free. Set after an in-port collapsed under us.
	insertIn bool

	checked bool
	exists  bool

	// applied is the last state known to be realized in the graph.
	applied *state
}

type state struct {
	out ir.Endpoint
	in  ir.Endpoint
}

func unknownEndpoint() ir.Endpoint {
	return ir.Endpoint{Node: ir.NoKey, Port: ir.NoPort}
}

// NewLink creates a fully specified link without validating it.
func (k *Linker) NewLink(out, in ir.Endpoint) *Link {
	return &Link{linker: k, out: out, outLinkIndex: ir.NoPort, in: in}
}

// FromIn creates a link knowing only its in-end and validates it
// immediately, deriving the out-end. Check Exists for the outcome.
func (k *Linker) FromIn(in ir.Endpoint) *Link {
	l := &Link{linker: k, out: unknownEndpoint(), outLinkIndex: ir.NoPort, in: in}
	l.Validate()
	return l
}

// FromOut creates a link knowing only its out-end and validates it
// immediately. linkIndex selects one destination of a fanned-out port, or
// is ir.NoPort when the port is expected to have a single destination.
func (k *Linker) FromOut(out ir.Endpoint, linkIndex int) *Link {
	l := &Link{linker: k, out: out, outLinkIndex: linkIndex, in: unknownEndpoint()}
	l.Validate()
	return l
}

// listed creates a link for bulk listing. It skips validation; the missing
// end is resolved on first access.
func (k *Linker) listed(out ir.Endpoint, linkIndex int, in ir.Endpoint) *Link {
	return &Link{linker: k, out: out, outLinkIndex: linkIndex, in: in}
}

// Out returns the out-end, resolving it first if it is not known yet.
func (l *Link) Out() ir.Endpoint {
	l.resolve()
	return l.out
}

// In returns the in-end, resolving it first if it is not known yet.
func (l *Link) In() ir.Endpoint {
	l.resolve()
	return l.in
}

// OutLinkIndex returns the index of this link within the out-port's fan-out,
// or ir.NoPort when unknown.
func (l *Link) OutLinkIndex() int {
	l.resolve()
	return l.outLinkIndex
}

// Exists reports whether the connection is present in the graph, using the
// cached result when no field changed since the last check.
func (l *Link) Exists() bool {
	if !l.checked {
		l.Validate()
	}
	return l.exists
}

// Established reports whether the link has been realized or found in the
// graph, so that later field changes are diffed against that state.
func (l *Link) Established() bool {
	return l.applied != nil
}

// AllowCreatePorts permits applying the link to create ports on kinds that
// allow it.
func (l *Link) AllowCreatePorts(on bool) {
	l.allowCreate = on
}

func (l *Link) current() state {
	return state{out: l.out, in: l.in}
}

func (l *Link) resolve() {
	if l.checked || (l.out.Known() && l.in.Known()) {
		return
	}
	l.Validate()
}

func (l *Link) invalidate() {
	l.checked = false
	l.exists = false
}

// changed runs after every field mutation.
func (l *Link) changed() error {
	l.invalidate()
	if l.stopUpdates {
		return nil
	}
	return l.linker.Apply(l, false)
}

// SetOutNode changes the source node.
func (l *Link) SetOutNode(key ir.Key) error {
	l.out.Node = key
	return l.changed()
}

// SetOutPort changes the source port.
func (l *Link) SetOutPort(port int) error {
	l.out.Port = port
	return l.changed()
}

// SetInNode changes the destination node.
func (l *Link) SetInNode(key ir.Key) error {
	l.in.Node = key
	return l.changed()
}

// SetInPort changes the destination port.
func (l *Link) SetInPort(port int) error {
	l.in.Port = port
	return l.changed()
}

// LinkOut sets both fields of the out-end before re-applying.
func (l *Link) LinkOut(key ir.Key, port int) error {
	l.out = ir.Endpoint{Node: key, Port: port}
	l.outLinkIndex = ir.NoPort
	return l.changed()
}

// LinkIn sets both fields of the in-end before re-applying.
func (l *Link) LinkIn(key ir.Key, port int) error {
	l.in = ir.Endpoint{Node: key, Port: port}
	return l.changed()
}

// StopUpdates batches field changes: setters no longer re-apply the link
// until ResumeUpdates.
func (l *Link) StopUpdates() {
	l.stopUpdates = true
}

// ResumeUpdates re-enables immediate application and applies the batched
// changes once.
func (l *Link) ResumeUpdates() error {
	l.stopUpdates = false
	if l.checked && l.exists {
		return nil
	}
	return l.linker.Apply(l, false)
}

// InsertNode splices node into this connection. The link becomes
// old-source -> node:inPort, and the returned link is node:outPort ->
// old-destination.
func (l *Link) InsertNode(node ir.Key, inPort, outPort int) (*Link, error) {
	return l.linker.InsertBetween(l, node, inPort, outPort)
}

// String implements fmt.Stringer.
func (l *Link) String() string {
	return Describe(l)
}

// Describe renders the link's fields for diagnostics, without validating
// it: "Top/A[0] -> Top/B[1] (link 0)", with "?" for unknown values.
func Describe(l *Link) string {
	idx := "?"
	if l.outLinkIndex >= 0 {
		idx = strconv.Itoa(l.outLinkIndex)
	}
	return fmt.Sprintf("%s -> %s (link %s)", l.out, l.in, idx)
}
