package graph

import (
	"errors"
	"fmt"
	"strings"

	gocache "github.com/patrickmn/go-cache"

	"github.com/roach88/nodelink/internal/ir"
)

// ErrUnknownNode is returned by mutating registry calls on a missing key.
var ErrUnknownNode = errors.New("unknown node")

// ErrHostRejected is returned when the host refuses a structural change.
var ErrHostRejected = errors.New("host rejected mutation")

// Registry resolves keys to Node views and forwards structural queries to
// the Host.
//
// Resolved identity data is cached without expiry. The cache never goes
// stale on its own: Rename, Move and Delete invalidate the affected keys,
// and callers that mutate the host behind the registry's back must call
// Invalidate themselves.
type Registry struct {
	host  Host
	cache *gocache.Cache
}

// NewRegistry creates a registry over h.
func NewRegistry(h Host) *Registry {
	return &Registry{
		host: h,
		// No expiry and no janitor goroutine; invalidation is explicit.
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// Host returns the wrapped host.
func (r *Registry) Host() Host {
	return r.host
}

// Node resolves key, consulting the cache first.
func (r *Registry) Node(key ir.Key) (*Node, bool) {
	if key == ir.NoKey {
		return nil, false
	}
	if v, found := r.cache.Get(string(key)); found {
		if info, ok := v.(NodeInfo); ok {
			return &Node{reg: r, info: info}, true
		}
	}

	info, ok := r.host.Resolve(key)
	if !ok {
		return nil, false
	}
	r.cache.Set(string(key), info, gocache.NoExpiration)
	return &Node{reg: r, info: info}, true
}

// Exists reports whether key names a node. It always asks the host.
func (r *Registry) Exists(key ir.Key) bool {
	return key != ir.NoKey && r.host.Exists(key)
}

// Invalidate drops key and everything nested below it from the cache.
func (r *Registry) Invalidate(key ir.Key) {
	prefix := string(key) + "/"
	for k := range r.cache.Items() {
		if k == string(key) || strings.HasPrefix(k, prefix) {
			r.cache.Delete(k)
		}
	}
}

// InvalidateAll empties the cache.
func (r *Registry) InvalidateAll() {
	r.cache.Flush()
}

// Cached reports how many nodes are currently cached.
func (r *Registry) Cached() int {
	return r.cache.ItemCount()
}

// Rename renames key through the host and invalidates its cached subtree.
func (r *Registry) Rename(key ir.Key, name string) (ir.Key, error) {
	ed, ok := r.host.(Editor)
	if !ok {
		return ir.NoKey, fmt.Errorf("rename %s: host cannot rename nodes", key)
	}
	if !r.host.Exists(key) {
		return ir.NoKey, fmt.Errorf("rename %s: %w", key, ErrUnknownNode)
	}
	r.Invalidate(key)
	renamed, ok := ed.Rename(key, name)
	if !ok {
		return ir.NoKey, fmt.Errorf("rename %s to %q: %w", key, name, ErrHostRejected)
	}
	return renamed, nil
}

// Move reparents key into scope and invalidates its cached subtree.
func (r *Registry) Move(key ir.Key, scope ir.Key) (ir.Key, error) {
	ed, ok := r.host.(Editor)
	if !ok {
		return ir.NoKey, fmt.Errorf("move %s: host cannot reparent nodes", key)
	}
	if !r.host.Exists(key) {
		return ir.NoKey, fmt.Errorf("move %s: %w", key, ErrUnknownNode)
	}
	r.Invalidate(key)
	moved, ok := ed.Move(key, scope)
	if !ok {
		return ir.NoKey, fmt.Errorf("move %s into %s: %w", key, scope, ErrHostRejected)
	}
	return moved, nil
}

// Delete removes key from the host and invalidates its cached subtree.
func (r *Registry) Delete(key ir.Key) error {
	if !r.host.Exists(key) {
		return fmt.Errorf("delete %s: %w", key, ErrUnknownNode)
	}
	r.Invalidate(key)
	if !r.host.DeleteNode(key) {
		return fmt.Errorf("delete %s: %w", key, ErrHostRejected)
	}
	return nil
}

// CreateLink forwards to the host, turning a refusal into an error.
func (r *Registry) CreateLink(out ir.Endpoint, in ir.Endpoint, createOut, createIn bool) error {
	if !r.host.CreateLink(out.Node, out.Port, in.Node, in.Port, createOut, createIn) {
		return fmt.Errorf("link %s -> %s: %w", out, in, ErrHostRejected)
	}
	return nil
}

// RemoveLink forwards to the host, turning a refusal into an error.
func (r *Registry) RemoveLink(in ir.Endpoint) error {
	if !r.host.RemoveLink(in.Node, in.Port) {
		return fmt.Errorf("unlink %s: %w", in, ErrHostRejected)
	}
	return nil
}
