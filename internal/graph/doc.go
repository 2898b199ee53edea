// Package graph models the host application's node graph as seen by the
// linking core.
//
// The host owns every node, port and link. This package never stores
// pointers between nodes: a Node is a thin view holding a key and the
// registry it was resolved through, and every structural question (port
// counts, sources, destinations, boundary proxies) is answered by asking
// the Host again. Only identity data (key, kind, parent scope) is cached,
// and the cache is invalidated explicitly by Rename, Move and Delete.
//
// # Scopes and boundary proxies
//
// A group is a scope. It owns exactly one boundary-in proxy and one
// boundary-out proxy, created lazily by the host. Port i on the group's in
// side is the same signal as out-port i of its boundary-in proxy; port i on
// the group's out side is fed by in-port i of its boundary-out proxy. The
// root scope has no proxies.
//
// # Port creation
//
// Only the kinds on the allow-lists below may grow ports on demand:
//
//	in-ports:  group, boundary_out, composite
//	out-ports: group, boundary_in
//
// Asking any other kind for a new port is an error at the call site, never
// a silent fallback to port 0.
package graph
