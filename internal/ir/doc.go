// Package ir provides the shared value types for nodelink.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal, so it stays the foundational layer
// with no circular dependencies.
//
// Key design constraints:
//   - Nodes are referred to by Key, never by pointer. Scopes, proxies and
//     links are resolved through a registry on demand.
//   - Keys are NFC normalized when constructed with NewKey.
//   - Ports are zero-based; NoPort marks an unknown port.
//   - Journal ordering uses logical clocks (seq) only, never wall-clock time.
//   - All JSON tags use snake_case.
package ir
