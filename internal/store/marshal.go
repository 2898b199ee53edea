package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/nodelink/internal/ir"
)

// marshalEndpoint converts an endpoint to canonical JSON TEXT for storage.
// An unknown endpoint is stored as {"node":"","port":-1}.
func marshalEndpoint(e ir.Endpoint) (string, error) {
	data, err := ir.MarshalCanonical(e)
	if err != nil {
		return "", fmt.Errorf("marshal endpoint: %w", err)
	}
	return string(data), nil
}

// unmarshalEndpoint parses endpoint JSON TEXT. Empty input is the unknown
// endpoint.
func unmarshalEndpoint(data string) (ir.Endpoint, error) {
	e := ir.Endpoint{Node: ir.NoKey, Port: ir.NoPort}
	if data == "" {
		return e, nil
	}
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return ir.Endpoint{}, fmt.Errorf("unmarshal endpoint: %w", err)
	}
	return e, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
