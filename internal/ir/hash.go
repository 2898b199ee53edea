package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for algorithm migration.
const (
	DomainMutation = "nodelink/mutation/v1"
	DomainScene    = "nodelink/scene/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// MutationID computes the content-addressed ID of a journal record.
// The ID is stable across replays given the same transaction and seq.
func MutationID(m Mutation) (string, error) {
	obj := map[string]any{
		"tx_id":            m.TxID,
		"seq":              m.Seq,
		"op":               m.Op,
		"out":              m.Out,
		"in":               m.In,
		"created_out_port": m.CreatedOutPort,
		"created_in_port":  m.CreatedInPort,
		"node":             m.Node,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("MutationID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainMutation, canonical), nil
}

// MustMutationID is like MutationID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustMutationID(m Mutation) string {
	id, err := MutationID(m)
	if err != nil {
		panic(err)
	}
	return id
}

// SceneHash fingerprints a canonical scene dump, used by replay to compare
// rebuilt scenes without diffing them line by line first.
func SceneHash(dump []byte) string {
	return hashWithDomain(DomainScene, dump)
}
