package ir

// MutationOp names a structural change recorded in the journal.
type MutationOp string

const (
	OpCreateLink MutationOp = "create_link"
	OpRemoveLink MutationOp = "remove_link"
	OpDeleteNode MutationOp = "delete_node"
)

// Mutation is one successful structural change applied to the host graph.
//
// For OpCreateLink and OpRemoveLink, Out and In describe the link. For
// OpRemoveLink, Out is the source the in-port had before removal, which is
// what Undo needs to restore it. For OpDeleteNode only Node is set.
type Mutation struct {
	ID             string     `json:"id"`
	TxID           string     `json:"tx_id"`
	Seq            int64      `json:"seq"`
	Op             MutationOp `json:"op"`
	Out            Endpoint   `json:"out"`
	In             Endpoint   `json:"in"`
	CreatedOutPort bool       `json:"created_out_port,omitempty"`
	CreatedInPort  bool       `json:"created_in_port,omitempty"`
	Node           Key        `json:"node,omitempty"`
}

// Transaction groups mutations under one named, indivisible operation.
type Transaction struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Seq       int64  `json:"seq"`
	Committed bool   `json:"committed"`
}
