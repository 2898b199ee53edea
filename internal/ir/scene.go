package ir

// SceneSpec is a compiled scene description: the nodes that exist and the
// structural links between them.
type SceneSpec struct {
	Name  string     `json:"name"`
	Root  Key        `json:"root"`
	Nodes []NodeSpec `json:"nodes"` // parents before children
	Links []LinkSpec `json:"links"`
}

// NodeSpec declares one node.
type NodeSpec struct {
	Key   Key        `json:"key"`
	Kind  Kind       `json:"kind"`
	In    int        `json:"in"`
	Out   int        `json:"out"`
	Attrs []AttrSpec `json:"attrs,omitempty"`
}

// AttrSpec declares a node attribute, static or keyframed.
// Values are string, int64 or bool.
type AttrSpec struct {
	Name      string     `json:"name"`
	Value     any        `json:"value,omitempty"`
	Keyframes []Keyframe `json:"keyframes,omitempty"`
}

// Keyframe holds an attribute value from Frame onward.
type Keyframe struct {
	Frame int `json:"frame"`
	Value any `json:"value"`
}

// LinkSpec declares a structural link between two immediate neighbors.
// Ports past the current count are created on demand when the kind allows it.
type LinkSpec struct {
	From Endpoint `json:"from"`
	To   Endpoint `json:"to"`
}
