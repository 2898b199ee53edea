package host

import (
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/nodelink/internal/ir"
)

// ErrAttrType is returned when a value does not match the attribute's type.
var ErrAttrType = errors.New("attribute type mismatch")

// Attribute is a node attribute that is either a single static value or a
// keyframed curve. Values are string, int64 or bool.
type Attribute struct {
	name      string
	static    any
	animated  bool
	keyframes []ir.Keyframe // sorted by Frame
}

// NewAttribute creates a static attribute holding v.
func NewAttribute(name string, v any) (*Attribute, error) {
	v, err := normalizeValue(v)
	if err != nil {
		return nil, fmt.Errorf("attribute %s: %w", name, err)
	}
	return &Attribute{name: name, static: v}, nil
}

// Name returns the attribute name.
func (a *Attribute) Name() string { return a.name }

// IsAnimated reports whether values are read from keyframes.
func (a *Attribute) IsAnimated() bool { return a.animated }

// SetAnimated switches between static and keyframed. Turning animation on
// seeds a keyframe at frame 1 with the static value when there are none.
func (a *Attribute) SetAnimated(on bool) {
	if on && !a.animated && len(a.keyframes) == 0 && a.static != nil {
		a.keyframes = []ir.Keyframe{{Frame: 1, Value: a.static}}
	}
	a.animated = on
}

// Get returns the value at frame. Animated attributes hold the value of the
// last keyframe at or before frame; frames before the first keyframe read
// the first one.
func (a *Attribute) Get(frame int) (any, bool) {
	if !a.animated {
		return a.static, a.static != nil
	}
	if len(a.keyframes) == 0 {
		return nil, false
	}
	i := sort.Search(len(a.keyframes), func(i int) bool { return a.keyframes[i].Frame > frame })
	if i == 0 {
		return a.keyframes[0].Value, true
	}
	return a.keyframes[i-1].Value, true
}

// Set stores v at frame. Static attributes ignore frame.
func (a *Attribute) Set(v any, frame int) error {
	v, err := normalizeValue(v)
	if err != nil {
		return fmt.Errorf("attribute %s: %w", a.name, err)
	}
	if cur := a.current(); cur != nil && fmt.Sprintf("%T", cur) != fmt.Sprintf("%T", v) {
		return fmt.Errorf("attribute %s: %w: have %T, got %T", a.name, ErrAttrType, cur, v)
	}
	if !a.animated {
		a.static = v
		return nil
	}
	i := sort.Search(len(a.keyframes), func(i int) bool { return a.keyframes[i].Frame >= frame })
	if i < len(a.keyframes) && a.keyframes[i].Frame == frame {
		a.keyframes[i].Value = v
		return nil
	}
	a.keyframes = append(a.keyframes, ir.Keyframe{})
	copy(a.keyframes[i+1:], a.keyframes[i:])
	a.keyframes[i] = ir.Keyframe{Frame: frame, Value: v}
	return nil
}

// Keyframes returns a copy of the keyframes.
func (a *Attribute) Keyframes() []ir.Keyframe {
	return append([]ir.Keyframe(nil), a.keyframes...)
}

func (a *Attribute) current() any {
	if a.static != nil {
		return a.static
	}
	if len(a.keyframes) > 0 {
		return a.keyframes[0].Value
	}
	return nil
}

func normalizeValue(v any) (any, error) {
	switch x := v.(type) {
	case string, int64, bool:
		return x, nil
	case int:
		return int64(x), nil
	}
	return nil, fmt.Errorf("%w: unsupported value type %T", ErrAttrType, v)
}

// AttrValue reads a typed attribute value at frame.
func AttrValue[T string | int64 | bool](a *Attribute, frame int) (T, bool) {
	var zero T
	v, ok := a.Get(frame)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// SetAttribute attaches attr to key, replacing any attribute with the same
// name.
func (m *Memory) SetAttribute(key ir.Key, attr *Attribute) error {
	n, ok := m.nodes[key]
	if !ok {
		return fmt.Errorf("set attribute on %s: unknown node", key)
	}
	if n.attrs == nil {
		n.attrs = make(map[string]*Attribute)
	}
	n.attrs[attr.name] = attr
	return nil
}

// Attribute returns the named attribute of key.
func (m *Memory) Attribute(key ir.Key, name string) (*Attribute, bool) {
	n, ok := m.nodes[key]
	if !ok {
		return nil, false
	}
	a, ok := n.attrs[name]
	return a, ok
}

// Attributes returns the attribute names of key in sorted order.
func (m *Memory) Attributes(key ir.Key) []string {
	n, ok := m.nodes[key]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(n.attrs))
	for name := range n.attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
