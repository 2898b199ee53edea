package link

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/roach88/nodelink/internal/ir"
)

var propertyNodes = []ir.Key{
	"Top/A",
	"Top/G1/B",
	"Top/G1/C",
	"Top/G2/D",
	"Top/G2/G3/E",
	"Top/G2/G3/F",
}

func propertyScene(t *rapid.T) *Linker {
	m := newScene(t,
		group("Top/G1"),
		group("Top/G2"),
		group("Top/G2/G3"),
	)
	for _, key := range propertyNodes {
		require.NoError(t, m.AddNode(key, ir.KindOrdinary, 1, 1))
	}
	return newLinker(m)
}

// logicalSources maps every node to the node feeding its in-port 0, or to
// the empty key when nothing does.
func logicalSources(k *Linker) map[ir.Key]ir.Key {
	sources := make(map[ir.Key]ir.Key, len(propertyNodes))
	for _, key := range propertyNodes {
		if l := k.FromIn(ep(key, 0)); l.Exists() {
			sources[key] = l.Out().Node
		} else {
			sources[key] = ir.NoKey
		}
	}
	return sources
}

// TestProperty_Invariants drives random connects and disconnects and checks
// after every step that the graph stays consistent (fan-in at most one),
// that every connect validates and rewires no other in-port, and that
// reconnecting changes nothing.
func TestProperty_Invariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		k := propertyScene(t)
		m := k.Registry().Host().(interface {
			Check() error
			Dump() ([]byte, error)
		})

		steps := rapid.IntRange(1, 25).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			out := rapid.SampledFrom(propertyNodes).Draw(t, fmt.Sprintf("out-%d", i))
			in := rapid.SampledFrom(propertyNodes).Draw(t, fmt.Sprintf("in-%d", i))
			if out == in {
				continue
			}

			if rapid.Bool().Draw(t, fmt.Sprintf("disconnect-%d", i)) {
				l := k.FromIn(ep(in, 0))
				if l.Exists() {
					require.True(t, k.Disconnect(l))
					require.False(t, k.FromIn(ep(in, 0)).Exists())
				}
			} else {
				sources := logicalSources(k)
				l, err := k.Connect(ep(out, 0), ep(in, 0), true)
				require.NoError(t, err)
				require.True(t, l.Exists())
				after := logicalSources(k)
				for _, key := range propertyNodes {
					if key != in {
						require.Equal(t, sources[key], after[key], "connecting %s -> %s rewired %s", out, in, key)
					}
				}

				before, err := m.Dump()
				require.NoError(t, err)
				_, err = k.Connect(ep(out, 0), ep(in, 0), true)
				require.NoError(t, err)
				after, err := m.Dump()
				require.NoError(t, err)
				require.Equal(t, string(before), string(after), "reconnecting must be a no-op")
			}
			require.NoError(t, m.Check())
		}
	})
}

// TestProperty_SameScopeNeverTouchesProxies connects random pairs of
// siblings and checks that no boundary proxy gains a port.
func TestProperty_SameScopeNeverTouchesProxies(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		siblings := []ir.Key{"Top/G2/G3/E", "Top/G2/G3/F"}
		k := propertyScene(t)
		out := rapid.SampledFrom(siblings).Draw(t, "out")
		in := siblings[0]
		if out == in {
			in = siblings[1]
		}

		_, err := k.Connect(ep(out, 0), ep(in, 0), true)
		require.NoError(t, err)
		require.Equal(t, 0, k.Registry().PortCount("Top/G2/G3", ir.In))
		require.Equal(t, 0, k.Registry().PortCount("Top/G2/G3", ir.Out))
	})
}
