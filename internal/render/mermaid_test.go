package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nodelink/internal/host"
	"github.com/roach88/nodelink/internal/ir"
)

func ep(node ir.Key, port int) ir.Endpoint {
	return ir.Endpoint{Node: node, Port: port}
}

func groupScene(t *testing.T) *host.Memory {
	t.Helper()
	m := host.NewMemory("Top")
	require.NoError(t, m.AddNode("Top/A", ir.KindOrdinary, 0, 1))
	require.NoError(t, m.AddNode("Top/G", ir.KindGroup, 0, 0))
	require.NoError(t, m.AddNode("Top/G/B", ir.KindOrdinary, 1, 0))
	require.NoError(t, m.AddNode("Top/G/M", ir.KindPassThrough, 1, 1))
	require.True(t, m.CreateLink("Top/A", 0, "Top/G", 0, false, true))
	require.True(t, m.CreateLink("Top/G/Multi-Port-In", 0, "Top/G/B", 0, false, false))
	return m
}

func TestMermaid_Structure(t *testing.T) {
	out := Mermaid(groupScene(t), nil)

	assert.True(t, strings.HasPrefix(out, "flowchart LR\n"))
	for _, want := range []string{
		"    Top_A[\"A\"]\n",
		"    subgraph Top_G[\"G\"]\n",
		"        Top_G_B[\"B\"]\n",
		"        Top_G_M((\"M\"))\n",
		"        Top_G_Multi_Port_In[/\"Multi-Port-In\"/]\n",
		"    end\n",
		"    Top_A -- \"0:0\" --> Top_G\n",
		"    Top_G_Multi_Port_In -- \"0:0\" --> Top_G_B\n",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Top[")
	assert.NotContains(t, out, "Overlay")
}

func TestMermaid_ChildrenInsideSubgraph(t *testing.T) {
	out := Mermaid(groupScene(t), nil)

	open := strings.Index(out, "subgraph Top_G")
	child := strings.Index(out, "Top_G_B[")
	end := strings.Index(out, "    end\n")
	require.True(t, open >= 0 && child >= 0 && end >= 0)
	assert.Less(t, open, child)
	assert.Less(t, child, end)
}

func TestMermaid_Overlay(t *testing.T) {
	m := groupScene(t)
	out := Mermaid(m, &Overlay{Links: []ir.LinkSpec{
		{From: ep("Top/G/Multi-Port-In", 0), To: ep("Top/G/B", 0)},
	}})

	// Links are sorted by destination: Top/G before Top/G/B.
	assert.Contains(t, out, "%% Overlay Styles")
	assert.Contains(t, out, "linkStyle 1 stroke:#fbc02d,stroke-width:3px;")
	assert.NotContains(t, out, "linkStyle 0")
}

func TestMermaid_Shapes(t *testing.T) {
	tests := []struct {
		kind   ir.Kind
		opener string
		closer string
	}{
		{ir.KindOrdinary, "[", "]"},
		{ir.KindOther, "[", "]"},
		{ir.KindComposite, "[[", "]]"},
		{ir.KindPassThrough, "((", "))"},
		{ir.KindBoundaryIn, "[/", "/]"},
		{ir.KindBoundaryOut, "[\\", "\\]"},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			opener, closer := shape(tt.kind)
			assert.Equal(t, tt.opener, opener)
			assert.Equal(t, tt.closer, closer)
		})
	}
}

func TestSanitizeID(t *testing.T) {
	assert.Equal(t, "Top_G1_Multi_Port_Out", sanitizeID("Top/G1/Multi-Port-Out"))
	assert.Equal(t, "Top_my_node_v2", sanitizeID("Top/my node.v2"))
}
