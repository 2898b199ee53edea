package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nodelink/internal/ir"
)

func ep(node string, port int) ir.Endpoint {
	return ir.Endpoint{Node: ir.Key(node), Port: port}
}

func newTestGraph(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory("Top")
	require.NoError(t, m.AddNode("Top/A", ir.KindOrdinary, 0, 1))
	require.NoError(t, m.AddNode("Top/G", ir.KindGroup, 0, 0))
	require.NoError(t, m.AddNode("Top/G/B", ir.KindOrdinary, 1, 1))
	require.NoError(t, m.AddNode("Top/C", ir.KindComposite, 0, 1))
	return m
}

func TestAddNode_RequiresGroupParent(t *testing.T) {
	m := newTestGraph(t)

	assert.Error(t, m.AddNode("Top/A/X", ir.KindOrdinary, 1, 1))
	assert.Error(t, m.AddNode("Top/Missing/X", ir.KindOrdinary, 1, 1))
	assert.Error(t, m.AddNode("Top/A", ir.KindOrdinary, 1, 1), "duplicate key")
	assert.Error(t, m.AddNode("Top/G/Multi-Port-In", ir.KindBoundaryIn, 0, 0))
}

func TestResolve_CreatesProxiesLazily(t *testing.T) {
	m := newTestGraph(t)

	info, ok := m.Resolve("Top/G/Multi-Port-Out")
	require.True(t, ok)
	assert.Equal(t, ir.KindBoundaryOut, info.Kind)
	assert.Equal(t, ir.Key("Top/G"), info.Parent)

	_, ok = m.Resolve("Top/Multi-Port-In")
	assert.False(t, ok, "root scope has no proxies")
	_, ok = m.BoundaryInOf("Top")
	assert.False(t, ok)
	_, ok = m.BoundaryInOf("Top/A")
	assert.False(t, ok, "only groups have proxies")
}

func TestCreateLink_SameScopeOnly(t *testing.T) {
	m := newTestGraph(t)

	assert.False(t, m.CreateLink("Top/A", 0, "Top/G/B", 0, false, false))
	assert.False(t, m.CreateLink("Top/A", 0, "Top/A", 0, true, true))
	assert.Empty(t, m.Links())
}

func TestCreateLink_RefusesOccupiedInPort(t *testing.T) {
	m := newTestGraph(t)
	require.NoError(t, m.AddNode("Top/G/D", ir.KindOrdinary, 0, 1))

	bi, ok := m.BoundaryInOf("Top/G")
	require.True(t, ok)
	require.True(t, m.CreateLink(bi, 0, "Top/G/B", 0, true, false))
	assert.False(t, m.CreateLink("Top/G/D", 0, "Top/G/B", 0, false, false))

	src, ok := m.SourceOf("Top/G/B", 0)
	require.True(t, ok)
	assert.Equal(t, ir.Source{Node: bi, Port: 0, LinkIndex: 0}, src)
}

func TestCreateLink_GrowsMirroredPorts(t *testing.T) {
	m := newTestGraph(t)

	require.True(t, m.CreateLink("Top/A", 0, "Top/G", 0, false, true))
	counts, _ := m.PortCounts("Top/G")
	assert.Equal(t, ir.PortCounts{In: 1, Out: 0}, counts)

	bi, _ := m.BoundaryInOf("Top/G")
	counts, _ = m.PortCounts(bi)
	assert.Equal(t, ir.PortCounts{In: 0, Out: 1}, counts)

	bo, _ := m.BoundaryOutOf("Top/G")
	require.True(t, m.CreateLink("Top/G/B", 0, bo, 0, false, true))
	counts, _ = m.PortCounts("Top/G")
	assert.Equal(t, ir.PortCounts{In: 1, Out: 1}, counts)

	require.NoError(t, m.Check())
}

func TestCreateLink_OnlyAllowListedKindsGrow(t *testing.T) {
	m := newTestGraph(t)

	assert.False(t, m.CreateLink("Top/A", 1, "Top/C", 0, true, true), "ordinary out-port cannot grow")
	assert.False(t, m.CreateLink("Top/A", 0, "Top/C", 1, false, true), "only index == count may grow")
	assert.True(t, m.CreateLink("Top/A", 0, "Top/C", 0, false, true))
}

func TestFanOut_LinkIndexOrder(t *testing.T) {
	m := newTestGraph(t)
	require.NoError(t, m.AddNode("Top/D", ir.KindOrdinary, 1, 0))
	require.NoError(t, m.AddNode("Top/E", ir.KindOrdinary, 1, 0))

	require.True(t, m.CreateLink("Top/A", 0, "Top/D", 0, false, false))
	require.True(t, m.CreateLink("Top/A", 0, "Top/E", 0, false, false))

	assert.Equal(t, []ir.Endpoint{ep("Top/D", 0), ep("Top/E", 0)}, m.DestinationsOf("Top/A", 0))
	src, _ := m.SourceOf("Top/E", 0)
	assert.Equal(t, 1, src.LinkIndex)
}

func TestComposite_CollapseAndInsert(t *testing.T) {
	m := newTestGraph(t)
	for _, name := range []string{"Top/X", "Top/Y", "Top/Z"} {
		require.NoError(t, m.AddNode(ir.Key(name), ir.KindOrdinary, 0, 1))
	}
	require.True(t, m.CreateLink("Top/X", 0, "Top/C", 0, false, true))
	require.True(t, m.CreateLink("Top/Y", 0, "Top/C", 1, false, true))
	require.True(t, m.CreateLink("Top/Z", 0, "Top/C", 2, false, true))

	require.True(t, m.RemoveLink("Top/C", 0))
	counts, _ := m.PortCounts("Top/C")
	assert.Equal(t, 2, counts.In)
	assert.Equal(t, []ir.Endpoint{ep("Top/C", 0)}, m.DestinationsOf("Top/Y", 0))
	assert.Equal(t, []ir.Endpoint{ep("Top/C", 1)}, m.DestinationsOf("Top/Z", 0))

	require.True(t, m.CreateLink("Top/X", 0, "Top/C", 1, false, true))
	assert.Equal(t, []ir.Endpoint{ep("Top/C", 1)}, m.DestinationsOf("Top/X", 0))
	assert.Equal(t, []ir.Endpoint{ep("Top/C", 2)}, m.DestinationsOf("Top/Z", 0))
	require.NoError(t, m.Check())
}

func TestDeleteNode_RemovesSubtreeAndLinks(t *testing.T) {
	m := newTestGraph(t)
	require.True(t, m.CreateLink("Top/A", 0, "Top/G", 0, false, true))
	bi, _ := m.BoundaryInOf("Top/G")
	require.True(t, m.CreateLink(bi, 0, "Top/G/B", 0, false, false))
	require.True(t, m.CreateLink("Top/A", 0, "Top/C", 0, false, true))

	require.True(t, m.DeleteNode("Top/G"))
	assert.False(t, m.Exists("Top/G/B"))
	assert.False(t, m.Exists(bi))
	assert.Equal(t, []ir.Endpoint{ep("Top/C", 0)}, m.DestinationsOf("Top/A", 0))
	assert.False(t, m.DeleteNode("Top"))
	require.NoError(t, m.Check())
}

func TestRename_RekeysLinks(t *testing.T) {
	m := newTestGraph(t)
	require.True(t, m.CreateLink("Top/A", 0, "Top/G", 0, false, true))
	bi, _ := m.BoundaryInOf("Top/G")
	require.True(t, m.CreateLink(bi, 0, "Top/G/B", 0, false, false))

	renamed, ok := m.Rename("Top/G", "H")
	require.True(t, ok)
	assert.Equal(t, ir.Key("Top/H"), renamed)
	assert.True(t, m.Exists("Top/H/B"))
	assert.Equal(t, []ir.Endpoint{ep("Top/H", 0)}, m.DestinationsOf("Top/A", 0))
	src, ok := m.SourceOf("Top/H/B", 0)
	require.True(t, ok)
	assert.Equal(t, ir.Key("Top/H/Multi-Port-In"), src.Node)
	require.NoError(t, m.Check())
}

func TestMove_DropsCrossingLinks(t *testing.T) {
	m := newTestGraph(t)
	require.True(t, m.CreateLink("Top/A", 0, "Top/C", 0, false, true))

	moved, ok := m.Move("Top/A", "Top/G")
	require.True(t, ok)
	assert.Equal(t, ir.Key("Top/G/A"), moved)
	assert.Empty(t, m.Links())
	counts, _ := m.PortCounts("Top/C")
	assert.Equal(t, 0, counts.In)

	_, ok = m.Move("Top/G", "Top/G/B")
	assert.False(t, ok)
}

func TestDump_Deterministic(t *testing.T) {
	a, b := newTestGraph(t), newTestGraph(t)
	require.True(t, a.CreateLink("Top/A", 0, "Top/C", 0, false, true))
	require.True(t, b.CreateLink("Top/A", 0, "Top/C", 0, false, true))

	da, err := a.Dump()
	require.NoError(t, err)
	db, err := b.Dump()
	require.NoError(t, err)
	assert.Equal(t, string(da), string(db))

	ha, _ := a.Hash()
	require.True(t, b.RemoveLink("Top/C", 0))
	hb, _ := b.Hash()
	assert.NotEqual(t, ha, hb)
}

func TestLoad_BuildsScene(t *testing.T) {
	spec := &ir.SceneSpec{
		Name: "basic",
		Root: "Top",
		Nodes: []ir.NodeSpec{
			{Key: "Top/A", Kind: ir.KindOrdinary, Out: 1, Attrs: []ir.AttrSpec{{Name: "label", Value: "a"}}},
			{Key: "Top/G", Kind: ir.KindGroup},
			{Key: "Top/G/B", Kind: ir.KindOrdinary, In: 1},
		},
		Links: []ir.LinkSpec{
			{From: ep("Top/A", 0), To: ep("Top/G", 0)},
			{From: ep("Top/G/Multi-Port-In", 0), To: ep("Top/G/B", 0)},
		},
	}

	m, err := Load(spec)
	require.NoError(t, err)
	assert.Len(t, m.Links(), 2)
	attr, ok := m.Attribute("Top/A", "label")
	require.True(t, ok)
	v, _ := AttrValue[string](attr, 0)
	assert.Equal(t, "a", v)

	spec.Links = append(spec.Links, ir.LinkSpec{From: ep("Top/A", 0), To: ep("Top/G/B", 0)})
	_, err = Load(spec)
	assert.Error(t, err)
}
