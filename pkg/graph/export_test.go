package graph

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportFixture(t *testing.T) *Graph {
	t.Helper()
	b := NewBuilder()
	b.AddNode(NodeSpec{Sym: sym("main"), Entrypoint: true})
	b.AddEdge(EdgeSpec{Caller: sym("main"), Callee: sym("hub"), Confidence: Definite})
	b.AddEdge(EdgeSpec{Caller: sym("main"), Callee: sym("other"), Confidence: Conservative})
	b.AddEdge(EdgeSpec{Caller: sym("other"), Callee: sym("hub"), Confidence: Definite})
	return b.Finalize()
}

func TestExportJSONRoundtrip(t *testing.T) {
	g := exportFixture(t)
	e := g.Export(false)

	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"conservative"`)
	assert.Contains(t, string(data), `"definite"`)
	assert.Contains(t, string(data), g.Checksum())
}

func TestComputeMetrics(t *testing.T) {
	g := exportFixture(t)
	m := g.ComputeMetrics()

	assert.Equal(t, 3, m.TotalNodes)
	assert.Equal(t, 3, m.TotalEdges)
	assert.Equal(t, 1, m.ConservativeEdges)
	assert.Greater(t, m.AvgDegree, 0.0)
	require.NotEmpty(t, m.TopNodes)

	// hub has two callers and no callees; it should outrank main.
	var hub NodeMetric
	for _, nm := range m.TopNodes {
		if nm.Symbol == "app.hub" {
			hub = nm
		}
	}
	assert.Equal(t, 2, hub.InDegree)
	assert.Equal(t, 0, hub.OutDegree)
}

func TestComputeMetricsEmptyGraph(t *testing.T) {
	g := NewBuilder().Finalize()
	m := g.ComputeMetrics()
	assert.Equal(t, 0, m.TotalNodes)
	assert.Empty(t, m.TopNodes)
}

func TestWriteMermaid(t *testing.T) {
	g := exportFixture(t)
	var buf bytes.Buffer
	g.Export(false).WriteMermaid(&buf)

	out := buf.String()
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "(entry)")
	assert.Contains(t, out, "-.->") // conservative edges drawn dashed
	assert.Contains(t, out, "-->")
}

func TestFormatWitness(t *testing.T) {
	assert.Equal(t, "a -> b -> c", FormatWitness([]string{"a", "b", "c"}))
}
