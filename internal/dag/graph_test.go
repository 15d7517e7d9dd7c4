package dag_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airflow-mini/orchestrator/internal/dag"
	"github.com/airflow-mini/orchestrator/internal/testutil"
)

func TestGraph_Dependencies(t *testing.T) {
	def := testutil.DiamondDefinition("diamond")
	g := dag.NewGraph(def)

	assert.Empty(t, g.Dependencies("a"))
	assert.ElementsMatch(t, []string{"a"}, g.Dependencies("b"))
	assert.ElementsMatch(t, []string{"a"}, g.Dependencies("c"))
	assert.ElementsMatch(t, []string{"b", "c"}, g.Dependencies("d"))
}

func TestGraph_TaskIDs_PreservesOrder(t *testing.T) {
	def := testutil.DiamondDefinition("diamond")
	g := dag.NewGraph(def)

	assert.Equal(t, []string{"a", "b", "c", "d"}, g.TaskIDs())
}

func TestGraph_Runnable_OnlyRootsWhenNothingComplete(t *testing.T) {
	def := testutil.DiamondDefinition("diamond")
	g := dag.NewGraph(def)

	runnable := g.Runnable(map[string]bool{})

	assert.Equal(t, []string{"a"}, runnable)
}

func TestGraph_Runnable_MiddleTasksAfterRoot(t *testing.T) {
	def := testutil.DiamondDefinition("diamond")
	g := dag.NewGraph(def)

	runnable := g.Runnable(map[string]bool{"a": true})

	assert.ElementsMatch(t, []string{"b", "c"}, runnable)
}

func TestGraph_Runnable_LeafWaitsForBothParents(t *testing.T) {
	def := testutil.DiamondDefinition("diamond")
	g := dag.NewGraph(def)

	runnable := g.Runnable(map[string]bool{"a": true, "b": true})

	assert.Empty(t, runnable, "d must wait for both b and c")

	runnable = g.Runnable(map[string]bool{"a": true, "b": true, "c": true})
	assert.Equal(t, []string{"d"}, runnable)
}

func TestDecodeDefinition_RoundTrips(t *testing.T) {
	original := testutil.DiamondDefinition("diamond")
	raw := testutil.RawDefinition(original)

	def, err := dag.DecodeDefinition(raw)

	require.NoError(t, err)
	assert.Equal(t, original.ID, def.ID)
	assert.Len(t, def.Tasks, 4)
}

func TestParseYAMLDefinition_MatchesJSONShape(t *testing.T) {
	yamlBody := []byte(`
id: yaml-wf
tasks:
  - id: a
    command: echo a
  - id: b
    command: echo b
    dependencies: [a]
    max_retries: 3
`)

	raw, err := dag.ParseYAMLDefinition(yamlBody)
	require.NoError(t, err)

	v := dag.NewValidator()
	errs := v.Validate(raw)
	assert.Empty(t, errs)

	def, err := dag.DecodeDefinition(raw)
	require.NoError(t, err)
	assert.Equal(t, "yaml-wf", def.ID)
	require.Len(t, def.Tasks, 2)
	assert.Equal(t, 3, def.Tasks[1].MaxRetries)
	assert.Equal(t, []string{"a"}, def.Tasks[1].Dependencies)
}
