package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fetchq/internal/testutil"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: add_filter
description: "Adds a filter"
metadata: `+testutil.CRMFixturePath()+`
query: |
  <fetch><entity name="account"/></fetch>
steps:
  - op: add
    parent: /fetch/entity
    kind: filter
    index: 0
assertions:
  - type: invalid
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "add_filter", scenario.Name)
	assert.Equal(t, testutil.CRMFixturePath(), scenario.Metadata)
	require.Len(t, scenario.Steps, 1)
	assert.Equal(t, OpAdd, scenario.Steps[0].Op)
	require.NotNil(t, scenario.Steps[0].Index)
	assert.Equal(t, 0, *scenario.Steps[0].Index)
	assert.Len(t, scenario.Assertions, 1)
}

func TestLoadScenario_ResolvesMetadataRelativeToFile(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "condition_reset.yaml"))
	require.NoError(t, err)

	abs, err := filepath.Abs(scenario.Metadata)
	require.NoError(t, err)
	want, err := filepath.Abs(testutil.CRMFixturePath())
	require.NoError(t, err)
	assert.Equal(t, want, abs)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_MissingMetadataFile(t *testing.T) {
	path := writeScenario(t, `
name: x
description: "x"
metadata: nowhere.yaml
query: "<fetch/>"
assertions:
  - type: valid
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metadata fixture not found")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: "name: x\ndescription: x\nmetadata: m\nquery: q\nassertion:\n  - type: valid\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "missing name",
			content: "description: x\nmetadata: m\nquery: q\nassertions:\n  - type: valid\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: x\nmetadata: m\nquery: q\nassertions:\n  - type: valid\n",
			wantErr: "description is required",
		},
		{
			name:    "missing metadata",
			content: "name: x\ndescription: x\nquery: q\nassertions:\n  - type: valid\n",
			wantErr: "metadata is required",
		},
		{
			name:    "nothing to do",
			content: "name: x\ndescription: x\nmetadata: m\nassertions:\n  - type: valid\n",
			wantErr: "query or steps are required",
		},
		{
			name:    "no assertions",
			content: "name: x\ndescription: x\nmetadata: m\nquery: q\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "unknown op",
			content: "name: x\ndescription: x\nmetadata: m\nsteps:\n  - op: rename\nassertions:\n  - type: valid\n",
			wantErr: `steps[0]: unknown op "rename"`,
		},
		{
			name:    "add unknown kind",
			content: "name: x\ndescription: x\nmetadata: m\nsteps:\n  - op: add\n    kind: table\nassertions:\n  - type: valid\n",
			wantErr: "add requires a known kind",
		},
		{
			name:    "set without name",
			content: "name: x\ndescription: x\nmetadata: m\nsteps:\n  - op: set\n    node: /fetch\nassertions:\n  - type: valid\n",
			wantErr: "set requires node and name",
		},
		{
			name:    "move without parent",
			content: "name: x\ndescription: x\nmetadata: m\nsteps:\n  - op: move\n    node: /fetch/entity\nassertions:\n  - type: valid\n",
			wantErr: "move requires node and parent",
		},
		{
			name:    "remove without node",
			content: "name: x\ndescription: x\nmetadata: m\nsteps:\n  - op: remove\nassertions:\n  - type: valid\n",
			wantErr: "remove requires node",
		},
		{
			name:    "unknown assertion",
			content: "name: x\ndescription: x\nmetadata: m\nquery: q\nassertions:\n  - type: trace_contains\n",
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name:    "error_contains without message",
			content: "name: x\ndescription: x\nmetadata: m\nquery: q\nassertions:\n  - type: error_contains\n",
			wantErr: "message is required",
		},
		{
			name:    "label without node",
			content: "name: x\ndescription: x\nmetadata: m\nquery: q\nassertions:\n  - type: label\n    value: x\n",
			wantErr: "node is required for label",
		},
		{
			name:    "negative count",
			content: "name: x\ndescription: x\nmetadata: m\nquery: q\nassertions:\n  - type: node_count\n    count: -1\n",
			wantErr: "count must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
