package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidQuery(t *testing.T) {
	out, _, err := execute(t, withCRM("validate", queryPath("valid.xml"))...)
	require.NoError(t, err)
	assert.Equal(t, "✓ Query valid (12 nodes)\n", out)
}

func TestValidateValidQueryJSON(t *testing.T) {
	out, _, err := execute(t, withCRM("--format", "json", "validate", queryPath("valid.xml"))...)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 12, resp.Data.Nodes)
	assert.Empty(t, resp.Data.Errors)
}

func TestValidateInvalidQuery(t *testing.T) {
	out, _, err := execute(t, withCRM("validate", queryPath("invalid.xml"))...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with 1 error(s)")

	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "/fetch/entity/attribute (attribute bogus)")
	assert.Contains(t, out, "  Attribute 'bogus' not found on entity 'account'")
}

func TestValidateInvalidQueryJSON(t *testing.T) {
	out, _, err := execute(t, withCRM("--format", "json", "validate", queryPath("invalid.xml"))...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 1)
	assert.Equal(t, "/fetch/entity/attribute", resp.Data.Errors[0].Path)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidQuery, resp.Error.Code)
	assert.Equal(t, "Attribute 'bogus' not found on entity 'account'", resp.Error.Message)
}

func TestValidateFromStdin(t *testing.T) {
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(`<fetch><entity name="contact"><attribute name="fullname"/></entity></fetch>`))
	cmd.SetArgs(withCRM("validate", "-"))

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "✓ Query valid (3 nodes)\n", out.String())
}

func TestValidateUnknownEntity(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "q.xml", `<fetch><entity name="nope"/></fetch>`)

	out, _, err := execute(t, withCRM("validate", path)...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Entity 'nope' not found")
}

func TestValidateBrokenStructureListsOnlyDocumentIssues(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "q.xml", `<fetch top="abc"/>`)

	out, _, err := execute(t, withCRM("--format", "json", "validate", path)...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Data ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 1, "node issues are hidden while the structure is broken")
	assert.Empty(t, resp.Data.Errors[0].Path)
	assert.Equal(t, "The first element under 'fetch' must be an 'entity'", resp.Data.Errors[0].Message)
}

func TestValidateCommandErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "missing_query",
			args:    withCRM("validate", "/nonexistent/query.xml"),
			wantErr: "cannot read query",
		},
		{
			name:    "malformed_xml",
			args:    withCRM("validate", queryPath("malformed.xml")),
			wantErr: "cannot import query",
		},
		{
			name:    "no_metadata",
			args:    []string{"validate", queryPath("valid.xml")},
			wantErr: "no metadata source",
		},
		{
			name:    "missing_metadata",
			args:    []string{"--metadata", "/nonexistent/crm.yaml", "validate", queryPath("valid.xml")},
			wantErr: "metadata not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestValidateMissingArgs(t *testing.T) {
	_, _, err := execute(t, "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestValidateVerbose(t *testing.T) {
	_, errOut, err := execute(t, withCRM("-v", "validate", queryPath("valid.xml"))...)
	require.NoError(t, err)
	assert.Contains(t, errOut, "Importing")
	assert.Contains(t, errOut, "Metadata lookups:")
}

func TestTreeCommand(t *testing.T) {
	out, _, err := execute(t, withCRM("tree", queryPath("invalid.xml"))...)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Equal(t, "✓ fetch", lines[0])
	assert.Equal(t, "  ✓ entity account", lines[1])
	assert.Equal(t, "    ✗ attribute bogus", lines[2])
	assert.Equal(t, "        Attribute 'bogus' not found on entity 'account'", lines[3])
	assert.Contains(t, out, "1 error(s)")
}

func TestTreeCommandJSON(t *testing.T) {
	out, _, err := execute(t, withCRM("--format", "json", "tree", queryPath("invalid.xml"))...)
	require.NoError(t, err)

	var resp struct {
		Status string   `json:"status"`
		Data   TreeNode `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "fetch", resp.Data.Kind)
	require.Len(t, resp.Data.Children, 1)
	entity := resp.Data.Children[0]
	assert.Equal(t, "entity account", entity.Label)
	require.Len(t, entity.Children, 1)
	assert.False(t, entity.Children[0].Valid)
	assert.NotEmpty(t, entity.Children[0].Key)
}
