package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const messyQuery = `<?xml version="1.0"?>
<fetch distinct="true" top="5"><entity name="account">
<filter><condition operator="in" attribute="industrycode"><value> 1 </value><value>2</value></condition></filter>
<attribute name="name"/></entity></fetch>`

const canonicalQuery = `<fetch top="5" distinct="true">
  <entity name="account">
    <filter>
      <condition attribute="industrycode" operator="in">
        <value>1</value>
        <value>2</value>
      </condition>
    </filter>
    <attribute name="name" />
  </entity>
</fetch>
`

func TestFormatCommand(t *testing.T) {
	path := writeFile(t, t.TempDir(), "q.xml", messyQuery)

	out, _, err := execute(t, "format", path)
	require.NoError(t, err)
	assert.Equal(t, canonicalQuery, out)
}

func TestFormatCommandNeedsNoMetadata(t *testing.T) {
	path := writeFile(t, t.TempDir(), "q.xml", `<fetch><entity name="nope"/></fetch>`)

	out, _, err := execute(t, "format", path)
	require.NoError(t, err)
	assert.Equal(t, "<fetch>\n  <entity name=\"nope\" />\n</fetch>\n", out)
}

func TestFormatCommandOutputFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "q.xml", messyQuery)
	dest := filepath.Join(dir, "out.xml")

	out, _, err := execute(t, "format", path, "-o", dest)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, canonicalQuery, string(data))
}

func TestFormatCommandJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "q.xml", messyQuery)

	out, _, err := execute(t, "--format", "json", "format", path)
	require.NoError(t, err)

	var resp struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, canonicalQuery, resp.Data["document"])
}

func TestFormatCheck(t *testing.T) {
	t.Run("canonical", func(t *testing.T) {
		out, _, err := execute(t, "format", "--check", queryPath("valid.xml"))
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("not_canonical", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "q.xml", messyQuery)
		out, _, err := execute(t, "format", "--check", path)
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.Equal(t, path+"\n", out)
	})

	t.Run("json", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "q.xml", messyQuery)
		out, _, err := execute(t, "--format", "json", "format", "--check", path)
		require.Error(t, err)

		var resp struct {
			Data map[string]any `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, false, resp.Data["canonical"])
	})
}

func TestFormatCommandMalformed(t *testing.T) {
	out, _, err := execute(t, "format", queryPath("malformed.xml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")
}
