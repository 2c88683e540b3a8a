package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fetchq/internal/metadata"
	"github.com/roach88/fetchq/internal/testutil"
)

func importSnapshot(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "metadata.db")
	_, _, err := execute(t, "metadata", "import", testutil.CRMFixturePath(), db)
	require.NoError(t, err)
	return db
}

func TestMetadataImport(t *testing.T) {
	db := filepath.Join(t.TempDir(), "metadata.db")

	out, _, err := execute(t, "metadata", "import", testutil.CRMFixturePath(), db)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Imported 4 entities")
	assert.Contains(t, out, db)
}

func TestMetadataImportJSON(t *testing.T) {
	db := filepath.Join(t.TempDir(), "metadata.db")

	out, _, err := execute(t, "--format", "json", "metadata", "import", testutil.CRMFixturePath(), db)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ImportResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 4, resp.Data.Entities)
	assert.Equal(t, 22, resp.Data.Attributes)
	assert.Equal(t, 7, resp.Data.Options)
	assert.Equal(t, testutil.CRMFixturePath(), resp.Data.Source)
}

func TestMetadataImportBadFixture(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.yaml", "entities:\n  - entity_set_name: x\n")

	_, _, err := execute(t, "metadata", "import", bad, filepath.Join(dir, "m.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "cannot load fixture")
}

func TestMetadataEntities(t *testing.T) {
	out, _, err := execute(t, withCRM("metadata", "entities")...)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.Contains(t, out, "accounts")
	assert.Contains(t, out, "Contact")
}

func TestMetadataEntitiesFromSnapshot(t *testing.T) {
	db := importSnapshot(t)

	out, _, err := execute(t, "--metadata", db, "--format", "json", "metadata", "entities")
	require.NoError(t, err)

	var resp struct {
		Data []metadata.Entity `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 4)

	names := make([]string, len(resp.Data))
	for i, e := range resp.Data {
		names[i] = e.LogicalName
	}
	assert.ElementsMatch(t, []string{"account", "contact", "accountleads", "lead"}, names)
}

func TestMetadataAttributes(t *testing.T) {
	out, _, err := execute(t, withCRM("metadata", "attributes", "contact")...)
	require.NoError(t, err)
	assert.Contains(t, out, "parentcustomerid")
	assert.Contains(t, out, "account,contact")
}

func TestMetadataAttributesUnknownEntity(t *testing.T) {
	out, _, err := execute(t, withCRM("metadata", "attributes", "nope")...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]: entity 'nope' not found")
}

func TestValidateAgainstSnapshot(t *testing.T) {
	db := importSnapshot(t)

	out, _, err := execute(t, "--metadata", db, "validate", queryPath("valid.xml"))
	require.NoError(t, err)
	assert.Equal(t, "✓ Query valid (12 nodes)\n", out)

	out, _, err = execute(t, "--metadata", db, "validate", queryPath("invalid.xml"))
	require.Error(t, err)
	assert.Contains(t, out, "Attribute 'bogus' not found on entity 'account'")
}
