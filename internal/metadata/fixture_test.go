package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFixture_CRM(t *testing.T) {
	f := loadTestFixture(t)

	require.Len(t, f.Entities, 4)
	assert.Equal(t, "account", f.Entities[0].LogicalName)
	assert.Equal(t, "accounts", f.Entities[0].EntitySetName)
}

func TestParseFixture_RejectsUnknownFields(t *testing.T) {
	_, err := ParseFixture([]byte(`
entities:
  - logical_name: account
    entity_set_name: accounts
    atributes: []
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "atributes")
}

func TestParseFixture_RejectsUnknownType(t *testing.T) {
	_, err := ParseFixture([]byte(`
entities:
  - logical_name: account
    entity_set_name: accounts
    attributes:
      - { logical_name: name, type: Text }
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid fixture")
}

func TestParseFixture_RequiresEntitySetName(t *testing.T) {
	_, err := ParseFixture([]byte(`
entities:
  - logical_name: account
    attributes: []
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EntitySetName")
}

func TestParseFixture_ManyToManyNeedsIntersect(t *testing.T) {
	_, err := ParseFixture([]byte(`
entities:
  - logical_name: account
    entity_set_name: accounts
    attributes: []
    relationships:
      - { schema_name: x, kind: ManyToMany }
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IntersectEntity")
}

func TestParseFixture_DuplicateNames(t *testing.T) {
	_, err := ParseFixture([]byte(`
entities:
  - logical_name: account
    entity_set_name: accounts
    attributes:
      - { logical_name: name, type: String }
      - { logical_name: Name, type: String }
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate logical name")
}
