package metadata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_OpenIsIdempotent(t *testing.T) {
	s := createTestSnapshot(t)

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)

	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestSnapshot_ImportMirrorsSource(t *testing.T) {
	ctx := context.Background()
	src := NewStatic(loadTestFixture(t))
	s := createTestSnapshot(t)

	stats, err := s.Import(ctx, src, "crm.yaml")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Entities)
	assert.Equal(t, 3+2+2, stats.Options, "industrycode + statecode + creditonhold defaults")
	assert.Equal(t, 4, stats.Relationships)

	source, err := s.Source(ctx)
	require.NoError(t, err)
	assert.Equal(t, "crm.yaml", source)

	want, err := src.ListAttributes(ctx, "account")
	require.NoError(t, err)
	got, err := s.ListAttributes(ctx, "Account")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	opts, err := s.ListOptionSetValues(ctx, "account", "industrycode", OptionSetPicklist)
	require.NoError(t, err)
	assert.Equal(t, Option{Value: 2, Label: "Agriculture"}, opts[1])

	rels, err := s.ListRelationships(ctx, "account")
	require.NoError(t, err)
	assert.Len(t, rels, 3)

	entities, err := s.ListEntities(ctx)
	require.NoError(t, err)
	contact, ok := FindEntity(entities, "contact")
	require.True(t, ok)
	assert.Equal(t, "contacts", contact.EntitySetName)
}

func TestSnapshot_ImportReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	s := createTestSnapshot(t)

	_, err := s.Import(ctx, NewStatic(loadTestFixture(t)), "first")
	require.NoError(t, err)

	small, err := ParseFixture([]byte(`
entities:
  - logical_name: team
    entity_set_name: teams
    attributes:
      - { logical_name: name, type: String }
`))
	require.NoError(t, err)
	_, err = s.Import(ctx, NewStatic(small), "second")
	require.NoError(t, err)

	entities, err := s.ListEntities(ctx)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "team", entities[0].LogicalName)

	_, err = s.ListAttributes(ctx, "account")
	assert.True(t, IsNotFound(err))
}

func TestSnapshot_EmptySource(t *testing.T) {
	s := createTestSnapshot(t)

	source, err := s.Source(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", source)
}
