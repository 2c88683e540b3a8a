package metadata

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func fixturePath() string {
	return filepath.Join("..", "..", "testdata", "metadata", "crm.yaml")
}

// loadTestFixture loads the shared CRM fixture.
func loadTestFixture(t *testing.T) *Fixture {
	t.Helper()
	f, err := LoadFixture(fixturePath())
	require.NoError(t, err)
	return f
}

// createTestSnapshot opens a snapshot in a temp dir.
func createTestSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	s, err := OpenSnapshot(filepath.Join(t.TempDir(), "metadata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}
