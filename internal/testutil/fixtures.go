package testutil

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/fetchq/internal/metadata"
)

// TestdataDir returns the repository's testdata directory.
func TestdataDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "testdata")
}

// CRMFixturePath returns the path of the shared CRM metadata fixture.
func CRMFixturePath() string {
	return filepath.Join(TestdataDir(), "metadata", "crm.yaml")
}

// CRM loads the shared CRM fixture as a static provider.
func CRM(t testing.TB) *metadata.Static {
	t.Helper()
	f, err := metadata.LoadFixture(CRMFixturePath())
	require.NoError(t, err)
	return metadata.NewStatic(f)
}
