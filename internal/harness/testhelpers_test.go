package harness

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/fetchq/internal/testutil"
)

// newScenario builds an in-memory scenario over the CRM fixture.
func newScenario(t *testing.T, query string, steps []Step, assertions ...Assertion) *Scenario {
	t.Helper()
	return &Scenario{
		Name:        t.Name(),
		Description: "inline scenario",
		Metadata:    testutil.CRMFixturePath(),
		Query:       query,
		Steps:       steps,
		Assertions:  assertions,
	}
}

func run(t *testing.T, s *Scenario) *Result {
	t.Helper()
	result, err := Run(s)
	require.NoError(t, err)
	return result
}

func intPtr(i int) *int { return &i }
