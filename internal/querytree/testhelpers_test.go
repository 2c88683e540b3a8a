package querytree

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/fetchq/internal/testutil"
)

// newTestService creates a service over the CRM fixture with no debounce.
func newTestService(t *testing.T, opts ...Option) (*Service, *testutil.GatedProvider) {
	t.Helper()
	p := testutil.NewGatedProvider(testutil.CRM(t))
	base := []Option{
		WithDebounce(0),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	svc := NewService(p, append(base, opts...)...)
	t.Cleanup(func() {
		p.Release()
		svc.Close()
	})
	return svc, p
}

func settle(t *testing.T, svc *Service) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Settle(ctx))
}

// buildQuery creates fetch > entity(name=entity).
func buildQuery(t *testing.T, svc *Service, entity string) (fetch, ent *Node) {
	t.Helper()
	fetch, err := svc.AddNode(NodeFetch, nil)
	require.NoError(t, err)
	ent, err = svc.AddNode(NodeEntity, fetch)
	require.NoError(t, err)
	_, err = svc.SetAttribute(ent, AttrName, entity)
	require.NoError(t, err)
	return fetch, ent
}

func addNode(t *testing.T, svc *Service, name NodeName, parent *Node, attrs ...string) *Node {
	t.Helper()
	require.Zero(t, len(attrs)%2, "attrs must be name/value pairs")
	n, err := svc.AddNode(name, parent)
	require.NoError(t, err)
	for i := 0; i < len(attrs); i += 2 {
		_, err := svc.SetAttribute(n, attrs[i], attrs[i+1])
		require.NoError(t, err)
	}
	return n
}

// condition creates filter > condition under parent.
func condition(t *testing.T, svc *Service, parent *Node, attrs ...string) *Node {
	t.Helper()
	filter := addNode(t, svc, NodeFilter, parent)
	return addNode(t, svc, NodeCondition, filter, attrs...)
}

// importUnder imports fetch > entity(account) and then a node of kind name
// attrs. Conditions are placed in a filter.
func importUnder(t *testing.T, svc *Service, name NodeName, attrs ...string) *Node {
	t.Helper()
	require.Zero(t, len(attrs)%2, "attrs must be name/value pairs")
	fetch, err := svc.ImportNode(NodeFetch, nil, nil)
	require.NoError(t, err)
	parent, err := svc.ImportNode(NodeEntity, fetch, []AttributeValue{{Name: AttrName, Value: "account"}})
	require.NoError(t, err)
	if name == NodeCondition {
		parent, err = svc.ImportNode(NodeFilter, parent, nil)
		require.NoError(t, err)
	}
	var avs []AttributeValue
	for i := 0; i < len(attrs); i += 2 {
		avs = append(avs, AttributeValue{Name: attrs[i], Value: attrs[i+1]})
	}
	n, err := svc.ImportNode(name, parent, avs)
	require.NoError(t, err)
	return n
}

func names(nodes []*Node) []NodeName {
	out := make([]NodeName, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Name())
	}
	return out
}
