package fetchxml

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fetchq/internal/querytree"
	"github.com/roach88/fetchq/internal/testutil"
)

func newService(t *testing.T) *querytree.Service {
	t.Helper()
	svc := querytree.NewService(testutil.CRM(t),
		querytree.WithDebounce(0),
		querytree.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	t.Cleanup(svc.Close)
	return svc
}

func settle(t *testing.T, svc *querytree.Service) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Settle(ctx))
}

func parseFile(t *testing.T, svc *querytree.Service, name string) *querytree.Node {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", "queries", name))
	require.NoError(t, err)
	defer f.Close()

	root, err := Parse(f, svc)
	require.NoError(t, err)
	return root
}

func TestWrite_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, name := range []string{"accounts", "inline-values"} {
		t.Run(name, func(t *testing.T) {
			svc := newService(t)
			root := parseFile(t, svc, name+".xml")
			g.Assert(t, name, []byte(String(root)))
		})
	}
}

func TestParse_ValidQuery(t *testing.T) {
	svc := newService(t)
	root := parseFile(t, svc, "accounts.xml")
	settle(t, svc)

	assert.Equal(t, querytree.NodeFetch, root.Name())
	assert.Equal(t, 12, svc.Tree().Len())

	r := svc.Tree().Result()
	assert.True(t, r.Valid, "errors: %v", r.Errors)

	for n := range svc.Tree().All() {
		assert.Equal(t, querytree.ModeParse, n.Mode(), "node %s", n.Name())
	}
}

func TestParse_RoundTrip(t *testing.T) {
	for _, name := range []string{"accounts.xml", "inline-values.xml"} {
		t.Run(name, func(t *testing.T) {
			first := String(parseFile(t, newService(t), name))

			root, err := Parse(strings.NewReader(first), newService(t))
			require.NoError(t, err)
			assert.Equal(t, first, String(root))
		})
	}
}

func TestParse_InlineMultiValueBecomesValueNodes(t *testing.T) {
	svc := newService(t)
	parseFile(t, svc, "inline-values.xml")

	var conds []*querytree.Node
	for n := range svc.Tree().All() {
		if n.Name() == querytree.NodeCondition {
			conds = append(conds, n)
		}
	}
	require.Len(t, conds, 3)

	_, hasValue := conds[1].Attribute(querytree.AttrValue)
	assert.False(t, hasValue)
	s, err := svc.MultiValueString(conds[1])
	require.NoError(t, err)
	assert.Equal(t, "a, b", s)

	assert.Equal(t, "A&B%", conds[0].Value(querytree.AttrValue))
}

func TestParse_UnknownAttributeIsReported(t *testing.T) {
	svc := newService(t)
	_, err := Parse(strings.NewReader(`<fetch><entity name="account" bogus="1"/></fetch>`), svc)
	require.NoError(t, err)
	settle(t, svc)

	r := svc.Tree().Result()
	assert.False(t, r.Valid)
	assert.Contains(t, r.Errors, "Attribute 'bogus' is not allowed on 'entity'")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, err error)
	}{
		{
			name:  "empty",
			input: "",
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEmptyDocument)
			},
		},
		{
			name:  "unknown element",
			input: "<fetch>\n  <entity name=\"account\">\n    <bogus/>\n  </entity>\n</fetch>",
			check: func(t *testing.T, err error) {
				var pe *ParseError
				require.True(t, errors.As(err, &pe))
				assert.Equal(t, 3, pe.Line)
				assert.Contains(t, err.Error(), "unknown element <bogus>")
			},
		},
		{
			name:  "invalid parent",
			input: `<fetch><filter/></fetch>`,
			check: func(t *testing.T, err error) {
				assert.True(t, querytree.HasCode(err, querytree.ErrCodeInvalidParent))
			},
		},
		{
			name:  "second root",
			input: `<fetch/><fetch/>`,
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "second root element")
			},
		},
		{
			name:  "element inside value",
			input: `<fetch><entity name="account"><filter><condition attribute="name" operator="in"><value><value/></value></condition></filter></entity></fetch>`,
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "cannot appear inside <value>")
			},
		},
		{
			name:  "value element under single-value operator",
			input: `<fetch><entity name="account"><filter><condition attribute="name" operator="eq"><value>a</value></condition></filter></entity></fetch>`,
			check: func(t *testing.T, err error) {
				assert.True(t, querytree.HasCode(err, querytree.ErrCodeNotMultiValue))
			},
		},
		{
			name:  "malformed",
			input: `<fetch><entity></fetch>`,
			check: func(t *testing.T, err error) {
				var pe *ParseError
				assert.True(t, errors.As(err, &pe))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input), newService(t))
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestWrite_NilRoot(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, Write(&sb, nil))
	assert.Empty(t, sb.String())
}

func TestWrite_SkipsEmptyEditDefaults(t *testing.T) {
	svc := newService(t)
	fetch, err := svc.AddNode(querytree.NodeFetch, nil)
	require.NoError(t, err)
	ent, err := svc.AddNode(querytree.NodeEntity, fetch)
	require.NoError(t, err)
	_, err = svc.AddNode(querytree.NodeAttribute, ent)
	require.NoError(t, err)

	assert.Equal(t, "<fetch>\n  <entity>\n    <attribute />\n  </entity>\n</fetch>\n", String(fetch))
}
