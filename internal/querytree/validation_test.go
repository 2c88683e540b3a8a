package querytree

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitEntered(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(5 * time.Second):
		t.Fatal("lookup never started")
		return ""
	}
}

func TestRemote_DebounceCoalescesRapidEdits(t *testing.T) {
	svc, p := newTestService(t, WithDebounce(30*time.Millisecond))
	_, ent := buildQuery(t, svc, "a")
	for _, v := range []string{"ac", "acc", "account"} {
		_, err := svc.SetAttribute(ent, AttrName, v)
		require.NoError(t, err)
	}

	settle(t, svc)

	assert.Equal(t, 1, p.Calls("ListEntities"))
	assert.True(t, svc.Tree().Result().Valid)
}

func TestRemote_StaleResultIsDropped(t *testing.T) {
	svc, p := newTestService(t)
	_, ent := buildQuery(t, svc, "")
	name, ok := ent.Attribute(AttrName)
	require.True(t, ok)

	var seen []Result
	unsub := name.Results().Subscribe(func(r Result) { seen = append(seen, r) })
	defer unsub()

	p.Hold()
	_, err := svc.SetAttribute(ent, AttrName, "bogus_entity")
	require.NoError(t, err)
	svc.Loop().Drain()
	waitEntered(t, p.Entered())

	_, err = svc.SetAttribute(ent, AttrName, "account")
	require.NoError(t, err)
	svc.Loop().Drain()
	p.Release()
	settle(t, svc)

	for _, r := range seen {
		assert.Empty(t, r.Errors, "a result for the superseded value was published")
	}
	last := seen[len(seen)-1]
	assert.True(t, last.Valid)
	require.NotNil(t, last.Resolved)
	assert.Equal(t, "accounts", last.Resolved.EntitySetName)
}

func TestRemote_ProviderErrorBecomesResult(t *testing.T) {
	svc, p := newTestService(t)
	p.FailWith(errors.New("service unavailable"))
	buildQuery(t, svc, "account")

	settle(t, svc)

	assert.Equal(t, []string{"Validation error: service unavailable"}, svc.Tree().Result().Errors)
}

func TestRemote_ProviderPanicBecomesResult(t *testing.T) {
	svc, p := newTestService(t)
	p.PanicWith("broken provider")
	buildQuery(t, svc, "account")

	settle(t, svc)

	r := svc.Tree().Result()
	assert.False(t, r.Valid)
	require.Len(t, r.Errors, 1)
	assert.Contains(t, r.Errors[0], "Validation error:")
	assert.Contains(t, r.Errors[0], "broken provider")
}

func TestRemote_RemovedNodeDropsInFlightLookup(t *testing.T) {
	svc, p := newTestService(t)
	_, ent := buildQuery(t, svc, "")
	attr := addNode(t, svc, NodeAttribute, ent)
	name, _ := attr.Attribute(AttrName)

	var updates int
	unsub := name.Results().Subscribe(func(Result) { updates++ })
	defer unsub()

	_, err := svc.SetAttribute(ent, AttrName, "account")
	require.NoError(t, err)
	settle(t, svc)

	p.Hold()
	_, err = svc.SetAttribute(attr, AttrName, "nosuchcolumn")
	require.NoError(t, err)
	svc.Loop().Drain()
	waitEntered(t, p.Entered())
	before := updates

	require.NoError(t, svc.RemoveNode(attr))
	p.Release()
	settle(t, svc)

	assert.True(t, name.Removed())
	assert.Equal(t, before, updates, "removed attribute must not receive results")
	assert.True(t, svc.Tree().Result().Valid)
}

func TestRemote_PendingUntilFirstLookup(t *testing.T) {
	svc, _ := newTestService(t)
	fetch, err := svc.ImportNode(NodeFetch, nil, nil)
	require.NoError(t, err)
	_, err = svc.ImportNode(NodeEntity, fetch, []AttributeValue{{Name: AttrName, Value: "account"}})
	require.NoError(t, err)

	r := svc.Tree().Result()
	assert.True(t, r.Pending)
	assert.False(t, r.Valid)

	settle(t, svc)
	r = svc.Tree().Result()
	assert.False(t, r.Pending)
	assert.True(t, r.Valid)
}

func TestRules_AttributeNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, ent := buildQuery(t, svc, "account")
	addNode(t, svc, NodeAttribute, ent, AttrName, "bogus")

	settle(t, svc)

	assert.Equal(t, []string{"Attribute 'bogus' not found on entity 'account'"}, svc.Tree().Result().Errors)
}

func TestRules_AttributeCheckDefersToEntityCheck(t *testing.T) {
	svc, _ := newTestService(t)
	_, ent := buildQuery(t, svc, "bogus_entity")
	addNode(t, svc, NodeAttribute, ent, AttrName, "name")

	settle(t, svc)

	assert.Equal(t, []string{"Entity 'bogus_entity' not found"}, svc.Tree().Result().Errors)
}

func TestRules_OperatorMustSuitAttributeType(t *testing.T) {
	svc, _ := newTestService(t)
	_, ent := buildQuery(t, svc, "account")
	condition(t, svc, ent, AttrAttribute, "revenue", AttrOperator, "like", AttrValue, "x")

	settle(t, svc)

	assert.Equal(t,
		[]string{"Operator 'like' cannot be used with attribute 'revenue' of type Money"},
		svc.Tree().Result().Errors)
}

func TestRules_ConditionValues(t *testing.T) {
	tests := []struct {
		name  string
		attrs []string
		want  []string
	}{
		{
			name:  "valid option",
			attrs: []string{AttrAttribute, "industrycode", AttrOperator, "eq", AttrValue, "2"},
		},
		{
			name:  "unknown option",
			attrs: []string{AttrAttribute, "industrycode", AttrOperator, "eq", AttrValue, "7"},
			want:  []string{"Value '7' is not a valid option for 'industrycode'"},
		},
		{
			name:  "bad number",
			attrs: []string{AttrAttribute, "numberofemployees", AttrOperator, "gt", AttrValue, "many"},
			want:  []string{"Value 'many' is not a valid whole number for 'numberofemployees'"},
		},
		{
			name:  "bad date",
			attrs: []string{AttrAttribute, "createdon", AttrOperator, "on-or-after", AttrValue, "yesterday"},
			want:  []string{"Value 'yesterday' is not a valid date for 'createdon'"},
		},
		{
			name:  "count operator",
			attrs: []string{AttrAttribute, "createdon", AttrOperator, "last-x-days", AttrValue, "-3"},
			want:  []string{"Operator 'last-x-days' requires a non-negative whole number, got '-3'"},
		},
		{
			name:  "missing value",
			attrs: []string{AttrAttribute, "name", AttrOperator, "eq"},
			want:  []string{"Operator 'eq' requires a value"},
		},
		{
			name:  "stray value",
			attrs: []string{AttrAttribute, "name", AttrOperator, "not-null", AttrValue, "x"},
			want:  []string{"Operator 'not-null' does not take a value"},
		},
		{
			name:  "unknown operator",
			attrs: []string{AttrAttribute, "name", AttrOperator, "sounds-like"},
			want:  []string{"Unknown operator 'sounds-like'"},
		},
		{
			name:  "guid lookup",
			attrs: []string{AttrAttribute, "primarycontactid", AttrOperator, "eq", AttrValue, "6f1c2d6e-0b7a-4f2e-9d65-0c1e4b3e7a11"},
		},
		{
			name:  "user operator",
			attrs: []string{AttrAttribute, "ownerid", AttrOperator, "eq-userid"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			_, ent := buildQuery(t, svc, "account")
			condition(t, svc, ent, tt.attrs...)

			settle(t, svc)

			assert.Equal(t, tt.want, svc.Tree().Result().Errors)
		})
	}
}

func TestRules_EmptyFilter(t *testing.T) {
	svc, _ := newTestService(t)
	_, ent := buildQuery(t, svc, "account")
	filter := addNode(t, svc, NodeFilter, ent)

	settle(t, svc)
	assert.Equal(t, []string{"Filter must contain at least one condition or filter"}, svc.Tree().Result().Errors)

	addNode(t, svc, NodeFilter, filter)
	settle(t, svc)
	assert.Equal(t, []string{"Filter must contain at least one condition or filter"}, svc.Tree().Result().Errors,
		"the nested filter is empty now")
}

func TestRules_LinkEntityAliasScope(t *testing.T) {
	svc, _ := newTestService(t)
	_, ent := buildQuery(t, svc, "account")
	link := addNode(t, svc, NodeLinkEntity, ent,
		AttrName, "contact", AttrFrom, "parentcustomerid", AttrTo, "accountid", AttrAlias, "c")
	cond := condition(t, svc, ent,
		AttrEntityName, "c", AttrAttribute, "fullname", AttrOperator, "like", AttrValue, "A%")

	settle(t, svc)
	require.True(t, svc.Tree().Result().Valid, "%v", svc.Tree().Result().Errors)

	_, err := svc.SetAttribute(link, AttrAlias, "primary")
	require.NoError(t, err)
	settle(t, svc)
	assert.Equal(t, []string{"No link-entity with alias or name 'c'"}, svc.Tree().Result().Errors)

	_, err = svc.SetAttribute(cond, AttrEntityName, "primary")
	require.NoError(t, err)
	settle(t, svc)
	assert.True(t, svc.Tree().Result().Valid, "%v", svc.Tree().Result().Errors)
}

func TestRules_LinkEntityJoinAttributes(t *testing.T) {
	svc, _ := newTestService(t)
	_, ent := buildQuery(t, svc, "account")
	addNode(t, svc, NodeLinkEntity, ent,
		AttrName, "contact", AttrFrom, "accountid", AttrTo, "contactid")

	settle(t, svc)

	assert.Equal(t, []string{
		"Attribute 'accountid' not found on entity 'contact'",
		"Attribute 'contactid' not found on entity 'account'",
	}, svc.Tree().Result().Errors)
}

func TestRules_Intersect(t *testing.T) {
	svc, _ := newTestService(t)
	_, ent := buildQuery(t, svc, "account")
	good := addNode(t, svc, NodeLinkEntity, ent,
		AttrName, "accountleads", AttrFrom, "accountid", AttrTo, "accountid", AttrIntersect, "true")
	addNode(t, svc, NodeLinkEntity, ent,
		AttrName, "lead", AttrFrom, "leadid", AttrTo, "accountid", AttrIntersect, "true")

	settle(t, svc)

	assert.Equal(t,
		[]string{"'lead' is not the intersect entity of a many-to-many relationship of 'account'"},
		svc.Tree().Result().Errors)
	assert.True(t, good.Result().Valid)
}

func TestRules_Aggregates(t *testing.T) {
	svc, _ := newTestService(t)
	fetch, ent := buildQuery(t, svc, "account")
	attr := addNode(t, svc, NodeAttribute, ent, AttrName, "revenue", AttrAggregate, "sum")

	settle(t, svc)
	assert.Equal(t, []string{
		"'aggregate' requires aggregate=\"true\" on fetch",
		"Aggregate attribute requires an alias",
	}, svc.Tree().Result().Errors)

	_, err := svc.SetAttribute(fetch, AttrAggregate, "true")
	require.NoError(t, err)
	_, err = svc.SetAttribute(attr, AttrAlias, "total")
	require.NoError(t, err)
	settle(t, svc)
	assert.True(t, svc.Tree().Result().Valid, "%v", svc.Tree().Result().Errors)

	_, err = svc.SetAttribute(attr, AttrName, "name")
	require.NoError(t, err)
	settle(t, svc)
	assert.Equal(t, []string{"Aggregate 'sum' requires a numeric attribute, 'name' is String"}, svc.Tree().Result().Errors)
}

func TestRules_TypeShapes(t *testing.T) {
	tests := []struct {
		node  NodeName
		attr  string
		value string
		want  string
	}{
		{NodeFetch, AttrTop, "0", "'top' must be between 1 and 5000"},
		{NodeFetch, AttrDistinct, "maybe", "'distinct' must be true or false"},
		{NodeLinkEntity, AttrLinkType, "left", "'link-type' must be one of: inner, outer, any, not any, all, not all, exists, in, matchfirstrowusingcrossapply"},
		{NodeLinkEntity, AttrAlias, "1st", "'alias' must not start with a digit"},
		{NodeLinkEntity, AttrAlias, "my alias", "'alias' must not contain whitespace"},
		{NodeLinkEntity, AttrAlias, "a-b", "'alias' may only contain letters, digits and underscores"},
		{NodeFilter, AttrFilterType, "xor", "'type' must be one of: and, or"},
	}
	for _, tt := range tests {
		t.Run(string(tt.node)+"/"+tt.attr+"="+tt.value, func(t *testing.T) {
			svc, _ := newTestService(t)
			fetch, ent := buildQuery(t, svc, "account")
			target := fetch
			switch tt.node {
			case NodeLinkEntity:
				target = addNode(t, svc, NodeLinkEntity, ent)
			case NodeFilter:
				target = condition(t, svc, ent).Parent()
			}

			a, err := svc.SetAttribute(target, tt.attr, tt.value)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want}, a.Result().Errors)
		})
	}
}

func TestRules_TopConflictsWithPage(t *testing.T) {
	svc, _ := newTestService(t)
	fetch, _ := buildQuery(t, svc, "account")
	_, err := svc.SetAttribute(fetch, AttrTop, "10")
	require.NoError(t, err)
	_, err = svc.SetAttribute(fetch, AttrPage, "2")
	require.NoError(t, err)

	settle(t, svc)
	assert.Equal(t, []string{"'top' cannot be combined with 'page'"}, svc.Tree().Result().Errors)
}

func TestRules_StructureShortCircuits(t *testing.T) {
	svc, _ := newTestService(t)
	ent, err := svc.AddNode(NodeEntity, nil)
	require.NoError(t, err)
	addNode(t, svc, NodeFilter, ent)

	settle(t, svc)

	assert.Equal(t, []string{"Root element must be 'fetch', found 'entity'"}, svc.Tree().Result().Errors)
}

func TestRules_FetchWithoutEntity(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.AddNode(NodeFetch, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"The first element under 'fetch' must be an 'entity'"}, svc.Tree().Result().Errors)
}

func TestRules_ErrorsFollowDocumentOrder(t *testing.T) {
	svc, _ := newTestService(t)
	_, ent := buildQuery(t, svc, "account")
	addNode(t, svc, NodeAttribute, ent, AttrName, "first_missing")
	addNode(t, svc, NodeOrder, ent, AttrAttribute, "second_missing")
	first, err := svc.InsertNode(NodeAttribute, ent, 0)
	require.NoError(t, err)
	_, err = svc.SetAttribute(first, AttrName, "zeroth_missing")
	require.NoError(t, err)

	settle(t, svc)

	assert.Equal(t, []string{
		"Attribute 'zeroth_missing' not found on entity 'account'",
		"Attribute 'first_missing' not found on entity 'account'",
		"Attribute 'second_missing' not found on entity 'account'",
	}, svc.Tree().Result().Errors)
}
