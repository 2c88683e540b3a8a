package querytree

import "slices"

// NodeName identifies a FetchXML element kind.
type NodeName string

const (
	NodeFetch         NodeName = "fetch"
	NodeEntity        NodeName = "entity"
	NodeLinkEntity    NodeName = "link-entity"
	NodeAttribute     NodeName = "attribute"
	NodeAllAttributes NodeName = "all-attributes"
	NodeFilter        NodeName = "filter"
	NodeCondition     NodeName = "condition"
	NodeOrder         NodeName = "order"
	NodeValue         NodeName = "value"
)

// NodeNames lists every supported element kind.
var NodeNames = []NodeName{
	NodeFetch, NodeEntity, NodeLinkEntity, NodeAttribute, NodeAllAttributes,
	NodeFilter, NodeCondition, NodeOrder, NodeValue,
}

// ParseNodeName maps an element name to its NodeName.
func ParseNodeName(s string) (NodeName, bool) {
	n := NodeName(s)
	if slices.Contains(NodeNames, n) {
		return n, true
	}
	return "", false
}

// IsEntityBearing reports whether nodes of this kind name an entity.
func (n NodeName) IsEntityBearing() bool {
	return n == NodeEntity || n == NodeLinkEntity
}

var allowedChildren = map[NodeName][]NodeName{
	NodeFetch:      {NodeEntity},
	NodeEntity:     {NodeAttribute, NodeAllAttributes, NodeOrder, NodeFilter, NodeLinkEntity},
	NodeLinkEntity: {NodeAttribute, NodeAllAttributes, NodeOrder, NodeFilter, NodeLinkEntity},
	NodeFilter:     {NodeCondition, NodeFilter},
	NodeCondition:  {NodeValue},
}

// CanContain reports whether child may be nested directly under n.
func (n NodeName) CanContain(child NodeName) bool {
	return slices.Contains(allowedChildren[n], child)
}

// Attribute names shared across node kinds.
const (
	AttrName           = "name"
	AttrAlias          = "alias"
	AttrAttribute      = "attribute"
	AttrOperator       = "operator"
	AttrValue          = "value"
	AttrValueOf        = "valueof"
	AttrEntityName     = "entityname"
	AttrAggregate      = "aggregate"
	AttrRowAggregate   = "rowaggregate"
	AttrGroupBy        = "groupby"
	AttrDateGrouping   = "dategrouping"
	AttrDistinct       = "distinct"
	AttrUserTimeZone   = "usertimezone"
	AttrFrom           = "from"
	AttrTo             = "to"
	AttrLinkType       = "link-type"
	AttrVisible        = "visible"
	AttrIntersect      = "intersect"
	AttrPrefilter      = "enableprefiltering"
	AttrPrefilterParam = "prefilterparametername"
	AttrDescending     = "descending"
	AttrFilterType     = "type"
	AttrQuickFind      = "isquickfindfields"
	AttrTop            = "top"
	AttrCount          = "count"
	AttrPage           = "page"
	AttrPagingCookie   = "paging-cookie"
	AttrInnerText      = "#text"
)
