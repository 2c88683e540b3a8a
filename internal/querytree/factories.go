package querytree

var (
	aggregateFuncs = []string{"avg", "count", "countcolumn", "max", "min", "sum"}
	dateGroupings  = []string{"day", "week", "month", "quarter", "year", "fiscal-period", "fiscal-year"}
	linkTypes      = []string{"inner", "outer", "any", "not any", "all", "not all", "exists", "in", "matchfirstrowusingcrossapply"}
)

func fetchFactory() *Factory {
	f := newFactory(NodeFetch)
	f.attr(AttrTop, DisplayNameWithValue, topWithoutPageRule()).shape(wholeNumberShape(1, 5000))
	f.attr(AttrCount, DisplayNameWithValue).shape(wholeNumberShape(1, 5000))
	f.attr(AttrPage, DisplayNameWithValue).shape(wholeNumberShape(1, 0))
	f.attr(AttrPagingCookie, DisplayNone)
	f.attr(AttrAggregate, DisplayNameOnly).shape(booleanShape).ignoreFalse()
	f.attr(AttrDistinct, DisplayNameOnly).shape(booleanShape).ignoreFalse()
	f.attr("no-lock", DisplayNameOnly).shape(booleanShape).ignoreFalse()
	f.attr("returntotalrecordcount", DisplayNone).shape(booleanShape)
	f.attr("latematerialize", DisplayNone).shape(booleanShape)
	f.attr("useraworderby", DisplayNone).shape(booleanShape)
	f.attr("output-format", DisplayNone).shape(oneOfShape("xml-ado", "xml-auto", "xml-elements", "xml-raw", "xml-platform"))
	f.attr("mapping", DisplayNone).shape(oneOfShape("internal", "logical"))
	f.attr("version", DisplayNone)
	f.attr("datasource", DisplayNone).shape(oneOfShape("retained"))
	f.attr("options", DisplayNone)
	return f
}

func entityFactory() *Factory {
	f := newFactory(NodeEntity)
	f.attr(AttrName, DisplayValueOnly, entityExistsRule()).once(requiredOnce(AttrName)).shape(nameShape)
	f.attr(AttrPrefilter, DisplayNone).shape(booleanShape)
	f.attr(AttrPrefilterParam, DisplayNone)
	f.defaults = []string{AttrName}
	f.required = []string{AttrName}
	return f
}

func linkEntityFactory() *Factory {
	f := newFactory(NodeLinkEntity)
	f.attr(AttrName, DisplayValueOnly, entityExistsRule()).once(requiredOnce(AttrName)).shape(nameShape)
	f.attr(AttrFrom, DisplayNameWithValue, attributeExistsRule(sibling(AttrName)))
	f.attr(AttrTo, DisplayNameWithValue, attributeExistsRule(parentEntity))
	f.attr(AttrAlias, DisplayAlias).shape(aliasShape)
	f.attr(AttrLinkType, DisplayNameWithValue).shape(oneOfShape(linkTypes...))
	f.attr(AttrVisible, DisplayNone).shape(booleanShape)
	f.attr(AttrIntersect, DisplayNameOnly, intersectRule()).shape(booleanShape).ignoreFalse()
	f.attr(AttrPrefilter, DisplayNone).shape(booleanShape)
	f.attr(AttrPrefilterParam, DisplayNone)
	f.defaults = []string{AttrName, AttrFrom, AttrTo}
	f.required = []string{AttrName}
	return f
}

func attributeFactory() *Factory {
	f := newFactory(NodeAttribute)
	f.attr(AttrName, DisplayValueOnly, attributeExistsRule(scopeEntity)).once(requiredOnce(AttrName))
	f.attr(AttrAlias, DisplayAlias).shape(aliasShape)
	f.attr(AttrAggregate, DisplayNameWithValue,
		aggregateQueryRule(AttrAggregate), aggregateAliasRule(), aggregateTypeRule()).
		shape(oneOfShape(aggregateFuncs...))
	f.attr(AttrGroupBy, DisplayNameOnly, aggregateQueryRule(AttrGroupBy)).shape(booleanShape).ignoreFalse()
	f.attr(AttrDateGrouping, DisplayNameWithValue, dateGroupingRule()).shape(oneOfShape(dateGroupings...))
	f.attr(AttrDistinct, DisplayNone).shape(booleanShape)
	f.attr(AttrUserTimeZone, DisplayNone).shape(booleanShape)
	f.attr(AttrRowAggregate, DisplayNameWithValue).shape(oneOfShape("CountChildren"))
	f.defaults = []string{AttrName}
	f.required = []string{AttrName}
	return f
}

func orderFactory() *Factory {
	f := newFactory(NodeOrder)
	f.attr(AttrAttribute, DisplayValueOnly, attributeExistsRule(scopeEntity))
	f.attr(AttrAlias, DisplayAlias).shape(aliasShape)
	f.attr(AttrDescending, DisplayNameOnly).shape(booleanShape).ignoreFalse()
	f.defaults = []string{AttrAttribute}
	return f
}

func filterFactory() *Factory {
	f := newFactory(NodeFilter)
	f.attr(AttrFilterType, DisplayValueOnly).shape(oneOfShape("and", "or"))
	f.attr(AttrQuickFind, DisplayNameOnly).shape(booleanShape).ignoreFalse()
	f.attr("overridequickfindrecordlimitenabled", DisplayNone).shape(booleanShape)
	f.attr("overridequickfindrecordlimitdisabled", DisplayNone).shape(booleanShape)
	f.nodeLive = append(f.nodeLive, filterContentRule)
	return f
}

func conditionFactory() *Factory {
	f := newFactory(NodeCondition)
	f.attr(AttrEntityName, DisplayValueOnly, entityNameRefRule())
	f.attr(AttrAttribute, DisplayValueOnly, attributeExistsRule(scopeEntity)).once(requiredOnce(AttrAttribute))
	f.attr(AttrOperator, DisplayValueOnly, operatorAppliesRule()).once(requiredOnce(AttrOperator), shapeOnce(AttrOperator, operatorShape))
	f.attr(AttrValue, DisplayValueOnly, conditionValueRule(sibling(AttrOperator), sibling(AttrAttribute)))
	f.attr(AttrValueOf, DisplayNameWithValue, attributeExistsRule(scopeEntity))
	f.attr(AttrAggregate, DisplayNameWithValue, aggregateQueryRule(AttrAggregate)).shape(oneOfShape(aggregateFuncs...))
	f.attr(AttrRowAggregate, DisplayNone).shape(oneOfShape("CountChildren"))
	f.attr("uiname", DisplayNone)
	f.attr("uitype", DisplayNone)
	f.attr("uihidden", DisplayNone).shape(booleanShape)
	f.defaults = []string{AttrAttribute, AttrOperator, AttrValue}
	f.required = []string{AttrAttribute, AttrOperator}
	f.nodeLive = append(f.nodeLive, conditionArityRule)
	return f
}

func valueFactory() *Factory {
	f := newFactory(NodeValue)
	f.attr(AttrInnerText, DisplayValueOnly, conditionValueRule(parentSlot(AttrOperator), parentSlot(AttrAttribute)))
	f.defaults = []string{AttrInnerText}
	return f
}
