package querytree

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/fetchq/internal/metadata"
	"github.com/roach88/fetchq/internal/reactive"
)

func parentSlot(name string) input {
	return func(b Binding) reactive.Observable[string] {
		if p := b.Node.Parent(); p != nil {
			return p.Slot(name)
		}
		return constant("")
	}
}

func emptyAny(in []string) bool {
	return slices.Contains(in, "")
}

// entityExistsRule confirms an entity name and resolves its entity set.
func entityExistsRule() Validator {
	return &remoteRule{
		name:   "entity-exists",
		inputs: []input{own},
		local: func(in []string) (Result, bool) {
			return Valid(), in[0] == ""
		},
		check: func(ctx context.Context, p metadata.Provider, in []string) Result {
			entities, err := p.ListEntities(ctx)
			if err != nil {
				return lookupFailed(err)
			}
			e, ok := metadata.FindEntity(entities, in[0])
			if !ok {
				return Invalid(fmt.Sprintf("Entity '%s' not found", in[0]))
			}
			return Result{
				Valid:    true,
				Resolved: &Resolution{EntityName: e.LogicalName, EntitySetName: e.EntitySetName},
			}
		},
	}
}

// findAttribute looks an attribute up. A missing entity is not reported
// here; the entity's own validator does that.
func findAttribute(ctx context.Context, p metadata.Provider, entity, attr string) (metadata.Attribute, bool, *Result) {
	attrs, err := p.ListAttributes(ctx, entity)
	if err != nil {
		if metadata.IsNotFound(err) {
			r := Valid()
			return metadata.Attribute{}, false, &r
		}
		r := lookupFailed(err)
		return metadata.Attribute{}, false, &r
	}
	a, ok := metadata.FindAttribute(attrs, attr)
	return a, ok, nil
}

// attributeExistsRule confirms an attribute name on the entity observed by
// scope.
func attributeExistsRule(scope input) Validator {
	return &remoteRule{
		name:   "attribute-exists",
		inputs: []input{own, scope},
		local: func(in []string) (Result, bool) {
			return Valid(), emptyAny(in)
		},
		check: func(ctx context.Context, p metadata.Provider, in []string) Result {
			_, ok, done := findAttribute(ctx, p, in[1], in[0])
			if done != nil {
				return *done
			}
			if !ok {
				return Invalid(fmt.Sprintf("Attribute '%s' not found on entity '%s'", in[0], in[1]))
			}
			return Valid()
		},
	}
}

// operatorAppliesRule checks that a condition operator suits the type of
// the condition's attribute.
func operatorAppliesRule() Validator {
	return &remoteRule{
		name:   "operator-applies",
		inputs: []input{own, sibling(AttrAttribute), scopeEntity},
		local: func(in []string) (Result, bool) {
			if in[0] == "" {
				return Valid(), true
			}
			if _, ok := LookupOperator(in[0]); !ok {
				return Invalid(fmt.Sprintf("Unknown operator '%s'", in[0])), true
			}
			return Valid(), emptyAny(in[1:])
		},
		check: func(ctx context.Context, p metadata.Provider, in []string) Result {
			op, _ := LookupOperator(in[0])
			a, ok, done := findAttribute(ctx, p, in[2], in[1])
			if done != nil {
				return *done
			}
			if ok && !op.AppliesTo(a.Type) {
				return Invalid(fmt.Sprintf("Operator '%s' cannot be used with attribute '%s' of type %s", op.Name, a.LogicalName, a.Type))
			}
			return Valid()
		},
	}
}

// conditionValueRule checks a condition literal against the operator and
// the type of the condition's attribute. in is value, operator, attribute,
// scope entity.
func conditionValueRule(operator, attribute input) Validator {
	return &remoteRule{
		name:   "condition-value",
		inputs: []input{own, operator, attribute, scopeEntity},
		local: func(in []string) (Result, bool) {
			if in[0] == "" {
				return Valid(), true
			}
			op, ok := LookupOperator(in[1])
			if !ok || op.Arity == ArityNone {
				return Valid(), true
			}
			if r, ok := countValue(op, in[0]); ok {
				return r, true
			}
			return Valid(), emptyAny(in[2:])
		},
		check: func(ctx context.Context, p metadata.Provider, in []string) Result {
			value, opName, attrName, entity := in[0], in[1], in[2], in[3]
			op, _ := LookupOperator(opName)
			a, ok, done := findAttribute(ctx, p, entity, attrName)
			if done != nil {
				return *done
			}
			if !ok || op.fam == famText || !op.AppliesTo(a.Type) {
				return Valid()
			}
			if msg := literalProblem(a.LogicalName, a.Type, value); msg != "" {
				return Invalid(msg)
			}

			kind := metadata.OptionSetKindFor(a.Type)
			if kind == "" || kind == metadata.OptionSetBoolean {
				return Valid()
			}
			code, _ := optionValue(a.Type, value)
			options, err := p.ListOptionSetValues(ctx, entity, a.LogicalName, kind)
			if err != nil {
				return lookupFailed(err)
			}
			for _, o := range options {
				if o.Value == code {
					return Valid()
				}
			}
			return Invalid(fmt.Sprintf("Value '%s' is not a valid option for '%s'", value, a.LogicalName))
		},
	}
}

// intersectRule checks that a link-entity marked intersect joins through a
// many-to-many intersect entity of its parent.
func intersectRule() Validator {
	return &remoteRule{
		name:   "intersect",
		inputs: []input{own, sibling(AttrName), parentEntity},
		local: func(in []string) (Result, bool) {
			return Valid(), !truthy(in[0]) || emptyAny(in[1:])
		},
		check: func(ctx context.Context, p metadata.Provider, in []string) Result {
			rels, err := p.ListRelationships(ctx, in[2])
			if err != nil {
				if metadata.IsNotFound(err) {
					return Valid()
				}
				return lookupFailed(err)
			}
			key := metadata.Key(in[1])
			for _, r := range rels {
				if r.Kind == metadata.RelationshipManyToMany && metadata.Key(r.IntersectEntity) == key {
					return Valid()
				}
			}
			return Invalid(fmt.Sprintf("'%s' is not the intersect entity of a many-to-many relationship of '%s'", in[1], in[2]))
		},
	}
}

// aggregateTypeRule requires a numeric attribute for sum and avg.
func aggregateTypeRule() Validator {
	return &remoteRule{
		name:   "aggregate-type",
		inputs: []input{own, sibling(AttrName), scopeEntity},
		local: func(in []string) (Result, bool) {
			if in[0] != "sum" && in[0] != "avg" {
				return Valid(), true
			}
			return Valid(), emptyAny(in[1:])
		},
		check: func(ctx context.Context, p metadata.Provider, in []string) Result {
			a, ok, done := findAttribute(ctx, p, in[2], in[1])
			if done != nil {
				return *done
			}
			if ok && !isNumeric(a.Type) {
				return Invalid(fmt.Sprintf("Aggregate '%s' requires a numeric attribute, '%s' is %s", in[0], a.LogicalName, a.Type))
			}
			return Valid()
		},
	}
}
