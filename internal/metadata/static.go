package metadata

import (
	"context"
	"fmt"
)

// Static is an immutable in-memory provider.
type Static struct {
	entities      []Entity
	attributes    map[string][]Attribute
	options       map[string][]Option
	relationships map[string][]Relationship
}

// NewStatic builds a provider from a fixture.
func NewStatic(f *Fixture) *Static {
	s := &Static{
		attributes:    make(map[string][]Attribute),
		options:       make(map[string][]Option),
		relationships: make(map[string][]Relationship),
	}

	for _, fe := range f.Entities {
		s.entities = append(s.entities, Entity{
			LogicalName:          fe.LogicalName,
			DisplayName:          fe.DisplayName,
			EntitySetName:        fe.EntitySetName,
			PrimaryIDAttribute:   fe.PrimaryID,
			PrimaryNameAttribute: fe.PrimaryName,
		})

		ek := Key(fe.LogicalName)
		attrs := make([]Attribute, 0, len(fe.Attributes))
		for _, fa := range fe.Attributes {
			attrs = append(attrs, Attribute{
				LogicalName: fa.LogicalName,
				DisplayName: fa.DisplayName,
				Type:        fa.Type,
				Targets:     fa.Targets,
			})

			opts := make([]Option, 0, len(fa.Options))
			for _, fo := range fa.Options {
				opts = append(opts, Option{Value: fo.Value, Label: fo.Label})
			}
			if fa.Type == TypeBoolean && len(opts) == 0 {
				opts = []Option{{Value: 0, Label: "No"}, {Value: 1, Label: "Yes"}}
			}
			if len(opts) > 0 {
				s.options[optionKey(ek, Key(fa.LogicalName))] = opts
			}
		}
		s.attributes[ek] = attrs

		rels := make([]Relationship, 0, len(fe.Relationships))
		for _, fr := range fe.Relationships {
			rels = append(rels, Relationship{
				SchemaName:           fr.SchemaName,
				Kind:                 fr.Kind,
				ReferencedEntity:     fr.ReferencedEntity,
				ReferencedAttribute:  fr.ReferencedAttribute,
				ReferencingEntity:    fr.ReferencingEntity,
				ReferencingAttribute: fr.ReferencingAttribute,
				IntersectEntity:      fr.IntersectEntity,
			})
		}
		s.relationships[ek] = rels
	}

	return s
}

func optionKey(entityKey, attributeKey string) string {
	return entityKey + "." + attributeKey
}

// ListEntities implements Provider.
func (s *Static) ListEntities(ctx context.Context) ([]Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LookupError{Op: "entities", Err: err}
	}
	out := make([]Entity, len(s.entities))
	copy(out, s.entities)
	return out, nil
}

// ListAttributes implements Provider.
func (s *Static) ListAttributes(ctx context.Context, entityName string) ([]Attribute, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LookupError{Op: "attributes", Key: entityName, Err: err}
	}
	attrs, ok := s.attributes[Key(entityName)]
	if !ok {
		return nil, &LookupError{Op: "attributes", Key: entityName, Err: ErrNotFound}
	}
	out := make([]Attribute, len(attrs))
	copy(out, attrs)
	return out, nil
}

// ListOptionSetValues implements Provider. An attribute without options
// yields an empty list; an unknown entity yields ErrNotFound.
func (s *Static) ListOptionSetValues(ctx context.Context, entityName, attributeName string, kind OptionSetKind) ([]Option, error) {
	key := fmt.Sprintf("%s.%s", entityName, attributeName)
	if err := ctx.Err(); err != nil {
		return nil, &LookupError{Op: "options", Key: key, Err: err}
	}
	attrs, ok := s.attributes[Key(entityName)]
	if !ok {
		return nil, &LookupError{Op: "options", Key: key, Err: ErrNotFound}
	}
	attr, ok := FindAttribute(attrs, attributeName)
	if !ok {
		return nil, &LookupError{Op: "options", Key: key, Err: ErrNotFound}
	}
	if kind != "" && OptionSetKindFor(attr.Type) != kind {
		return []Option{}, nil
	}
	opts := s.options[optionKey(Key(entityName), Key(attributeName))]
	out := make([]Option, len(opts))
	copy(out, opts)
	return out, nil
}

// ListRelationships implements Provider.
func (s *Static) ListRelationships(ctx context.Context, entityName string) ([]Relationship, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LookupError{Op: "relationships", Key: entityName, Err: err}
	}
	rels, ok := s.relationships[Key(entityName)]
	if !ok {
		return nil, &LookupError{Op: "relationships", Key: entityName, Err: ErrNotFound}
	}
	out := make([]Relationship, len(rels))
	copy(out, rels)
	return out, nil
}
