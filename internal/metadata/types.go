package metadata

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
)

// AttributeType is the Dataverse attribute type code.
type AttributeType string

const (
	TypeString              AttributeType = "String"
	TypeMemo                AttributeType = "Memo"
	TypeInteger             AttributeType = "Integer"
	TypeBigInt              AttributeType = "BigInt"
	TypeDecimal             AttributeType = "Decimal"
	TypeDouble              AttributeType = "Double"
	TypeMoney               AttributeType = "Money"
	TypeBoolean             AttributeType = "Boolean"
	TypeDateTime            AttributeType = "DateTime"
	TypeLookup              AttributeType = "Lookup"
	TypeCustomer            AttributeType = "Customer"
	TypeOwner               AttributeType = "Owner"
	TypeUniqueIdentifier    AttributeType = "Uniqueidentifier"
	TypePicklist            AttributeType = "Picklist"
	TypeState               AttributeType = "State"
	TypeStatus              AttributeType = "Status"
	TypeMultiSelectPicklist AttributeType = "MultiSelectPicklist"
	TypeEntityName          AttributeType = "EntityName"
	TypeVirtual             AttributeType = "Virtual"
)

// AttributeTypes lists every known type code.
var AttributeTypes = []AttributeType{
	TypeString, TypeMemo, TypeInteger, TypeBigInt, TypeDecimal, TypeDouble,
	TypeMoney, TypeBoolean, TypeDateTime, TypeLookup, TypeCustomer, TypeOwner,
	TypeUniqueIdentifier, TypePicklist, TypeState, TypeStatus,
	TypeMultiSelectPicklist, TypeEntityName, TypeVirtual,
}

// OptionSetKind selects which option set ListOptionSetValues reads.
type OptionSetKind string

const (
	OptionSetPicklist    OptionSetKind = "Picklist"
	OptionSetState       OptionSetKind = "State"
	OptionSetStatus      OptionSetKind = "Status"
	OptionSetBoolean     OptionSetKind = "Boolean"
	OptionSetMultiSelect OptionSetKind = "MultiSelectPicklist"
)

// OptionSetKindFor returns the option set kind backing an attribute type,
// or "" when the type has no option set.
func OptionSetKindFor(t AttributeType) OptionSetKind {
	switch t {
	case TypePicklist:
		return OptionSetPicklist
	case TypeState:
		return OptionSetState
	case TypeStatus:
		return OptionSetStatus
	case TypeBoolean:
		return OptionSetBoolean
	case TypeMultiSelectPicklist:
		return OptionSetMultiSelect
	default:
		return ""
	}
}

// Entity describes one table.
type Entity struct {
	LogicalName          string `json:"logical_name"`
	DisplayName          string `json:"display_name,omitempty"`
	EntitySetName        string `json:"entity_set_name"` // Web API collection name
	PrimaryIDAttribute   string `json:"primary_id,omitempty"`
	PrimaryNameAttribute string `json:"primary_name,omitempty"`
}

// Attribute describes one column of an entity.
type Attribute struct {
	LogicalName string        `json:"logical_name"`
	DisplayName string        `json:"display_name,omitempty"`
	Type        AttributeType `json:"type"`
	Targets     []string      `json:"targets,omitempty"` // lookup target entities
}

// Option is one entry of an option set.
type Option struct {
	Value int
	Label string
}

// RelationshipKind classifies a relationship from the perspective of the
// entity it was listed for.
type RelationshipKind string

const (
	RelationshipOneToMany  RelationshipKind = "OneToMany"
	RelationshipManyToOne  RelationshipKind = "ManyToOne"
	RelationshipManyToMany RelationshipKind = "ManyToMany"
)

// Relationship describes a link between two entities.
type Relationship struct {
	SchemaName           string
	Kind                 RelationshipKind
	ReferencedEntity     string
	ReferencedAttribute  string
	ReferencingEntity    string
	ReferencingAttribute string
	IntersectEntity      string // many-to-many only
}

// Provider supplies entity, attribute, option-set and relationship metadata
// on demand. Implementations must be safe for concurrent use; the query
// tree calls them from lookup goroutines.
type Provider interface {
	ListEntities(ctx context.Context) ([]Entity, error)
	ListAttributes(ctx context.Context, entityName string) ([]Attribute, error)
	ListOptionSetValues(ctx context.Context, entityName, attributeName string, kind OptionSetKind) ([]Option, error)
	ListRelationships(ctx context.Context, entityName string) ([]Relationship, error)
}

// Key normalizes a logical name for comparison and map lookup.
// A Caser is stateful, so each call gets its own.
func Key(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// FindEntity returns the entity whose logical name matches name.
func FindEntity(entities []Entity, name string) (Entity, bool) {
	k := Key(name)
	for _, e := range entities {
		if Key(e.LogicalName) == k {
			return e, true
		}
	}
	return Entity{}, false
}

// FindAttribute returns the attribute whose logical name matches name.
func FindAttribute(attrs []Attribute, name string) (Attribute, bool) {
	k := Key(name)
	for _, a := range attrs {
		if Key(a.LogicalName) == k {
			return a, true
		}
	}
	return Attribute{}, false
}
