package metadata

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Fixture is the YAML representation of a metadata set.
//
//	entities:
//	  - logical_name: account
//	    entity_set_name: accounts
//	    primary_id: accountid
//	    primary_name: name
//	    attributes:
//	      - { logical_name: name, type: String }
//	      - logical_name: industrycode
//	        type: Picklist
//	        options: [{ value: 1, label: Accounting }]
//	    relationships:
//	      - schema_name: contact_customer_accounts
//	        kind: OneToMany
//	        referenced_entity: account
//	        referenced_attribute: accountid
//	        referencing_entity: contact
//	        referencing_attribute: parentcustomerid
type Fixture struct {
	Entities []FixtureEntity `yaml:"entities" validate:"required,min=1,dive"`
}

// FixtureEntity is one entity in a fixture.
type FixtureEntity struct {
	LogicalName   string                `yaml:"logical_name" validate:"required"`
	EntitySetName string                `yaml:"entity_set_name" validate:"required"`
	DisplayName   string                `yaml:"display_name,omitempty"`
	PrimaryID     string                `yaml:"primary_id,omitempty"`
	PrimaryName   string                `yaml:"primary_name,omitempty"`
	Attributes    []FixtureAttribute    `yaml:"attributes" validate:"dive"`
	Relationships []FixtureRelationship `yaml:"relationships,omitempty" validate:"dive"`
}

// FixtureAttribute is one attribute in a fixture.
type FixtureAttribute struct {
	LogicalName string          `yaml:"logical_name" validate:"required"`
	DisplayName string          `yaml:"display_name,omitempty"`
	Type        AttributeType   `yaml:"type" validate:"required,oneof=String Memo Integer BigInt Decimal Double Money Boolean DateTime Lookup Customer Owner Uniqueidentifier Picklist State Status MultiSelectPicklist EntityName Virtual"`
	Targets     []string        `yaml:"targets,omitempty"`
	Options     []FixtureOption `yaml:"options,omitempty" validate:"dive"`
}

// FixtureOption is one option-set entry.
type FixtureOption struct {
	Value int    `yaml:"value"`
	Label string `yaml:"label" validate:"required"`
}

// FixtureRelationship is one relationship in a fixture.
type FixtureRelationship struct {
	SchemaName           string           `yaml:"schema_name" validate:"required"`
	Kind                 RelationshipKind `yaml:"kind" validate:"required,oneof=OneToMany ManyToOne ManyToMany"`
	ReferencedEntity     string           `yaml:"referenced_entity,omitempty"`
	ReferencedAttribute  string           `yaml:"referenced_attribute,omitempty"`
	ReferencingEntity    string           `yaml:"referencing_entity,omitempty"`
	ReferencingAttribute string           `yaml:"referencing_attribute,omitempty"`
	IntersectEntity      string           `yaml:"intersect_entity,omitempty" validate:"required_if=Kind ManyToMany"`
}

var fixtureValidate = validator.New()

// LoadFixture reads and validates a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes YAML fixture data. Unknown fields are rejected so
// that typos surface instead of silently dropping metadata.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture YAML: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}
	return &f, nil
}

// Validate checks struct constraints and logical-name uniqueness.
func (f *Fixture) Validate() error {
	if err := fixtureValidate.Struct(f); err != nil {
		return err
	}

	seen := make(map[string]bool, len(f.Entities))
	for i, e := range f.Entities {
		k := Key(e.LogicalName)
		if seen[k] {
			return fmt.Errorf("entities[%d]: duplicate logical name %q", i, e.LogicalName)
		}
		seen[k] = true

		attrs := make(map[string]bool, len(e.Attributes))
		for j, a := range e.Attributes {
			ak := Key(a.LogicalName)
			if attrs[ak] {
				return fmt.Errorf("entities[%d].attributes[%d]: duplicate logical name %q", i, j, a.LogicalName)
			}
			attrs[ak] = true
		}
	}
	return nil
}
