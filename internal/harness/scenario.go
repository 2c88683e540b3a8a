package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fetchq/internal/querytree"
)

// Scenario defines an edit scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// Metadata is the fixture the scenario validates against. Relative
	// paths are resolved against the scenario file's directory.
	Metadata string `yaml:"metadata"`

	// Query is an optional FetchXML document imported before the steps.
	Query string `yaml:"query,omitempty"`

	// Steps are applied in order through the service.
	Steps []Step `yaml:"steps,omitempty"`

	// Assertions check the settled state after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one editing operation.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// Node is the path of the node the operation acts on.
	Node string `yaml:"node,omitempty"`

	// Parent is the destination of add and move. Empty adds the root.
	Parent string `yaml:"parent,omitempty"`

	// Kind is the node kind created by add.
	Kind string `yaml:"kind,omitempty"`

	// Name is the attribute name for set and remove_attribute.
	Name string `yaml:"name,omitempty"`

	// Value is the attribute value, value literal or multi-value string.
	Value string `yaml:"value,omitempty"`

	// Index positions add and move; nil appends.
	Index *int `yaml:"index,omitempty"`

	// ExpectError is the tree error code the step must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Step operations.
const (
	OpAdd             = "add"
	OpSet             = "set"
	OpRemoveAttribute = "remove_attribute"
	OpRemove          = "remove"
	OpMove            = "move"
	OpDuplicate       = "duplicate"
	OpAddValue        = "add_value"
	OpSetMulti        = "set_multi"
	OpSelect          = "select"
)

var stepOps = []string{
	OpAdd, OpSet, OpRemoveAttribute, OpRemove, OpMove,
	OpDuplicate, OpAddValue, OpSetMulti, OpSelect,
}

// Assertion checks the settled state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "valid" / "invalid": tree result, or the node's when Node is set
	// - "error_contains": Message is among the tree's or the node's errors
	// - "error_count": the tree has exactly Count errors
	// - "node_count": the tree has Count nodes, of Kind when set
	// - "label": the node's display name equals Value
	// - "multi_value": the condition's values render as Value
	// - "document": the final FetchXML equals Document
	Type string `yaml:"type"`

	Node     string `yaml:"node,omitempty"`
	Kind     string `yaml:"kind,omitempty"`
	Message  string `yaml:"message,omitempty"`
	Value    string `yaml:"value,omitempty"`
	Count    int    `yaml:"count,omitempty"`
	Document string `yaml:"document,omitempty"`
}

// Assertion type constants.
const (
	AssertValid         = "valid"
	AssertInvalid       = "invalid"
	AssertErrorContains = "error_contains"
	AssertErrorCount    = "error_count"
	AssertNodeCount     = "node_count"
	AssertLabel         = "label"
	AssertMultiValue    = "multi_value"
	AssertDocument      = "document"
)

// LoadScenario reads and parses a scenario YAML file. The metadata path is
// resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving a relative metadata path against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Metadata != "" && !filepath.IsAbs(scenario.Metadata) && basePath != "" {
		scenario.Metadata = filepath.Join(basePath, scenario.Metadata)
	}
	if _, err := os.Stat(scenario.Metadata); err != nil {
		return nil, fmt.Errorf("invalid scenario: metadata fixture not found: %s", scenario.Metadata)
	}
	return scenario, nil
}

// ParseScenario decodes a scenario document. Unknown fields are rejected.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Metadata == "" {
		return fmt.Errorf("metadata is required")
	}
	if s.Query == "" && len(s.Steps) == 0 {
		return fmt.Errorf("query or steps are required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s *Step) error {
	if !slices.Contains(stepOps, s.Op) {
		return fmt.Errorf("steps[%d]: unknown op %q", index, s.Op)
	}

	switch s.Op {
	case OpAdd:
		if _, ok := querytree.ParseNodeName(s.Kind); !ok {
			return fmt.Errorf("steps[%d]: add requires a known kind, got %q", index, s.Kind)
		}
	case OpMove:
		if s.Node == "" || s.Parent == "" {
			return fmt.Errorf("steps[%d]: move requires node and parent", index)
		}
	case OpSet, OpRemoveAttribute:
		if s.Node == "" || s.Name == "" {
			return fmt.Errorf("steps[%d]: %s requires node and name", index, s.Op)
		}
	case OpSelect:
	default:
		if s.Node == "" {
			return fmt.Errorf("steps[%d]: %s requires node", index, s.Op)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertValid, AssertInvalid:
	case AssertErrorContains:
		if a.Message == "" {
			return fmt.Errorf("assertions[%d]: message is required for error_contains", index)
		}
	case AssertErrorCount, AssertNodeCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertLabel, AssertMultiValue:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for %s", index, a.Type)
		}
	case AssertDocument:
		if a.Document == "" {
			return fmt.Errorf("assertions[%d]: document is required for document", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
