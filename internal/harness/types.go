package harness

// TraceEvent records one applied step.
type TraceEvent struct {
	Seq    int64  `json:"seq"`
	Op     string `json:"op"`
	Target string `json:"target,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Name   string `json:"name,omitempty"`
	Value  string `json:"value,omitempty"`
	Error  string `json:"error,omitempty"` // tree error code
}

// NodeState is the settled validation state of one failing node.
type NodeState struct {
	Path   string   `json:"path"`
	Label  string   `json:"label"`
	Errors []string `json:"errors"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step error and assertion matched.
	Pass bool `json:"pass"`

	// Trace holds the applied steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains step and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// Valid and ValidationErrors are the settled tree result.
	Valid            bool     `json:"valid"`
	ValidationErrors []string `json:"validation_errors"`

	// Invalid lists failing nodes in document order.
	Invalid []NodeState `json:"invalid_nodes"`

	// Document is the final FetchXML.
	Document string `json:"document"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:             true,
		Trace:            []TraceEvent{},
		ValidationErrors: []string{},
		Invalid:          []NodeState{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
