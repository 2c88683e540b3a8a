package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/fetchq/internal/fetchxml"
	"github.com/roach88/fetchq/internal/metadata"
	"github.com/roach88/fetchq/internal/querytree"
)

// settleTimeout bounds how long one step may take to settle.
const settleTimeout = 10 * time.Second

// Harness applies scenario steps to a fresh service.
type Harness struct {
	svc    *querytree.Service
	seq    int64
	logger *slog.Logger
}

// Run executes a scenario against a fresh service and returns the result.
//
// Execution flow:
// 1. Load the metadata fixture behind a cache
// 2. Import the query, if any
// 3. Apply each step, settling after every one
// 4. Snapshot the settled state and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	fixture, err := metadata.LoadFixture(scenario.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to load metadata: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	provider := metadata.NewCache(metadata.NewStatic(fixture))
	svc := querytree.NewService(provider,
		querytree.WithDebounce(0),
		querytree.WithLogger(logger),
	)
	defer svc.Close()

	h := &Harness{svc: svc, logger: logger}

	if scenario.Query != "" {
		if _, err := fetchxml.Parse(strings.NewReader(scenario.Query), svc); err != nil {
			return nil, fmt.Errorf("failed to import query: %w", err)
		}
		if err := h.settle(); err != nil {
			return nil, err
		}
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.apply(i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		if err := h.settle(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	h.snapshot(result)

	actx := &AssertionContext{Service: svc, Result: result}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) settle() error {
	ctx, cancel := context.WithTimeout(context.Background(), settleTimeout)
	defer cancel()
	if err := h.svc.Settle(ctx); err != nil {
		return fmt.Errorf("failed to settle: %w", err)
	}
	return nil
}

// apply runs one step. Tree errors are recorded in the trace and checked
// against the step's expectation; path errors abort the scenario.
func (h *Harness) apply(index int, step Step, result *Result) error {
	h.seq++
	event := TraceEvent{
		Seq:   h.seq,
		Op:    step.Op,
		Kind:  step.Kind,
		Name:  step.Name,
		Value: step.Value,
	}

	opErr, err := h.execute(step, &event)
	if err != nil {
		return err
	}

	var te *querytree.TreeError
	if errors.As(opErr, &te) {
		event.Error = string(te.Code)
	} else if opErr != nil {
		return opErr
	}
	result.Trace = append(result.Trace, event)

	switch {
	case event.Error != step.ExpectError && step.ExpectError != "":
		result.AddError(fmt.Sprintf("steps[%d] %s: expected error %s, got %q", index, step.Op, step.ExpectError, event.Error))
	case event.Error != "" && step.ExpectError == "":
		result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %v", index, step.Op, opErr))
	}

	h.logger.Debug("step applied", "seq", h.seq, "op", step.Op, "error", event.Error)
	return nil
}

// execute returns the service's error separately from path resolution
// errors.
func (h *Harness) execute(step Step, event *TraceEvent) (opErr, err error) {
	tree := h.svc.Tree()
	node := func(path string) (*querytree.Node, error) {
		event.Target = path
		return tree.Resolve(path)
	}
	index := -1
	if step.Index != nil {
		index = *step.Index
	}

	switch step.Op {
	case OpAdd:
		var parent *querytree.Node
		if step.Parent != "" {
			if parent, err = node(step.Parent); err != nil {
				return nil, err
			}
		}
		kind, _ := querytree.ParseNodeName(step.Kind)
		_, opErr = h.svc.InsertNode(kind, parent, index)

	case OpMove:
		n, err := node(step.Node)
		if err != nil {
			return nil, err
		}
		parent, err := tree.Resolve(step.Parent)
		if err != nil {
			return nil, err
		}
		opErr = h.svc.MoveNode(n, parent, index)

	case OpSelect:
		var n *querytree.Node
		if step.Node != "" {
			if n, err = node(step.Node); err != nil {
				return nil, err
			}
		}
		opErr = h.svc.Select(n)

	default:
		n, err := node(step.Node)
		if err != nil {
			return nil, err
		}
		switch step.Op {
		case OpSet:
			_, opErr = h.svc.SetAttribute(n, step.Name, step.Value)
		case OpRemoveAttribute:
			opErr = h.svc.RemoveAttribute(n, step.Name)
		case OpRemove:
			opErr = h.svc.RemoveNode(n)
		case OpDuplicate:
			_, opErr = h.svc.DuplicateNode(n)
		case OpAddValue:
			_, opErr = h.svc.AddValueNode(n, step.Value)
		case OpSetMulti:
			_, opErr = h.svc.SetMultiValue(n, step.Value)
		}
	}
	return opErr, nil
}

// snapshot records the settled tree state.
func (h *Harness) snapshot(result *Result) {
	tree := h.svc.Tree()
	r := tree.Result()
	result.Valid = r.Valid
	result.ValidationErrors = append(result.ValidationErrors, r.Errors...)

	for n := range tree.All() {
		nr := n.Result()
		if nr.Valid {
			continue
		}
		result.Invalid = append(result.Invalid, NodeState{
			Path:   n.Path(),
			Label:  n.DisplayName(),
			Errors: append([]string{}, nr.Errors...),
		})
	}
	result.Document = fetchxml.String(tree.Root())
}
