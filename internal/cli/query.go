package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/fetchq/internal/fetchxml"
	"github.com/roach88/fetchq/internal/metadata"
	"github.com/roach88/fetchq/internal/querytree"
)

// DefaultTimeout bounds how long a query may take to settle.
const DefaultTimeout = 30 * time.Second

// QueryOptions holds flags shared by commands that load a query.
type QueryOptions struct {
	*RootOptions
	Timeout time.Duration
}

func (o *QueryOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&o.Timeout, "timeout", DefaultTimeout, "maximum time to wait for metadata lookups")
}

// session is a query imported into a settled service.
type session struct {
	svc   *querytree.Service
	root  *querytree.Node
	close func() error
}

func (s *session) Close() {
	s.svc.Close()
	_ = s.close()
}

// readInput reads path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// openQuery imports the FetchXML at path and waits until every validator
// has settled. Failures are reported through formatter.
func openQuery(opts *QueryOptions, path string, cmd *cobra.Command, formatter *OutputFormatter) (*session, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, reportCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("cannot read query: %s", path), err)
	}

	provider, closeFn, err := openProvider(opts.RootOptions)
	if err != nil {
		_ = formatter.Error(ErrCodeMetadataFailed, err.Error(), nil)
		return nil, err
	}

	svc := querytree.NewService(provider,
		querytree.WithDebounce(opts.settings().Debounce),
		querytree.WithLogger(formatter.Logger()),
	)
	s := &session{svc: svc, close: closeFn}

	formatter.VerboseLog("Importing %s (%d bytes)", path, len(data))
	root, err := fetchxml.Parse(bytes.NewReader(data), svc)
	if err != nil {
		s.Close()
		return nil, reportCommandError(formatter, ErrCodeParseFailed, "cannot import query", err)
	}
	s.root = root

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, opts.Timeout)
	defer cancel()
	start := time.Now()
	if err := svc.Settle(ctx); err != nil {
		s.Close()
		return nil, reportCommandError(formatter, ErrCodeTimeout, "validation did not settle", err)
	}
	formatter.VerboseLog("Validated %d node(s) in %s", svc.Tree().Len(), time.Since(start).Round(time.Millisecond))
	stats := provider.Stats()
	formatter.VerboseLog("Metadata lookups: %d call(s), %d hit(s), %d miss(es)", stats.Calls, stats.Hits, stats.Misses)
	return s, nil
}

func reportCommandError(formatter *OutputFormatter, code, message string, err error) error {
	_ = formatter.Error(code, fmt.Sprintf("%s: %v", message, err), nil)
	return WrapExitError(ExitCommandError, message, err)
}

// ValidationIssue is one validation message and the node it belongs to.
// Document-level problems have an empty path.
type ValidationIssue struct {
	Path    string `json:"path,omitempty"`
	Node    string `json:"node,omitempty"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Nodes  int               `json:"nodes"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// collectIssues lists node errors in document order. When the document's
// structure is broken, the tree errors no node reports are listed alone.
func collectIssues(tree *querytree.Tree) ValidationResult {
	result := ValidationResult{Valid: tree.Result().Valid, Nodes: tree.Len()}

	seen := make(map[string]bool)
	var nodeIssues []ValidationIssue
	for n := range tree.All() {
		for _, msg := range n.Result().Errors {
			seen[msg] = true
			nodeIssues = append(nodeIssues, ValidationIssue{
				Path:    n.Path(),
				Node:    n.DisplayName(),
				Message: msg,
			})
		}
	}
	for _, msg := range tree.Result().Errors {
		if !seen[msg] {
			result.Errors = append(result.Errors, ValidationIssue{Message: msg})
		}
	}
	if len(result.Errors) == 0 {
		result.Errors = nodeIssues
	}
	return result
}

// emptyProvider serves commands that import a query without validating it.
func emptyProvider() metadata.Provider {
	return metadata.NewStatic(&metadata.Fixture{})
}
