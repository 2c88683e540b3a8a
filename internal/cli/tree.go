package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/fetchq/internal/querytree"
)

// TreeNode is the JSON form of one node in the tree view.
type TreeNode struct {
	Key      string     `json:"key"`
	Kind     string     `json:"kind"`
	Label    string     `json:"label"`
	Valid    bool       `json:"valid"`
	Errors   []string   `json:"errors,omitempty"`
	Children []TreeNode `json:"children,omitempty"`
}

// NewTreeCommand creates the tree command.
func NewTreeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tree <query.xml>",
		Short: "Show a query as a validated node tree",
		Long: `Show a FetchXML query as the node tree an editor would display.

Each node is labelled like a tree view and marked with its settled
validation state; failing nodes list their messages underneath.

Examples:
  fetchq tree query.xml -m crm.yaml
  fetchq tree query.xml -m crm.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTree(opts, args[0], cmd)
		},
	}
	opts.addFlags(cmd)

	return cmd
}

func runTree(opts *QueryOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	s, err := openQuery(opts, path, cmd, formatter)
	if err != nil {
		return err
	}
	defer s.Close()

	if formatter.Format == "json" {
		return formatter.Success(buildTreeNode(s.root))
	}
	writeTree(formatter.Writer, s.root, 0)
	if r := s.svc.Tree().Result(); !r.Valid {
		fmt.Fprintf(formatter.Writer, "\n%d error(s)\n", len(r.Errors))
	}
	return nil
}

func buildTreeNode(n *querytree.Node) TreeNode {
	r := n.Result()
	out := TreeNode{
		Key:    n.Key().String(),
		Kind:   string(n.Name()),
		Label:  n.DisplayName(),
		Valid:  r.Valid,
		Errors: r.Errors,
	}
	for _, c := range n.Children() {
		out.Children = append(out.Children, buildTreeNode(c))
	}
	return out
}

func writeTree(w io.Writer, n *querytree.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	r := n.Result()
	mark := "✓"
	if !r.Valid {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s%s %s\n", indent, mark, n.DisplayName())
	for _, msg := range r.Errors {
		fmt.Fprintf(w, "%s    %s\n", indent, msg)
	}
	for _, c := range n.Children() {
		writeTree(w, c, depth+1)
	}
}
