package cli

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/fetchq/internal/fetchxml"
	"github.com/roach88/fetchq/internal/querytree"
)

// FormatOptions holds flags for the format command.
type FormatOptions struct {
	*RootOptions
	Output string // write here instead of stdout
	Check  bool   // only report whether the input is formatted
}

// NewFormatCommand creates the format command.
func NewFormatCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FormatOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "format <query.xml>",
		Short: "Rewrite a query in canonical FetchXML layout",
		Long: `Rewrite a FetchXML query in canonical layout.

Attributes are written in editor order, empty attributes are dropped,
multi-value conditions get one value element per literal and nesting is
indented with two spaces. No metadata is needed.

Exit codes:
  0 - Formatted (or already canonical with --check)
  1 - Input is not canonical (--check only)
  2 - Command error (unreadable input, malformed XML)

Examples:
  fetchq format query.xml
  fetchq format query.xml -o query.xml
  fetchq format --check query.xml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFormat(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&opts.Check, "check", false, "exit 1 if the input is not canonical")

	return cmd
}

func runFormat(opts *FormatOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	data, err := readInput(cmd, path)
	if err != nil {
		return reportCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("cannot read query: %s", path), err)
	}

	svc := querytree.NewService(emptyProvider(),
		querytree.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	defer svc.Close()

	root, err := fetchxml.Parse(bytes.NewReader(data), svc)
	if err != nil {
		return reportCommandError(formatter, ErrCodeParseFailed, "cannot import query", err)
	}
	out := fetchxml.String(root)

	if opts.Check {
		canonical := bytes.Equal(bytes.TrimSpace(data), bytes.TrimSpace([]byte(out)))
		if formatter.Format == "json" {
			if err := formatter.Success(map[string]any{"path": path, "canonical": canonical}); err != nil {
				return err
			}
		} else if !canonical {
			fmt.Fprintln(formatter.Writer, path)
		}
		if !canonical {
			return NewExitError(ExitFailure, fmt.Sprintf("%s is not canonical", path))
		}
		return nil
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(out), 0644); err != nil {
			return reportCommandError(formatter, ErrCodeWriteFailed, "cannot write output", err)
		}
		formatter.VerboseLog("Wrote %s", opts.Output)
		return nil
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{"path": path, "document": out})
	}
	_, err = io.WriteString(formatter.Writer, out)
	return err
}
