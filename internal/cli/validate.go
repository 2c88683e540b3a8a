package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <query.xml>",
		Short: "Validate a FetchXML query against metadata",
		Long: `Validate a FetchXML query against entity metadata.

Imports the query in parse mode, waits for every metadata lookup to finish
and reports each validation message with the path of its node. Use "-" to
read the query from stdin.

Exit codes:
  0 - Query is valid
  1 - Query has validation errors
  2 - Command error (unreadable input, malformed XML, missing metadata)

Examples:
  fetchq validate query.xml -m crm.yaml
  fetchq validate - --metadata metadata.db < query.xml
  fetchq validate query.xml --config fetchq.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}
	opts.addFlags(cmd)

	return cmd
}

func runValidate(opts *QueryOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	s, err := openQuery(opts, path, cmd, formatter)
	if err != nil {
		return err
	}
	defer s.Close()

	result := collectIssues(s.svc.Tree())
	if result.Valid {
		return outputValidateSuccess(formatter, result)
	}
	return outputValidationErrors(formatter, result)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Query valid (%d nodes)\n", result.Nodes)
	return nil
}

// outputValidationErrors outputs the issues of an invalid query.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
		}
		if len(result.Errors) > 0 {
			response.Error = &CLIError{
				Code:    ErrCodeInvalidQuery,
				Message: result.Errors[0].Message,
			}
		}
		if err := formatter.JSON(response); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	last := "\x00"
	for _, issue := range result.Errors {
		if issue.Path != last {
			if issue.Path == "" {
				fmt.Fprintln(formatter.Writer, "document")
			} else {
				fmt.Fprintf(formatter.Writer, "%s (%s)\n", issue.Path, issue.Node)
			}
			last = issue.Path
		}
		fmt.Fprintf(formatter.Writer, "  %s\n", issue.Message)
	}

	return exitErr
}
