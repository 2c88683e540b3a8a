package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/fetchq/internal/metadata"
)

// NewMetadataCommand creates the metadata command group.
func NewMetadataCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Build and inspect metadata sources",
	}

	cmd.AddCommand(newMetadataImportCommand(rootOpts))
	cmd.AddCommand(newMetadataEntitiesCommand(rootOpts))
	cmd.AddCommand(newMetadataAttributesCommand(rootOpts))

	return cmd
}

// ImportResult is the outcome of metadata import.
type ImportResult struct {
	Source        string `json:"source"`
	Snapshot      string `json:"snapshot"`
	Entities      int    `json:"entities"`
	Attributes    int    `json:"attributes"`
	Options       int    `json:"options"`
	Relationships int    `json:"relationships"`
}

func newMetadataImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <fixture.yaml> <snapshot.db>",
		Short: "Import a YAML fixture into a SQLite snapshot",
		Long: `Import a YAML metadata fixture into a SQLite snapshot.

The snapshot is created if missing; existing contents are replaced in a
single transaction.

Examples:
  fetchq metadata import crm.yaml metadata.db`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetadataImport(rootOpts, args[0], args[1], cmd)
		},
	}
}

func runMetadataImport(opts *RootOptions, fixturePath, snapshotPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	fixture, err := metadata.LoadFixture(fixturePath)
	if err != nil {
		return reportCommandError(formatter, ErrCodeMetadataFailed, "cannot load fixture", err)
	}

	snap, err := metadata.OpenSnapshot(snapshotPath)
	if err != nil {
		return reportCommandError(formatter, ErrCodeMetadataFailed, "cannot open snapshot", err)
	}
	defer snap.Close()

	stats, err := snap.Import(cmd.Context(), metadata.NewStatic(fixture), fixturePath)
	if err != nil {
		return reportCommandError(formatter, ErrCodeWriteFailed, "import failed", err)
	}

	result := ImportResult{
		Source:        fixturePath,
		Snapshot:      snapshotPath,
		Entities:      stats.Entities,
		Attributes:    stats.Attributes,
		Options:       stats.Options,
		Relationships: stats.Relationships,
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Imported %d entities, %d attributes, %d options, %d relationships into %s\n",
		result.Entities, result.Attributes, result.Options, result.Relationships, snapshotPath)
	return nil
}

func newMetadataEntitiesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "entities",
		Short:         "List the entities of the metadata source",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			provider, closeFn, err := openProvider(rootOpts)
			if err != nil {
				_ = formatter.Error(ErrCodeMetadataFailed, err.Error(), nil)
				return err
			}
			defer closeFn()

			entities, err := provider.ListEntities(cmd.Context())
			if err != nil {
				return reportCommandError(formatter, ErrCodeMetadataFailed, "cannot list entities", err)
			}
			if formatter.Format == "json" {
				return formatter.Success(entities)
			}

			tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tENTITY SET\tDISPLAY NAME")
			for _, e := range entities {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.LogicalName, e.EntitySetName, e.DisplayName)
			}
			return tw.Flush()
		},
	}
}

func newMetadataAttributesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "attributes <entity>",
		Short:         "List the attributes of an entity",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			provider, closeFn, err := openProvider(rootOpts)
			if err != nil {
				_ = formatter.Error(ErrCodeMetadataFailed, err.Error(), nil)
				return err
			}
			defer closeFn()

			attrs, err := provider.ListAttributes(cmd.Context(), args[0])
			if metadata.IsNotFound(err) {
				_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("entity '%s' not found", args[0]), nil)
				return WrapExitError(ExitFailure, "entity not found", err)
			}
			if err != nil {
				return reportCommandError(formatter, ErrCodeMetadataFailed, "cannot list attributes", err)
			}
			if formatter.Format == "json" {
				return formatter.Success(attrs)
			}

			tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTYPE\tTARGETS")
			for _, a := range attrs {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", a.LogicalName, a.Type, strings.Join(a.Targets, ","))
			}
			return tw.Flush()
		},
	}
}
