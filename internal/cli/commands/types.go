package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inkwell-cms/inkwell/internal/cli/ui"
	"github.com/inkwell-cms/inkwell/internal/resource"
)

// NewTypesCommand creates the types command
func NewTypesCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "types [name]",
		Short: "Print the registered resource types",
		Long: `Print every registered resource type with its attributes and relationships,
followed by any relationship entries that were dropped as malformed.
With a name, print only that type.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags.configPath)
			if err != nil {
				return err
			}
			registry, err := loadRegistry(cfg, zap.NewNop())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				schema, err := registry.Schema(args[0])
				if err != nil {
					return &reportError{report: ui.UnknownType(args[0], registry.Types())}
				}
				printSchema(out, schema, flags.noColor)
				return nil
			}

			table := ui.NewTable(out, flags.noColor, "TYPE", "SINGULAR", "ATTRIBUTES", "RELATIONSHIPS")
			for _, name := range registry.Types() {
				schema, _ := registry.Schema(name)
				table.AddRow(schema.Name, schema.Singular, strings.Join(schema.Attributes(), ", "), describeRelationships(schema))
			}
			table.Render()

			printDropped(out, registry.Dropped(), flags.noColor)
			return nil
		},
	}
}

func describeRelationships(schema *resource.Schema) string {
	rels := schema.Relationships()
	parts := make([]string, 0, len(rels))
	for _, rel := range rels {
		parts = append(parts, fmt.Sprintf("%s → %s (%s)", rel.Key, rel.Target, rel.Cardinality))
	}
	return strings.Join(parts, ", ")
}

func printSchema(w io.Writer, schema *resource.Schema, noColor bool) {
	ui.Header(w, schema.Name, noColor)
	fmt.Fprintf(w, "singular:   %s\n", schema.Singular)
	fmt.Fprintf(w, "attributes: %s\n", strings.Join(schema.Attributes(), ", "))

	rels := schema.Relationships()
	if len(rels) == 0 {
		return
	}
	fmt.Fprintln(w)
	table := ui.NewTable(w, noColor, "RELATIONSHIP", "TARGET", "CARDINALITY")
	for _, rel := range rels {
		table.AddRow(rel.Key, rel.Target, rel.Cardinality.String())
	}
	table.Render()
}

func printDropped(w io.Writer, dropped []resource.DroppedRelationship, noColor bool) {
	if len(dropped) == 0 {
		return
	}

	warn := color.New(color.FgYellow, color.Bold)
	if noColor {
		warn.DisableColor()
	}
	fmt.Fprintln(w)
	warn.Fprintf(w, "%d relationship entries were dropped:\n", len(dropped))
	for _, d := range dropped {
		fmt.Fprintf(w, "  %s.%s: %s\n", d.Type, d.Key, d.Reason)
	}
}
