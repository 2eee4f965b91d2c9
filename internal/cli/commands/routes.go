package commands

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inkwell-cms/inkwell/internal/cli/ui"
	"github.com/inkwell-cms/inkwell/internal/store"
)

// NewRoutesCommand creates the routes command
func NewRoutesCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the HTTP route table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags.configPath)
			if err != nil {
				return err
			}
			registry, err := loadRegistry(cfg, zap.NewNop())
			if err != nil {
				return err
			}

			// The route table does not depend on the store, so no connection is made
			handler := newAPI(cfg, registry, store.NewGateway(store.NewMemoryDriver()), nil, zap.NewNop())

			table := ui.NewTable(cmd.OutOrStdout(), flags.noColor, "METHOD", "PATTERN", "NAME", "PARAMS", "DESCRIPTION")
			for _, route := range handler.Routes() {
				table.AddRow(route.Method, route.Pattern, route.Name, strings.Join(route.Parameters, ","), route.Description)
			}
			table.Render()
			return nil
		},
	}
}
