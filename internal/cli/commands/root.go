package commands

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/inkwell-cms/inkwell/internal/cli/ui"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath string
	noColor    bool
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "inkwell",
		Short: "Schema-driven JSON:API document server",
		Long: color.CyanString(`inkwell - JSON:API document server

Serves create, read, update, delete and relationship endpoints for every
resource type declared in the resource definitions, backed by a document
store (sqlite, postgres, redis, mongo or in-memory).`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (default ./inkwell.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "disable coloured output")

	rootCmd.AddCommand(NewServeCommand(flags))
	rootCmd.AddCommand(NewRoutesCommand(flags))
	rootCmd.AddCommand(NewTypesCommand(flags))
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			title := color.New(color.FgCyan, color.Bold)

			title.Fprint(out, "inkwell version: ")
			fmt.Fprintln(out, Version)
			title.Fprint(out, "Git commit: ")
			fmt.Fprintln(out, GitCommit)
			title.Fprint(out, "Build date: ")
			fmt.Fprintln(out, BuildDate)
			title.Fprint(out, "Go version: ")
			fmt.Fprintln(out, runtime.Version())
		},
	}
}

// configError marks a failure to load or validate the configuration
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// reportError is an error that already carries its terminal rendering
type reportError struct {
	report ui.Report
}

func (e *reportError) Error() string { return e.report.Problem }

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	err := rootCmd.Execute()
	if err == nil {
		return nil
	}

	noColor, _ := rootCmd.PersistentFlags().GetBool("no-color")
	var (
		cfgErr    *configError
		reportErr *reportError
	)
	switch {
	case errors.As(err, &reportErr):
		reportErr.report.Write(rootCmd.ErrOrStderr(), noColor)
	case errors.As(err, &cfgErr):
		ui.ConfigProblem(cfgErr.err).Write(rootCmd.ErrOrStderr(), noColor)
	default:
		ui.Failure(err).Write(rootCmd.ErrOrStderr(), noColor)
	}
	return err
}
