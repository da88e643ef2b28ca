package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/sst/templateassist/internal/config"
	"github.com/sst/templateassist/internal/format"
	"github.com/sst/templateassist/internal/logging"
	"github.com/sst/templateassist/pkg/app"
	"github.com/sst/templateassist/pkg/app/paths"
)

// Application state shared by subcommands, set up by the root command.
var (
	application  *app.App
	outputFormat format.OutputFormat
	closeLog     func() error
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "templateassist",
		Short: "Template completions for editors",
		Long: `templateassist proposes code templates for the text around a cursor.
Templates are read from completion files in the project's .templateassist/completions
directory and any configured global directories, cached per scope, and materialized
with editor variables substituted and linked positions remapped.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			outputFormatStr, _ := cmd.Flags().GetString("output-format")
			outputFormat = format.OutputFormat(outputFormatStr)
			if !outputFormat.IsValid() {
				return fmt.Errorf("invalid output format: %s", outputFormatStr)
			}

			debug, _ := cmd.Flags().GetBool("debug")
			verbose, _ := cmd.Flags().GetBool("verbose")
			cwd, _ := cmd.Flags().GetString("cwd")
			if cwd != "" {
				err := os.Chdir(cwd)
				if err != nil {
					return fmt.Errorf("failed to change directory: %v", err)
				}
			}
			if cwd == "" {
				c, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("failed to get current working directory: %v", err)
				}
				cwd = c
			}

			cfg, err := config.Load(cwd, debug)
			if err != nil {
				return err
			}

			recorder, closer, err := logging.Setup(logging.Options{
				Dir:     paths.Log(cwd),
				Debug:   cfg.Debug,
				Verbose: verbose,
				Stderr:  cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			closeLog = closer

			application, err = app.New(cfg, app.WithLogs(recorder))
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if application != nil {
				application.Shutdown()
			}
			if closeLog != nil {
				return closeLog()
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")
	rootCmd.PersistentFlags().StringP("cwd", "c", "", "Current working directory")
	rootCmd.PersistentFlags().StringP("output-format", "f", "text", "Output format (text, json, pretty)")
	rootCmd.PersistentFlags().BoolP("verbose", "", false, "Display logs to stderr")

	rootCmd.AddCommand(newProposeCmd(), newCacheCmd())
	return rootCmd
}

func printRecords(w io.Writer, records []format.Record) error {
	out, err := format.FormatOutput(records, outputFormat)
	if err != nil {
		return err
	}
	if out == "" {
		return nil
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

func Execute() {
	err := newRootCmd().Execute()
	if err != nil {
		os.Exit(1)
	}
}
