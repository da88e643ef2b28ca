package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/sst/templateassist/internal/format"
)

func newCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache [scopes...]",
		Short: "Load scopes and show the template cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			if err := application.Warm(cmd.Context(), root, args); err != nil {
				return err
			}

			inventory := application.Inventory()
			records := make([]format.Record, len(inventory))
			for i, info := range inventory {
				records[i] = format.Record{
					{Key: "scope", Value: info.Scope},
					{Key: "templates", Value: info.Templates},
					{Key: "triggers", Value: strings.Join(info.Triggers, ",")},
				}
			}
			return printRecords(cmd.OutOrStdout(), records)
		},
	}
	cacheCmd.Flags().String("root", "", "Project root, the working directory when unset")
	return cacheCmd
}
