package cli

import (
	"github.com/spf13/cobra"

	automation "github.com/pratik-mahalle/ec2-automations/internal/handlers"
)

type handlerInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func newHandlersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "handlers",
		Short: "List available handlers",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := automation.Names()

			format := getOutputFormat()
			if format == "json" || format == "yaml" {
				out := make([]handlerInfo, 0, len(names))
				for _, name := range names {
					out = append(out, handlerInfo{Name: name, Description: automation.Description(name)})
				}
				return printOutput(cmd.OutOrStdout(), format, out)
			}

			table := NewTable(cmd.OutOrStdout(), "NAME", "DESCRIPTION")
			for _, name := range names {
				table.AddRow(name, automation.Description(name))
			}
			table.Render()
			return nil
		},
	}
}
