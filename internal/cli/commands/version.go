package commands

import (
	"github.com/spf13/cobra"

	"github.com/mamaar/merak/internal/cli"
)

// VersionCommand handles the version command
func VersionCommand(app *cli.App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cli.ShowVersion(app.Out())
		},
	}
}
