package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mamaar/merak/internal/cli"
)

// FlattenCommand writes the flattened package without compiling it.
func FlattenCommand(app *cli.App) *cobra.Command {
	var manifest string
	cmd := &cobra.Command{
		Use:   "flatten <package> <output>",
		Short: "Write the flattened package and its resources",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := NewBuilder(app, args[0])
			if err != nil {
				return err
			}
			r, err := b.Restructure(args[1])
			if err != nil {
				return err
			}
			if manifest != "" {
				if err := r.WriteManifest(manifest); err != nil {
					return err
				}
			}
			dests, err := r.Destinations()
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Out(), "Flattened %s: %d modules written to %s\n", r.Package(), len(dests), args[1])
			return nil
		},
	}
	cli.AddLayoutFlags(cmd)
	cli.AddForceFlag(cmd, "Overwrite existing files in the output directory")
	cmd.Flags().StringVar(&manifest, "manifest", "", "Write a TOML manifest of original to flattened module paths")
	return cmd
}
