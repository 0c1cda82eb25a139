package commands

import (
	"github.com/spf13/cobra"

	"github.com/mamaar/merak/internal/cli"
)

// CythonizeCommand builds a binary package with Cython.
func CythonizeCommand(app *cli.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cythonize <package> <output>",
		Short: "Build binary Python package with Cython",
		Long: `Flatten the package into a temporary directory, compile it with
"<py-cmd> setup.py build_ext" and copy the compiled package to
<output>/<package>.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := app.Logger("merak.cythonize")
			b, err := NewBuilder(app, args[0])
			if err != nil {
				return err
			}
			logger.Info("building binary package", "package", b.Package())
			if err := b.Build(cmd.Context(), args[1]); err != nil {
				logger.Error("package building failed", "package", b.Package())
				return err
			}
			logger.Info("binary package built successfully", "package", b.Package())
			return nil
		},
	}
	cli.AddLayoutFlags(cmd)
	cli.AddForceFlag(cmd, "Force overwrite if the target path exists")
	cmd.Flags().String("py-cmd", "python", `Python interpreter used to build the package, e.g. "uv run python" (env PYTHON_CMD)`)
	return cmd
}
