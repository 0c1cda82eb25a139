package commands

import "github.com/mamaar/merak/internal/cli"

// Register adds every merak command to runner.
func Register(runner *cli.Runner) {
	runner.RegisterCommand("cythonize", CythonizeCommand)
	runner.RegisterCommand("flatten", FlattenCommand)
	runner.RegisterCommand("plan", PlanCommand)
	runner.RegisterCommand("watch", WatchCommand)
	runner.RegisterCommand("version", VersionCommand)
}
