package cli

import "github.com/spf13/cobra"

// CommandFunc builds a command bound to app
type CommandFunc func(app *App) *cobra.Command

// Runner holds the static table of commands
type Runner struct {
	names    []string
	commands map[string]CommandFunc
}

// NewRunner creates a new command runner
func NewRunner() *Runner {
	return &Runner{
		commands: make(map[string]CommandFunc),
	}
}

// RegisterCommand registers a command builder. Registering a name twice
// replaces the earlier builder.
func (r *Runner) RegisterCommand(name string, fn CommandFunc) {
	if _, ok := r.commands[name]; !ok {
		r.names = append(r.names, name)
	}
	r.commands[name] = fn
}

// Commands builds every registered command, in registration order.
func (r *Runner) Commands(app *App) []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(r.names))
	for _, name := range r.names {
		cmds = append(cmds, r.commands[name](app))
	}
	return cmds
}

// GetCommands returns the registered commands
func (r *Runner) GetCommands() map[string]CommandFunc {
	return r.commands
}
