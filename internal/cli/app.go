package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mamaar/merak/internal/config"
)

// App represents the merak application
type App struct {
	flags  *Flags
	viper  *viper.Viper
	cfg    config.Config
	logger *slog.Logger
	out    io.Writer
	errOut io.Writer
}

// NewApp creates a new application instance
func NewApp() *App {
	return &App{
		viper:  viper.New(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		out:    os.Stdout,
		errOut: os.Stderr,
	}
}

// SetOutput redirects command output and log output.
func (app *App) SetOutput(out, errOut io.Writer) {
	app.out = out
	app.errOut = errOut
}

// Out is where commands print their results.
func (app *App) Out() io.Writer { return app.out }

// Config returns the configuration resolved for the running command.
func (app *App) Config() config.Config { return app.cfg }

// Logger returns the application logger named name.
func (app *App) Logger(name string) *slog.Logger {
	return app.logger.With(LoggerKey, name)
}

// Run builds the command tree from runner and executes args.
func (app *App) Run(ctx context.Context, runner *Runner, args []string) error {
	root := app.rootCommand()
	for _, cmd := range runner.Commands(app) {
		root.AddCommand(cmd)
	}
	root.SetArgs(args)
	root.SetOut(app.out)
	root.SetErr(app.errOut)
	return root.ExecuteContext(ctx)
}

func (app *App) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "merak",
		Short:         "Flatten and compile Python packages",
		Long:          Long,
		Example:       Examples,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.initialize(cmd)
		},
	}
	root.SetVersionTemplate("merak version {{.Version}}\n")
	app.flags = InitFlags(root)
	return root
}

// initialize resolves configuration for cmd and installs the logger.
func (app *App) initialize(cmd *cobra.Command) error {
	if err := config.Init(app.viper, app.flags.Config); err != nil {
		return err
	}
	if err := BindFlags(app.viper, cmd); err != nil {
		return err
	}
	cfg, err := config.Load(app.viper)
	if err != nil {
		return err
	}
	app.cfg = cfg
	app.logger = NewLogger(app.errOut, cfg.Verbose, cfg.Color)
	if used := app.viper.ConfigFileUsed(); used != "" {
		app.logger.Debug("using config file", "path", used)
	}
	return nil
}
