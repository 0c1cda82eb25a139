package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mamaar/merak/internal/cli"
	"github.com/mamaar/merak/pkg/watch"
)

// WatchCommand keeps a flattened copy of a package up to date.
func WatchCommand(app *cli.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <package> <output>",
		Short: "Re-flatten the package into <output> on every change",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, app, args[0], args[1])
		},
	}
	cli.AddLayoutFlags(cmd)
	cmd.Flags().Duration("debounce", 0, "Quiet period before a batch of changes is processed (default 300ms)")
	return cmd
}

func runWatch(ctx context.Context, app *cli.App, path, output string) error {
	logger := app.Logger("merak.watch")
	b, err := NewBuilder(app, path)
	if err != nil {
		return err
	}
	f, err := watch.NewReflattener(b, output, logger)
	if err != nil {
		return err
	}
	if err := f.Flatten(); err != nil {
		return err
	}
	fmt.Fprintf(app.Out(), "Watching %s, writing to %s (Ctrl-C to stop)\n", b.Root(), f.Target())

	w, err := watch.NewWatcher(b.Root(), watch.Options{
		Debounce: app.Config().Debounce,
		Exclude:  app.Config().Exclude,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	batches := make(chan []watch.ChangeEvent)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, batches) }()

	for {
		select {
		case batch := <-batches:
			f.HandleChanges(batch)
		case err := <-done:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}
