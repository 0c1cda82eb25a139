package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mamaar/merak/internal/cli"
	"github.com/mamaar/merak/internal/cli/commands"
)

func main() {
	app := cli.NewApp()
	runner := cli.NewRunner()
	commands.Register(runner)

	if err := app.Run(context.Background(), runner, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
