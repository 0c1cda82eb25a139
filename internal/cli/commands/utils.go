package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mamaar/merak/internal/cli"
	"github.com/mamaar/merak/pkg/build"
)

// NewBuilder creates a builder for the package at path from the resolved
// configuration.
func NewBuilder(app *cli.App, path string) (*build.Builder, error) {
	cfg := app.Config()
	return build.NewBuilder(path, build.Options{
		Suffixes: cfg.Suffixes,
		Exclude:  cfg.Exclude,
		Sep:      cfg.Sep,
		Prefix:   cfg.Prefix,
		PyCmd:    cfg.PyCmd,
		Force:    cfg.Force,
		Logger:   app.Logger("merak.build"),
	})
}

// OutputJSON writes v as indented JSON.
func OutputJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
