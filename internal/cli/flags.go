package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags holds the global command line flags
type Flags struct {
	Config string
}

// InitFlags registers the global flags on root
func InitFlags(root *cobra.Command) *Flags {
	f := &Flags{}
	pf := root.PersistentFlags()
	pf.StringVar(&f.Config, "config", "", "Config file (default .merak.toml in the working or home directory)")
	pf.CountP("verbose", "v", "Log verbosity: WARN by default, -v INFO, -vv DEBUG")
	pf.BoolP("color", "k", false, "Display log levels in colors")
	return f
}

// AddLayoutFlags registers the flags that control how a package is
// flattened.
func AddLayoutFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringP("sep", "s", "_", "Module layer separator, must be identifier characters")
	fs.String("prefix", "___", "Prefix of flattened module names, must be identifier characters")
	fs.StringSlice("suffix", []string{".py"}, "Source file suffixes treated as modules")
	fs.StringSlice("exclude", []string{"**/__pycache__/**"}, "Glob patterns, relative to the package, left out entirely")
}

// AddForceFlag registers -f/--force.
func AddForceFlag(cmd *cobra.Command, usage string) {
	cmd.Flags().BoolP("force", "f", false, usage)
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"verbose":  "verbose",
	"color":    "color",
	"sep":      "sep",
	"prefix":   "prefix",
	"suffix":   "suffixes",
	"exclude":  "exclude",
	"force":    "force",
	"py-cmd":   "py_cmd",
	"debounce": "debounce",
}

// BindFlags binds the flags cmd defines to their configuration keys, so
// that an explicitly set flag overrides the config file and environment.
func BindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}
