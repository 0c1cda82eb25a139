package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:  "echo",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config()
			app.Logger("merak.echo").Info("running", "sep", cfg.Sep)
			cmd.Printf("sep=%s prefix=%s suffixes=%v force=%t verbose=%d\n", cfg.Sep, cfg.Prefix, cfg.Suffixes, cfg.Force, cfg.Verbose)
			return nil
		},
	}
	AddLayoutFlags(cmd)
	AddForceFlag(cmd, "force")
	return cmd
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	var out, errOut bytes.Buffer
	app := NewApp()
	app.SetOutput(&out, &errOut)
	runner := NewRunner()
	runner.RegisterCommand("echo", echoCommand)
	err := app.Run(context.Background(), runner, args)
	return out.String(), errOut.String(), err
}

func TestRun_Defaults(t *testing.T) {
	out, logs, err := run(t, "echo")
	require.NoError(t, err)
	assert.Equal(t, "sep=_ prefix=___ suffixes=[.py] force=false verbose=0\n", out)
	assert.Empty(t, logs)
}

func TestRun_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("MERAK_SEP", "0")
	t.Setenv("MERAK_PREFIX", "_e")
	out, _, err := run(t, "echo", "-s", "1", "--suffix", ".py,.pyx", "-f")
	require.NoError(t, err)
	assert.Equal(t, "sep=1 prefix=_e suffixes=[.py .pyx] force=true verbose=0\n", out)
}

func TestRun_VerboseEnablesInfoLogs(t *testing.T) {
	out, logs, err := run(t, "-vv", "echo")
	require.NoError(t, err)
	assert.Contains(t, out, "verbose=2")
	assert.Contains(t, logs, "(INFO) merak.echo : running sep=_")
}

func TestRun_Version(t *testing.T) {
	out, _, err := run(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "merak version "+Version+"\n", out)
}

func TestRun_UnknownCommand(t *testing.T) {
	_, _, err := run(t, "frobnicate")
	assert.Error(t, err)
}

func TestRunner_RegistrationOrder(t *testing.T) {
	r := NewRunner()
	for _, name := range []string{"b", "a", "b"} {
		name := name
		r.RegisterCommand(name, func(*App) *cobra.Command { return &cobra.Command{Use: name} })
	}
	var uses []string
	for _, c := range r.Commands(NewApp()) {
		uses = append(uses, c.Use)
	}
	assert.Equal(t, []string{"b", "a"}, uses)
	assert.Len(t, r.GetCommands(), 2)
}
