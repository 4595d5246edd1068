// Command themectl inspects and edits customization settings from a terminal.
// It keeps the same local cache the app uses and, when a backend is
// configured, signs in and synchronizes with it.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"idlely/internal/config"
	applog "idlely/internal/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	applog.SetOutput(stderr)

	root := newRootCmd(stdout)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "themectl: %v\n", err)
		return 1
	}
	return 0
}

// cli carries the flags shared by every subcommand.
type cli struct {
	opts options
	out  io.Writer
}

// with opens the app, runs fn and closes the app again, waiting for
// background saves to finish.
func (c *cli) with(ctx context.Context, fn func(*app) error) error {
	a, err := openApp(ctx, c.opts, c.out)
	if err != nil {
		return err
	}
	runErr := fn(a)
	a.store.Wait()
	if err := a.close(); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:           "themectl",
		Short:         "Manage idlely customization settings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := applog.SetLevel(c.opts.logLevel); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			c.opts.fill(cfg)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.opts.cachePath, "cache", "", "settings cache directory (\":memory:\" for a throwaway cache)")
	flags.StringVar(&c.opts.remoteURL, "remote", "", "backend base URL")
	flags.StringVar(&c.opts.apiKey, "api-key", "", "backend project API key")
	flags.DurationVar(&c.opts.timeout, "timeout", 0, "backend request timeout")
	flags.BoolVar(&c.opts.offline, "offline", false, "never contact the backend")
	flags.StringVar(&c.opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newSignInCmd(c),
		newSignUpCmd(c),
		newSignOutCmd(c),
		newStatusCmd(c),
		newShowCmd(c),
		newSetCmd(c),
		newPresetsCmd(c),
		newPresetCmd(c),
		newResetCmd(c),
		newExportCmd(c),
		newImportCmd(c),
		newActivateCmd(c),
		newCSSCmd(c),
		newWatchCmd(c),
	)
	return root
}
