package cli

import (
	"context"
	"errors"
	"io"

	"github.com/dmitrijs2005/nestwatch/internal/client/config"
	"github.com/dmitrijs2005/nestwatch/internal/logging"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configFile string
	override   config.Override
}

// Execute runs one command line. Output goes to out, logs to errOut.
func Execute(ctx context.Context, args []string, out, errOut io.Writer) error {
	var app *App

	root := newRootCmd(&app, out, errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)

	if app != nil {
		err = errors.Join(err, app.Close())
	}
	return err
}

func newRootCmd(app **App, out, errOut io.Writer) *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:           "nestwatch",
		Short:         "Offline nest-box inspections with sync",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.configFile)
			if err != nil {
				return err
			}
			cfg.Apply(flags.override)

			logger := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Output: errOut})

			*app, err = NewApp(cmd.Context(), cfg, logger, out)
			return err
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "path to config file (yaml or json)")
	pf.StringVarP(&flags.override.ServerURL, "server", "s", "", "remote service url")
	pf.StringVarP(&flags.override.Token, "token", "t", "", "bearer token")
	pf.StringVarP(&flags.override.DataDir, "data-dir", "d", "", "directory for the local store and photos")
	pf.StringVar(&flags.override.Backend, "backend", "", "local store backend: indexed or prefix")
	pf.StringVar(&flags.override.LogLevel, "log-level", "", "debug, info, warn or error")

	get := func() *App { return *app }

	root.AddCommand(
		syncCmd(get),
		dedupCmd(get),
		pingCmd(get),
		regionsCmd(get),
		siteCmd(get),
		visitCmd(get),
	)
	return root
}
