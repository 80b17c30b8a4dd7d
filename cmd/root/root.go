// Package root contains the root command for the application
package root

import (
	"fmt"

	"fjacquet/teamkasse/internal/config"
	"fjacquet/teamkasse/internal/container"
	"fjacquet/teamkasse/internal/logging"

	"github.com/spf13/cobra"
)

// GlobalFlags are the persistent flags shared by every command.
type GlobalFlags struct {
	ConfigFile string
	Store      string
	LogLevel   string
}

var (
	// Log is the shared logger instance for commands
	Log = logging.NewLogrusAdapter("info", "text")

	// Flags holds the values of the persistent flags
	Flags = GlobalFlags{}

	app *container.Container

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "teamkasse",
		Short: "A ledger for sports team fines, dues and beverage tabs.",
		Long: `teamkasse keeps the books of a sports team: fines, membership dues,
beverage consumption and payments, with a cached balance per member.
It imports legacy CSV exports and serves the ledger over HTTP.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
		PersistentPreRunE: setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app == nil {
				return nil
			}
			err := app.Close()
			app = nil
			return err
		},
	}
)

// Init initializes the root command and all flags
func Init() {
	Cmd.PersistentFlags().StringVar(&Flags.ConfigFile, "config", "", "Config file (default searches $HOME/.teamkasse, .teamkasse and .)")
	Cmd.PersistentFlags().StringVar(&Flags.Store, "store", "", "Store backend: memory, sqlite or mongo")
	Cmd.PersistentFlags().StringVar(&Flags.LogLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
}

func setup(cmd *cobra.Command, args []string) error {
	// .env is optional
	_, _ = config.LoadEnv()

	cfg, err := config.Load(Flags.ConfigFile)
	if err != nil {
		return err
	}
	if Flags.Store != "" {
		cfg.Store.Backend = Flags.Store
	}
	if Flags.LogLevel != "" {
		cfg.Log.Level = Flags.LogLevel
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	// a failed RunE skips the post-run hook
	if app != nil {
		_ = app.Close()
		app = nil
	}

	c, err := container.NewContainer(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	app = c
	Log = c.GetLogger()
	return nil
}

// App returns the container built for the running command.
func App() *container.Container {
	return app
}
