package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fapagri/console/internal/api"
	"github.com/fapagri/console/internal/config"
	"github.com/fapagri/console/internal/db"
	"github.com/fapagri/console/internal/session"
)

// cliBrowser is the storage scope terminal commands share, so a login
// survives between invocations.
const cliBrowser = "cli"

// app carries what PersistentPreRunE resolves for every command.
type app struct {
	configPath string
	verbose    bool
	apiURL     string
	dataDir    string

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "console",
		Short: "FAP Agri plantation console",
		Long: `console serves the FAP Agri plantation console: a web interface for
plantations, employees and harvest records backed by the plantation API.

Run without a subcommand to start the web server. The other commands use the
same API and keep their own sign-in between invocations.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("api-url") {
				cfg.APIURL = a.apiURL
			}
			if cmd.Flags().Changed("data-dir") {
				cfg.DataDir = a.dataDir
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			a.cfg = cfg

			zc := zap.NewProductionConfig()
			if a.verbose {
				zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			a.logger, err = zc.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "Plantation API base URL (or FAPAGRI_API_URL)")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "Directory for the console database (or FAPAGRI_DATA_DIR)")

	serve := newServeCmd(a)
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve)
	root.AddCommand(newLoginCmd(a), newLogoutCmd(a), newWhoamiCmd(a))
	root.AddCommand(newStatsCmd(a), newPlantationsCmd(a), newHarvestsCmd(a))
	return root
}

func (a *app) client() (*api.Client, error) {
	return api.New(a.cfg.APIURL,
		api.WithLogger(a.logger),
		api.WithTimeout(a.cfg.APITimeout))
}

// openSession opens the console database and the terminal's session in it.
// The caller closes the returned store.
func (a *app) openSession() (*session.Session, *db.Store, error) {
	store, err := db.Open(a.cfg.DataDir, a.logger)
	if err != nil {
		return nil, nil, err
	}
	client, err := a.client()
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return session.New(store.Scope(cliBrowser), client, a.logger), store, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
