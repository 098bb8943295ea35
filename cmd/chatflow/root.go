package main

import (
	"os"

	"github.com/chatflow-dev/chatflow/config"
	"github.com/chatflow-dev/chatflow/constants"
	"github.com/chatflow-dev/chatflow/core"
	"github.com/chatflow-dev/chatflow/telemetry"
	"github.com/chatflow-dev/chatflow/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	exit       = os.Exit
	configPath string
	debug      bool
	strict     bool
	workspace  string
)

// NewRootCmd creates the root 'chatflow' command with persistent flags and subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "chatflow",
		Short:         "Flowchart workspace client and local backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "Path to chatflow config (JSON or YAML)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logs")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "reject malformed store updates")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace id (overrides config)")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		// Load environment variables from .env file, if present
		_ = godotenv.Load()
		if debug {
			utils.SetDebug(true)
		}
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newEndpointsCmd(),
		newLoadCmd(),
		newSaveCmd(),
		newChatCmd(),
		newDeleteChatCmd(),
		newWatchCmd(),
	)
	return rootCmd
}

// loadConfig reads the config file (defaults when it does not exist), then the
// environment, then the command line flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if strict {
		cfg.Store.Strict = true
	}
	if workspace != "" {
		cfg.Store.WorkspaceID = workspace
	}
	if !debug && os.Getenv(constants.EnvDebug) == "" {
		if err := utils.SetLevel(cfg.Log.Level); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newApp builds client sessions; tests swap it.
var newApp = core.NewApp

// fail logs an error, closes app and exits with code. os.Exit skips deferred calls,
// so the session is closed here.
func fail(app *core.App, code int, format string, v ...any) {
	utils.Error(format, v...)
	if app != nil {
		_ = app.Close()
	}
	exit(code)
}

// mustApp builds a client session or exits with code 2.
func mustApp() *core.App {
	cfg, err := loadConfig()
	if err != nil {
		utils.Error("Failed to load config: %v", err)
		exit(2)
	}
	if err := telemetry.Init(cfg); err != nil {
		utils.Warn("Tracing disabled: %v", err)
	}
	app, err := newApp(cfg)
	if err != nil {
		utils.Error("Failed to start session: %v", err)
		exit(2)
	}
	return app
}
