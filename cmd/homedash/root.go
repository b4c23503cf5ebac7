package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/nerrad567/homedash/internal/infrastructure/config"
	"github.com/nerrad567/homedash/internal/infrastructure/logging"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

var flagConfig string

var rootCmd = &cobra.Command{
	Use:   "homedash",
	Short: "Per-user smart home dashboard server",
	Long: `homedash keeps a state document for every user, refreshes light and
climate telemetry into it, and serves the composed dashboard over HTTP and
WebSocket. Running without a subcommand is the same as "homedash serve".`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (env: HOMEDASH_CONFIG, default: "+defaultConfigPath+")")
}

// execute runs the root command with ctx as the command context.
func execute(ctx context.Context) error {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("homedash %s (commit %s, built %s)\n", version, commit, date))
	return rootCmd.ExecuteContext(ctx)
}

// getConfigPath returns the configuration file path.
// The --config flag wins over HOMEDASH_CONFIG, which wins over the default.
func getConfigPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	if path := os.Getenv("HOMEDASH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadConfig reads the configuration and builds the configured logger.
// A missing file at the default path falls back to built-in defaults; an
// explicitly named file must exist.
func loadConfig() (*config.Config, *logging.Logger, error) {
	log := logging.Default()

	path := getConfigPath()
	cfg, err := config.Load(path)
	switch {
	case err == nil:
		log.Info("configuration loaded", "path", path)
	case path == defaultConfigPath && errors.Is(err, fs.ErrNotExist):
		log.Warn("no configuration file, using defaults", "path", path)
		cfg = config.Default()
		if verr := cfg.Validate(); verr != nil {
			return nil, nil, fmt.Errorf("validating default config: %w", verr)
		}
	default:
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	return cfg, log, nil
}
