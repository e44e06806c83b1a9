package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/remiges-tech/phonecomplete/internal/config"
	"github.com/remiges-tech/phonecomplete/internal/rpc"
)

var (
	configPath string
	logLevel   string
	network    string
	addr       string
)

var rootCmd = &cobra.Command{
	Use:           "phonecomplete",
	Short:         "Fuzzy phone number completion over order records",
	Long:          "Builds an in-memory index of canonical phone numbers from an order store and serves ranked completions for partially typed numbers.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level")
	rootCmd.PersistentFlags().StringVar(&network, "network", "", "override server.network (unix or tcp)")
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "", "override server.addr")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(normalizeCmd)
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (config.File, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if network != "" {
		cfg.Server.Network = network
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	return cfg, cfg.Validate()
}

// newLogger returns the configured logger, writing to stderr.
func newLogger(cfg config.File) (*logrus.Logger, error) {
	return cfg.Logger(os.Stderr)
}

// newClient returns an rpc client for the configured daemon.
func newClient() (*rpc.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return rpc.NewClient(cfg.Server.Network, cfg.Server.Addr), nil
}
