package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"siramm-project/web-service/config"
	"siramm-project/web-service/repositories"
)

var Version = "dev"

// NewRootCmd builds the siramm command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "siramm",
		Short:         "SIRAMM task service and command line client",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("env", ".env", "Environment file to load")
	rootCmd.PersistentFlags().String("api-url", "", "Remote API base URL (overrides API_URL)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(tasksCmd())

	return rootCmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env")
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if apiURL, _ := cmd.Flags().GetString("api-url"); apiURL != "" {
		cfg.APIURL = apiURL
	}
	return cfg, nil
}

func newRemote(cfg config.Config) *repositories.Remote {
	breaker := repositories.NewBreaker("RemoteStoreCB", cfg.BreakerTimeout, cfg.BreakerMaxFailures)
	return repositories.NewRemote(cfg.APIURL, repositories.NewHTTPClient(), breaker)
}

func taskOptions(cfg config.Config) []repositories.TaskOption {
	return []repositories.TaskOption{
		repositories.WithKnownScopes(cfg.KnownScopes),
		repositories.WithProjectTasksTimeout(cfg.ProjectTasksTimeout),
	}
}
