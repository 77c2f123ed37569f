package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hakim/islandreport/internal/config"
	"github.com/hakim/islandreport/internal/island"
	"github.com/hakim/islandreport/internal/observability"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "islandreport",
	Short: "Security report generator for attack-simulation Islands",
	Long: `IslandReport assembles the security report of an attack-simulation Island
into a markdown document.

It fetches the Island's pre-aggregated security report together with the stolen
and configured credentials, the agent inventory and the machine inventory,
renders the overview, segmentation issues, recommendations and at-a-glance
statistics, and keeps a history of generated reports so runs can be compared.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it
		skipConfig := map[string]bool{
			"init":    true,
			"help":    true,
			"version": true,
		}

		if skipConfig[cmd.Name()] {
			observability.InitializeLogger(config.DefaultConfig().Logger)
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if errors.Is(err, config.ErrNotFound) {
			return fmt.Errorf("%w. Run 'islandreport init' to create one", err)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if verbose {
			cfg.Logger.Level = "debug"
		}
		observability.InitializeLogger(cfg.Logger)

		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default: search ./islandreport.yaml, ./configs, ~/.config/islandreport)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose output")

	rootCmd.Version = "0.1.0-dev"
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// newIslandClient builds an authenticated client from the loaded config,
// logging in with username and password when no token is configured.
func newIslandClient(ctx context.Context) (*island.Client, error) {
	timeout, err := cfg.Island.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	client, err := island.NewClient(cfg.Island.URL, island.Options{
		Token:              cfg.Island.Token,
		Timeout:            timeout,
		InsecureSkipVerify: cfg.Island.InsecureSkipVerify,
		Logger:             observability.GetLogger(),
	})
	if err != nil {
		return nil, err
	}

	if client.Token() == "" {
		password, err := islandPassword()
		if err != nil {
			return nil, err
		}
		observability.GetLogger().Debug("No token configured; logging in", zap.String("user", cfg.Island.Username))
		if err := client.Login(ctx, cfg.Island.Username, password); err != nil {
			return nil, fmt.Errorf("logging in to %s: %w", cfg.Island.URL, err)
		}
	}

	return client, nil
}

// islandPassword returns the configured password, prompting on the terminal
// when none is set.
func islandPassword() (string, error) {
	if cfg.Island.Password != "" {
		return cfg.Island.Password, nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("no island password configured (set island.password or ISLANDREPORT_ISLAND_PASSWORD)")
	}

	fmt.Fprintf(os.Stderr, "Password for %s: ", cfg.Island.Username)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if len(pass) == 0 {
		return "", errors.New("password is empty")
	}
	return string(pass), nil
}
