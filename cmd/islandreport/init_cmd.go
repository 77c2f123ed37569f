package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hakim/islandreport/internal/config"
	"github.com/hakim/islandreport/internal/storage"
	"github.com/spf13/cobra"
)

var (
	initForce bool
	initDir   string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize islandreport with default configuration",
	Long: `Creates a default configuration file (islandreport.yaml), the report
directory, and the database that stores report history.

Edit the island section afterwards to point at your Island and supply either a
token or a username and password.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := filepath.Join(initDir, "islandreport.yaml")

		// Check if config already exists
		if _, err := os.Stat(configPath); err == nil && !initForce {
			return fmt.Errorf("config file already exists at %s. Use --force to overwrite", configPath)
		}

		if err := config.WriteDefault(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		fmt.Printf("Created %s with default configuration\n", configPath)

		defaults := config.DefaultConfig()
		reportDir := filepath.Join(initDir, defaults.ReportDir)
		if err := storage.EnsureDir(reportDir); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
		fmt.Printf("Created report directory: %s\n", reportDir)

		dbPath := filepath.Join(initDir, defaults.DBPath)
		store, err := storage.NewStore(dbPath)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer store.Close()
		fmt.Printf("Initialized database: %s\n", dbPath)

		fmt.Println()
		fmt.Println("IslandReport initialized successfully!")
		fmt.Println("Set island.url and island.token (or username/password), then run 'islandreport generate'.")

		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing config file")
	initCmd.Flags().StringVar(&initDir, "dir", ".", "output directory")
	rootCmd.AddCommand(initCmd)
}
