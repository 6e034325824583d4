package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cipherpack/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		defaults, err := config.GetDefaults()
		if err != nil {
			return fmt.Errorf("getting defaults: %w", err)
		}
		if path == "" {
			path = defaults.ConfigPath
		}

		cfg := config.NewConfig(defaults.BaseDir)

		if err := config.Init(path, cfg); err != nil {
			return fmt.Errorf("initializing config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", path)
		fmt.Printf("Set package_magic before packing or unpacking anything.\n")
		return nil
	},
}
