package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studentos/studentos/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the configuration file without starting the server.
Checks TOML syntax, required fields, and provider settings.`,
	RunE: runConfigValidate,
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigValidate(_ *cobra.Command, _ []string) error {
	configPath := cfgFile
	if configPath == "" {
		configPath = findConfigFile()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("✗ Config validation failed: %s\n", err)
		return err
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("✗ Config validation failed: %s\n", err)
		return err
	}

	if !cfg.AI.IsConfigured() {
		fmt.Println("! ai.api_key is not set; AI endpoints will report the service as unavailable")
	}
	if !cfg.Auth.IsEnabled() {
		fmt.Println("! auth.jwt_secret is not set; all requests will be anonymous")
	}

	fmt.Printf("✓ %s is valid\n", configPath)

	return nil
}
