package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const defaultConfigTemplate = `# studentos configuration

[server]
listen = "127.0.0.1:8080"
# http2 = true
# max_body_bytes = 10485760
# shutdown_timeout = 30

[logging]
level = "info"
format = "console"   # json, pretty, console
output = "stdout"

[ai]
# API key for the upstream model provider. Env vars are expanded.
api_key = "${GEMINI_API_KEY}"
model = "gemini-1.5-flash"
# upstream_rpm = 60

[ai.breaker]
# failure_threshold = 5
# open_seconds = 30

[rate_limit]
ai_window_seconds = 60
ai_max_requests = 10
general_window_seconds = 60
general_max_requests = 100

[cache]
enabled = true

[auth]
# Empty secret disables authentication; all requests are anonymous.
jwt_secret = "${JWT_SECRET}"

[database]
path = "studentos.db"

[email]
provider = "console"   # console, sendgrid, resend
# api_key = "${EMAIL_API_KEY}"
# from = "noreply@studentos.example"
`

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default config file",
	Long:  `Generate a default studentos configuration file at ~/.config/studentos/config.toml`,
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().StringP("output", "o", "", "output path (default: ~/.config/studentos/config.toml)")
	configInitCmd.Flags().Bool("force", false, "overwrite existing config file")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return fmt.Errorf("failed to get force flag: %w", err)
	}

	if output == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		output = filepath.Join(home, ".config", "studentos", defaultConfigFile)
	}

	if _, err := os.Stat(output); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", output)
	}

	dir := filepath.Dir(output)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(output, []byte(defaultConfigTemplate), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("✓ Config file created at %s\n", output)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Set GEMINI_API_KEY and JWT_SECRET environment variables")
	fmt.Println("  2. Edit the config file to adjust limits and email delivery")
	fmt.Println("  3. Validate with: studentos config validate")
	fmt.Println("  4. Start the server: studentos serve")

	return nil
}
