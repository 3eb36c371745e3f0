// Package main is the entry point for studentos.
package main

import (
	"context"
	"os"

	"charm.land/fang/v2"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "config.toml"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "studentos",
	Short: "AI-assisted career backend for students",
	Long: `studentos serves the StudentOS backend: CV analysis, cover letters,
learning plans, plagiarism checks and presentation outlines backed by an AI
gateway, plus job, scholarship and notification listings.`,
}

func init() {
	// Global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file path (default: ./"+defaultConfigFile+" or ~/.config/studentos/"+defaultConfigFile+")")
}

func main() {
	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		os.Exit(1)
	}
}
