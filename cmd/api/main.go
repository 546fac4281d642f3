package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "knowledge-extractor",
	Short: "Summarize texts with an LLM and store the extracted metadata for search.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional
		_ = godotenv.Load()
		return nil
	},
	SilenceUsage: true,
}

func init() {
	// path config.yaml
	defaultPath := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultPath, "path to the YAML config file")

	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
