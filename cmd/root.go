// Package cmd implements the vendazap CLI.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/imovelware/vendazap/internal/config"
)

var configPath string

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vendazap",
		Short: "WhatsApp sale notifications for real-estate agencies",
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $VENDAZAP_CONFIG or ~/.vendazap/config.yaml)")
	cmd.AddCommand(serveCmd())
	cmd.AddCommand(waCmd())
	cmd.AddCommand(tenantCmd())
	return cmd
}

// Execute runs the CLI.
func Execute() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.ResolvePath()
}

func loadConfig() *config.Config {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %s\n", err)
		os.Exit(1)
	}
	return cfg
}
