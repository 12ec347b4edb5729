package main

import (
	"os"

	"github.com/shenikar/road_clearing_system/internal/config"
	"github.com/shenikar/road_clearing_system/pkg/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "roadclearing",
	Short: "Road clearing request service for Cainta, Rizal",
	Long: `
roadclearing accepts resident reports of blocked roads, fills in missing
addresses or coordinates through Nominatim and lists the reports newest first.
Running it without a subcommand starts the HTTP server.
`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, geocodeCmd)
}

// loadRuntime загружает конфигурацию и создает логгер
func loadRuntime() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(cfg.LogLevel), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
