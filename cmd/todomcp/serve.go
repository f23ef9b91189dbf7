package main

import (
	"fmt"

	"github.com/existflow/todomcp/internal/config"
	"github.com/existflow/todomcp/internal/logger"
	"github.com/existflow/todomcp/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the todo server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		logCfg := logger.DefaultConfig()
		logCfg.Level = logger.ParseLevel(cfg.LogLevel)
		logCfg.FilePath = cfg.LogFile
		logCfg.Console = cfg.LogConsole
		if err := logger.Init(logCfg); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		srv, err := server.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}
		defer func() {
			if err := srv.Close(); err != nil {
				logger.Error("error closing server", logger.F("error", err))
			}
		}()

		logger.Info("server starting",
			logger.F("port", cfg.Port),
			logger.F("backend", cfg.Backend),
			logger.F("owner", cfg.Owner))
		fmt.Printf("%s %s listening on :%s (backend: %s)\n",
			server.ServerName, server.ServerVersion, cfg.Port, cfg.Backend)

		return srv.Start(":" + cfg.Port)
	},
}
