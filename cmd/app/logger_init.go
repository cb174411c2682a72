package main

import (
	"github.com/viaacode/teamleader2db/internal/config"
	"github.com/viaacode/teamleader2db/internal/logger"
)

// initLogger initializes the logger using centralized app configuration
func initLogger(cfg *config.Config) {
	logger.InitLogger(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
}
