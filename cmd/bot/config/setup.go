package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/stewardbot/steward/pkg/dataaccess"
	"github.com/stewardbot/steward/pkg/dataaccess/store"
	"github.com/stewardbot/steward/pkg/logging"
)

// Parse loads the application configuration from the environment. Missing
// required values are fatal.
func Parse(l *slog.Logger) {
	// A .env file is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err == nil {
		l.Debug("Loaded environment from .env file")
	}

	if envBT := os.Getenv(EnvBotToken); envBT != "" {
		l.Debug("Found bot token in environment", slog.String("key", EnvBotToken))
		BotToken = envBT
	}

	if envAppId := os.Getenv(EnvApplicationId); envAppId != "" {
		l.Debug("Found application ID in environment", slog.String("key", EnvApplicationId))
		ApplicationId = envAppId
	}

	if envDataDir := os.Getenv(EnvDataDir); envDataDir != "" {
		l.Debug("Found data directory in environment", slog.String("key", EnvDataDir))
		DataDir = envDataDir
	} else {
		// Default to ./data if not provided.
		DataDir = "data"
		l.Info("No data directory provided in environment, defaulting to ./data", slog.String("key", EnvDataDir))
	}

	if envMonitoringPort := os.Getenv(EnvMonitoringPort); envMonitoringPort != "" {
		l.Debug("Found monitoring port in environment", slog.String("key", EnvMonitoringPort))
		MonitoringPort = envMonitoringPort
	} else {
		// Default to 8080 if not provided.
		MonitoringPort = "8080"
		l.Info("No monitoring port provided in environment, defaulting to 8080", slog.String("key", EnvMonitoringPort))
	}

	if BotToken == "" || ApplicationId == "" {
		l.Error("Not all required environment variables have been provided", slog.String(logging.KeyError, "Incomplete configuration"))
		os.Exit(1)
	}

	l.Debug("All required environment variables have been provided")
	openStores(l)
}

// openStores opens the guild and ticket store files.
func openStores(l *slog.Logger) {
	guilds, err := store.Open(filepath.Join(DataDir, "guilds.json"))
	if err != nil {
		l.Error("Error opening guild store", slog.String(logging.KeyError, err.Error()))
		os.Exit(1)
	}
	dataaccess.Guilds = guilds

	tickets, err := store.Open(filepath.Join(DataDir, "tickets.json"))
	if err != nil {
		l.Error("Error opening ticket store", slog.String(logging.KeyError, err.Error()))
		os.Exit(1)
	}
	dataaccess.Tickets = tickets

	l.Debug("Store files opened", slog.String("dir", DataDir))
}
