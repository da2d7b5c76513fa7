package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Backup   BackupConfig
	Log      LogConfig
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Port int
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Path string
}

// BackupConfig holds the automatic backup configuration
type BackupConfig struct {
	Dir           string
	MaxBackups    int
	IntervalHours int
	Schedule      string // cron expression for the auto-backup check
}

// LogConfig holds the logging configuration
type LogConfig struct {
	File string // optional log file, console only when empty
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	// journal mode stays at the default so a plain file copy is a valid backup
	return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", c.Path)
}

// LoadConfig loads the configuration from environment variables.
// A .env file in the working directory is read first but never
// overrides variables already set in the environment.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "ibvrd.db"),
		},
		Backup: BackupConfig{
			Dir:           getEnv("BACKUP_DIR", "backups"),
			MaxBackups:    getEnvAsInt("MAX_BACKUPS", 10),
			IntervalHours: getEnvAsInt("BACKUP_INTERVAL_HOURS", 24),
			Schedule:      getEnv("BACKUP_SCHEDULE", "@hourly"),
		},
		Log: LogConfig{
			File: getEnv("LOG_FILE", ""),
		},
	}
}

// Helper functions to read environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
