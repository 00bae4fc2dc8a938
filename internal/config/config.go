// internal/config/config.go
package config

import "os"

// Config holds process-level configuration. Runtime-tunable values
// (loan duration, email settings) live in the settings table instead.
type Config struct {
	DatabaseDSN  string
	Port         string
	BackupDir    string
	LogLevel     string
	OTLPEndpoint string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		DatabaseDSN:  getEnv("DATABASE_DSN", "library.db"),
		Port:         getEnv("PORT", "8080"),
		BackupDir:    getEnv("BACKUP_DIR", "backups"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		OTLPEndpoint: getEnv("OTLP_ENDPOINT", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
