package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	appNameVar       = "APP_NAME"
	apiBaseURLVar    = "API_BASE_URL"
	wsBaseURLVar     = "WS_BASE_URL"
	folderEnvVar     = "DATA_FOLDER"
	credentialsDBVar = "CREDENTIALS_DB"
	logLevelVar      = "LOG_LEVEL"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Marketplace")
}

// GetAPIBaseURL returns the REST base URL without a trailing slash (e.g. "http://localhost:8000/api").
func (EnvVars) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv(apiBaseURLVar, "http://localhost:8000/api"), "/")
}

// GetWSBaseURL returns the push channel base URL without a trailing slash.
func (EnvVars) GetWSBaseURL() string {
	return strings.TrimRight(GetEnv(wsBaseURLVar, "ws://localhost:8000"), "/")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

func (e EnvVars) GetCredentialsDB() string {
	return GetEnv(credentialsDBVar, filepath.Join(e.GetDataFolder(), "credentials.db"))
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvDuration parses a Go duration ("15s", "2m"); bad or missing values fall back to the default.
func GetEnvDuration(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
