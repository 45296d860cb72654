package config

import "time"

type Config interface {
	EnvConfig
	HTTPConfig
	SecurityConfig
	MediaConfig
}

type EnvConfig interface {
	GetAppName() string
	GetAPIBaseURL() string
	GetWSBaseURL() string
	GetDataFolder() string
	GetCredentialsDB() string
	GetLogLevel() string
	GetEnv() string
}

type HTTPConfig interface {
	GetRequestTimeout() time.Duration
	GetDialTimeout() time.Duration
	GetLogoutTimeout() time.Duration
}

type MediaConfig interface {
	GetCloudinaryCloudName() string
	GetCloudinaryUploadPreset() string
}

type mainConfig struct {
	EnvVars
	HTTP
	Security
	Media
}

func New() Config {
	return mainConfig{}
}
