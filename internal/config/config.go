package config

import "time"

type Config interface {
	EnvConfig
	APIConfig
	StorageConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	IsDev() bool
	GetLogLevel() string
	GetDataFolder() string
}

type APIConfig interface {
	GetAPIBaseURL() (string, error)
	GetAPITimeout() time.Duration
}

type StorageConfig interface {
	GetStoreDriver() string
	GetSQLitePath() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetStoreSecret() string
	GetBrowserStorageMaxAge() time.Duration
}

type mainConfig struct {
	EnvVars
	API
	Storage
	Security
}

func New() Config {
	return mainConfig{}
}
