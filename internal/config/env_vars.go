package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	envVar         = "ENV"
	logLevelVar    = "LOG_LEVEL"
	folderEnvVar   = "DATA_FOLDER"
	devEnvironment = "DEV"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

// LoadEnv loads a .env file into the process environment. Variables already
// set in the environment win. It runs before logging is configured, so the
// caller decides how to report a missing file.
func LoadEnv(files ...string) error {
	return godotenv.Load(files...)
}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "3000")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Monologue")
}

func (EnvVars) GetEnv() string {
	return GetEnv(envVar, devEnvironment)
}

func (e EnvVars) IsDev() bool {
	return e.GetEnv() == devEnvironment
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvInt(envVar string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return value
}

func GetEnvDuration(envVar string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(envVar))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

func dataPath(name string) string {
	return filepath.Join(EnvVars{}.GetDataFolder(), name)
}
