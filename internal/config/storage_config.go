package config

import "time"

const (
	StoreDriverMemory = "memory"
	StoreDriverSQLite = "sqlite"
	StoreDriverRedis  = "redis"
)

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetStoreDriver() string {
	return GetEnv("STORE_DRIVER", StoreDriverMemory)
}

func (Storage) GetSQLitePath() string {
	return GetEnv("SQLITE_PATH", dataPath("monologue.db"))
}

func (Storage) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Storage) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Storage) GetRedisDB() int {
	return GetEnvInt("REDIS_DB", 0)
}

// GetStoreSecret enables sealing of stored values when non-empty
func (Storage) GetStoreSecret() string {
	return GetEnv("STORE_SECRET", "")
}

func (Storage) GetBrowserStorageMaxAge() time.Duration {
	return GetEnvDuration("BROWSER_STORAGE_MAX_AGE", 30*24*time.Hour)
}
