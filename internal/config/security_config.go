package config

import "time"

type SecurityConfig interface {
	GetMaxUploadBytes() int64
	GetFlashTimeout() time.Duration
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetMaxUploadBytes() int64 {
	return int64(GetEnvInt("MAX_UPLOAD_BYTES", 10<<20)) // 10 MiB
}

// GetFlashTimeout is how long success messages stay on screen
func (Security) GetFlashTimeout() time.Duration {
	return GetEnvDuration("FLASH_TIMEOUT", 3*time.Second)
}
