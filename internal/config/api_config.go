package config

import (
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-monologue/internal/errors"
)

const (
	apiBaseURLVar  = "API_BASE_URL"
	apiTimeoutVar  = "API_TIMEOUT"
	devAPIBaseURL  = "http://localhost:80"
	defaultTimeout = 15 * time.Second
)

type API struct{}

var _ APIConfig = API{}

// GetAPIBaseURL resolves the backend base URL for the current environment.
// An explicit API_BASE_URL always wins; DEV falls back to the local backend.
func (API) GetAPIBaseURL() (string, error) {
	return ResolveBaseURL(EnvVars{}.GetEnv(), GetEnv(apiBaseURLVar, ""))
}

func (API) GetAPITimeout() time.Duration {
	return GetEnvDuration(apiTimeoutVar, defaultTimeout)
}

// ResolveBaseURL picks the backend base URL for env, trimming any trailing slash
func ResolveBaseURL(env, explicit string) (string, error) {
	explicit = strings.TrimRight(strings.TrimSpace(explicit), "/")
	if explicit != "" {
		return explicit, nil
	}
	if env == devEnvironment {
		return devAPIBaseURL, nil
	}
	return "", apperrors.ErrMissingBaseURL
}
