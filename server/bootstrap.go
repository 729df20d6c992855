package server

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/go-monologue/internal/config"
	"github.com/jrsteele09/go-monologue/localstore"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// janitorInterval is how often stale sqlite scopes are swept
const janitorInterval = time.Hour

// BootstrapStorage opens the browser storage selected by STORE_DRIVER and
// seals it when a STORE_SECRET is configured. The returned close func must
// be called on shutdown.
func BootstrapStorage(ctx context.Context, cfg config.StorageConfig) (localstore.Repo, func() error, error) {
	var (
		repo    localstore.Repo
		closeFn = func() error { return nil }
	)

	switch driver := cfg.GetStoreDriver(); driver {
	case config.StoreDriverMemory:
		log.Info().Msg("🗂️  Browser storage: in memory (lost on restart)")
		repo = localstore.NewInMemoryRepo()

	case config.StoreDriverSQLite:
		sqliteRepo, err := localstore.NewSQLiteRepo(cfg.GetSQLitePath())
		if err != nil {
			return nil, nil, fmt.Errorf("[BootstrapStorage] open sqlite: %w", err)
		}
		log.Info().Str("path", cfg.GetSQLitePath()).Msg("🗂️  Browser storage: sqlite")
		stopJanitor := startStorageJanitor(ctx, sqliteRepo, cfg.GetBrowserStorageMaxAge())
		repo = sqliteRepo
		closeFn = func() error {
			stopJanitor()
			return sqliteRepo.Close()
		}

	case config.StoreDriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
			DB:       cfg.GetRedisDB(),
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("[BootstrapStorage] ping redis %s: %w", cfg.GetRedisAddr(), err)
		}
		log.Info().Str("addr", cfg.GetRedisAddr()).Msg("🗂️  Browser storage: redis")
		repo = localstore.NewRedisRepo(client, "", cfg.GetBrowserStorageMaxAge())
		closeFn = client.Close

	default:
		return nil, nil, fmt.Errorf("[BootstrapStorage] unknown store driver %q", driver)
	}

	if secret := cfg.GetStoreSecret(); secret != "" {
		sealed, err := localstore.NewSealedRepo(repo, secret)
		if err != nil {
			_ = closeFn()
			return nil, nil, fmt.Errorf("[BootstrapStorage] seal storage: %w", err)
		}
		log.Info().Msg("🔐 Stored tokens are encrypted at rest")
		repo = sealed
	} else {
		log.Warn().Msg("STORE_SECRET is not set, tokens are stored in plain text")
	}

	return repo, closeFn, nil
}

type staleSweeper interface {
	DeleteStale(ctx context.Context, maxAge time.Duration) (int64, error)
}

// startStorageJanitor runs the janitor in the background. The returned func
// cancels it and waits for an in-flight sweep to return.
func startStorageJanitor(ctx context.Context, repo staleSweeper, maxAge time.Duration) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		runStorageJanitor(ctx, repo, maxAge)
	}()
	return func() {
		cancel()
		<-done
	}
}

// runStorageJanitor removes scopes nobody has touched for maxAge until ctx is done.
func runStorageJanitor(ctx context.Context, repo staleSweeper, maxAge time.Duration) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		sweepStale(ctx, repo, maxAge)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sweepStale(ctx context.Context, repo staleSweeper, maxAge time.Duration) {
	removed, err := repo.DeleteStale(ctx, maxAge)
	if err != nil {
		if ctx.Err() == nil {
			log.Err(err).Msg("Failed to sweep stale browser storage")
		}
		return
	}
	if removed > 0 {
		log.Info().Int64("removed", removed).Msg("Swept stale browser storage")
	}
}
