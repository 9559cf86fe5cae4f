package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-bridge/internal/config"
	"github.com/jrsteele09/go-auth-bridge/store"
	"github.com/jrsteele09/go-auth-bridge/store/memorystore"
	"github.com/jrsteele09/go-auth-bridge/store/redisstore"
	"github.com/jrsteele09/go-auth-bridge/store/sqlitestore"
)

const (
	storeConnectInitialInterval = 250 * time.Millisecond
	storeConnectMaxInterval     = 5 * time.Second
	storeConnectMaxElapsed      = 30 * time.Second
)

func openStore(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.GetStoreType() {
	case config.StoreTypeMemory:
		return memorystore.New(), nil
	case config.StoreTypeRedis:
		return redisstore.New(cfg.GetRedisConfig()), nil
	case config.StoreTypeSQLite:
		st, err := sqlitestore.Open(cfg.GetSQLitePath())
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.GetStoreType())
	}
}

// waitForStore pings st until it answers. Only used at start up.
func waitForStore(ctx context.Context, st store.Store) error {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = storeConnectInitialInterval
	expBackoff.MaxInterval = storeConnectMaxInterval
	expBackoff.Reset()

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, st.Ping(ctx)
	},
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxElapsedTime(storeConnectMaxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).Dur("retry_in", next).Msg("store not reachable yet")
		}),
	)
	return err
}
