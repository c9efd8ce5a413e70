package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	eduAuth "github.com/MrEthical07/eduAuth"
	"github.com/MrEthical07/eduAuth/directory/gormstore"
	"github.com/MrEthical07/eduAuth/directory/memstore"
	"github.com/MrEthical07/eduAuth/directory/mongostore"
	"github.com/MrEthical07/eduAuth/internal/config"
)

// openDirectory returns the principal store selected by STORE_DRIVER and a
// func that releases it.
func openDirectory(ctx context.Context, cfg *config.Config, logger *zap.Logger) (eduAuth.Directory, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory principal store; data is lost on restart")
		return memstore.New(), func() {}, nil

	case config.DriverSQLite:
		store, err := gormstore.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		return store, func() { _ = store.Close() }, nil

	case config.DriverMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		client, err := mongostore.Connect(connectCtx, cfg.Store.MongoURI)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		release := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(disconnectCtx)
		}

		store := mongostore.New(client.Database(cfg.Store.MongoDatabase))
		if err := store.EnsureIndexes(connectCtx); err != nil {
			release()
			return nil, nil, fmt.Errorf("mongo indexes: %w", err)
		}
		return store, release, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
