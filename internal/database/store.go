package database

import (
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/trombinoscope-api/internal/config"
	"github.com/noah-isme/trombinoscope-api/internal/repository"
	"github.com/noah-isme/trombinoscope-api/pkg/airtable"
)

// OpenStore mounts the backend selected by cfg.StoreDriver. redisClient is
// only used by the document driver and may be nil otherwise.
func OpenStore(cfg config.Config, redisClient *redis.Client, logger zerolog.Logger) (repository.Store, error) {
	var (
		store repository.Store
		err   error
	)

	switch cfg.StoreDriver {
	case config.StoreDriverLocal:
		store, err = repository.OpenBoltStore(cfg.LocalStorePath)
	case config.StoreDriverSQL:
		store, err = openSQLStore(cfg.DatabaseURL)
	case config.StoreDriverAirtable:
		var client *airtable.Client
		client, err = airtable.New(airtable.Config{
			Token:   cfg.AirtableToken,
			BaseID:  cfg.AirtableBaseID,
			BaseURL: cfg.AirtableBaseURL,
			View:    cfg.AirtableView,
			Logger:  logger,
		})
		if err == nil {
			store = repository.NewAirtableStore(client)
		}
	case config.StoreDriverDocument:
		if redisClient == nil {
			return nil, fmt.Errorf("document store requires a redis client")
		}
		store = repository.NewDocumentStore(redisClient, cfg.RedisPrefix, logger)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.StoreDriver, err)
	}

	logger.Info().Str("component", "database").Str("store", store.Name()).Msg("store mounted")
	return repository.Instrument(store), nil
}

func openSQLStore(dsn string) (repository.Store, error) {
	connect := ConnectPostgres
	if strings.HasPrefix(dsn, "sqlite://") {
		dsn = strings.TrimPrefix(dsn, "sqlite://")
		connect = ConnectSQLite
	}

	db, err := connect(dsn)
	if err != nil {
		return nil, err
	}
	return repository.NewSQLStore(db)
}
