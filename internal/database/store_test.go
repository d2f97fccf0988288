package database

import (
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trombinoscope-api/internal/config"
	"github.com/noah-isme/trombinoscope-api/internal/repository"
)

func TestOpenStoreSelectsBackend(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cases := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{"local", config.Config{StoreDriver: config.StoreDriverLocal, LocalStorePath: filepath.Join(t.TempDir(), "roster.db")}, "local"},
		{"sql", config.Config{StoreDriver: config.StoreDriverSQL, DatabaseURL: "sqlite://file:" + uuid.NewString() + "?mode=memory&cache=shared"}, "sql"},
		{"airtable", config.Config{StoreDriver: config.StoreDriverAirtable, AirtableToken: "tok", AirtableBaseID: "app"}, "airtable"},
		{"document", config.Config{StoreDriver: config.StoreDriverDocument, RedisPrefix: "t"}, "document"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, err := OpenStore(tc.cfg, redisClient, zerolog.Nop())
			require.NoError(t, err)
			defer store.Close()
			require.Equal(t, tc.want, store.Name())
			require.Equal(t, tc.want, repository.Unwrap(store).Name())
		})
	}
}

func TestOpenStoreRejectsMissingDependencies(t *testing.T) {
	_, err := OpenStore(config.Config{StoreDriver: config.StoreDriverDocument}, nil, zerolog.Nop())
	require.Error(t, err)

	_, err = OpenStore(config.Config{StoreDriver: "spreadsheet"}, nil, zerolog.Nop())
	require.Error(t, err)

	_, err = OpenStore(config.Config{StoreDriver: config.StoreDriverAirtable}, nil, zerolog.Nop())
	require.Error(t, err)
}

func TestConnectRequiresDSN(t *testing.T) {
	_, err := ConnectPostgres("")
	require.Error(t, err)
	_, err = ConnectSQLite("")
	require.Error(t, err)
	_, err = ConnectRedis("")
	require.Error(t, err)
	_, err = ConnectNATS("", "test", zerolog.Nop())
	require.Error(t, err)
}
