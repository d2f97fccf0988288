// Package cli implements rosterctl, the operator tool that seeds, resets,
// imports and exports a roster store without going through HTTP.
package cli

import (
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/noah-isme/trombinoscope-api/internal/config"
	"github.com/noah-isme/trombinoscope-api/internal/database"
	"github.com/noah-isme/trombinoscope-api/internal/repository"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string
	Driver    string
	StorePath string
}

// session is an opened store plus the clients it depends on.
type session struct {
	cfg    config.Config
	store  repository.Store
	redis  *redis.Client
	logger zerolog.Logger
}

func (s *session) Close() {
	_ = s.store.Close()
	if s.redis != nil {
		_ = s.redis.Close()
	}
}

// NewRootCommand creates the rosterctl root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rosterctl",
		Short: "Manage the trombinoscope roster store",
		Long:  "Seed, reset, import and export the trombinoscope roster directly against the configured store.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().StringVar(&opts.Driver, "store", "", "store driver override (local|sql|airtable|document)")
	cmd.PersistentFlags().StringVar(&opts.StorePath, "path", "", "local store file override")

	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))

	return cmd
}

func (o *RootOptions) open(errOut io.Writer) (*session, error) {
	cfg, err := config.Load()
	if err != nil && o.Driver == "" && o.StorePath == "" {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if o.Driver != "" {
		cfg.StoreDriver = o.Driver
	}
	if o.StorePath != "" {
		cfg.LocalStorePath = o.StorePath
		if o.Driver == "" {
			cfg.StoreDriver = config.StoreDriverLocal
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := zerolog.WarnLevel
	if o.Verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(errOut).Level(level).With().Timestamp().Str("service", "rosterctl").Logger()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
	}

	store, err := database.OpenStore(cfg, redisClient, logger)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, err
	}

	return &session{cfg: cfg, store: store, redis: redisClient, logger: logger}, nil
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
