package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hackgods/healthcare-scheduling/internal/appointment"
	"github.com/hackgods/healthcare-scheduling/internal/availability"
	"github.com/hackgods/healthcare-scheduling/internal/config"
	"github.com/hackgods/healthcare-scheduling/internal/db"
	"github.com/hackgods/healthcare-scheduling/internal/identity"
	"github.com/hackgods/healthcare-scheduling/internal/logging"
	"github.com/hackgods/healthcare-scheduling/internal/outbox"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "worker",
		Short: "Background jobs for the scheduling service",
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var (
		once          bool
		relayInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Prune past availability slots and relay appointment events to Kafka",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, pool, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			slots := availability.NewService(availability.NewPgRepository(pool), identity.NewPgRepository(pool), logger)

			var relay *outbox.Relay
			if len(cfg.KafkaBrokers) > 0 {
				relay = outbox.NewRelay(appointment.NewPgLedger(pool), outbox.NewKafkaWriter(cfg.KafkaBrokers), logger, outbox.Config{
					TopicPrefix: cfg.KafkaTopic,
					BatchSize:   cfg.OutboxBatchSize,
				})
			} else {
				logger.Warn().Msg("outbox relay disabled (no kafka brokers configured)")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Run once at startup
			runOnce(ctx, logger, slots, relay, cfg.SlotRetention)
			if once {
				return relay.Close()
			}

			go relay.Run(ctx, relayInterval)

			logger.Info().Dur("interval", cfg.WorkerInterval).Msg("worker running")

			ticker := time.NewTicker(cfg.WorkerInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					logger.Info().Msg("shutdown signal received, stopping worker")
					return nil
				case <-ticker.C:
					runOnce(ctx, logger, slots, nil, cfg.SlotRetention)
				}
			}
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run a single pass and exit")
	cmd.Flags().DurationVar(&relayInterval, "relay-interval", 2*time.Second, "how often the outbox relay polls")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, pool, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := db.Migrate(cmd.Context(), pool)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				logger.Info().Msg("schema up to date")
			}
			for _, m := range applied {
				logger.Info().Int("version", m.Version).Str("name", m.Name).Msg("migration applied")
			}
			return nil
		},
	}
}

func setup(ctx context.Context) (config.Config, zerolog.Logger, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, zerolog.Nop(), nil, fmt.Errorf("config load error: %w", err)
	}

	logger := logging.New("worker", cfg.Env, cfg.LogLevel)

	pgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 4})
	if err != nil {
		return config.Config{}, zerolog.Nop(), nil, fmt.Errorf("postgres connection error: %w", err)
	}
	logger.Info().Msg("connected to Postgres")

	return cfg, logger, pool, nil
}

// runOnce prunes slots older than the retention window and, when given a
// relay, flushes one batch of events.
func runOnce(ctx context.Context, logger zerolog.Logger, slots *availability.Service, relay *outbox.Relay, retention time.Duration) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	removed, err := slots.PrunePastSlots(runCtx, start.Add(-retention))
	if err != nil {
		logger.Error().Err(err).Msg("slot pruning failed")
	}

	published, err := relay.PublishBatch(runCtx)
	if err != nil {
		logger.Error().Err(err).Msg("outbox publish failed")
	}

	logger.Info().
		Int64("slots_pruned", removed).
		Int("events_published", published).
		Dur("took", time.Since(start)).
		Msg("worker pass complete")
}
