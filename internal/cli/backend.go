package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/muhammadjehanzaib/sultan-store/internal/config"
	"github.com/muhammadjehanzaib/sultan-store/internal/repository/postgres"
	"github.com/muhammadjehanzaib/sultan-store/internal/service"
	"github.com/muhammadjehanzaib/sultan-store/migrations"
	"github.com/muhammadjehanzaib/sultan-store/pkg/database"
)

// postgresBackend runs commands directly against the service database.
// It does not publish events.
type postgresBackend struct {
	*service.InventoryService
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// ConnectPostgres returns a Connector configured from the same environment
// variables as the server.
func ConnectPostgres(logger *slog.Logger) Connector {
	return func(ctx context.Context) (Backend, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if cfg.SlowQueryThresholdMs > 0 {
			database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
		}

		svc := service.NewInventoryService(postgres.NewStore(pool), nil, logger, service.Options{
			Policy:           cfg.Policy(),
			DefaultThreshold: cfg.DefaultThreshold,
			HistoryLimit:     cfg.HistoryLimit,
			SyncRate:         cfg.ReconcileRatePerSecond,
		})
		return &postgresBackend{InventoryService: svc, pool: pool, logger: logger}, nil
	}
}

func (b *postgresBackend) Migrate(ctx context.Context) error {
	return database.RunMigrations(ctx, b.pool, migrations.FS, b.logger)
}

func (b *postgresBackend) MigrationFiles() ([]string, error) {
	return database.PendingMigrations(migrations.FS)
}

func (b *postgresBackend) Close() {
	b.pool.Close()
}
