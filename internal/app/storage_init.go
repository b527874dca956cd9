package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

// runtimeDependencies — набор хранилищ, выбранный по конфигурации.
type runtimeDependencies struct {
	products    domain.ProductRepository
	orders      domain.OrderRepository
	reviews     domain.ReviewRepository
	outbox      domain.OutboxRepository
	timeline    domain.TimelineRepository
	idempotency domain.IdempotencyRepository

	// closeStorage освобождает ресурсы хранилища; для memory — no-op.
	closeStorage func()
}

// initRuntimeDependencies создаёт хранилища согласно cfg.StorageDriver.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.StorageDriver {
	case StorageDriverMemory:
		store := memory.NewStore()
		logger.Info("using in-memory storage")
		return &runtimeDependencies{
			products:     memory.NewProductRepository(store),
			orders:       memory.NewOrderRepository(store),
			reviews:      memory.NewReviewRepository(store),
			outbox:       memory.NewOutboxRepository(),
			timeline:     memory.NewTimelineRepository(),
			idempotency:  memory.NewIdempotencyRepository(),
			closeStorage: func() {},
		}, nil

	case StorageDriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply postgres migrations: %w", err)
			}
		}
		logger.Info("using postgres storage")
		return &runtimeDependencies{
			products:    postgres.NewProductRepository(store),
			orders:      postgres.NewOrderRepository(store),
			reviews:     postgres.NewReviewRepository(store),
			outbox:      postgres.NewOutboxRepository(store),
			timeline:    postgres.NewTimelineRepository(store),
			idempotency: postgres.NewIdempotencyRepository(store),
			closeStorage: func() {
				if err := store.Close(); err != nil {
					logger.WithError(err).Warn("failed to close postgres store")
				}
			},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
