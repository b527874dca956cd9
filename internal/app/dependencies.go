package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/service/intake"
	"github.com/vladislavdragonenkov/storefront/internal/service/rating"
	"github.com/vladislavdragonenkov/storefront/internal/service/review"
	"github.com/vladislavdragonenkov/storefront/internal/service/status"
	"github.com/vladislavdragonenkov/storefront/internal/transport/httpapi"
)

// services — прикладной слой витрины, собранный поверх хранилищ.
type services struct {
	intake  *intake.Service
	status  *status.Service
	reviews *review.Service
}

// buildServices собирает сервисы оформления, статусов и отзывов.
// При наличии Kafka producer события дублируются напрямую в брокер.
func buildServices(deps *runtimeDependencies, producer *kafka.Producer, logger *log.Entry) services {
	updater := rating.NewUpdater(deps.products, logger.WithField("component", "rating-updater"))

	if producer != nil {
		return services{
			intake:  intake.NewServiceWithKafka(deps.orders, deps.products, deps.outbox, deps.timeline, producer, logger.WithField("component", "intake")),
			status:  status.NewServiceWithKafka(deps.orders, deps.outbox, deps.timeline, producer, logger.WithField("component", "order-status")),
			reviews: review.NewServiceWithKafka(deps.reviews, updater, producer, logger.WithField("component", "review")),
		}
	}

	return services{
		intake:  intake.NewService(deps.orders, deps.products, deps.outbox, deps.timeline, logger.WithField("component", "intake")),
		status:  status.NewService(deps.orders, deps.outbox, deps.timeline, logger.WithField("component", "order-status")),
		reviews: review.NewService(deps.reviews, updater, logger.WithField("component", "review")),
	}
}

// apiDependencies переводит собранные сервисы в зависимости HTTP-слоя.
func apiDependencies(deps *runtimeDependencies, svc services, logger *log.Entry) httpapi.Dependencies {
	return httpapi.Dependencies{
		Intake:      svc.intake,
		Status:      svc.status,
		Reviews:     svc.reviews,
		Orders:      deps.orders,
		Timeline:    deps.timeline,
		Idempotency: deps.idempotency,
		Logger:      logger.WithField("component", "httpapi"),
	}
}
