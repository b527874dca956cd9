package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/intake"
	"github.com/vladislavdragonenkov/storefront/internal/service/review"
	"github.com/vladislavdragonenkov/storefront/internal/service/status"
)

// Dependencies перечисляет сервисы и хранилища, нужные HTTP-слою.
// Idempotency может быть nil — тогда заголовок Idempotency-Key игнорируется.
type Dependencies struct {
	Intake  *intake.Service
	Status  *status.Service
	Reviews *review.Service

	Orders      domain.OrderRepository
	Timeline    domain.TimelineRepository
	Idempotency domain.IdempotencyRepository

	Logger *log.Entry
}

// NewRouter собирает маршруты REST API витрины.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = log.New().WithField("component", "httpapi")
	}

	h := &handlers{
		intake:      deps.Intake,
		status:      deps.Status,
		reviews:     deps.Reviews,
		orders:      deps.Orders,
		timeline:    deps.Timeline,
		idempotency: deps.Idempotency,
		logger:      logger,
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Recoverer)
	router.Use(chimw.Timeout(60 * time.Second))

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Use(requireUser)
			r.Post("/", h.placeOrder)
			r.Get("/", h.listUserOrders)
			r.Get("/user", h.listUserOrders)
			r.Get("/{ref}", h.getOrder)
		})

		r.Route("/admin/orders", func(r chi.Router) {
			r.Use(requireUser, requireAdmin)
			r.Get("/{ref}", h.adminGetOrder)
			r.Put("/{ref}/status", h.adminUpdateStatus)
		})

		r.Route("/reviews", func(r chi.Router) {
			// Витринные агрегаты и список отзывов открыты без авторизации.
			r.Get("/product/{id}", h.listProductReviews)
			r.Get("/product/{id}/stats", h.productReviewStats)

			r.Group(func(r chi.Router) {
				r.Use(requireUser)
				r.Post("/", h.createReview)
				r.Post("/check-eligibility", h.checkEligibility)
				r.Put("/{id}", h.updateReview)
				r.Delete("/{id}", h.deleteReview)
			})
		})
	})

	return router
}
