package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/encamino/encamino-backend/api/controllers"
	deliverycontrollers "github.com/encamino/encamino-backend/api/controllers/deliveries"
	ordercontrollers "github.com/encamino/encamino-backend/api/controllers/orders"
	paymentcontrollers "github.com/encamino/encamino-backend/api/controllers/payments"
	webhookcontrollers "github.com/encamino/encamino-backend/api/controllers/webhooks"
	"github.com/encamino/encamino-backend/api/middleware"
	"github.com/encamino/encamino-backend/internal/deliveries"
	"github.com/encamino/encamino-backend/internal/orders"
	"github.com/encamino/encamino-backend/internal/payments"
	"github.com/encamino/encamino-backend/pkg/config"
	"github.com/encamino/encamino-backend/pkg/culqi"
	"github.com/encamino/encamino-backend/pkg/db"
	"github.com/encamino/encamino-backend/pkg/enums"
	"github.com/encamino/encamino-backend/pkg/logger"
	"github.com/encamino/encamino-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	ordersSvc orders.Service,
	paymentsSvc payments.Service,
	deliveriesSvc deliveries.Service,
	culqiClient *culqi.Client,
	culqiWebhookSvc webhookcontrollers.CulqiWebhookService,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	var redisP redis.Pinger
	if redisClient != nil {
		redisP = redisClient
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/culqi", webhookcontrollers.CulqiWebhook(culqiWebhookSvc, culqiClient, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if redisClient != nil {
			r.Use(middleware.Idempotency(redisClient, logg))
		}

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(ordersSvc, logg))
			r.Get("/", ordercontrollers.List(ordersSvc, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(ordersSvc, logg))
			r.Get("/{orderId}/tracking", ordercontrollers.History(ordersSvc, logg))
			r.Post("/{orderId}/events", ordercontrollers.ApplyEvent(ordersSvc, logg))
			r.Put("/{orderId}/location", ordercontrollers.UpdateLocation(ordersSvc, logg))
			r.Post("/assign", deliverycontrollers.Assign(deliveriesSvc, logg))
		})
		r.Get("/tracking/{trackingNumber}", ordercontrollers.Tracking(ordersSvc, logg))

		r.Route("/payments", func(r chi.Router) {
			r.Post("/", paymentcontrollers.Initiate(paymentsSvc, logg))
			r.Get("/{paymentId}", paymentcontrollers.Detail(paymentsSvc, logg))
			r.Post("/{paymentId}/proof", paymentcontrollers.SubmitProof(paymentsSvc, logg))
			r.With(middleware.RequireRole(logg, enums.ActorRoleAdmin)).
				Post("/{paymentId}/review", paymentcontrollers.ReviewProof(paymentsSvc, logg))
			r.With(middleware.RequireRole(logg, enums.ActorRoleAdmin)).
				Post("/{paymentId}/refund", paymentcontrollers.Refund(paymentsSvc, logg))
		})

		r.Route("/deliveries", func(r chi.Router) {
			r.Post("/points", deliverycontrollers.RegisterPoint(deliveriesSvc, logg))
		})

		r.Route("/shippers", func(r chi.Router) {
			r.Post("/", deliverycontrollers.RegisterShipper(deliveriesSvc, logg))
			r.Post("/{shipperId}/location", deliverycontrollers.RecordLocation(deliveriesSvc, logg))
			r.Get("/{shipperId}/orders", deliverycontrollers.Orders(deliveriesSvc, logg))
			r.Put("/{shipperId}/availability", deliverycontrollers.SetAvailability(deliveriesSvc, logg))
		})
	})

	return r
}
