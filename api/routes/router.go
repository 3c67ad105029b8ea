package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/floorops-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/floorops-backend/api/controllers/orders"
	realtimecontrollers "github.com/angelmondragon/floorops-backend/api/controllers/realtime"
	"github.com/angelmondragon/floorops-backend/api/middleware"
	"github.com/angelmondragon/floorops-backend/internal/orders"
	"github.com/angelmondragon/floorops-backend/pkg/config"
	"github.com/angelmondragon/floorops-backend/pkg/enums"
	"github.com/angelmondragon/floorops-backend/pkg/logger"
	"github.com/angelmondragon/floorops-backend/pkg/metrics"
	"github.com/angelmondragon/floorops-backend/pkg/redis"
)

// Params wires the HTTP surface. Idempotency and RateLimiter are optional.
type Params struct {
	Config      *config.Config
	Logger      *logger.Logger
	Readiness   map[string]controllers.Pinger
	Orders      orders.Service
	Realtime    realtimecontrollers.Subscriber
	Idempotency redis.IdempotencyStore
	RateLimiter redis.RateLimiter
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
}

var (
	orderWriters   = []enums.ActorRole{enums.ActorRoleManager, enums.ActorRoleServer, enums.ActorRoleExpo, enums.ActorRoleKiosk, enums.ActorRoleSystem}
	statusChangers = []enums.ActorRole{enums.ActorRoleManager, enums.ActorRoleServer, enums.ActorRoleKitchen, enums.ActorRoleExpo, enums.ActorRoleSystem}
	firers         = []enums.ActorRole{enums.ActorRoleManager, enums.ActorRoleServer, enums.ActorRoleExpo, enums.ActorRoleSystem}
)

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, p.HTTPMetrics),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.Readiness, logg))
	})

	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.WriteRateLimit(cfg.RateLimit, p.RateLimiter, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Use(middleware.Idempotency(p.Idempotency, cfg.Orders.IdempotencyTTL, logg))

			r.Get("/", ordercontrollers.List(p.Orders, logg))
			r.Get("/active", ordercontrollers.Active(p.Orders, logg))
			r.With(middleware.RequireRoles(logg, orderWriters...)).Post("/", ordercontrollers.Create(p.Orders, logg))

			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(p.Orders, logg))
				r.Get("/history", ordercontrollers.History(p.Orders, logg))
				r.With(middleware.RequireRoles(logg, statusChangers...)).Patch("/status", ordercontrollers.UpdateStatus(p.Orders, logg))
				r.With(middleware.RequireRoles(logg, firers...)).Post("/fire", ordercontrollers.Fire(p.Orders, logg))
			})
		})

		r.Get("/realtime/orders", realtimecontrollers.Stream(p.Realtime, cfg.Realtime.KeepAlive, logg))
	})

	return r
}
