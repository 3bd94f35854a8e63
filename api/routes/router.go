package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/serviplace/serviplace-backend/api/controllers"
	"github.com/serviplace/serviplace-backend/api/middleware"
	"github.com/serviplace/serviplace-backend/internal/admin"
	"github.com/serviplace/serviplace-backend/internal/auth"
	"github.com/serviplace/serviplace-backend/internal/dispatch"
	"github.com/serviplace/serviplace-backend/internal/negotiation"
	"github.com/serviplace/serviplace-backend/internal/orders"
	"github.com/serviplace/serviplace-backend/internal/pricing"
	"github.com/serviplace/serviplace-backend/internal/ratings"
	"github.com/serviplace/serviplace-backend/internal/realtime"
	"github.com/serviplace/serviplace-backend/pkg/auth/session"
	"github.com/serviplace/serviplace-backend/pkg/config"
	"github.com/serviplace/serviplace-backend/pkg/db"
	"github.com/serviplace/serviplace-backend/pkg/logger"
	"github.com/serviplace/serviplace-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Deps bundles everything the router needs. Optional fields may be nil; the
// affected endpoints then answer with an internal error instead of panicking.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      db.Pinger
	Redis   *redis.Client
	Session sessionManager

	AuthService        auth.Service
	OrdersService      orders.Service
	NegotiationService negotiation.Service
	RatingsService     ratings.Service
	AdminService       admin.Service
	DispatchService    *dispatch.Service
	PricingOracle      pricing.Oracle

	Hub             *realtime.Hub
	RealtimeHandler *realtime.Handler

	MetricsRegistry *prometheus.Registry
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	// A nil *redis.Client must not leak into the middleware as a non-nil
	// interface value.
	idempotency := middleware.Idempotency(nil, logg)
	rateLimit := middleware.RateLimit(cfg.RateLimit, nil, logg)
	loginThrottle := func(next http.Handler) http.Handler { return next }
	registerThrottle := loginThrottle

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	if deps.Redis != nil {
		idempotency = middleware.Idempotency(deps.Redis, logg)
		rateLimit = middleware.RateLimit(cfg.RateLimit, deps.Redis, logg)
		loginPolicy := middleware.NewAuthRateLimitPolicy(
			"login",
			cfg.AuthRateLimit.LoginWindow,
			cfg.AuthRateLimit.LoginIPLimit,
			cfg.AuthRateLimit.LoginEmailLimit,
		)
		registerPolicy := middleware.NewAuthRateLimitPolicy(
			"register",
			cfg.AuthRateLimit.RegisterWindow,
			cfg.AuthRateLimit.RegisterIPLimit,
			cfg.AuthRateLimit.RegisterEmailLimit,
		)
		loginThrottle = middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)
		registerThrottle = middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)
	}

	var cachePinger redis.Pinger
	if deps.Redis != nil {
		cachePinger = deps.Redis
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, cachePinger))
	})

	if deps.MetricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsRegistry, promhttp.HandlerOpts{}))
	}

	if deps.Hub != nil && deps.RealtimeHandler != nil {
		r.Get("/ws", realtime.ServeWS(deps.Hub, deps.RealtimeHandler, cfg.Realtime, cfg.JWT, logg))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(registerThrottle, idempotency).Post("/register", controllers.AuthRegister(deps.AuthService, logg))
		r.With(loginThrottle).Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(deps.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Session, logg))
		r.Use(rateLimit)
		r.Use(idempotency)

		r.Post("/pricing/estimate", controllers.PricingEstimate(deps.PricingOracle, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrdersCreate(deps.OrdersService, logg))
			r.Get("/", controllers.OrdersList(deps.OrdersService, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", controllers.OrdersGet(deps.OrdersService, logg))
				r.Post("/cancel", controllers.OrdersCancel(deps.OrdersService, logg))
				r.Patch("/status", controllers.OrdersUpdateStatus(deps.OrdersService, logg))
				r.Get("/poll", controllers.OrdersPoll(deps.NegotiationService, logg))

				r.Get("/messages", controllers.MessagesList(deps.NegotiationService, logg))
				r.Post("/messages", controllers.MessagesSend(deps.NegotiationService, logg))

				r.Get("/offers", controllers.OffersList(deps.NegotiationService, logg))
				r.Post("/offers", controllers.OffersCreate(deps.NegotiationService, logg))
				r.Post("/offers/{offerId}/accept", controllers.OffersAccept(deps.NegotiationService, logg))

				r.Post("/rating", controllers.RatingsCreate(deps.RatingsService, logg))
				r.Get("/rating", controllers.RatingsGet(deps.RatingsService, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Session, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Use(rateLimit)
		r.Use(idempotency)

		// A nil *dispatch.Service must stay an untyped nil so the
		// controller's guard catches it.
		var dispatcher controllers.Dispatcher
		if deps.DispatchService != nil {
			dispatcher = deps.DispatchService
		}

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Post("/status", controllers.AdminOverrideStatus(deps.AdminService, logg))
			r.Post("/price", controllers.AdminOverridePrice(deps.AdminService, logg))
			r.Post("/dispatch", controllers.AdminDispatchOrder(dispatcher, logg))
		})
		r.Post("/users/{userId}/active", controllers.AdminSetUserActive(deps.AdminService, logg))
	})

	return r
}
