package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tappy-hq/tappy-backend/api/controllers"
	webhookcontrollers "github.com/tappy-hq/tappy-backend/api/controllers/webhooks"
	"github.com/tappy-hq/tappy-backend/api/middleware"
	authsvc "github.com/tappy-hq/tappy-backend/internal/auth"
	"github.com/tappy-hq/tappy-backend/internal/blog"
	"github.com/tappy-hq/tappy-backend/internal/metrics"
	"github.com/tappy-hq/tappy-backend/internal/payments"
	"github.com/tappy-hq/tappy-backend/internal/plans"
	"github.com/tappy-hq/tappy-backend/internal/platforms"
	"github.com/tappy-hq/tappy-backend/internal/settings"
	"github.com/tappy-hq/tappy-backend/internal/subscribers"
	"github.com/tappy-hq/tappy-backend/internal/users"
	"github.com/tappy-hq/tappy-backend/internal/webhooks/kirvano"
	"github.com/tappy-hq/tappy-backend/pkg/auth/session"
	"github.com/tappy-hq/tappy-backend/pkg/config"
	"github.com/tappy-hq/tappy-backend/pkg/db"
	"github.com/tappy-hq/tappy-backend/pkg/enums"
	"github.com/tappy-hq/tappy-backend/pkg/logger"
	"github.com/tappy-hq/tappy-backend/pkg/redis"
)

// Params carries everything the router wires into handlers.
type Params struct {
	Config *config.Config
	Logger *logger.Logger

	DBPinger    db.Pinger
	RedisClient *redis.Client

	Sessions *session.Manager

	AuthService       *authsvc.Service
	SubscriberService *subscribers.Service
	PlanService       *plans.Service
	PlatformService   *platforms.Service
	UserService       *users.Service
	BlogService       *blog.Service
	SettingsService   *settings.Service
	MetricsService    *metrics.Service
	PaymentService    *payments.Service

	KirvanoService  *kirvano.Service
	KirvanoVerifier *kirvano.Verifier
	KirvanoGuard    *kirvano.IdempotencyGuard
	DeadLetterRepo  kirvano.DeadLetterRepository

	PromRegistry *prometheus.Registry
}

// NewRouter assembles the full HTTP surface. The webhook endpoint sits
// outside the session gate; the marketing reads are public; everything else
// belongs to the authenticated dashboard.
func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	authed := middleware.Auth(cfg.JWT, p.Sessions, logg)
	adminOnly := middleware.RequireRole(logg, enums.UserRoleAdmin)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.DBPinger, p.RedisClient, logg))
	})

	if p.PromRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.PromRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/webhook", func(r chi.Router) {
		r.Post("/kirvano", webhookcontrollers.Kirvano(webhookcontrollers.KirvanoParams{
			Service:  p.KirvanoService,
			Verifier: p.KirvanoVerifier,
			Guard:    p.KirvanoGuard,
			Logger:   logg,
		}))
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, p.RedisClient, logg)).
			Post("/login", controllers.Login(p.AuthService, cfg.JWT, logg))

		r.Group(func(r chi.Router) {
			r.Use(authed)
			r.Post("/logout", controllers.Logout(p.AuthService, cfg.JWT, logg))
			r.Get("/me", controllers.Me(logg))
		})
	})

	r.Route("/api/assinantes", func(r chi.Router) {
		r.Use(authed)
		r.Get("/", controllers.SubscriberList(p.SubscriberService, logg))
		r.Post("/", controllers.SubscriberCreate(p.SubscriberService, logg))
		r.Get("/{id}", controllers.SubscriberGet(p.SubscriberService, logg))
		r.Put("/{id}", controllers.SubscriberUpdate(p.SubscriberService, logg))
		r.Delete("/{id}", controllers.SubscriberDelete(p.SubscriberService, logg))
	})

	// Plan and platform reads feed the public pricing pages; mutations stay
	// behind the session gate.
	r.Route("/api/planos", func(r chi.Router) {
		r.Get("/", controllers.PlanList(p.PlanService, logg))
		r.Get("/{id}", controllers.PlanGet(p.PlanService, logg))
		r.With(authed).Post("/", controllers.PlanCreate(p.PlanService, logg))
		r.With(authed).Put("/{id}", controllers.PlanUpdate(p.PlanService, logg))
		r.With(authed).Delete("/{id}", controllers.PlanDelete(p.PlanService, logg))
	})

	r.Route("/api/plataformas", func(r chi.Router) {
		r.Get("/", controllers.PlatformList(p.PlatformService, logg))
		r.Get("/{id}", controllers.PlatformGet(p.PlatformService, logg))
		r.With(authed).Post("/", controllers.PlatformCreate(p.PlatformService, logg))
		r.With(authed).Put("/{id}", controllers.PlatformUpdate(p.PlatformService, logg))
		r.With(authed).Delete("/{id}", controllers.PlatformDelete(p.PlatformService, logg))
	})

	r.Route("/api/usuarios", func(r chi.Router) {
		r.Use(authed, adminOnly)
		r.Get("/", controllers.UserList(p.UserService, logg))
		r.Post("/", controllers.UserCreate(p.UserService, logg))
		r.Get("/{id}", controllers.UserGet(p.UserService, logg))
		r.Put("/{id}", controllers.UserUpdate(p.UserService, logg))
		r.Delete("/{id}", controllers.UserDelete(p.UserService, logg))
	})

	r.Route("/api/settings/payment", func(r chi.Router) {
		r.Use(authed, adminOnly)
		r.Get("/", controllers.PaymentSettingsStatus(p.SettingsService, logg))
		r.Post("/", controllers.PaymentSettingsRotate(p.SettingsService, logg))
	})

	r.Route("/api/blog/posts", func(r chi.Router) {
		r.Get("/", controllers.BlogPublicList(p.BlogService, logg))
		r.Get("/{slug}", controllers.BlogPublicGet(p.BlogService, logg))
	})

	r.Route("/api/admin/blog/posts", func(r chi.Router) {
		r.Use(authed)
		r.Get("/", controllers.BlogAdminList(p.BlogService, logg))
		r.Post("/", controllers.BlogCreate(p.BlogService, logg))
		r.Put("/{id}", controllers.BlogUpdate(p.BlogService, logg))
		r.Delete("/{id}", controllers.BlogDelete(p.BlogService, logg))
	})

	r.Route("/api/dashboard", func(r chi.Router) {
		r.Use(authed)
		r.Get("/metrics", controllers.DashboardMetrics(p.MetricsService, logg))
		r.Get("/payments", controllers.PaymentList(p.PaymentService, logg))
		r.Get("/webhook-dead-letters", controllers.WebhookDeadLetters(p.DeadLetterRepo, logg))
	})

	return r
}
