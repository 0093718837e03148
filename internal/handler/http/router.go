package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ImMohammedAbdulla/Backend-app/internal/service"
	"github.com/ImMohammedAbdulla/Backend-app/pkg/health"
	"github.com/ImMohammedAbdulla/Backend-app/pkg/httputil"
	"github.com/ImMohammedAbdulla/Backend-app/pkg/middleware"
)

const serviceName = "identity"

// RouterConfig carries the dependencies and settings of the HTTP surface.
type RouterConfig struct {
	Users         *service.UserService
	Channels      *service.ChannelService
	Videos        *service.VideoService
	Health        *health.Handler
	Logger        *slog.Logger
	CORSOrigins   []string
	SecureCookies bool
	MaxUpload     int64

	// Media serves locally stored uploads under /media when set.
	Media http.Handler
}

// NewRouter creates a chi router with all identity service routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	if cfg.Media != nil {
		r.Handle("/media/*", http.StripPrefix("/media", cfg.Media))
	}

	h := func(fn httputil.HandlerFunc) http.HandlerFunc {
		return httputil.Handle(fn, logger)
	}
	requireSession := middleware.Auth(AccessTokenCookie, sessionAuthenticator(cfg.Users), logger)

	userHandler := NewUserHandler(cfg.Users, cfg.Channels, cfg.SecureCookies, cfg.MaxUpload, logger)
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/register", h(userHandler.Register))
		r.Post("/login", h(userHandler.Login))
		r.Post("/refreshToken", h(userHandler.RefreshToken))

		r.Group(func(r chi.Router) {
			r.Use(requireSession)

			r.Post("/logout", h(userHandler.Logout))
			r.Post("/change-password", h(userHandler.ChangePassword))
			r.Get("/get-user-details", h(userHandler.GetUserDetails))
			r.Patch("/update-details", h(userHandler.UpdateDetails))
			r.Patch("/update-avatar", h(userHandler.UpdateAvatar))
			r.Patch("/update-cover-image", h(userHandler.UpdateCoverImage))
			r.Get("/c/{userName}", h(userHandler.GetChannelProfile))
			r.Get("/history", h(userHandler.GetWatchHistory))
		})
	})

	subscriptionHandler := NewSubscriptionHandler(cfg.Channels, logger)
	r.Route("/api/v1/subscriptions", func(r chi.Router) {
		r.Use(requireSession)

		r.Post("/c/{channelId}", h(subscriptionHandler.Toggle))
		r.Get("/c/{channelId}", h(subscriptionHandler.ListSubscribers))
		r.Get("/u/{subscriberId}", h(subscriptionHandler.ListSubscribedChannels))
	})

	videoHandler := NewVideoHandler(cfg.Videos, logger)
	r.Route("/api/v1/videos", func(r chi.Router) {
		r.Use(requireSession)

		r.Post("/", h(videoHandler.Publish))
		r.Get("/{videoId}", h(videoHandler.Watch))
	})

	return r
}
