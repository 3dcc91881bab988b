package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/inkeddraw/backend/internal/application/collection"
	"github.com/inkeddraw/backend/internal/application/device"
	"github.com/inkeddraw/backend/internal/application/feed"
	"github.com/inkeddraw/backend/internal/application/media"
	"github.com/inkeddraw/backend/internal/application/product"
	"github.com/inkeddraw/backend/internal/application/scanner"
	"github.com/inkeddraw/backend/internal/application/session"
	"github.com/inkeddraw/backend/internal/application/shop"
	"github.com/inkeddraw/backend/internal/application/syncer"
	"github.com/inkeddraw/backend/internal/application/user"
	"github.com/inkeddraw/backend/internal/application/verification"
	"github.com/inkeddraw/backend/internal/config"
	"github.com/inkeddraw/backend/internal/domain"
	"github.com/inkeddraw/backend/internal/transport/http/handler"
	appmiddleware "github.com/inkeddraw/backend/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.Logging(deps.Log))
	r.Use(appmiddleware.Instrument(deps.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10, applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	sessionSvc := session.NewService(deps.SessionRepo, deps.UserRepo, deps.DeviceRepo, deps.JWTProvider, cfg.RefreshTokenExpiry)
	userSvc := user.NewService(user.ServiceDeps{
		UserRepo:        deps.UserRepo,
		FollowRepo:      deps.FollowRepo,
		SessionRepo:     deps.SessionRepo,
		DeviceRepo:      deps.DeviceRepo,
		JWTProvider:     deps.JWTProvider,
		Tracker:         deps.Tracker,
		RefreshTokenDur: cfg.RefreshTokenExpiry,
	})
	verificationSvc := verification.NewService(deps.VerificationRepo, deps.UserRepo, deps.Veriff, deps.Mailer, deps.Tracker, deps.Log, cfg.VerificationTTL)
	collectionSvc := collection.NewService(deps.CollectionRepo, deps.Tracker)
	productSvc := product.NewService(deps.ProductRepo)
	feedSvc := feed.NewService(deps.PostRepo, deps.UserRepo, deps.DeviceRepo, deps.Push, deps.Tracker, deps.Log, deps.Metrics.PushNotifications)
	shopSvc := shop.NewService(deps.ShopRepo, deps.Cache, deps.Tracker, deps.Log, cfg.ShopCacheTTL)
	syncSvc := syncer.NewService(deps.SyncRepo, deps.Log)
	scannerSvc := scanner.NewService(deps.S3Store, deps.Vision, deps.ProductRepo, deps.Tracker, deps.Log)
	mediaSvc := media.NewService(deps.S3Store)
	deviceSvc := device.NewService(deps.DeviceRepo, deps.Push)

	healthH := handler.NewHealthHandler(deps.DB)
	sessionH := handler.NewSessionHandler(sessionSvc)
	userH := handler.NewUserHandler(userSvc)
	verificationH := handler.NewVerificationHandler(verificationSvc)
	webhookH := handler.NewWebhookHandler(verificationSvc, deps.Veriff, deps.Metrics, deps.Log)
	collectionH := handler.NewCollectionHandler(collectionSvc)
	productH := handler.NewProductHandler(productSvc)
	feedH := handler.NewFeedHandler(feedSvc)
	shopH := handler.NewShopHandler(shopSvc)
	syncH := handler.NewSyncHandler(syncSvc, deps.Metrics)
	scannerH := handler.NewScannerHandler(scannerSvc, deps.Metrics)
	mediaH := handler.NewMediaHandler(mediaSvc)
	deviceH := handler.NewDeviceHandler(deviceSvc)
	flagH := handler.NewFlagHandler(deps.Tracker)

	r.Get("/metrics", deps.Metrics.Handler().ServeHTTP)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health/live", healthH.Live)
		r.Get("/health/ready", healthH.Ready)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.Post("/sessions/refresh", sessionH.Refresh)
		r.With(sensitiveRL.Limit).Post("/users", userH.Register)
		r.With(sensitiveRL.Limit).Post("/webhooks/veriff", webhookH.VeriffDecision)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/sessions/logout", sessionH.Logout)

			r.Get("/users/{id}", userH.Get)
			r.Put("/users/{id}", userH.Update)
			r.Delete("/users/{id}", userH.Delete)
			r.Put("/users/{id}/password", userH.ChangePassword)
			r.Post("/users/{id}/follow", userH.Follow)
			r.Delete("/users/{id}/follow", userH.Unfollow)
			r.Get("/users/{id}/stats", userH.Stats)
			r.Get("/users/{id}/collections", collectionH.ListByUser)

			r.Post("/verifications", verificationH.Start)
			r.Get("/verifications", verificationH.Status)

			r.Post("/collections", collectionH.Create)
			r.Get("/collections/{id}", collectionH.Get)
			r.Put("/collections/{id}", collectionH.Update)
			r.Delete("/collections/{id}", collectionH.Delete)
			r.Post("/collections/{id}/items", collectionH.AddItem)
			r.Get("/collections/{id}/items", collectionH.ListItems)
			r.Put("/collections/{id}/items/{itemID}", collectionH.UpdateItem)
			r.Delete("/collections/{id}/items/{itemID}", collectionH.DeleteItem)

			r.Get("/products", productH.Search)
			r.Get("/products/{id}", productH.Get)
			r.Put("/products/{id}/rating", productH.Rate)
			r.Get("/products/{id}/rating", productH.GetRating)

			r.Post("/posts", feedH.CreatePost)
			r.Get("/posts/{id}", feedH.GetPost)
			r.Delete("/posts/{id}", feedH.DeletePost)
			r.Get("/feed/home", feedH.Home)
			r.Get("/feed/discover", feedH.Discover)
			r.Post("/posts/{id}/like", feedH.Like)
			r.Delete("/posts/{id}/like", feedH.Unlike)
			r.Post("/posts/{id}/comments", feedH.Comment)
			r.Get("/posts/{id}/comments", feedH.ListComments)
			r.Delete("/comments/{commentID}", feedH.DeleteComment)

			r.Get("/shops/nearby", shopH.Nearby)
			r.Get("/shops/{id}", shopH.Get)

			r.Get("/sync", syncH.Pull)
			r.Post("/sync", syncH.Push)

			r.Post("/scanner", scannerH.Scan)

			r.Post("/media", mediaH.Upload)
			r.Post("/media/presign", mediaH.Presign)
			r.Delete("/media", mediaH.Delete)

			r.Get("/devices", deviceH.List)
			r.Put("/devices/{id}/push", deviceH.RegisterPush)
			r.Delete("/devices/{id}", deviceH.Delete)

			r.Get("/flags/{key}", flagH.Get)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/users", userH.List)

				r.Post("/products", productH.Create)
				r.Put("/products/{id}", productH.Update)
				r.Delete("/products/{id}", productH.Delete)

				r.Post("/shops", shopH.Create)
				r.Put("/shops/{id}", shopH.Update)
				r.Delete("/shops/{id}", shopH.Delete)
			})
		})
	})

	return r
}
