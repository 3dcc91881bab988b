package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/inkeddraw/backend/internal/config"
	jwtinfra "github.com/inkeddraw/backend/internal/infrastructure/jwt"
	"github.com/inkeddraw/backend/internal/infrastructure/posthog"
	"github.com/inkeddraw/backend/internal/infrastructure/postgres"
	"github.com/inkeddraw/backend/internal/infrastructure/rediscache"
	s3infra "github.com/inkeddraw/backend/internal/infrastructure/s3"
	"github.com/inkeddraw/backend/internal/infrastructure/smtp"
	"github.com/inkeddraw/backend/internal/infrastructure/sns"
	"github.com/inkeddraw/backend/internal/infrastructure/veriff"
	"github.com/inkeddraw/backend/internal/infrastructure/vision"
	"github.com/inkeddraw/backend/internal/jobs"
	"github.com/inkeddraw/backend/internal/metrics"
	"github.com/inkeddraw/backend/internal/pkg/logger"
	transporthttp "github.com/inkeddraw/backend/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err == nil {
		fmt.Println("loaded .env")
	}

	cfg := config.Load()
	log := logger.New(cfg.AppEnv)

	db, err := postgres.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres unavailable")
	}
	defer db.Close()

	if err := postgres.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	// JWT provider (optional, auth is disabled without signing keys, which
	// is only acceptable in local development).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Warn().Err(err).Msg("jwt provider not available")
	}

	cache := rediscache.New(cfg)
	defer cache.Close()

	tracker := posthog.Nop()
	if t, err := posthog.New(cfg); err == nil {
		tracker = t
	} else {
		log.Warn().Err(err).Msg("analytics disabled")
	}
	defer tracker.Close()

	annotator, err := vision.NewAnnotator(context.Background(), cfg)
	if err != nil {
		log.Warn().Err(err).Msg("vision annotator not available")
	}

	var pushSender sns.PushSender
	if sender, err := sns.NewSender(cfg); err == nil {
		pushSender = sender
	} else {
		log.Warn().Err(err).Msg("push sender not available")
	}

	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	userRepo := postgres.NewUserRepo(db)
	verificationRepo := postgres.NewVerificationRepo(db)
	productRepo := postgres.NewProductRepo(db)

	m := metrics.New()

	deps := &transporthttp.Deps{
		DB:               db,
		UserRepo:         userRepo,
		FollowRepo:       postgres.NewFollowRepo(db),
		SessionRepo:      postgres.NewSessionRepo(db),
		DeviceRepo:       postgres.NewDeviceRepo(db),
		VerificationRepo: verificationRepo,
		CollectionRepo:   postgres.NewCollectionRepo(db),
		ProductRepo:      productRepo,
		PostRepo:         postgres.NewPostRepo(db),
		ShopRepo:         postgres.NewShopRepo(db),
		SyncRepo:         postgres.NewSyncRepo(db),
		Cache:            cache,
		S3Store:          s3Store,
		Mailer:           smtp.NewMailer(cfg),
		Push:             pushSender,
		Veriff:           veriff.NewClient(cfg),
		Vision:           annotator,
		Tracker:          tracker,
		JWTProvider:      jwtProvider,
		Metrics:          m,
		Log:              log,
	}

	router := transporthttp.NewRouter(cfg, deps)

	runner := jobs.NewRunner(verificationRepo, productRepo, log)
	if err := runner.Start(); err != nil {
		log.Fatal().Err(err).Msg("job scheduler failed to start")
	}
	defer runner.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.AppPort).Str("env", cfg.AppEnv).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}
