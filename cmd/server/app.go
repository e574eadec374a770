package main

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"kailospay.backend/internal/config"
	"kailospay.backend/internal/infrastructure/jobs"
	"kailospay.backend/internal/infrastructure/repositories"
	"kailospay.backend/internal/infrastructure/storage"
	"kailospay.backend/internal/infrastructure/vendors"
	"kailospay.backend/internal/interfaces/http/handlers"
	"kailospay.backend/internal/interfaces/http/middleware"
	"kailospay.backend/internal/usecases"
	"kailospay.backend/pkg/jwt"
	"kailospay.backend/pkg/metrics"
	"kailospay.backend/pkg/ratelimit"
	redispkg "kailospay.backend/pkg/redis"
)

// app is the wired process: the router plus the pieces that need an
// orderly shutdown.
type app struct {
	router   *gin.Engine
	backlog  *jobs.ReviewBacklogJob
	notifier *usecases.NotificationUsecase
}

func newApp(cfg *config.Config, db *gorm.DB, rc *redispkg.Client, m *metrics.Metrics) *app {
	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry)
	limiter := ratelimit.NewRedisRateLimiter(rc.Raw())

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	eventRepo := repositories.NewVerificationEventRepository(db)
	oneWonRepo := repositories.NewOneWonRepository(db)
	uploadRepo := repositories.NewUploadRepository(db)
	contractRepo := repositories.NewContractRepository(db)
	contractFileRepo := repositories.NewContractFileRepository(db)
	paymentRepo := repositories.NewPaymentRepository(db)
	registryRepo := repositories.NewRegistryRepository(db)
	uow := repositories.NewUnitOfWork(db)

	// Vendors
	clova := vendors.NewClovaClient(cfg.Clova, m)
	oneWon := vendors.NewOneWonClient(cfg.OneWon, m)
	apick := vendors.NewApickClient(cfg.Apick, m)
	ezpg := vendors.NewEzPGClient(cfg.EzPG, m)
	bizm := vendors.NewBizmClient(cfg.Bizm, m)
	files := storage.NewLocalStore(cfg.Storage.UploadDir)

	// Usecases
	store := usecases.NewVerificationStore(userRepo, eventRepo, uploadRepo, contractRepo, contractFileRepo, uow, m)
	notifier := usecases.NewNotificationUsecase(userRepo, bizm, m, cfg.Bizm.Timeout)
	authUsecase := usecases.NewAuthUsecase(userRepo, store, clova, uow, jwtService, cfg.Storage.MaxFileSize)
	verificationUsecase := usecases.NewVerificationUsecase(userRepo, eventRepo, oneWonRepo, uploadRepo, contractRepo, store, clova, cfg.Storage.MaxFileSize)
	oneWonUsecase := usecases.NewOneWonUsecase(oneWonRepo, contractRepo, store, oneWon, limiter, ratelimit.PerHour(cfg.RateLimit.OneWonStartPerHour))
	realnameUsecase := usecases.NewRealnameUsecase(store, apick)
	registryUsecase := usecases.NewRegistryUsecase(registryRepo, apick, files, rc, cfg.Apick.PollInterval)
	documentUsecase := usecases.NewDocumentUsecase(uploadRepo, uow, files, cfg.Storage.MaxFileSize, cfg.Storage.MaxContractFiles)
	contractUsecase := usecases.NewContractUsecase(contractRepo, contractFileRepo, uow, files, notifier, cfg.Storage.MaxFileSize, cfg.Storage.MaxContractFiles)
	paymentUsecase := usecases.NewPaymentUsecase(paymentRepo, uow, store, ezpg, notifier, m, cfg.EzPG.ReturnURL)
	adminUsecase := usecases.NewAdminUsecase(userRepo, uploadRepo, paymentRepo)

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.MetricsMiddleware(m))
	r.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))

	registerHealthRoute(r)
	registerMetricsRoute(r, m)
	registerNoRoute(r)
	registerAPIRoutes(r, routeDeps{
		authHandler:         handlers.NewAuthHandler(authUsecase, cfg.Storage.MaxFileSize),
		verificationHandler: handlers.NewVerificationHandler(verificationUsecase, oneWonUsecase, realnameUsecase, cfg.Storage.MaxFileSize),
		documentHandler:     handlers.NewDocumentHandler(documentUsecase, userRepo),
		contractHandler:     handlers.NewContractHandler(contractUsecase, userRepo),
		registryHandler:     handlers.NewRegistryHandler(registryUsecase),
		paymentHandler:      handlers.NewPaymentHandler(paymentUsecase, cfg.EzPG.SuccessURL, cfg.EzPG.FailURL),
		adminHandler:        handlers.NewAdminHandler(adminUsecase, notifier),

		authMiddleware:  middleware.AuthMiddleware(jwtService),
		internalOrAuth:  middleware.InternalCallOrAuth(jwtService, cfg.Security.InternalCallToken),
		adminMiddleware: middleware.RequireAdmin(jwtService, userRepo, cfg.Security.AdminToken),
		signupLimit:     middleware.RateLimitByIP(limiter, "signup", ratelimit.PerHour(cfg.RateLimit.SignupPerHour)),
		idempotency:     middleware.IdempotencyMiddleware(rc),
	})

	return &app{
		router:   r,
		backlog:  jobs.NewReviewBacklogJob(paymentRepo, contractRepo, uploadRepo, m, cfg.Jobs.BacklogCron),
		notifier: notifier,
	}
}
