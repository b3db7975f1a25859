package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/sefazor/coaching-backend/internal/config"
	"github.com/sefazor/coaching-backend/internal/handler"
	"github.com/sefazor/coaching-backend/internal/middleware"
	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/internal/repository"
	"github.com/sefazor/coaching-backend/internal/service"
	"github.com/sefazor/coaching-backend/pkg/bcrypt"
	"github.com/sefazor/coaching-backend/pkg/captcha"
	"github.com/sefazor/coaching-backend/pkg/database"
	"github.com/sefazor/coaching-backend/pkg/email"
	"github.com/sefazor/coaching-backend/pkg/jwt"
	"github.com/sefazor/coaching-backend/pkg/logger"
	"github.com/sefazor/coaching-backend/pkg/payment"
	"github.com/sefazor/coaching-backend/pkg/qrcode"
	"github.com/sefazor/coaching-backend/pkg/storage"
	"github.com/sefazor/coaching-backend/pkg/utils"
)

func main() {
	// Config'i yükle
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	zapLogger, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	defer zapLogger.Sync() //nolint:errcheck

	// Initialize database
	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.RunMigrations(db); err != nil {
		zapLogger.Fatal("failed to migrate database", zap.Error(err))
	}
	if err := database.SeedCreditPackages(db); err != nil {
		zapLogger.Fatal("failed to seed credit packages", zap.Error(err))
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	coachRepo := repository.NewCoachProfileRepository(db)
	childRepo := repository.NewChildRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	packageRepo := repository.NewCreditPackageRepository(db)
	purchaseRepo := repository.NewCreditPurchaseRepository(db)
	creditRepo := repository.NewCreditRepository(db)
	videoRepo := repository.NewVideoRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	// Storage services
	s3Storage, err := storage.NewS3Storage(context.Background(), storage.S3Config{
		Endpoint:        cfg.S3.Endpoint,
		Region:          cfg.S3.Region,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		Bucket:          cfg.S3.Bucket,
		PublicURL:       cfg.S3.PublicURL,
	})
	if err != nil {
		zapLogger.Fatal("failed to initialize S3 storage", zap.Error(err))
	}
	imgStorage := storage.NewCloudflareImages(cfg.CloudflareImages.AccountID, cfg.CloudflareImages.Token, cfg.CloudflareImages.Hash)

	// Email service
	emailService, err := email.NewEmailService(email.Config{
		APIKey:      cfg.Email.ResendAPIKey,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		FrontendURL: cfg.FrontendURL,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to initialize email service", zap.Error(err))
	}

	bcrypt.SetCost(cfg.BcryptCost)
	tokens := jwt.NewManager(cfg.JWTSecret, cfg.JWTIssuer)
	stripeService := payment.NewStripeService(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
	turnstile := captcha.NewTurnstile(cfg.TurnstileSecret)
	checkInCodes := qrcode.NewCheckInCodes(cfg.QRBaseURL)

	// Services
	ledgerService := service.NewLedgerService(db, creditRepo, zapLogger)
	authService := service.NewAuthService(db, userRepo, coachRepo, tokens, turnstile, emailService, zapLogger)
	userService := service.NewUserService(userRepo, zapLogger)
	coachService := service.NewCoachService(coachRepo, userRepo, emailService, zapLogger)
	courseService := service.NewCourseService(courseRepo, coachRepo, imgStorage, zapLogger)
	childService := service.NewChildService(childRepo, enrollmentRepo)
	packageService := service.NewPackageService(packageRepo)
	enrollmentService := service.NewEnrollmentService(db, ledgerService, courseRepo, childRepo, enrollmentRepo, userRepo, emailService, zapLogger)
	paymentService := service.NewPaymentService(
		db,
		paymentRepo,
		purchaseRepo,
		packageRepo,
		sessionRepo,
		coachRepo,
		userRepo,
		ledgerService,
		stripeService,
		emailService,
		zapLogger,
		cfg.Stripe.DefaultCurrency,
	)
	sessionService := service.NewSessionService(db, sessionRepo, coachRepo, courseRepo, userRepo, paymentService, checkInCodes, emailService, zapLogger)
	videoService := service.NewVideoService(videoRepo, courseRepo, coachRepo, s3Storage, cfg.MaxVideoSizeMB, zapLogger)
	adminService := service.NewAdminService(userRepo, statsRepo, ledgerService, zapLogger)

	validator := utils.NewValidator()

	// Handlers
	authHandler := handler.NewAuthHandler(authService, validator)
	userHandler := handler.NewUserHandler(userService, validator)
	coachHandler := handler.NewCoachHandler(coachService, sessionService, validator)
	courseHandler := handler.NewCourseHandler(courseService, validator)
	childHandler := handler.NewChildHandler(childService, validator)
	sessionHandler := handler.NewSessionHandler(sessionService, paymentService, validator)
	paymentHandler := handler.NewPaymentHandler(paymentService, stripeService, validator, zapLogger)
	creditHandler := handler.NewCreditHandler(ledgerService, enrollmentService, paymentService, validator)
	creditPackageHandler := handler.NewCreditPackageHandler(packageService, validator)
	videoHandler := handler.NewVideoHandler(videoService, validator)
	adminHandler := handler.NewAdminHandler(adminService, userService, coachService, ledgerService, paymentService, validator)

	// Router
	app := fiber.New(fiber.Config{
		AppName:      "coaching-backend",
		ErrorHandler: handler.ErrorHandler(zapLogger),
		BodyLimit:    (cfg.MaxVideoSizeMB + 1) << 20,
		ReadTimeout:  5 * time.Minute,
	})

	// Global Middleware'ler önce tanımlanmalı
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE",
		AllowCredentials: true,
	}))
	app.Use(fiberlogger.New())
	if cfg.RateLimitEnabled {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimitPerMinute,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			// Stripe retries webhooks on its own schedule
			Next: func(c *fiber.Ctx) bool {
				return c.Path() == "/api/v1/payments/webhook"
			},
		}))
	}

	api := app.Group("/api/v1")
	auth := middleware.AuthMiddleware(tokens)
	optionalAuth := middleware.OptionalAuth(tokens)
	coachOnly := middleware.RequireRole(models.RoleCoach, models.RoleAdmin)
	parentOnly := middleware.RequireRole(models.RoleParent, models.RoleAdmin)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(models.SuccessResponse(fiber.Map{"status": "ok"}, "Service is healthy"))
	})

	// Public routes
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/verify-email", authHandler.VerifyEmail)
	authGroup.Post("/resend-verification", authHandler.ResendVerification)
	authGroup.Post("/forgot-password", authHandler.ForgotPassword)
	authGroup.Post("/reset-password", authHandler.ResetPassword)
	authGroup.Get("/me", auth, authHandler.Me)

	// Stripe webhook (public)
	api.Post("/payments/webhook", paymentHandler.HandleStripeWebhook)

	coaches := api.Group("/coaches")
	coaches.Get("/profile", auth, coachOnly, coachHandler.GetMyProfile)
	coaches.Put("/profile", auth, middleware.RequireRole(models.RoleCoach), coachHandler.UpsertProfile)
	coaches.Get("/", coachHandler.ListCoaches)
	coaches.Get("/:id", coachHandler.GetCoach)
	coaches.Get("/:id/availability", coachHandler.Availability)

	courses := api.Group("/courses")
	courses.Get("/", courseHandler.ListCourses)
	courses.Get("/mine", auth, coachOnly, courseHandler.ListMyCourses)
	courses.Get("/:id", optionalAuth, courseHandler.GetCourse)
	courses.Get("/:id/videos", optionalAuth, videoHandler.ListCourseVideos)
	courses.Post("/", auth, coachOnly, courseHandler.CreateCourse)
	courses.Put("/:id", auth, coachOnly, courseHandler.UpdateCourse)
	courses.Delete("/:id", auth, coachOnly, courseHandler.DeleteCourse)
	courses.Post("/:id/publish", auth, coachOnly, courseHandler.PublishCourse)
	courses.Post("/:id/unpublish", auth, coachOnly, courseHandler.UnpublishCourse)
	courses.Post("/:id/thumbnail", auth, coachOnly, courseHandler.UploadThumbnail)
	courses.Get("/:id/enrollments", auth, coachOnly, creditHandler.CourseRoster)

	api.Get("/credits/packages", creditPackageHandler.GetAllPackages)
	api.Get("/credits/packages/:id", creditPackageHandler.GetPackageByID)

	// Protected routes
	protected := api.Group("", auth)
	{
		users := protected.Group("/users")
		users.Get("/profile", userHandler.GetMyProfile)
		users.Put("/profile", userHandler.UpdateProfile)
		users.Post("/change-password", userHandler.ChangePassword)

		children := protected.Group("/children", parentOnly)
		children.Get("/", childHandler.ListChildren)
		children.Post("/", childHandler.CreateChild)
		children.Get("/:id", childHandler.GetChild)
		children.Put("/:id", childHandler.UpdateChild)
		children.Delete("/:id", childHandler.DeleteChild)

		sessions := protected.Group("/sessions")
		sessions.Get("/", sessionHandler.ListSessions)
		sessions.Post("/", sessionHandler.BookSession)
		sessions.Post("/check-in", sessionHandler.CheckIn)
		sessions.Get("/:id", sessionHandler.GetSession)
		sessions.Put("/:id/reschedule", sessionHandler.Reschedule)
		sessions.Post("/:id/start", sessionHandler.Start)
		sessions.Post("/:id/complete", sessionHandler.Complete)
		sessions.Post("/:id/cancel", sessionHandler.Cancel)
		sessions.Post("/:id/no-show", sessionHandler.MarkNoShow)
		sessions.Get("/:id/qr", sessionHandler.QRCode)
		sessions.Post("/:id/pay", sessionHandler.Pay)

		payments := protected.Group("/payments")
		payments.Get("/history", paymentHandler.GetPaymentHistory)
		payments.Post("/confirm", paymentHandler.ConfirmPayment)

		credits := protected.Group("/credits")
		credits.Get("/balance", creditHandler.GetBalance)
		credits.Get("/summary", creditHandler.GetSummary)
		credits.Get("/history", creditHandler.GetHistory)
		credits.Post("/purchase", creditHandler.PurchaseCredits)
		credits.Get("/purchases", creditHandler.GetPurchases)
		credits.Post("/transfer", creditHandler.Transfer)
		credits.Post("/enroll", parentOnly, creditHandler.Enroll)
		credits.Get("/enrollments", creditHandler.ListEnrollments)
		credits.Post("/enrollments/:id/cancel", parentOnly, creditHandler.CancelEnrollment)

		videos := protected.Group("/videos", coachOnly)
		videos.Get("/", videoHandler.ListMyVideos)
		videos.Post("/", videoHandler.UploadVideo)
		videos.Delete("/:id", videoHandler.DeleteVideo)

		admin := protected.Group("/admin", middleware.RequireRole(models.RoleAdmin))
		admin.Get("/stats", adminHandler.GetStats)
		admin.Get("/users", adminHandler.ListUsers)
		admin.Put("/users/:id/role", adminHandler.UpdateUserRole)
		admin.Get("/users/:id/credits", adminHandler.UserCreditHistory)
		admin.Post("/users/:id/credits", adminHandler.AdjustCredits)
		admin.Get("/users/:id/credits/audit", adminHandler.AuditLedger)
		admin.Get("/coaches", adminHandler.ListCoaches)
		admin.Post("/coaches/:id/approve", adminHandler.ApproveCoach)
		admin.Post("/coaches/:id/reject", adminHandler.RejectCoach)
		admin.Get("/payments", adminHandler.ListPayments)
		admin.Post("/payments/:id/refund", adminHandler.RefundPayment)
		admin.Get("/sessions", sessionHandler.ListSessions)
		admin.Get("/packages", creditPackageHandler.ListAllPackages)
		admin.Post("/packages", creditPackageHandler.CreatePackage)
		admin.Put("/packages/:id", creditPackageHandler.UpdatePackage)
		admin.Delete("/packages/:id", creditPackageHandler.DeactivatePackage)
	}

	// Start server
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			zapLogger.Fatal("server stopped", zap.Error(err))
		}
	}()
	zapLogger.Info("server started", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down")
	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		zapLogger.Error("graceful shutdown failed", zap.Error(err))
	}
	mailCtx, cancelMail := context.WithTimeout(context.Background(), 10*time.Second)
	if err := emailService.Wait(mailCtx); err != nil {
		zapLogger.Warn("pending emails dropped at shutdown", zap.Error(err))
	}
	cancelMail()
	if err := database.Close(db); err != nil {
		zapLogger.Error("failed to close database", zap.Error(err))
	}
}
