package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/clinicore/booking-api/api/swagger"
	"github.com/clinicore/booking-api/internal/handler"
	"github.com/clinicore/booking-api/internal/middleware"
	"github.com/clinicore/booking-api/internal/notify"
	"github.com/clinicore/booking-api/internal/payments"
	"github.com/clinicore/booking-api/internal/repository"
	"github.com/clinicore/booking-api/internal/scheduler"
	"github.com/clinicore/booking-api/internal/service"
	"github.com/clinicore/booking-api/pkg/cache"
	"github.com/clinicore/booking-api/pkg/config"
	"github.com/clinicore/booking-api/pkg/database"
	"github.com/clinicore/booking-api/pkg/jobs"
	"github.com/clinicore/booking-api/pkg/logger"
	corsmiddleware "github.com/clinicore/booking-api/pkg/middleware/cors"
	reqidmiddleware "github.com/clinicore/booking-api/pkg/middleware/requestid"
	"github.com/clinicore/booking-api/pkg/storage"
)

// @title Clinicore Booking API
// @version 1.0.0
// @description Clinic appointment booking service
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	validate := validator.New()
	metricsService := service.NewMetricsService()

	slotRepo := repository.NewSlotRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	userRepo := repository.NewUserRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	var cacheService *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheService = service.NewCacheService(cacheRepo, metricsService, cfg.Cache.TTL, logr, true)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}

	var sender notify.EmailSender
	if cfg.Mail.Enabled {
		if sg := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.Mail.SendGridAPIKey,
			FromEmail: cfg.Mail.FromEmail,
			FromName:  cfg.Mail.FromName,
		}, logr); sg != nil {
			sender = sg
		}
	}
	if sender == nil {
		sender = notify.NewStubSender(logr)
	}

	mailQueue := jobs.NewQueue("mail", service.NewPasswordResetMailHandler(sender, logr), jobs.QueueConfig{
		Workers:    2,
		MaxRetries: cfg.Mail.WorkerRetries,
		Logger:     logr,
	})
	mailQueue.Start(rootCtx)
	defer mailQueue.Stop()

	authService := service.NewAuthService(userRepo, mailQueue, validate, logr, service.AuthConfig{
		TokenSecret:   cfg.JWT.Secret,
		TokenExpiry:   cfg.JWT.Expiration,
		Issuer:        cfg.JWT.Issuer,
		AdminKey:      cfg.Registration.AdminKey,
		ResetBaseURL:  cfg.Mail.ResetBaseURL,
		ResetTokenTTL: cfg.Mail.ResetTokenTTL,
	})
	slotService := service.NewSlotService(slotRepo, bookingRepo, cacheService, validate, logr)
	bookingService := service.NewBookingService(bookingRepo, appointmentRepo, slotRepo, cacheService, metricsService, validate, logr)
	userService := service.NewUserService(userRepo, validate, logr)

	stripeClient := payments.NewStripeClient(cfg.Payments.StripeSecretKey, logr).WithDryRun(cfg.Payments.DryRun)
	paymentService := service.NewPaymentService(paymentRepo, stripeClient, cfg.Payments.Currency, validate, logr)

	exportStorage, err := storage.NewLocalStorage(cfg.Export.Dir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signerSecret := cfg.Export.SignedURLSecret
	if signerSecret == "" {
		signerSecret = cfg.JWT.Secret
	}
	signer := storage.NewSignedURLSigner(signerSecret, cfg.Export.ResultTTL)
	daySheetService := service.NewDaySheetService(bookingService, exportStorage, signer, service.DaySheetConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Export.ResultTTL,
	}, logr, nil, nil)

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-rootCtx.Done():
				return
			case <-ticker.C:
				removed, err := daySheetService.Cleanup()
				if err != nil {
					logr.Warn("export cleanup failed", zap.Error(err))
					continue
				}
				if len(removed) > 0 {
					logr.Info("expired exports removed", zap.Int("count", len(removed)))
				}
			}
		}
	}()

	var generator *scheduler.Generator
	if cfg.Scheduler.Enabled {
		generator = scheduler.NewGenerator(slotRepo, logr, cfg.Scheduler).WithMetrics(metricsService)
		generator.Start(rootCtx)
		defer generator.Stop()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		Slots:        handler.NewSlotHandler(slotService, bookingService),
		Appointments: handler.NewAppointmentHandler(bookingService, daySheetService),
		Users:        handler.NewUserHandler(userService),
		Payments:     handler.NewPaymentHandler(paymentService),
		Metrics:      handler.NewMetricsHandler(metricsService),
		JWT:          middleware.JWT(authService),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	rootCancel()
}
