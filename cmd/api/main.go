package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/psyconnect/psyconnect-api/internal/config"
	appointmenthandler "github.com/psyconnect/psyconnect-api/internal/handler/appointment"
	authhandler "github.com/psyconnect/psyconnect-api/internal/handler/auth"
	healthhandler "github.com/psyconnect/psyconnect-api/internal/handler/health"
	psychiatristhandler "github.com/psyconnect/psyconnect-api/internal/handler/psychiatrist"
	"github.com/psyconnect/psyconnect-api/internal/middleware"
	"github.com/psyconnect/psyconnect-api/internal/repository/postgres"
	"github.com/psyconnect/psyconnect-api/internal/router"
	appointmentservice "github.com/psyconnect/psyconnect-api/internal/service/appointment"
	authservice "github.com/psyconnect/psyconnect-api/internal/service/auth"
	directoryservice "github.com/psyconnect/psyconnect-api/internal/service/directory"
	"github.com/psyconnect/psyconnect-api/pkg/auth"
	"github.com/psyconnect/psyconnect-api/pkg/logger"
	"github.com/psyconnect/psyconnect-api/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	baseRepo := postgres.NewBaseRepository(db)
	psychiatristRepo := postgres.NewPsychiatristRepository(baseRepo)
	appointmentRepo := postgres.NewAppointmentRequestRepository(baseRepo)
	accountRepo := postgres.NewAccountRepository(baseRepo)
	outboxRepo := postgres.NewOutboxRepository(baseRepo)

	jwtService := auth.NewJWTService(auth.JWTConfig{
		Secret:      cfg.JWT.Secret,
		ExpiryHours: cfg.JWT.ExpiryHours,
	})
	hasher := security.NewBcryptHasher(0)

	directorySvc := directoryservice.NewService(psychiatristRepo, appLogger)
	appointmentSvc := appointmentservice.NewService(appointmentRepo, psychiatristRepo, outboxRepo, appLogger)
	authSvc := authservice.NewService(accountRepo, hasher, jwtService, authservice.AdminCredentials{
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
	}, appLogger)

	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	r := router.NewRouter(
		authMiddleware,
		healthhandler.NewHandler(db),
		authhandler.NewHandler(authSvc),
		psychiatristhandler.NewHandler(directorySvc),
		appointmenthandler.NewHandler(appointmentSvc),
		router.Config{
			RateLimit:     rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:     cfg.RateLimit.Burst,
			CORSConfig:    middleware.DefaultCORSConfig(),
			Timeout:       time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			MetricsPrefix: "psyconnect_api",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	appLogger.Info("server started", "port", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
