package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medvault/medvault/internal/config"
	"github.com/medvault/medvault/internal/domain/allergy"
	"github.com/medvault/medvault/internal/domain/dashboard"
	"github.com/medvault/medvault/internal/domain/labs"
	"github.com/medvault/medvault/internal/domain/medhistory"
	"github.com/medvault/medvault/internal/domain/medication"
	"github.com/medvault/medvault/internal/domain/share"
	"github.com/medvault/medvault/internal/domain/upload"
	"github.com/medvault/medvault/internal/domain/user"
	"github.com/medvault/medvault/internal/domain/vaccine"
	"github.com/medvault/medvault/internal/domain/vitals"
	"github.com/medvault/medvault/internal/platform/auth"
	"github.com/medvault/medvault/internal/platform/db"
	"github.com/medvault/medvault/internal/platform/filestore"
	"github.com/medvault/medvault/internal/platform/middleware"
	"github.com/medvault/medvault/internal/platform/vault"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medvault-server",
		Short: "Personal health record API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(keygenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s).\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new hex-encoded encryption key",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := vault.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Println(key)
			return nil
		},
	}
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	if cfg.EncryptionKey == "" {
		if candidate, genErr := vault.GenerateKey(); genErr == nil {
			logger.Info().Str("candidate_key", candidate).Msg("generated a key you can use for ENCRYPTION_KEY")
		}
		logger.Fatal().Msg("ENCRYPTION_KEY is required; attachments are stored encrypted")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Encrypted file store
	v, err := vault.New(cfg.EncryptionKeyBytes())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize encryption")
	}
	store := filestore.New(cfg.UploadDir, v, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.BodyLimit(filestore.MaxFileSize + 1<<20))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))

	// Session auth
	sessions := auth.NewSessionStorePG(pool)
	authMW := auth.NewMiddleware([]byte(cfg.SessionSecret), sessions, cfg.IsProduction())

	// API groups
	api := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api.Use(middleware.RateLimit(rateLimitCfg))

	public := api.Group("")
	me := api.Group("", authMW.Require())

	// The shared group serves anonymous viewers holding a code and PIN, so it
	// gets its own, much tighter rate limit.
	shareRate := cfg.ShareRatePerMin
	if shareRate <= 0 {
		shareRate = 5
	}
	shared := api.Group("/shared", middleware.RateLimit(middleware.PerMinute(shareRate)))

	// Health check
	e.GET("/health", db.HealthHandler(pool))

	// -- Domain wiring --

	// The upload owner checks call back into the record services, which in
	// turn delete attachments through the upload service. The checker
	// closures close over service variables assigned right below; they only
	// run per request, long after wiring is done.
	var (
		vaccineSvc *vaccine.Service
		historySvc *medhistory.Service
		labSvc     *labs.Service
	)

	uploadRepo := upload.NewRepoPG(pool)
	uploadSvc := upload.NewService(uploadRepo, store, map[upload.Category]upload.OwnerChecker{
		upload.CategoryVaccines: func(ctx context.Context, recordID, userID uuid.UUID) error {
			_, err := vaccineSvc.Owned(ctx, recordID, userID)
			return translateOwned(err, vaccine.ErrNotFound, vaccine.ErrForbidden)
		},
		upload.CategoryMedicalHistory: func(ctx context.Context, recordID, userID uuid.UUID) error {
			_, err := historySvc.Owned(ctx, recordID, userID)
			return translateOwned(err, medhistory.ErrNotFound, medhistory.ErrForbidden)
		},
		upload.CategoryLabResults: func(ctx context.Context, recordID, userID uuid.UUID) error {
			_, err := labSvc.Owned(ctx, recordID, userID)
			return translateOwned(err, labs.ErrNotFound, labs.ErrForbidden)
		},
	})
	uploadHandler := upload.NewHandler(uploadSvc)
	uploadHandler.RegisterRoutes(me)

	// Users and sessions
	userRepo := user.NewRepoPG(pool)
	userSvc := user.NewService(userRepo, sessions, store, pool, time.Duration(cfg.SessionTTLMinutes)*time.Minute)
	userHandler := user.NewHandler(userSvc, authMW)
	userHandler.RegisterRoutes(public, me)

	// Vaccines
	vaccineRepo := vaccine.NewRepoPG(pool)
	vaccineSvc = vaccine.NewService(vaccineRepo, uploadSvc)
	vaccineHandler := vaccine.NewHandler(vaccineSvc)
	vaccineHandler.RegisterRoutes(me)

	// Allergies
	allergyRepo := allergy.NewRepoPG(pool)
	allergySvc := allergy.NewService(allergyRepo, pool)
	allergyHandler := allergy.NewHandler(allergySvc)
	allergyHandler.RegisterRoutes(me)

	// Medications
	medicationRepo := medication.NewRepoPG(pool)
	medicationSvc := medication.NewService(medicationRepo)
	medicationHandler := medication.NewHandler(medicationSvc)
	medicationHandler.RegisterRoutes(me)

	// Vitals
	vitalsRepo := vitals.NewRepoPG(pool)
	vitalsSvc := vitals.NewService(vitalsRepo)
	vitalsHandler := vitals.NewHandler(vitalsSvc)
	vitalsHandler.RegisterRoutes(me)

	// Medical history
	historyRepo := medhistory.NewRepoPG(pool)
	historySvc = medhistory.NewService(historyRepo, uploadSvc)
	historyHandler := medhistory.NewHandler(historySvc)
	historyHandler.RegisterRoutes(me)

	// Lab results, with the optional extraction backend
	extractor := labs.NewExtractor(cfg.ExtractorURL, cfg.ExtractorAPIKey, logger)
	if !extractor.Enabled() {
		logger.Warn().Msg("EXTRACTOR_URL not set; lab report extraction is disabled")
	}
	labRepo := labs.NewRepoPG(pool)
	labSvc = labs.NewService(labRepo, pool, uploadSvc, uploadSvc, extractor)
	labHandler := labs.NewHandler(labSvc)
	labHandler.RegisterRoutes(me)

	// Share links
	shareRepo := share.NewRepoPG(pool)
	shareSvc := share.NewService(shareRepo, share.Sources{
		Users:          userSvc,
		Vaccines:       vaccineSvc,
		Allergies:      allergySvc,
		Medications:    medicationSvc,
		Vitals:         vitalsSvc,
		MedicalHistory: historySvc,
		Labs:           labSvc,
	}, uploadSvc, logger)
	shareHandler := share.NewHandler(shareSvc)
	shareHandler.RegisterRoutes(me, shared)

	// Dashboard
	dashSvc := dashboard.NewService(dashboard.Sources{
		Users:          userSvc,
		Vaccines:       vaccineSvc,
		Allergies:      allergySvc,
		Medications:    medicationSvc,
		Vitals:         vitalsSvc,
		MedicalHistory: historySvc,
		Labs:           labSvc,
	})
	dashHandler := dashboard.NewHandler(dashSvc)
	dashHandler.RegisterRoutes(me)

	// Background sweeps
	sweepCtx, sweepCancel := context.WithCancel(ctx)
	defer sweepCancel()

	purger := share.NewPurger(shareSvc, time.Hour, logger)
	go purger.Run(sweepCtx)

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if n, err := sessions.DeleteExpired(sweepCtx); err != nil {
					logger.Error().Err(err).Msg("session sweep failed")
				} else if n > 0 {
					logger.Info().Int64("sessions", n).Msg("swept expired sessions")
				}
			}
		}
	}()

	// Start server
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}
	return nil
}

// translateOwned maps a record service's ownership errors onto the upload
// package's sentinels so the upload handler can answer 404/403 uniformly.
func translateOwned(err, notFound, forbidden error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, notFound):
		return upload.ErrNotFound
	case errors.Is(err, forbidden):
		return upload.ErrForbidden
	default:
		return err
	}
}
