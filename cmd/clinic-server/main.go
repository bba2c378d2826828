package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinic/clinic/internal/config"
	"github.com/clinic/clinic/internal/domain/examination"
	"github.com/clinic/clinic/internal/domain/identity"
	"github.com/clinic/clinic/internal/domain/kiosk"
	"github.com/clinic/clinic/internal/domain/scheduling"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/middleware"
)

// DoctorDirectoryAdapter adapts the identity service to the
// scheduling.DoctorDirectory interface, avoiding a circular import between
// the two domains.
type DoctorDirectoryAdapter struct {
	svc *identity.Service
}

func (a *DoctorDirectoryAdapter) GetDoctor(ctx context.Context, id uuid.UUID) (*scheduling.DoctorProfile, error) {
	u, err := a.svc.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.IsDoctor() {
		return nil, fmt.Errorf("user %s is not a doctor", id)
	}
	return toProfile(u), nil
}

func (a *DoctorDirectoryAdapter) ListDoctors(ctx context.Context, department, specialization string) ([]*scheduling.DoctorProfile, error) {
	users, _, err := a.svc.ListDoctors(ctx, department, specialization, 500, 0)
	if err != nil {
		return nil, err
	}
	profiles := make([]*scheduling.DoctorProfile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, toProfile(u))
	}
	return profiles, nil
}

func toProfile(u *identity.User) *scheduling.DoctorProfile {
	p := &scheduling.DoctorProfile{ID: u.ID, FullName: u.FullName}
	if u.Department != nil {
		p.Department = *u.Department
	}
	if u.Specialization != nil {
		p.Specialization = *u.Specialization
	}
	if u.ExperienceYears != nil {
		p.ExperienceYears = *u.ExperienceYears
	}
	if u.ConsultationFee != nil {
		p.ConsultationFee = *u.ConsultationFee
	}
	return p
}

// AppointmentGatewayAdapter exposes the scheduling service to the examination
// domain through its narrow gateway interface.
type AppointmentGatewayAdapter struct {
	svc *scheduling.Service
}

func (a *AppointmentGatewayAdapter) Lookup(ctx context.Context, id uuid.UUID) (*examination.VisitRef, error) {
	appt, err := a.svc.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	return &examination.VisitRef{
		ID:        appt.ID,
		PatientID: appt.PatientID,
		DoctorID:  appt.DoctorID,
		Status:    appt.Status,
	}, nil
}

func (a *AppointmentGatewayAdapter) Complete(ctx context.Context, id uuid.UUID) error {
	_, err := a.svc.Complete(ctx, id)
	return err
}

// txRunner hands the shared pool to domains that need multi-write
// transactions.
type txRunner struct {
	pool *pgxpool.Pool
}

func (t *txRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.RunInTx(ctx, t.pool, fn)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "Clinic management API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the clinic API server",
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

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	// Public surface: login and the kiosk terminals. Rate limited, no JWT.
	public := e.Group("/api/v1")
	public.Use(middleware.RateLimit(rateLimitCfg))

	// Authenticated staff API.
	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	if cfg.IsDev() && cfg.JWTSecret == "" {
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.JWTIssuer,
			SigningKey: []byte(cfg.JWTSecret),
		}))
	}

	// Domain wiring.
	tokenIssuer := auth.NewTokenIssuer(cfg.JWTIssuer, []byte(cfg.JWTSecret), time.Duration(cfg.TokenTTLHours)*time.Hour)

	userRepo := identity.NewUserRepoPG(pool)
	patientRepo := identity.NewPatientRepoPG(pool)
	identitySvc := identity.NewService(userRepo, patientRepo, tokenIssuer)
	identity.NewHandler(identitySvc).RegisterRoutes(public, apiV1)

	shiftRepo := scheduling.NewShiftRepoPG(pool)
	apptRepo := scheduling.NewAppointmentRepoPG(pool)
	schedulingSvc := scheduling.NewService(shiftRepo, apptRepo, &DoctorDirectoryAdapter{svc: identitySvc})
	scheduling.NewHandler(schedulingSvc).RegisterRoutes(apiV1)

	examRepo := examination.NewRepoPG(pool)
	examSvc := examination.NewService(examRepo, &AppointmentGatewayAdapter{svc: schedulingSvc}, &txRunner{pool: pool})
	examination.NewHandler(examSvc).RegisterRoutes(apiV1)

	kioskSvc := kiosk.NewService(identitySvc, schedulingSvc)
	kiosk.NewHandler(kioskSvc).RegisterRoutes(public)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", func(c echo.Context) error {
		h := db.CheckHealth(c.Request().Context(), pool)
		code := http.StatusOK
		if !h.OK {
			code = http.StatusServiceUnavailable
		}
		return c.JSON(code, h)
	})

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
