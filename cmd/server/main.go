// cmd/server/main.go
// This is the entry point for the Match Point League API server.
// The cmd/ folder holds executable binaries; internal/ holds the packages they
// are assembled from, which other modules cannot import.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/trentd187/match-point-league/internal/accounts"
	"github.com/trentd187/match-point-league/internal/config"
	"github.com/trentd187/match-point-league/internal/database"
	"github.com/trentd187/match-point-league/internal/handlers"
	"github.com/trentd187/match-point-league/internal/identity"
	"github.com/trentd187/match-point-league/internal/livefeed"
	"github.com/trentd187/match-point-league/internal/logging"
	"github.com/trentd187/match-point-league/internal/middleware"
	"github.com/trentd187/match-point-league/internal/models"
	"github.com/trentd187/match-point-league/internal/session"
	"github.com/trentd187/match-point-league/internal/store"
	"github.com/trentd187/match-point-league/internal/validation"
	"github.com/trentd187/match-point-league/internal/zipcode"
)

func main() {
	// Load configuration from environment variables (and optionally a .env file).
	cfg := config.Load()
	log := logging.Setup(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL, database.Options{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: 30 * time.Minute,
		SlowQuery:       200 * time.Millisecond,
	}, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Run any pending SQL migrations so the schema matches the models before
	// the first request arrives.
	if err := database.RunMigrations(cfg.MigrationsPath, cfg.DatabaseURL); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	firebase, err := identity.NewFirebase(ctx, identity.FirebaseConfig{
		ProjectID:       cfg.FirebaseProjectID,
		CredentialsFile: cfg.FirebaseCredentialsFile,
		APIKey:          cfg.FirebaseAPIKey,
	}, log)
	if err != nil {
		log.Error("failed to initialise firebase", "error", err)
		os.Exit(1)
	}

	users := store.NewUserStore(db)
	zips := zipcode.NewClient(cfg.ZipLookupURL, cfg.ZipLookupTimeout, log)
	sessions := session.NewIssuer(cfg.SessionSecret, cfg.SessionTTL)

	svc := accounts.NewService(accounts.ServiceDeps{
		Identity:       firebase,
		Users:          users,
		Validator:      validation.New(zips),
		Tokens:         sessions,
		Logger:         log,
		SignupTimeout:  cfg.SignupTimeout,
		StoreRetries:   cfg.StoreRetries,
		StoreRetryBase: cfg.StoreRetryBase,
	})

	// The hub fans match updates out to everyone watching a court.
	hub := livefeed.NewHub(log)
	go hub.Run(ctx.Done())

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.AuthRatePerSecond), cfg.AuthRateBurst)
	go limiter.RunCleanup(5*time.Minute, ctx.Done())

	app := fiber.New(fiber.Config{
		AppName:               "Match Point League API",
		ErrorHandler:          handlers.ErrorHandler(log),
		DisableStartupMessage: cfg.IsProduction(),
	})

	// --- Global middleware ---
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowedOrigins, ","),
	}))

	registerRoutes(app, routeDeps{
		db:       db,
		svc:      svc,
		users:    users,
		zips:     zips,
		hub:      hub,
		limiter:  limiter,
		sessions: sessions,
		firebase: firebase,
		log:      log,
	})

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("shutdown failed", "error", err)
		}
	}()

	log.Info("starting server", "port", cfg.Port, "env", cfg.Env)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

type routeDeps struct {
	db       *gorm.DB
	svc      *accounts.Service
	users    *store.UserStore
	zips     *zipcode.Client
	hub      *livefeed.Hub
	limiter  *middleware.RateLimiter
	sessions *session.Issuer
	firebase *identity.Firebase
	log      *slog.Logger
}

func registerRoutes(app *fiber.App, d routeDeps) {
	// --- Public routes (no auth required) ---
	app.Get("/health", handlers.HealthCheck)
	app.Get("/ready", handlers.Ready(func(ctx context.Context) error {
		return database.Ping(ctx, d.db)
	}))

	// Sign-up and sign-in are public but rate limited per client IP.
	auth := app.Group("/api/v1/auth", d.limiter.Limit())
	auth.Post("/signup", handlers.SignUp(d.svc))
	auth.Post("/signin", handlers.SignIn(d.svc))

	// --- Authenticated API routes ---
	// Every route in this group needs a session token or a Firebase ID token.
	api := app.Group("/api/v1", middleware.Auth(middleware.AuthDeps{
		Sessions: d.sessions,
		Firebase: d.firebase,
		Profiles: d.users,
		Logger:   d.log,
	}))

	api.Get("/me", handlers.GetMe(d.users))
	api.Patch("/me", handlers.UpdateMe(d.users, d.zips, d.log))

	api.Get("/courts", handlers.ListCourts(d.db))
	api.Get("/courts/:id", handlers.GetCourt(d.db))
	api.Get("/courts/:id/feed", handlers.CourtFeed(d.db, d.hub))
	api.Post("/courts",
		middleware.RequireRole(models.UserRoleAdmin, models.UserRoleOrganizer),
		handlers.CreateCourt(d.db, d.zips))

	api.Get("/matches", handlers.ListMatches(d.db))
	api.Post("/matches", handlers.CreateMatch(d.db, d.hub, d.log))
	api.Post("/matches/:id/join", handlers.JoinMatch(d.db, d.hub, d.log))
}
