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

	"github.com/velvethours/partyline/internal/config"
	"github.com/velvethours/partyline/internal/database"
	"github.com/velvethours/partyline/internal/handlers"
	"github.com/velvethours/partyline/internal/logging"
	"github.com/velvethours/partyline/internal/middleware"
	"github.com/velvethours/partyline/internal/services"
	"github.com/velvethours/partyline/internal/wrapped"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	logger := logging.New()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Server.Debug {
		logger.SetLevel(logging.LevelDebug)
		logging.SetDefaultLevel(logging.LevelDebug)
	}

	logger.Info("Starting Partyline server", map[string]interface{}{
		"party": cfg.Party.ID,
		"env":   cfg.Server.Environment,
	})

	location, err := time.LoadLocation(cfg.Party.Timezone)
	if err != nil {
		logger.Warn("Invalid party timezone; falling back to UTC", map[string]interface{}{
			"timezone": cfg.Party.Timezone,
		})
		location = time.UTC
	}

	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()

	logger.Info("Running database migrations")
	migrator, err := database.NewMigrator(cfg.Database.DSN(), "migrations")
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	_ = migrator.Close()

	logger.Info("Connecting to Redis", map[string]interface{}{"addr": cfg.Redis.Addr()})
	redisDB, err := database.NewRedisDB(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()

	// Services
	dbAdapter := services.NewPoolAdapter(db.Pool)
	redisAdapter := services.NewRedisAdapter(redisDB.Client)

	tierService := services.NewTierService(dbAdapter)
	registrationService := services.NewRegistrationService(dbAdapter)
	ticketService := services.NewTicketService(dbAdapter)
	ticketService.SetRedis(redisAdapter)

	var sender services.EmailSender
	if cfg.Email.Provider == "resend" && cfg.Email.ResendAPIKey != "" {
		from := fmt.Sprintf("%s <%s>", cfg.Email.FromName, cfg.Email.FromAddress)
		sender = services.NewResendSender(cfg.Email.ResendAPIKey, from)
	} else {
		sender = services.ConsoleSender{}
		logger.Info("Using console email provider")
	}
	emailService := services.NewEmailService(sender, cfg.Party.Name, cfg.Email.BaseURL)

	registrationService.SetTicketIssuer(ticketService)
	registrationService.SetMailer(emailService)

	matchRowStore := services.NewMatchRowStore(dbAdapter)
	cachedRows := services.NewCachedRowSource(matchRowStore, redisAdapter)

	adminAuth := services.NewAdminAuthService(redisAdapter, cfg.OAuth.AdminEmails, cfg.OAuth.AdminPasswordHash)

	var oauthProvider services.AuthProvider
	if cfg.OAuth.Google.Enabled {
		provider, err := services.NewOIDCProvider(context.Background(), services.OIDCConfig{
			ClientID:     cfg.OAuth.Google.ClientID,
			ClientSecret: cfg.OAuth.Google.ClientSecret,
			RedirectURL:  cfg.OAuth.Google.RedirectURL,
			IssuerURL:    cfg.OAuth.Google.IssuerURL,
			Scopes:       cfg.OAuth.Google.Scopes,
		})
		if err != nil {
			return fmt.Errorf("initializing oidc provider: %w", err)
		}
		oauthProvider = provider
	}

	schedule := wrapped.UnlockSchedule{
		MajorMinorAt: cfg.Wrapped.MajorMinorAt,
		HometownAt:   cfg.Wrapped.HometownAt,
		HobbiesAt:    cfg.Wrapped.HobbiesAt,
		FullAt:       cfg.Wrapped.FullAt,
	}
	scriptBuilder := wrapped.NewBuilder(schedule, location, cachedRows)

	// Handlers
	healthHandler := handlers.NewHealthHandler(db, redisDB)
	registrationHandler := handlers.NewRegistrationHandler(registrationService, tierService, cfg.Party.ID)
	ticketHandler := handlers.NewTicketHandler(ticketService, registrationService, cfg.Party.Name, location)
	wrappedHandler := handlers.NewWrappedHandler(scriptBuilder, ticketService, cfg.Party.ID)
	adminHandler := handlers.NewAdminHandler(tierService, registrationService, matchRowStore, cfg.Party.ID)
	adminHandler.SetCacheInvalidator(cachedRows)
	authHandler := handlers.NewAuthHandler(oauthProvider, adminAuth, cfg.Server.Secure)

	// Middleware
	requestLogger := middleware.NewRequestLogger(logger)
	requireAdmin := middleware.NewRequireAdmin(adminAuth)

	ipKey := func(r *http.Request) string { return middleware.GetClientIP(r) }
	registerLimiter := middleware.NewRateLimiter(redisDB.Client, 10, time.Minute, "ratelimit:register:", ipKey, true)
	checkinLimiter := middleware.NewRateLimiter(redisDB.Client, 60, time.Minute, "ratelimit:checkin:", ipKey, true)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /live", healthHandler.Live)

	mux.Handle("POST /api/register", registerLimiter.Middleware(http.HandlerFunc(registrationHandler.Register)))
	mux.HandleFunc("GET /api/registrations/{id}", registrationHandler.Get)
	mux.HandleFunc("GET /api/tiers", registrationHandler.ListTiers)

	mux.HandleFunc("GET /api/tickets/{token}", ticketHandler.Get)
	mux.HandleFunc("GET /t/img/{token}", ticketHandler.PassImage)
	mux.Handle("POST /api/checkin", checkinLimiter.Middleware(http.HandlerFunc(ticketHandler.CheckIn)))

	mux.HandleFunc("GET /api/wrapped-script", wrappedHandler.Script)

	mux.HandleFunc("GET /auth/login", authHandler.Start)
	mux.HandleFunc("GET /auth/callback", authHandler.Callback)
	mux.HandleFunc("POST /auth/password", authHandler.PasswordLogin)
	mux.HandleFunc("POST /auth/logout", authHandler.Logout)

	mux.Handle("GET /api/admin/tiers", requireAdmin.Apply(http.HandlerFunc(adminHandler.ListTiers)))
	mux.Handle("POST /api/admin/tiers", requireAdmin.Apply(http.HandlerFunc(adminHandler.CreateTier)))
	mux.Handle("PUT /api/admin/tiers/{id}", requireAdmin.Apply(http.HandlerFunc(adminHandler.UpdateTier)))
	mux.Handle("POST /api/admin/tiers/{id}/promote", requireAdmin.Apply(http.HandlerFunc(adminHandler.PromoteNext)))
	mux.Handle("GET /api/admin/registrations", requireAdmin.Apply(http.HandlerFunc(adminHandler.ListRegistrations)))
	mux.Handle("DELETE /api/admin/registrations/{id}", requireAdmin.Apply(http.HandlerFunc(adminHandler.CancelRegistration)))
	mux.Handle("POST /api/admin/matchrows/import", requireAdmin.Apply(http.HandlerFunc(adminHandler.ImportMatchRows)))

	// Middleware chain (order matters: outermost first)
	var handler http.Handler = mux
	handler = middleware.SecurityHeaders(handler)
	handler = requestLogger.Apply(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{"addr": addr})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}
