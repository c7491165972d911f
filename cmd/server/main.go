package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/saaskit/backend/docs"
	"github.com/saaskit/backend/internal/audit"
	"github.com/saaskit/backend/internal/config"
	"github.com/saaskit/backend/internal/database"
	"github.com/saaskit/backend/internal/handlers"
	mW "github.com/saaskit/backend/internal/middleware"
	"github.com/saaskit/backend/internal/observability"
	"github.com/saaskit/backend/internal/services"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title SaaS Kit Backend API
// @version 1.0
// @description Credits, first-run setup and pricing API
// @host localhost:8080
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// Initialize config
	viper.SetConfigFile(config.DefaultEnvFile) // explicitly point to .env file
	viper.SetConfigType("env")
	viper.AutomaticEnv() // allow environment variables to override .env

	viper.BindEnv("database.url", "DATABASE_URL")
	viper.BindEnv("auth.secret", "AUTH_SECRET", "BETTER_AUTH_SECRET")
	viper.BindEnv("app.name", "APP_NAME")
	viper.BindEnv("app.primary_color", "PRIMARY_COLOR")
	viper.BindEnv("app.logo_url", "LOGO_URL")

	viper.BindEnv("redis.url", "REDIS_URL")
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("billing.enabled", "BILLING_ENABLED", "NEXT_PUBLIC_AUTUMN_ENABLED")
	viper.BindEnv("billing.catalog_url", "BILLING_CATALOG_URL")
	viper.BindEnv("billing.api_key", "BILLING_API_KEY")
	viper.BindEnv("billing.cache_ttl", "BILLING_CACHE_TTL")

	viper.BindEnv("setup.marker_path", "SETUP_MARKER_PATH")
	viper.BindEnv("server.port", "PORT")
	viper.BindEnv("server.request_timeout", "REQUEST_TIMEOUT")
	viper.BindEnv("server.allowed_origins", "ALLOWED_ORIGINS")
	viper.BindEnv("log.level", "LOG_LEVEL")
	viper.BindEnv("log.format", "LOG_FORMAT")

	viper.SetDefault("setup.marker_path", config.DefaultMarkerPath)
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.request_timeout", 30*time.Second)
	viper.SetDefault("server.allowed_origins", []string{"https://*", "http://*"})
	viper.SetDefault("server.static_dir", "./public")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using environment: %v", err)
	}

	configureLogging()

	port := viper.GetString("server.port")

	// Initialize Swagger docs
	docs.SwaggerInfo.Host = "localhost:" + port
	docs.SwaggerInfo.BasePath = "/api"

	ctx := context.Background()

	setupState := config.LoadSetupState(viper.GetViper(), viper.GetString("setup.marker_path"), config.DefaultEnvFile)
	dbConfig := database.GetConfig()

	// The database is optional until the setup wizard has stored a connection string.
	var db *sql.DB
	if url := setupState.DatabaseURL(); url != "" {
		conn, err := database.InitDB(ctx, url, dbConfig)
		if err != nil {
			log.Warnf("Database unavailable, credit endpoints disabled: %v", err)
		} else {
			db = conn
			defer db.Close()
		}
	} else {
		log.Printf("No database configured, run the setup wizard to finish installation")
	}

	redisClient := database.InitRedis(ctx)
	if redisClient != nil {
		defer redisClient.Close()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)
	auditLogger := audit.NewLogger(log.StandardLogger())

	setupService := services.NewSetupService(
		setupState,
		database.NewPostgresProbe(dbConfig.ProbeTimeout),
		database.NewPostgresSchema(),
		auditLogger,
		metrics,
	)
	setupHandler := handlers.NewSetupHandler(setupService)
	planService := services.NewPlanService(config.LoadBillingConfig(viper.GetViper()), redisClient, metrics)
	health := observability.NewHealthChecker(db, redisClient)
	sessionGate := mW.NewSessionGate(setupState, redisClient)

	var creditHandler *handlers.CreditHandler
	if db != nil {
		creditService := services.NewCreditService(db, config.LoadLedgerConfig(), auditLogger, metrics)
		creditHandler = handlers.NewCreditHandler(creditService)
	}

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(middleware.Timeout(viper.GetDuration("server.request_timeout")))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   viper.GetStringSlice("server.allowed_origins"),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health checks
	r.Get("/health", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", metrics.Handler())

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// Branding assets
	r.Handle("/static/*", http.StripPrefix("/static/",
		mW.StaticFileServer(viper.GetString("server.static_dir"), setupState)))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Get("/plans", planService.GetPlans)

		r.Route("/setup", func(r chi.Router) {
			r.Get("/status", setupHandler.Status)
			r.Post("/test-db", setupHandler.TestDB)
			r.Post("/configure", setupHandler.Configure)
			r.Post("/init-db", setupHandler.InitDB)
		})

		// Protected endpoints (auth required)
		r.Route("/credits", func(r chi.Router) {
			r.Use(sessionGate.Middleware)

			if creditHandler == nil {
				r.HandleFunc("/*", setupRequired)
				r.HandleFunc("/", setupRequired)
				return
			}

			r.Get("/", creditHandler.GetCredits)
			r.Post("/", creditHandler.UseCredits)
			r.Get("/transactions", creditHandler.ListTransactions)
		})
	})

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s (setup complete: %t)", port, setupService.IsSetupComplete())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}

func configureLogging() {
	if viper.GetString("log.format") == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		log.Warnf("Unknown log level %q, using info", viper.GetString("log.level"))
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func setupRequired(w http.ResponseWriter, r *http.Request) {
	services.SendErrorResponse(w, "Setup required: database is not configured", http.StatusServiceUnavailable, nil)
}
