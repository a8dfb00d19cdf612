package main

import (
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"trainingops/internal/config"
	"trainingops/internal/generators"
	"trainingops/internal/handlers"
	"trainingops/internal/jobs"
	"trainingops/internal/llm"
	"trainingops/internal/logging"
	"trainingops/internal/middleware"
	"trainingops/internal/services"
	"trainingops/internal/supabase"
	"trainingops/pkg/auth"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()
	logging.Init(cfg.Environment, cfg.LogLevel)
	slog.Info("starting trainingops server", "port", cfg.Port, "environment", cfg.Environment)

	// The analytics proxy and feedback route run with the lower-privilege key
	backend, err := supabase.NewFromConfig(cfg, config.AnonRole)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	verifier, err := auth.NewVerifier(cfg.SupabaseJWTSecret)
	if err != nil {
		if cfg.IsProduction() {
			log.Fatal("❌ SUPABASE_JWT_SECRET is required in production")
		}
		log.Println("⚠️  SUPABASE_JWT_SECRET not set: authenticated routes will answer 503")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := services.NewMetrics(registry)

	analyticsService := services.NewAnalyticsService(backend, cfg.AnalyticsCacheTTL, metrics)
	feedbackService := services.NewFeedbackService(backend)

	scheduler := startGenerationSchedule(cfg, metrics)

	app := fiber.New(fiber.Config{
		AppName:      "trainingops",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	prom := fiberprometheus.NewWithRegistry(registry, "trainingops", "http", "", nil)
	prom.RegisterAt(app, "/metrics")
	app.Use(prom.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// Fiber's CORS middleware does not allow AllowCredentials with wildcard origins
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: cfg.AllowedOrigins != "*",
	}))
	log.Printf("🔒 [SECURITY] CORS allowed origins: %s", cfg.AllowedOrigins)

	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Auth=%d/min",
		rateLimitConfig.GlobalAPIMax, rateLimitConfig.AuthenticatedMax)

	handlers.Routes{
		Health:    handlers.NewHealthHandler(backend),
		Analytics: handlers.NewAnalyticsHandler(analyticsService),
		Feedback:  handlers.NewFeedbackHandler(feedbackService),
		Verifier:  verifier,
		RateLimit: rateLimitConfig,
	}.Mount(app)

	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("🛑 Shutting down server...")

		if scheduler != nil {
			if err := scheduler.Stop(); err != nil {
				log.Printf("⚠️ Error stopping scheduler: %v", err)
			}
		}

		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// startGenerationSchedule registers the generation job when GENERATION_SCHEDULE
// is set. Generation writes, so it needs the service-role key; without it the
// schedule is disabled rather than failing startup.
func startGenerationSchedule(cfg *config.Config, metrics *services.Metrics) *jobs.Scheduler {
	if cfg.GenerationCron == "" {
		log.Println("⏰ GENERATION_SCHEDULE not set - generation job disabled")
		return nil
	}

	admin, err := supabase.NewFromConfig(cfg, config.ServiceRole)
	if err != nil {
		log.Printf("⚠️  Generation job disabled: %v", err)
		return nil
	}

	var completer generators.Completer
	if key, err := cfg.LLMKey(); err == nil {
		model, err := llm.New(cfg.LLMProvider, key, cfg.LLMModel)
		if err != nil {
			log.Printf("⚠️  llm generator unavailable: %v", err)
		} else {
			completer = model
		}
	}

	registry := generators.Builtins(services.NewTrainingService(admin), completer)
	algorithms := services.NewAlgorithmService(admin, registry, metrics)

	scheduler, err := jobs.NewScheduler()
	if err != nil {
		log.Printf("⚠️  Generation job disabled: %v", err)
		return nil
	}
	job := jobs.NewGenerationJob(algorithms, cfg.GenerationTable, 0)
	if err := scheduler.Register(jobs.GenerationJobName, cfg.GenerationCron, job); err != nil {
		log.Printf("⚠️  Generation job disabled: %v", err)
		return nil
	}

	scheduler.Start()
	for _, s := range scheduler.Status() {
		log.Printf("⏰ [SCHEDULER] %s next run at %s", s.Name, s.NextRunTime.Format(time.RFC3339))
	}
	return scheduler
}
