package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	recoverer "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/spf13/viper"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"dimria/internal/handlers"
	"dimria/internal/middleware"
	"dimria/internal/repositories"
	"dimria/internal/services"
	"dimria/pkg/database"
	"dimria/pkg/events"
	"dimria/pkg/metrics"
	"dimria/pkg/security"
)

// NewApp builds the configured Fiber application. The returned cleanup
// releases the database pool and the event publisher.
func NewApp() (*fiber.App, func(), error) {
	// --- Configuration ---
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("DB_DRIVER", "sqlite")
	viper.SetDefault("DB_DSN", "dimria.sqlite")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 10)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("JWT_SECRET", "change-me-in-production")
	viper.SetDefault("RABBITMQ_URL", "")
	viper.SetDefault("LOGIN_RATE_PER_MIN", 10.0)
	viper.SetDefault("LOGIN_BURST", 5)
	viper.AutomaticEnv()

	// --- Persistence Gateway ---
	gateway, err := database.New(database.Config{
		Driver:          viper.GetString("DB_DRIVER"),
		DSN:             viper.GetString("DB_DSN"),
		MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, nil, err
	}

	// --- Telemetry sink ---
	// The sanitizer's audit trail always reaches the log and the metrics
	// counter; with a broker configured it is mirrored to the security
	// queue as well.
	sinks := security.MultiSink{security.LogSink{}, metrics.AuditSink{}}
	var publisher *events.Client
	if url := viper.GetString("RABBITMQ_URL"); url != "" {
		publisher, err = events.NewClient(events.Config{URL: url})
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, publisher)
	}
	sanitizer := security.NewSanitizer(sinks)

	// --- Repositories ---
	propertyRepo := repositories.NewGORMPropertyRepository(gateway.DB())
	userRepo := repositories.NewGORMUserRepository(gateway.DB())

	// --- Services ---
	accountService := services.NewAccountService(userRepo, sanitizer, viper.GetString("JWT_SECRET"))
	var eventPublisher services.EventPublisher
	if publisher != nil {
		eventPublisher = publisher
	}
	propertyService := services.NewPropertyService(propertyRepo, sanitizer, eventPublisher)

	// --- Handlers ---
	store := session.New()
	viewer := handlers.PassthroughViewer{}
	authHandler := handlers.NewAuthHandler(accountService, store, viewer, sanitizer)
	propertyHandler := handlers.NewPropertyHandler(propertyService, store, viewer, sanitizer)
	apiHandler := handlers.NewPropertyAPIHandler(propertyService, sanitizer)

	// --- Fiber App ---
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
	})

	// --- Middleware ---
	app.Use(recoverer.New())
	app.Use(logger.New())
	app.Use(middleware.Metrics())

	// --- Routes ---
	loginLimiter := middleware.NewRateLimiter(
		viper.GetFloat64("LOGIN_RATE_PER_MIN"),
		viper.GetInt("LOGIN_BURST"),
	)
	authHandler.RegisterRoutes(app, loginLimiter.Middleware())
	propertyHandler.RegisterRoutes(app)
	apiHandler.RegisterRoutes(app, middleware.AuthRequired(accountService))

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// --- Metrics Endpoint ---
	promHandler := fasthttpadaptor.NewFastHTTPHandler(metrics.Handler())
	app.Get("/metrics", func(c *fiber.Ctx) error {
		promHandler(c.Context())
		return nil
	})

	// --- Fallbacks ---
	// Unmatched paths answer 404; the reserved admin prefix answers 403.
	app.Use(handlers.NotFoundFallback)

	cleanup := func() {
		if err := gateway.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
		if publisher != nil {
			if err := publisher.Close(); err != nil {
				log.Printf("Error closing event publisher: %v", err)
			}
		}
	}
	return app, cleanup, nil
}

func main() {
	app, cleanup, err := NewApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer cleanup()

	appPort := viper.GetString("APP_PORT")
	log.Printf("Starting server on port %s", appPort)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(appPort); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}
