package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/geosurvey/internal/adapters/http"
	"github.com/samirrijal/geosurvey/internal/adapters/memory"
	natsadapter "github.com/samirrijal/geosurvey/internal/adapters/nats"
	"github.com/samirrijal/geosurvey/internal/adapters/postgres"
	"github.com/samirrijal/geosurvey/internal/adapters/tabular"
	"github.com/samirrijal/geosurvey/internal/adapters/valkey"
	"github.com/samirrijal/geosurvey/internal/core/ports"
	"github.com/samirrijal/geosurvey/internal/core/usecases"
	"github.com/samirrijal/geosurvey/internal/pkg/config"
	"github.com/samirrijal/geosurvey/internal/pkg/logging"
	"github.com/samirrijal/geosurvey/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("geosurvey-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.SetupWith(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	deps := &http.Dependencies{MaxUploadBytes: int64(cfg.Survey.MaxUploadBytes)}

	// Storage
	var (
		projects  ports.ProjectRepository
		locations ports.LocationRepository
	)
	switch cfg.Database.Driver {
	case "memory":
		slog.Warn("using in-memory store; data is lost on exit")
		store := memory.New()
		projects, locations = store.Projects(), store.Locations()
		deps.DB = store
	default:
		db, err := postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		go db.ReportPoolStats(ctx, 15*time.Second)
		projects, locations = postgres.NewProjectRepo(db), postgres.NewLocationRepo(db)
		deps.DB = db
	}

	// Cache
	var cache ports.CacheService
	if c, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, map views are not cached", "error", err)
	} else {
		defer c.Close()
		cache = c
		deps.Cache = c
	}

	// NATS
	var publisher ports.EventPublisher
	if p, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, location events are not published", "error", err)
	} else {
		defer p.Close()
		publisher = p
	}

	// Raw NATS connection for WebSocket relay
	if nc, err := natsadapter.RawConn(cfg.NATS.URL); err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer nc.Close()
		deps.NATS = nc
		deps.Events = natsadapter.NewSubscriber(nc)
	}

	// Use cases
	codec := tabular.New()
	deps.Projects = usecases.NewProjectService(projects, cfg.Survey.DefaultUTMZone, cfg.Survey.DefaultUTMBand)
	deps.Locations = usecases.NewLocationService(projects, locations, codec, cache, publisher).
		WithMapTTL(cfg.Valkey.MapTTL)
	deps.Imports = usecases.NewImportService(projects, locations, codec, cache, publisher)

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Survey.MaxUploadBytes + 64*1024, // upload plus multipart overhead
		AppName:      "GeoSurvey API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,PUT,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "store", cfg.Database.Driver)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// In-flight imports finish or fail as a whole; give them up to 30s.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
