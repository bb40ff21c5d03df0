package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samirrijal/geosurvey/internal/adapters/memory"
	natsadapter "github.com/samirrijal/geosurvey/internal/adapters/nats"
	"github.com/samirrijal/geosurvey/internal/adapters/postgres"
	"github.com/samirrijal/geosurvey/internal/adapters/tabular"
	"github.com/samirrijal/geosurvey/internal/adapters/valkey"
	"github.com/samirrijal/geosurvey/internal/core/ports"
	"github.com/samirrijal/geosurvey/internal/core/usecases"
	"github.com/samirrijal/geosurvey/internal/pkg/config"
	"github.com/samirrijal/geosurvey/internal/pkg/logging"
)

// services are the use cases the subcommands drive.
type services struct {
	Projects  *usecases.ProjectService
	Locations *usecases.LocationService
	Imports   *usecases.ImportService
}

// opener builds services; the returned func releases connections.
type opener func(ctx context.Context) (*services, func(), error)

// openServices wires the same adapters as the API server. Cache and events
// are optional so a committed import still invalidates open map views when
// they are reachable.
func openServices(ctx context.Context) (*services, func(), error) {
	cfg, err := config.Load("geosurvey-importer")
	if err != nil {
		return nil, nil, err
	}
	logging.SetupWith(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     "text",
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var (
		projects  ports.ProjectRepository
		locations ports.LocationRepository
	)
	if cfg.Database.Driver == "memory" {
		store := memory.New()
		projects, locations = store.Projects(), store.Locations()
	} else {
		db, err := postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		closers = append(closers, db.Close)
		projects, locations = postgres.NewProjectRepo(db), postgres.NewLocationRepo(db)
	}

	var cache ports.CacheService
	if c, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Debug("valkey unavailable", "error", err)
	} else {
		closers = append(closers, c.Close)
		cache = c
	}

	var publisher ports.EventPublisher
	if p, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Debug("nats unavailable", "error", err)
	} else {
		closers = append(closers, p.Close)
		publisher = p
	}

	codec := tabular.New()
	return &services{
		Projects:  usecases.NewProjectService(projects, cfg.Survey.DefaultUTMZone, cfg.Survey.DefaultUTMBand),
		Locations: usecases.NewLocationService(projects, locations, codec, cache, publisher).WithMapTTL(cfg.Valkey.MapTTL),
		Imports:   usecases.NewImportService(projects, locations, codec, cache, publisher),
	}, closeAll, nil
}
