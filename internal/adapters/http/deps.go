package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geosurvey/internal/core/ports"
	"github.com/samirrijal/geosurvey/internal/core/usecases"
)

// Pinger is anything the readiness check can ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Projects  *usecases.ProjectService
	Locations *usecases.LocationService
	Imports   *usecases.ImportService
	NATS      *nats.Conn
	Events    ports.EventSubscriber
	DB        Pinger
	Cache     Pinger

	// MaxUploadBytes caps import uploads; zero means the fiber body limit.
	MaxUploadBytes int64

	// DocsPath locates the OpenAPI document served under /docs.
	DocsPath string
}
