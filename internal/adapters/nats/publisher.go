package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geosurvey/internal/core/domain"
)

// Subjects. Per-project events are suffixed with the project ID.
const (
	SubjectImported = "survey.locations.imported"
	SubjectChanged  = "survey.locations.changed"
	streamName      = "SURVEY_LOCATIONS"
)

// ProjectSubject returns the per-project subject for base.
func ProjectSubject(base, projectID string) string {
	return base + "." + projectID
}

// Event is the payload pushed to subscribers after a write.
type Event struct {
	Type      string    `json:"type"`
	ProjectID string    `json:"project_id"`
	Inserted  int       `json:"inserted,omitempty"`
	Location  string    `json:"location_id,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := &nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{"survey.locations.>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

func (p *Publisher) PublishLocationsImported(ctx context.Context, result *domain.ImportResult) error {
	return p.publish(ctx, ProjectSubject(SubjectImported, result.ProjectID), Event{
		Type:      "imported",
		ProjectID: result.ProjectID,
		Inserted:  result.Inserted,
		At:        result.At,
	})
}

func (p *Publisher) PublishLocationChanged(ctx context.Context, loc *domain.Location) error {
	return p.publish(ctx, ProjectSubject(SubjectChanged, loc.ProjectID), Event{
		Type:      "changed",
		ProjectID: loc.ProjectID,
		Location:  loc.ID,
		At:        time.Now().UTC(),
	})
}

func (p *Publisher) publish(ctx context.Context, subject string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(subject, data, nats.Context(ctx))
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
