package http

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/geosurvey/internal/core/ports"
	"github.com/samirrijal/geosurvey/internal/pkg/metrics"
)

// WebSocketHandler relays location events for one project to the client so
// open map and table views can refresh. Connect with /ws?project_id=<id>.
func WebSocketHandler(events ports.EventSubscriber) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		projectID := c.Query("project_id")
		log := slog.Default().With("remote", c.RemoteAddr().String(), "project_id", projectID)
		if events == nil {
			log.Warn("ws rejected: no event source configured")
			return
		}

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()
		log.Info("ws client connected")

		var mu sync.Mutex
		write := func(mt int, data []byte) error {
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(mt, data)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		unsubscribe, err := events.SubscribeProjectChanges(ctx, projectID, func(_ context.Context, data []byte) error {
			return write(websocket.TextMessage, data)
		})
		if err != nil {
			log.Error("ws subscribe failed", "error", err)
			return
		}
		defer func() { _ = unsubscribe() }()

		// Keep-alive ping
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := write(websocket.PingMessage, nil); err != nil {
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		// The stream is one-way; reads only detect the client going away.
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		log.Info("ws client disconnected")
	}
}
