package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader/internal/service"
)

const eventsPingInterval = 30 * time.Second

// EventsHandler streams grading events over a websocket.
type EventsHandler struct {
	events service.EventPublisher
	logger zerolog.Logger
}

// NewEventsHandler constructs the events handler.
func NewEventsHandler(events service.EventPublisher, logger zerolog.Logger) *EventsHandler {
	return &EventsHandler{
		events: events,
		logger: logger.With().Str("component", "events_handler").Logger(),
	}
}

// Register binds the websocket route under the provided router group.
func (h *EventsHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *EventsHandler) handleConnection(conn *websocket.Conn) {
	group := strings.TrimSpace(conn.Query("group"))
	correlation, _ := conn.Locals("correlation_id").(string)
	logger := h.logger.With().Str("group", group).Str("correlation_id", correlation).Logger()

	updates, unsubscribe := h.events.Subscribe()
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	logger.Info().Msg("events websocket connected")
	defer logger.Info().Msg("events websocket disconnected")

	ticker := time.NewTicker(eventsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case event, ok := <-updates:
			if !ok {
				return
			}
			if group != "" && event.Group != "" && !strings.EqualFold(event.Group, group) {
				continue
			}
			if err := conn.WriteJSON(event); err != nil {
				logger.Warn().Err(err).Str("event", event.Type).Msg("failed to write grading event")
				return
			}
		}
	}
}
