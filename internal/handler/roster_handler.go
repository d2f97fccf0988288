package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/trombinoscope-api/internal/middleware"
	"github.com/noah-isme/trombinoscope-api/internal/service"
	"github.com/noah-isme/trombinoscope-api/internal/utils"
)

// RosterHandler pushes the roster to live clients. Websocket clients get a
// full snapshot after every change; the event stream sends one snapshot and
// then the change events themselves.
type RosterHandler struct {
	service   service.RosterService
	logger    zerolog.Logger
	keepAlive time.Duration
}

// NewRosterHandler constructs a live roster handler.
func NewRosterHandler(service service.RosterService, logger zerolog.Logger, keepAlive time.Duration) *RosterHandler {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}
	return &RosterHandler{
		service:   service,
		logger:    logger.With().Str("component", "roster_handler").Logger(),
		keepAlive: keepAlive,
	}
}

// Register binds the snapshot, stream and websocket routes.
func (h *RosterHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			// The fasthttp request context is recycled once the upgrade returns.
			c.Locals("request_ctx", middleware.ContextWithCorrelation(context.Background(), middleware.GetCorrelationID(c)))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("", h.snapshot)
	router.Get("/stream", h.stream)
	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *RosterHandler) snapshot(c *fiber.Ctx) error {
	snapshot, err := h.service.Snapshot(requestContext(c))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to load roster snapshot")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load roster")
	}
	return utils.SendSuccess(c, "roster snapshot", snapshot)
}

func (h *RosterHandler) stream(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx, cancel := context.WithCancel(requestContext(c))
	changes, cleanup := h.service.Subscribe()
	logger := requestLogger(h.logger, c)

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			cleanup()
			cancel()
		}()

		if err := h.writeSnapshotEvent(ctx, w); err != nil {
			logger.Debug().Err(err).Msg("failed to write initial roster snapshot")
			return
		}

		ticker := time.NewTicker(h.keepAlive / 2)
		defer ticker.Stop()

		for {
			select {
			case change, ok := <-changes:
				if !ok {
					return
				}
				if err := writeEvent(w, "change", change); err != nil {
					logger.Debug().Err(err).Msg("failed to write roster change")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					logger.Debug().Err(err).Msg("failed to write roster keepalive")
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})

	return nil
}

func (h *RosterHandler) writeSnapshotEvent(ctx context.Context, w *bufio.Writer) error {
	snapshot, err := h.service.Snapshot(ctx)
	if err != nil {
		return err
	}
	return writeEvent(w, "roster", snapshot)
}

func writeEvent(w *bufio.Writer, name string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", name); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

func (h *RosterHandler) handleConnection(conn *websocket.Conn) {
	ctx, _ := conn.Locals("request_ctx").(context.Context)
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := h.logger.With().Str("correlation_id", middleware.CorrelationIDFromContext(ctx)).Logger()
	changes, cleanup := h.service.Subscribe()
	defer cleanup()

	// The read loop only detects the peer going away; clients never send.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	logger.Info().Msg("roster websocket connected")
	defer logger.Info().Msg("roster websocket disconnected")

	if err := h.sendSnapshot(ctx, conn); err != nil {
		logger.Debug().Err(err).Msg("failed to send initial roster snapshot")
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case _, ok := <-changes:
			if !ok {
				return
			}
			if err := h.sendSnapshot(ctx, conn); err != nil {
				logger.Debug().Err(err).Msg("roster write loop terminated")
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				logger.Debug().Err(err).Msg("roster ping failed")
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *RosterHandler) sendSnapshot(ctx context.Context, conn *websocket.Conn) error {
	snapshot, err := h.service.Snapshot(ctx)
	if err != nil {
		return err
	}
	return conn.WriteJSON(snapshot)
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, ": keep-alive %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return w.Flush()
}
