package handlers

import (
	"bufio"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/trentd187/match-point-league/internal/livefeed"
	"github.com/trentd187/match-point-league/internal/models"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"
)

const (
	feedBuffer    = 16
	feedKeepAlive = 15 * time.Second
)

// CourtFeed returns a handler for GET /api/v1/courts/:id/feed.
// It streams the court's match events as Server-Sent Events until the client
// disconnects or the hub drops the subscriber for being too slow.
func CourtFeed(db *gorm.DB, hub *livefeed.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return badRequest(c, "invalid court ID", nil)
		}
		var court models.Court
		err = db.WithContext(c.UserContext()).Select("id").First(&court, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "court not found"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch court"})
		}

		sub := hub.Subscribe(id.String(), feedBuffer)
		if sub == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "feed unavailable"})
		}

		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")

		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			ticker := time.NewTicker(feedKeepAlive)
			defer ticker.Stop()
			defer hub.Unsubscribe(sub)
			streamFeed(w, sub.Send, ticker.C)
		}))
		return nil
	}
}

// streamFeed copies events to w until events is closed or a write fails
// (the client went away). Each keepalive tick writes an SSE comment line.
func streamFeed(w *bufio.Writer, events <-chan []byte, keepalive <-chan time.Time) {
	for {
		select {
		case data, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(w, "match", data); err != nil {
				return
			}
		case <-keepalive:
			if _, err := w.WriteString(": ping\n\n"); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}
}

// writeEvent writes one SSE frame and flushes it to the client.
func writeEvent(w *bufio.Writer, event string, data []byte) error {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}
