package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/notifier"
)

// StreamHandler exposes the live notification hub over Server-Sent Events.
type StreamHandler struct {
	Hub *notifier.Hub
}

func NewStreamHandler(hub *notifier.Hub) *StreamHandler {
	if hub == nil {
		panic("nil hub passed to NewStreamHandler")
	}
	return &StreamHandler{Hub: hub}
}

// keepAliveEvery bounds how long a proxy sees an idle SSE connection.
const keepAliveEvery = 25 * time.Second

// Stream subscribes the client to the topics named in the `topics` query
// parameter (comma separated) and relays hub messages as SSE events until
// the client disconnects.  With no topics the client gets new-event
// announcements only.
func (h *StreamHandler) Stream(c echo.Context) error {
	topics := splitTopics(c.QueryParam("topics"))
	if len(topics) == 0 {
		topics = []string{notifier.TopicNewEvent}
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)

	flusher, ok := res.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming unsupported")
	}

	sub := h.Hub.Subscribe(topics...)
	defer h.Hub.Unsubscribe(sub)

	// Initial comment confirms the stream is open before any event fires.
	fmt.Fprintf(res, ": connected %s\n\n", sub.ID)
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveEvery)
	defer keepAlive.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-keepAlive.C:
			fmt.Fprint(res, ": keep-alive\n\n")
			flusher.Flush()
		case msg, ok := <-sub.C:
			if !ok {
				return nil
			}
			if err := writeSSE(res, msg); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}

func writeSSE(res *echo.Response, msg notifier.Message) error {
	// Payload is already JSON-encoded by the hub.
	_, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", msg.Topic, msg.Payload)
	return err
}

func splitTopics(raw string) []string {
	parts := strings.Split(raw, ",")
	topics := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}
