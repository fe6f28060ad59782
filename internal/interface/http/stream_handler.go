package handlers

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/feedstream/internal/monitoring"
	"github.com/oksasatya/feedstream/internal/realtime"
)

type StreamHandler struct {
	Hub    *realtime.Hub
	Logger *logrus.Logger
}

func NewStreamHandler(hub *realtime.Hub, logger *logrus.Logger) *StreamHandler {
	return &StreamHandler{Hub: hub, Logger: logger}
}

const keepAliveInterval = 25 * time.Second

// Stream GET /api/feed/stream
// Server-sent events: every mutation broadcast on the hub is written to
// the client as a "posts" event. No replay: a client only sees events
// published while it is connected.
func (h *StreamHandler) Stream(c *gin.Context) {
	sub := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(sub)

	monitoring.StreamSubscribers.Inc()
	defer monitoring.StreamSubscribers.Dec()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-sub.C():
			if !ok {
				return false
			}
			c.SSEvent("posts", msg)
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		case <-clientGone:
			return false
		}
	})
}
