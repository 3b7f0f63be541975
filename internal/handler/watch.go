package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"coachboard/internal/auth"
	"coachboard/internal/metrics"
)

// Watch streams the coach's roster over Server-Sent Events. The full list is
// sent on connect and re-sent whenever the store signals a change, including
// changes written by this same session: a mutation becomes visible only once
// it round-trips through the store, never optimistically. The subscription
// is released when the client disconnects.
func (h *Handler) Watch(c *gin.Context) {
	coachID := auth.CoachID(c)
	ctx := c.Request.Context()

	signals, err := h.svc.Watch(ctx, coachID)
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.WatchSessions.Inc()
	defer metrics.WatchSessions.Dec()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	send := func() bool {
		students, err := h.svc.List(ctx, coachID)
		if err != nil {
			h.log.Errorw("watch reload failed", "coach", coachID, "err", err)
			c.SSEvent("error", gin.H{"error": "store unavailable"})
			c.Writer.Flush()
			return false
		}
		c.SSEvent("students", gin.H{"students": students})
		c.Writer.Flush()
		return true
	}

	if !send() {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-signals:
			if !ok {
				return
			}
			if !send() {
				return
			}
		}
	}
}
