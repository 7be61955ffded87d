package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tangerg-labs/autoscholar/internal/sse"
)

// logEvent is one line of spec §6's stream(thread_id) SSE payload: one
// JSON object per session log line, with Node always "workflow".
type logEvent struct {
	Node string `json:"node"`
	Log  string `json:"log"`
}

// doneEvent / errorEvent are the terminal lines of the stream.
type doneEvent struct {
	Event string `json:"event"`
}

type errorEvent struct {
	Event  string `json:"event"`
	Detail string `json:"detail"`
}

// Stream handles GET /api/sessions/:thread_id/stream: it replays the
// session's current log lines as one SSE data frame each, then emits a
// terminal "done" (or "error", if the thread doesn't exist) event. This
// adapter reads the session status once rather than holding a live
// subscription, matching spec §5's "client disconnect does not cancel the
// engine" model: the stream is a read of already-durable state, not a
// channel the workflow writes into directly.
func (h *Handler) Stream(c *gin.Context) {
	threadID := c.Param("thread_id")

	writer, err := sse.NewWriter(&sse.WriterConfig{
		Context:        c.Request.Context(),
		ResponseWriter: c.Writer,
		HeartBeat:      15 * time.Second,
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	defer writer.Close()

	status, err := h.engine.Status(c.Request.Context(), threadID)
	if err != nil {
		_ = writer.SendData(errorEvent{Event: "error", Detail: err.Error()})
		return
	}

	for _, line := range status.Logs {
		if err := writer.SendData(logEvent{Node: "workflow", Log: line}); err != nil {
			return
		}
	}
	_ = writer.SendData(doneEvent{Event: "done"})
}
