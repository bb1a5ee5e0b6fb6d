package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/event-attendance/internal/broadcast"
)

const streamHeartbeatInterval = 30 * time.Second

type updateSource interface {
	Subscribe(topic string) (<-chan broadcast.Update, func())
}

// StreamHandler serves live attendance aggregates over Server-Sent Events.
// Each connected client gets its own buffered subscription; a client that
// cannot keep up misses updates rather than slowing the publishers down.
type StreamHandler struct {
	source    updateSource
	responder responder
	logger    *slog.Logger
}

func NewStreamHandler(source updateSource, logger *slog.Logger) *StreamHandler {
	base := defaultLogger(logger)
	return &StreamHandler{source: source, responder: newResponder(base), logger: base}
}

func (h *StreamHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "StreamHandler", operation, attrs...)
}

// StreamAll streams updates for every event.
func (h *StreamHandler) StreamAll(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, broadcast.TopicAllEvents)
}

// StreamEvent streams updates for the event resolved from the request path.
func (h *StreamHandler) StreamEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}
	h.stream(w, r, broadcast.TopicEvent(eventID))
}

func (h *StreamHandler) stream(w http.ResponseWriter, r *http.Request, topic string) {
	if h == nil || h.source == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.log(r.Context(), "stream", "topic", topic).ErrorContext(r.Context(), "response writer does not support streaming")
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "stream", "topic", topic)

	updates, cancel := h.source.Subscribe(topic)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	logger.InfoContext(r.Context(), "stream opened")
	defer logger.InfoContext(r.Context(), "stream closed")

	heartbeat := time.NewTicker(streamHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case update, open := <-updates:
			if !open {
				return
			}
			payload, err := json.Marshal(update)
			if err != nil {
				logger.ErrorContext(r.Context(), "failed to encode update", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: attendance\ndata: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
