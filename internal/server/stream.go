package server

import (
	"fmt"
	"log/slog"
	"net/http"
)

// handleStream sends each summary as one server-sent event until the client
// goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub)

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		summary, err := sub.Next(r.Context())
		if err != nil {
			slog.Debug("stream closed", "remote", r.RemoteAddr, "dropped", sub.Dropped(), "reason", err)
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", summary); err != nil {
			return
		}
		flusher.Flush()
	}
}
