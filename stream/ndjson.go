package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/studyarch/tutorflow/core"
)

// WriteNDJSON streams events to an HTTP response as newline-delimited JSON,
// flushing after every frame so fragments reach the client as they are
// produced. It returns when the event channel closes (terminal frame
// delivered) or the request context is cancelled.
func WriteNDJSON(ctx context.Context, w http.ResponseWriter, events <-chan core.StreamEvent) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("response writer does not support streaming")
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no") // nginx proxy compatibility
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	enc := json.NewEncoder(w)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := enc.Encode(ev); err != nil {
				return fmt.Errorf("write frame: %w", err)
			}
			flusher.Flush()
		}
	}
}
