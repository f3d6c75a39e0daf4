package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/dusk-indust/modgraph/internal/record"
)

// SSEWriter writes Server-Sent Events to an http.ResponseWriter.
// Call Init once before writing any events to set the required headers.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter creates a new SSEWriter wrapping the given ResponseWriter.
// Without http.Flusher support writes still succeed but may be buffered.
func NewSSEWriter(w http.ResponseWriter) *SSEWriter {
	f, _ := w.(http.Flusher)
	return &SSEWriter{
		w:       w,
		flusher: f,
	}
}

// Init sets the SSE response headers and flushes them to the client.
func (sw *SSEWriter) Init() {
	h := sw.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	sw.w.WriteHeader(http.StatusOK)
	sw.flush()
}

// WriteEvent writes c as a single data frame:
//
//	data: {json}\n\n
func (sw *SSEWriter) WriteEvent(c record.Change) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("sse: marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("sse: write event: %w", err)
	}
	sw.flush()
	return nil
}

// WriteComment writes a comment line, which clients ignore. Used as a
// keep-alive.
func (sw *SSEWriter) WriteComment(text string) error {
	if _, err := fmt.Fprintf(sw.w, ": %s\n\n", text); err != nil {
		return fmt.Errorf("sse: write comment: %w", err)
	}
	sw.flush()
	return nil
}

func (sw *SSEWriter) flush() {
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
}

// handleEvents streams engine changes until the client goes away or the
// engine closes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	changes, cancel := s.engine.Subscribe()
	defer cancel()

	sw := NewSSEWriter(w)
	sw.Init()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.closing:
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			if err := sw.WriteEvent(c); err != nil {
				log.Printf("rpc: events: %v", err)
				return
			}
		case <-ticker.C:
			if err := sw.WriteComment("ping"); err != nil {
				return
			}
		}
	}
}

// ReadEvents reads SSE events from body and delivers them on the returned
// channel. The channel is closed when the body is exhausted, a read error
// occurs, or ctx is cancelled. The body is closed when reading finishes.
//
// Lines prefixed with "data:" carry the JSON payload; several data lines in
// one event are joined with newlines. Lines starting with ":" are comments.
// An empty line ends an event. Malformed JSON yields an Event with Err set
// and reading continues.
func ReadEvents(ctx context.Context, body io.ReadCloser) <-chan Event {
	ch := make(chan Event)
	go func() {
		defer close(ch)
		defer body.Close()

		// Unblock the scanner when ctx ends mid-read.
		stop := context.AfterFunc(ctx, func() { body.Close() })
		defer stop()

		scanner := bufio.NewScanner(body)
		var dataBuf strings.Builder

		for scanner.Scan() {
			line := scanner.Text()

			switch {
			case line == "":
				if dataBuf.Len() > 0 {
					emit(ctx, ch, dataBuf.String())
					dataBuf.Reset()
				}

			case strings.HasPrefix(line, ":"):

			case strings.HasPrefix(line, "data:"):
				payload := strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")
				if dataBuf.Len() > 0 {
					dataBuf.WriteByte('\n')
				}
				dataBuf.WriteString(payload)
			}
		}
		if dataBuf.Len() > 0 {
			emit(ctx, ch, dataBuf.String())
		}
	}()
	return ch
}

// emit unmarshals raw into a Change and sends it on ch, or sends an Event
// carrying the decode error.
func emit(ctx context.Context, ch chan<- Event, raw string) {
	var ev Event
	if err := json.Unmarshal([]byte(raw), &ev.Change); err != nil {
		ev = Event{Err: fmt.Errorf("sse: unmarshal event: %w", err)}
	}
	select {
	case ch <- ev:
	case <-ctx.Done():
	}
}
