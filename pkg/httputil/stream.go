package httputil

import (
	"net/http"
)

// StreamWriter writes a chunked plain-text body and flushes on demand.
// The status line goes out with the first Write, so a handler can still
// fall back to RespondError while Written reports zero.
type StreamWriter struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	written int64
}

// NewStreamWriter prepares w for a streamed text response.
func NewStreamWriter(w http.ResponseWriter) *StreamWriter {
	h := w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Content-Type-Options", "nosniff")
	return &StreamWriter{w: w, rc: http.NewResponseController(w)}
}

func (s *StreamWriter) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	s.written += int64(n)
	return n, err
}

// Flush sends buffered bytes to the client.
func (s *StreamWriter) Flush() error {
	return s.rc.Flush()
}

// Written returns the number of body bytes written so far.
func (s *StreamWriter) Written() int64 {
	return s.written
}
