package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/codeagentix/internal/llm"
)

// streamWriter relays model output as chunked text/plain.
//
// Headers are committed by the first chunk. Until then a failure can still
// become a proper JSON error; afterwards the status is already 200, so the
// error is appended to the body as a final "Error:" line.
type streamWriter struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	logger  *slog.Logger
	started bool
}

func newStreamWriter(w http.ResponseWriter, logger *slog.Logger) *streamWriter {
	return &streamWriter{w: w, rc: http.NewResponseController(w), logger: logger}
}

func (s *streamWriter) start() {
	if s.started {
		return
	}
	h := s.w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Accel-Buffering", "no") // nginx: do not buffer
	s.w.WriteHeader(http.StatusOK)
	s.started = true
}

// Emit writes one chunk and flushes it to the client.
func (s *streamWriter) Emit(chunk string) error {
	s.start()
	if _, err := s.w.Write([]byte(chunk)); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

// Finish ends the response according to the pipeline's result.
func (s *streamWriter) Finish(ctx context.Context, err error) {
	switch {
	case err == nil:
		s.start()
	case llm.IsSinkError(err) || ctx.Err() != nil:
		// The client is gone; nothing can be written.
		s.logger.Debug("stream abandoned by client", slog.String("error", err.Error()))
	case !s.started:
		writeError(s.w, err)
	default:
		_, _, msg := errorStatus(err)
		_, _ = s.w.Write([]byte("\nError: " + msg))
		_ = s.rc.Flush()
	}
}
