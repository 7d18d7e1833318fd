package webserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/zsprackett/timestream/internal/stream"
)

// httpSink writes frames straight to the response. Flush goes through a
// ResponseController so a failed flush is reported instead of dropped.
type httpSink struct {
	w  io.Writer
	rc *http.ResponseController
}

func (s *httpSink) Write(p []byte) (int, error) { return s.w.Write(p) }

func (s *httpSink) Flush() error { return s.rc.Flush() }

func (s *Server) handleTimeStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Commit the headers now so clients see the stream open before the
	// first frame, and so a writer that cannot flush is caught while an
	// error status can still be sent.
	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		if errors.Is(err, http.ErrNotSupported) {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}
		s.logger.Warn("stream aborted", "stream", "sse", "request_id", requestID(r.Context()), "frames", 0, "err", err)
		return
	}

	s.runStream(r.Context(), "sse", &httpSink{w: w, rc: rc})
}

// runStream owns sink for the life of one session and returns once the loop
// has terminated. Transport failures end the session and are logged here;
// nothing is retried.
func (s *Server) runStream(ctx context.Context, kind string, sink stream.Sink) {
	log := s.logger.With("stream", kind, "request_id", requestID(ctx))
	log.Info("stream started", "interval", s.loop.Interval())

	start := time.Now()
	frames, err := s.loop.Run(ctx, sink)
	if err != nil {
		log.Warn("stream aborted", "frames", frames, "duration", time.Since(start), "err", err)
		return
	}
	log.Info("stream ended", "frames", frames, "duration", time.Since(start))
}
