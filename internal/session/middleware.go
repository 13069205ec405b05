package session

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"quizdumps/internal/errors"
)

const contextKey = "quizdumps/session"

// Middleware loads the session before the handler runs and persists it
// right before the first byte of the response is written, so Save can
// still set cookie headers.
func (s *Store) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := s.Load(c.Request.Context(), c.Request)
		if err != nil {
			slog.ErrorContext(c.Request.Context(), "session: load failed", "error", err)
			c.AbortWithStatus(errors.Convert(err).HTTPStatusCode())
			return
		}

		sw := &savingWriter{
			ResponseWriter: c.Writer,
			ctx:            c.Request.Context(),
			store:          s,
			sess:           sess,
		}
		c.Writer = sw
		c.Set(contextKey, sess)

		c.Next()

		// Handlers that wrote nothing still get their session saved.
		sw.saveSession()
	}
}

// FromContext returns the request's session. It panics outside the
// session middleware.
func FromContext(c *gin.Context) *Session {
	return c.MustGet(contextKey).(*Session)
}

type savingWriter struct {
	gin.ResponseWriter
	ctx   context.Context
	store *Store
	sess  *Session
	saved bool
}

func (w *savingWriter) saveSession() {
	if w.saved {
		return
	}
	w.saved = true
	if err := w.store.Save(w.ctx, w.ResponseWriter, w.sess); err != nil {
		slog.ErrorContext(w.ctx, "session: save failed", "error", err)
	}
}

func (w *savingWriter) WriteHeader(code int) {
	w.saveSession()
	w.ResponseWriter.WriteHeader(code)
}

func (w *savingWriter) WriteHeaderNow() {
	w.saveSession()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *savingWriter) Write(b []byte) (int, error) {
	w.saveSession()
	return w.ResponseWriter.Write(b)
}

func (w *savingWriter) WriteString(s string) (int, error) {
	w.saveSession()
	return w.ResponseWriter.WriteString(s)
}

var _ http.ResponseWriter = (*savingWriter)(nil)
